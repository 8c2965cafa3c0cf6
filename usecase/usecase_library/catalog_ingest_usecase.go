package usecase_library

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	mp4 "github.com/abema/go-mp4"
	"github.com/dhowden/tag"
	"github.com/h2non/filetype"

	"github.com/trackflow-audio/trackflow/domain/domain_library/library_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_library/library_models"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// audioExtensions 入库遍历接受的音频后缀
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".wav":  true,
	".aac":  true,
	".m4a":  true,
	".mp4":  true,
}

// CatalogIngestUsecase 目录扫描入库：
// 遍历媒体库目录，将音频文件与伴生JSON（<文件名>.json）配对，
// 解析标签与元数据向量后写入目录集合
type CatalogIngestUsecase struct {
	trackRepo   library_interface.TrackRepository
	workerPool  chan struct{}
	scanTimeout time.Duration
}

func NewCatalogIngestUsecase(
	trackRepo library_interface.TrackRepository,
	timeoutMinutes int,
) *CatalogIngestUsecase {
	if timeoutMinutes <= 0 {
		timeoutMinutes = 30
	}
	return &CatalogIngestUsecase{
		trackRepo:   trackRepo,
		workerPool:  make(chan struct{}, runtime.NumCPU()*2),
		scanTimeout: time.Duration(timeoutMinutes) * time.Minute,
	}
}

// IngestDirectory 扫描root下所有音频文件并入库
// 伴生JSON缺失或非法的文件计入Skipped，扫描结束后清理磁盘上已消失的轨道
func (uc *CatalogIngestUsecase) IngestDirectory(
	ctx context.Context,
	root string,
	channelID string,
) (*library_models.IngestReport, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.scanTimeout)
	defer cancel()

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if audioExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("媒体库遍历失败[%s]: %w", root, err)
	}

	report := &library_models.IngestReport{Scanned: len(paths)}
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		keepPaths []string
	)

	for _, path := range paths {
		select {
		case uc.workerPool <- struct{}{}:
		case <-ctx.Done():
			return report, ctx.Err()
		}
		wg.Add(1)

		go func(path string) {
			defer wg.Done()
			defer func() { <-uc.workerPool }()

			track, err := uc.buildTrack(root, path, channelID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
				return
			}
			if err := uc.trackRepo.Upsert(ctx, track); err != nil {
				report.Failed++
				report.Errors = append(report.Errors, err.Error())
				return
			}
			report.Ingested++
			keepPaths = append(keepPaths, path)
		}(path)
	}
	wg.Wait()

	if removed, err := uc.trackRepo.DeleteMissing(ctx, channelID, keepPaths); err != nil {
		slog.Warn("library: 目录清理失败", "channel_id", channelID, "error", err)
	} else if removed > 0 {
		slog.Info("library: 已清理消失的轨道", "channel_id", channelID, "removed", removed)
	}

	slog.Info("library: 目录扫描完成",
		"channel_id", channelID,
		"scanned", report.Scanned,
		"ingested", report.Ingested,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

// buildTrack 从伴生JSON与文件标签组装目录文档
func (uc *CatalogIngestUsecase) buildTrack(
	root, path, channelID string,
) (*library_models.CatalogTrack, error) {
	sidecar, err := readSidecar(path)
	if err != nil {
		return nil, err
	}
	if sidecar.ChannelID == "" {
		sidecar.ChannelID = channelID
	}
	if err := sidecar.Validate(); err != nil {
		return nil, err
	}
	if sidecar.ChannelID != channelID {
		return nil, fmt.Errorf("伴生元数据频道不匹配: %q", sidecar.ChannelID)
	}

	vector, err := sidecar.Vector()
	if err != nil {
		return nil, err
	}
	tier, _ := selection_models.ParseEnergyTier(sidecar.EnergyTier)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("文件状态获取失败: %w", err)
	}

	track := &library_models.CatalogTrack{
		ChannelID:  channelID,
		EnergyTier: tier,
		Title:      sidecar.Title,
		Artist:     sidecar.Artist,
		Album:      sidecar.Album,
		FilePath:   path,
		Size:       info.Size(),
		Suffix:     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Vector:     vector,
		Tags:       sidecar.Tags,
	}
	if rel, err := filepath.Rel(root, path); err == nil {
		track.StreamPath = filepath.ToSlash(rel)
	} else {
		track.StreamPath = filepath.Base(path)
	}

	if err := uc.enrichFromFile(path, track); err != nil {
		return nil, err
	}
	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return track, nil
}

// enrichFromFile 从文件本体补齐伴生JSON缺失的信息：
// 格式嗅探定内容类型，标签兜底标题/艺术家，mp4容器探测时长
func (uc *CatalogIngestUsecase) enrichFromFile(path string, track *library_models.CatalogTrack) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("文件访问失败: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("library: 文件关闭失败", "path", path, "error", err)
		}
	}()

	head := make([]byte, 261)
	n, _ := file.Read(head)
	if kind, _ := filetype.Match(head[:n]); kind.MIME.Value != "" {
		track.ContentType = kind.MIME.Value
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("文件定位失败: %w", err)
	}

	// 标签解析失败不阻断入库，伴生JSON已携带主要元数据
	if metadata, err := tag.ReadFrom(file); err == nil {
		if track.Title == "" {
			track.Title = metadata.Title()
		}
		if track.Artist == "" {
			track.Artist = metadata.Artist()
		}
		if track.Album == "" {
			track.Album = metadata.Album()
		}
		if genre := metadata.Genre(); genre != "" {
			if track.Tags == nil {
				track.Tags = map[string]interface{}{}
			}
			if _, ok := track.Tags["genre"]; !ok {
				track.Tags["genre"] = genre
			}
		}
	}

	if track.Suffix == "m4a" || track.Suffix == "mp4" || track.Suffix == "aac" {
		if _, err := file.Seek(0, 0); err != nil {
			return fmt.Errorf("文件定位失败: %w", err)
		}
		if probe, err := mp4.Probe(file); err == nil && probe.Timescale > 0 {
			track.Duration = float64(probe.Duration) / float64(probe.Timescale)
		}
	}
	return nil
}

// readSidecar 读取音频文件的伴生JSON（<path>.json）
func readSidecar(path string) (*library_models.SidecarMetadata, error) {
	sidecarPath := path + ".json"
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("伴生元数据缺失[%s]: %w", sidecarPath, err)
	}
	var sidecar library_models.SidecarMetadata
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("伴生元数据解析失败[%s]: %w", sidecarPath, err)
	}
	return &sidecar, nil
}
