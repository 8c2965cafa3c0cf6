package repository_library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trackflow-audio/trackflow/domain/domain_library/library_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_library/library_models"
	"github.com/trackflow-audio/trackflow/mongo"
)

type trackRepository struct {
	db         mongo.Database
	collection string
}

func NewTrackRepository(db mongo.Database, collection string) library_interface.TrackRepository {
	return &trackRepository{
		db:         db,
		collection: collection,
	}
}

// Upsert 以文件路径为天然键写入目录文档，重复扫描不产生重复记录
func (r *trackRepository) Upsert(ctx context.Context, track *library_models.CatalogTrack) error {
	coll := r.db.Collection(r.collection)
	now := time.Now().UTC()
	track.UpdatedAt = now

	filter := bson.M{"file_path": track.FilePath}
	update := bson.M{
		"$set": bson.M{
			"channel_id":   track.ChannelID,
			"energy_tier":  track.EnergyTier,
			"title":        track.Title,
			"artist":       track.Artist,
			"album":        track.Album,
			"stream_path":  track.StreamPath,
			"content_type": track.ContentType,
			"duration":     track.Duration,
			"size":         track.Size,
			"suffix":       track.Suffix,
			"vector":       track.Vector,
			"tags":         track.Tags,
			"updated_at":   track.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"file_path":  track.FilePath,
			"play_count": 0,
			"created_at": now,
		},
	}

	_, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("目录轨道upsert失败[%s]: %w", track.FilePath, err)
	}
	return nil
}

func (r *trackRepository) GetByPath(ctx context.Context, filePath string) (*library_models.CatalogTrack, error) {
	coll := r.db.Collection(r.collection)
	result := coll.FindOne(ctx, bson.M{"file_path": filePath})

	var track library_models.CatalogTrack
	if err := result.Decode(&track); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("目录轨道读取失败[%s]: %w", filePath, err)
	}
	return &track, nil
}

func (r *trackRepository) GetByStreamPath(ctx context.Context, streamPath string) (*library_models.CatalogTrack, error) {
	coll := r.db.Collection(r.collection)
	result := coll.FindOne(ctx, bson.M{"stream_path": streamPath})

	var track library_models.CatalogTrack
	if err := result.Decode(&track); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("目录轨道读取失败[%s]: %w", streamPath, err)
	}
	return &track, nil
}

// DeleteMissing 清理磁盘上已不存在的轨道文档
func (r *trackRepository) DeleteMissing(ctx context.Context, channelID string, keepPaths []string) (int64, error) {
	coll := r.db.Collection(r.collection)
	filter := bson.M{
		"channel_id": channelID,
		"file_path":  bson.M{"$nin": keepPaths},
	}
	count, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("目录清理失败[%s]: %w", channelID, err)
	}
	return count, nil
}

func (r *trackRepository) CountByChannel(ctx context.Context, channelID string) (int64, error) {
	coll := r.db.Collection(r.collection)
	return coll.CountDocuments(ctx, bson.M{"channel_id": channelID})
}
