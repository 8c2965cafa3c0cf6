package repository_playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trackflow-audio/trackflow/domain/domain_library/library_models"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
	"github.com/trackflow-audio/trackflow/mongo"
)

// sniffLen filetype嗅探所需的前缀字节数
const sniffLen = 261

type httpOrigin struct {
	db         mongo.Database
	collection string
	baseURL    string
	authToken  string
	client     *http.Client
}

// NewHTTPOrigin 构造HTTP源站：轨道定位从目录文档解析，流经HTTP拉取
func NewHTTPOrigin(
	db mongo.Database,
	collection string,
	baseURL string,
	authToken string,
	client *http.Client,
) playback_interface.ContentOrigin {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpOrigin{
		db:         db,
		collection: collection,
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		client:     client,
	}
}

// ResolveURL 轨道ID到投递地址：目录文档的stream_path拼接源站基址
func (o *httpOrigin) ResolveURL(ctx context.Context, trackID string) (string, error) {
	id, err := primitive.ObjectIDFromHex(trackID)
	if err != nil {
		return "", playback_models.NewDeliveryError(playback_models.ErrKindDecode, trackID,
			fmt.Errorf("轨道ID非法: %w", err))
	}

	coll := o.db.Collection(o.collection)
	var track library_models.CatalogTrack
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&track); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", playback_models.NewDeliveryError(playback_models.ErrKindDecode, trackID,
				fmt.Errorf("轨道不存在"))
		}
		return "", fmt.Errorf("轨道定位解析失败[%s]: %w", trackID, err)
	}
	if track.StreamPath == "" {
		return "", playback_models.NewDeliveryError(playback_models.ErrKindDecode, trackID,
			fmt.Errorf("轨道缺少投递路径"))
	}
	return o.baseURL + "/" + strings.TrimLeft(track.StreamPath, "/"), nil
}

// Deliver 拉取媒体流并按响应分类失败：
// 401/403为凭证拒绝，跨域头缺失为CORS错误，5xx与连接故障为网络错误，
// 响应体非音频格式为解码错误
func (o *httpOrigin) Deliver(ctx context.Context, locator string) (playback_interface.StreamHandle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, playback_models.NewDeliveryError(playback_models.ErrKindDecode, "",
			fmt.Errorf("投递地址非法: %w", err))
	}
	if o.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+o.authToken)
	}
	req.Header.Set("Origin", o.baseURL)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if kind, ok := classifyStatus(resp); ok {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		_ = resp.Body.Close()
		return nil, playback_models.NewDeliveryError(kind, "",
			fmt.Errorf("源站响应%d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	return newSniffedStream(resp)
}

func (o *httpOrigin) OriginKey() string {
	if u, err := url.Parse(o.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return o.baseURL
}

func classifyTransportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return playback_models.NewDeliveryError(playback_models.ErrKindTimeout, "", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return playback_models.NewDeliveryError(playback_models.ErrKindTimeout, "", err)
	}
	return playback_models.NewDeliveryError(playback_models.ErrKindNetwork, "", err)
}

func classifyStatus(resp *http.Response) (playback_models.ErrorKind, bool) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return playback_models.ErrKindAuth, true
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		// 跨域部署下源站必须回传放行头，缺失时浏览器侧会静默拦截
		if resp.Request != nil && resp.Request.Header.Get("Origin") != "" &&
			resp.Header.Get("Access-Control-Allow-Origin") == "" {
			return playback_models.ErrKindCors, true
		}
		return 0, false
	case resp.StatusCode >= 500:
		return playback_models.ErrKindNetwork, true
	default:
		return playback_models.ErrKindDecode, true
	}
}

// ============== 流句柄 ==============

type sniffedStream struct {
	reader      io.Reader
	body        io.Closer
	contentType string
}

// newSniffedStream 嗅探响应体前缀确认音频格式，嗅探失败判为解码错误
func newSniffedStream(resp *http.Response) (playback_interface.StreamHandle, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = resp.Body.Close()
		return nil, playback_models.NewDeliveryError(playback_models.ErrKindNetwork, "",
			fmt.Errorf("媒体流读取失败: %w", err))
	}
	head = head[:n]

	kind, _ := filetype.Match(head)
	if !isAudioKind(kind.MIME.Value) {
		_ = resp.Body.Close()
		return nil, playback_models.NewDeliveryError(playback_models.ErrKindDecode, "",
			fmt.Errorf("响应体不是受支持的音频格式: %q", kind.MIME.Value))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = kind.MIME.Value
	}

	return &sniffedStream{
		reader:      io.MultiReader(bytes.NewReader(head), resp.Body),
		body:        resp.Body,
		contentType: contentType,
	}, nil
}

func isAudioKind(mime string) bool {
	switch mime {
	case matchers.TypeMp3.MIME.Value,
		matchers.TypeFlac.MIME.Value,
		matchers.TypeOgg.MIME.Value,
		matchers.TypeWav.MIME.Value,
		matchers.TypeAac.MIME.Value,
		matchers.TypeM4a.MIME.Value,
		matchers.TypeMp4.MIME.Value: // mp4容器内的音轨
		return true
	}
	return false
}

func (s *sniffedStream) Read(p []byte) (int, error) { return s.reader.Read(p) }
func (s *sniffedStream) Close() error               { return s.body.Close() }
func (s *sniffedStream) ContentType() string        { return s.contentType }
