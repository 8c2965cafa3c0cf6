package library_interface

import (
	"context"

	"github.com/trackflow-audio/trackflow/domain/domain_library/library_models"
)

// TrackRepository 目录轨道文档持久化接口，由入库层消费
type TrackRepository interface {
	Upsert(ctx context.Context, track *library_models.CatalogTrack) error
	GetByPath(ctx context.Context, filePath string) (*library_models.CatalogTrack, error)
	GetByStreamPath(ctx context.Context, streamPath string) (*library_models.CatalogTrack, error)
	DeleteMissing(ctx context.Context, channelID string, keepPaths []string) (int64, error)
	CountByChannel(ctx context.Context, channelID string) (int64, error)
}
