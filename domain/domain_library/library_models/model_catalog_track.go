package library_models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// CatalogTrack 目录轨道文档，入库层写入、选曲层只读
// Vector由分析侧随源文件的伴生JSON提供，入库时校验范围
type CatalogTrack struct {
	ID          primitive.ObjectID              `bson:"_id,omitempty" json:"id"`
	ChannelID   string                          `bson:"channel_id" json:"channel_id"`
	EnergyTier  selection_models.EnergyTier     `bson:"energy_tier" json:"energy_tier"`
	Title       string                          `bson:"title" json:"title"`
	Artist      string                          `bson:"artist" json:"artist"`
	Album       string                          `bson:"album" json:"album"`
	FilePath    string                          `bson:"file_path" json:"file_path"`
	StreamPath  string                          `bson:"stream_path" json:"stream_path"` // 投递源相对路径
	ContentType string                          `bson:"content_type" json:"content_type"`
	Duration    float64                         `bson:"duration" json:"duration"` // 秒
	Size        int64                           `bson:"size" json:"size"`
	Suffix      string                          `bson:"suffix" json:"suffix"`
	Vector      selection_models.MetadataVector `bson:"vector" json:"vector"`
	Tags        map[string]interface{}          `bson:"tags" json:"tags"`
	PlayCount   int                             `bson:"play_count" json:"play_count"`
	PlayDate    time.Time                       `bson:"play_date" json:"play_date"`
	CreatedAt   time.Time                       `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time                       `bson:"updated_at" json:"updated_at"`
}

// Candidate 投影为选曲候选，TrackID取文档ID的十六进制形式
func (t *CatalogTrack) Candidate() selection_models.Candidate {
	tags := make(map[string]interface{}, len(t.Tags)+2)
	for k, v := range t.Tags {
		tags[k] = v
	}
	if t.Artist != "" {
		tags["artist"] = t.Artist
	}
	if t.Duration > 0 {
		tags["duration"] = t.Duration
	}
	return selection_models.Candidate{
		TrackID: t.ID.Hex(),
		Title:   t.Title,
		Artist:  t.Artist,
		Vector:  t.Vector,
		Tags:    tags,
	}
}
