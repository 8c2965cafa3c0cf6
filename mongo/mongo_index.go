package mongo

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trackflow-audio/trackflow/domain"
)

// CreateIndexes 为目录/策略/会话集合建立查询索引
func CreateIndexes(db Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 目录集合：候选查询按频道+能量档位，标签下推按genre
	catalogCollection := db.Collection(domain.CollectionChannelCatalogTrack)
	createIndex(ctx, catalogCollection, bson.D{
		{Key: "channel_id", Value: 1},
		{Key: "energy_tier", Value: 1}}, "channel_tier_compound")
	createIndex(ctx, catalogCollection, bson.D{{Key: "tags.genre", Value: 1}}, "tags_genre")
	createIndex(ctx, catalogCollection, bson.D{{Key: "play_count", Value: -1}}, "play_count")
	createIndex(ctx, catalogCollection, bson.D{{Key: "file_path", Value: 1}}, "file_path")

	// 策略集合：(channel_id, energy_tier)唯一键
	strategyCollection := db.Collection(domain.CollectionChannelStrategy)
	createUniqueIndex(ctx, strategyCollection, bson.D{
		{Key: "channel_id", Value: 1},
		{Key: "energy_tier", Value: 1}}, "channel_tier_unique")

	// 会话集合：(user_id, channel_id, energy_tier)唯一键
	sessionCollection := db.Collection(domain.CollectionChannelPlaybackSession)
	createUniqueIndex(ctx, sessionCollection, bson.D{
		{Key: "user_id", Value: 1},
		{Key: "channel_id", Value: 1},
		{Key: "energy_tier", Value: 1}}, "user_channel_tier_unique")
	createIndex(ctx, sessionCollection, bson.D{{Key: "updated_at", Value: -1}}, "updated_at")
}

func createIndex(ctx context.Context, coll Collection, keys bson.D, name string) {
	model := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(name),
	}
	if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
		slog.Warn("mongo: 创建索引失败", "index", name, "error", err)
	}
}

func createUniqueIndex(ctx context.Context, coll Collection, keys bson.D, name string) {
	model := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(name).SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
		slog.Warn("mongo: 创建唯一索引失败", "index", name, "error", err)
	}
}
