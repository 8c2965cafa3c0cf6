package repository_selection

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trackflow-audio/trackflow/domain/domain_library/library_models"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
	"github.com/trackflow-audio/trackflow/mongo"
)

type catalogRepository struct {
	db         mongo.Database
	collection string
}

func NewCatalogRepository(db mongo.Database, collection string) selection_interface.CatalogProvider {
	return &catalogRepository{
		db:         db,
		collection: collection,
	}
}

// QueryCandidates 按频道+能量档位取候选集
// 标签等值类规则下推到查询层缩小结果集，其余规则留给求值器
func (r *catalogRepository) QueryCandidates(
	ctx context.Context,
	channelID string,
	energyTier selection_models.EnergyTier,
	pushDown []selection_models.Rule,
) ([]selection_models.Candidate, error) {
	coll := r.db.Collection(r.collection)

	filter := bson.M{
		"channel_id":  channelID,
		"energy_tier": energyTier,
	}
	for _, rule := range pushDown {
		key := "tags." + rule.Field
		switch rule.Operator {
		case selection_models.OperatorEq:
			filter[key] = rule.Value
		case selection_models.OperatorIn:
			if values, ok := rule.Value.([]interface{}); ok {
				filter[key] = bson.M{"$in": values}
			}
		}
	}

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("候选查询失败[%s/%s]: %w", channelID, energyTier, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var tracks []library_models.CatalogTrack
	if err := cursor.All(ctx, &tracks); err != nil {
		return nil, fmt.Errorf("候选解码失败[%s/%s]: %w", channelID, energyTier, err)
	}

	candidates := make([]selection_models.Candidate, 0, len(tracks))
	for i := range tracks {
		candidates = append(candidates, tracks[i].Candidate())
	}
	return candidates, nil
}

// MarkPlayed 递增播放计数并刷新最近播放时间
func (r *catalogRepository) MarkPlayed(ctx context.Context, trackID string) error {
	id, err := primitive.ObjectIDFromHex(trackID)
	if err != nil {
		return fmt.Errorf("轨道ID非法: %q: %w", trackID, err)
	}

	coll := r.db.Collection(r.collection)
	result, err := coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"play_count": 1},
			"$set": bson.M{"play_date": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("播放统计更新失败: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("轨道不存在: %s", trackID)
	}
	return nil
}
