package repository_selection

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
	"github.com/trackflow-audio/trackflow/mongo"
)

type strategyRepository struct {
	db         mongo.Database
	collection string
}

func NewStrategyRepository(db mongo.Database, collection string) selection_interface.StrategyStore {
	return &strategyRepository{
		db:         db,
		collection: collection,
	}
}

// LoadStrategy 读取频道在指定能量档位下的策略配置
// (channel_id, energy_tier)有唯一索引，最多命中一条
func (r *strategyRepository) LoadStrategy(
	ctx context.Context,
	channelID string,
	energyTier selection_models.EnergyTier,
) (*selection_models.Strategy, error) {
	coll := r.db.Collection(r.collection)
	result := coll.FindOne(ctx, bson.M{
		"channel_id":  channelID,
		"energy_tier": energyTier,
	})

	var strategy selection_models.Strategy
	if err := result.Decode(&strategy); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("策略不存在[%s/%s]: %w", channelID, energyTier, err)
		}
		return nil, fmt.Errorf("策略读取失败[%s/%s]: %w", channelID, energyTier, err)
	}
	return &strategy, nil
}
