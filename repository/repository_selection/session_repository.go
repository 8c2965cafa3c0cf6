package repository_selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
	"github.com/trackflow-audio/trackflow/mongo"
)

type sessionRepository struct {
	db         mongo.Database
	collection string
}

func NewSessionRepository(db mongo.Database, collection string) selection_interface.SessionStore {
	return &sessionRepository{
		db:         db,
		collection: collection,
	}
}

// LoadPlaybackState 读取会话状态，不存在时返回nil由排序器新建
func (r *sessionRepository) LoadPlaybackState(
	ctx context.Context,
	userID string,
	channelID string,
	energyTier selection_models.EnergyTier,
) (*selection_models.PlaybackSession, error) {
	coll := r.db.Collection(r.collection)
	result := coll.FindOne(ctx, bson.M{
		"user_id":     userID,
		"channel_id":  channelID,
		"energy_tier": energyTier,
	})

	var session selection_models.PlaybackSession
	if err := result.Decode(&session); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("会话读取失败[%s/%s/%s]: %w", userID, channelID, energyTier, err)
	}
	return &session, nil
}

// SavePlaybackState 按会话唯一键upsert整个会话文档
func (r *sessionRepository) SavePlaybackState(
	ctx context.Context,
	session *selection_models.PlaybackSession,
) error {
	coll := r.db.Collection(r.collection)
	session.UpdatedAt = time.Now().UTC()

	filter := bson.M{
		"user_id":     session.UserID,
		"channel_id":  session.ChannelID,
		"energy_tier": session.EnergyTier,
	}
	update := bson.M{"$set": session}

	_, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("会话保存失败[%s]: %w", session.SessionID, err)
	}
	return nil
}
