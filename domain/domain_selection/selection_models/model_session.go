package selection_models

import (
	"time"
)

// PlaybackSession 单用户在某频道/能量档位下的播放会话
// History仅保留最近RecentRepeatWindow条，由排序器在轨道提交播放后追加
type PlaybackSession struct {
	SessionID  string     `bson:"session_id" json:"session_id"`
	UserID     string     `bson:"user_id" json:"user_id"`
	ChannelID  string     `bson:"channel_id" json:"channel_id"`
	EnergyTier EnergyTier `bson:"energy_tier" json:"energy_tier"`
	PlayCount  int        `bson:"play_count" json:"play_count"` // 当前槽位 = PlayCount mod NumSlots
	History    []string   `bson:"history" json:"history"`       // 最近选中的track_id，新者在后
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

// RecentHistory 返回最近window条历史记录，window<=0时返回空
func (s *PlaybackSession) RecentHistory(window int) []string {
	if window <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= window {
		return s.History
	}
	return s.History[len(s.History)-window:]
}

// AppendHistory 追加一条历史并裁剪到window条以内
// window为0表示不做防重复追踪，历史保持为空
func (s *PlaybackSession) AppendHistory(trackID string, window int) {
	if window <= 0 {
		s.History = nil
		s.UpdatedAt = time.Now()
		return
	}
	s.History = append(s.History, trackID)
	if len(s.History) > window {
		s.History = s.History[len(s.History)-window:]
	}
	s.UpdatedAt = time.Now()
}
