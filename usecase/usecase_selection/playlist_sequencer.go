package usecase_selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// NextTrack 一次"需要下一首"事件的解析结果
type NextTrack struct {
	TrackID   string                          `json:"track_id"`
	Title     string                          `json:"title"`
	Artist    string                          `json:"artist"`
	Vector    selection_models.MetadataVector `json:"vector"`
	SlotIndex int                             `json:"slot_index"`
	Score     float64                         `json:"score"`
	Fallback  selection_models.FallbackTier   `json:"fallback"`
}

type sessionHandle struct {
	mu      sync.Mutex
	session *selection_models.PlaybackSession
}

// PlaylistSequencer 播放列表排序器
// 每次调用只解析一首即将播放的轨道，保持状态对会话历史持续新鲜，
// 不预生成长列表；槽位按 play_count mod num_slots 循环
// 同一会话的并发调用经会话句柄互斥串行化，避免两个槽位竞争历史追加
type PlaylistSequencer struct {
	sessionStore  selection_interface.SessionStore
	strategyCache *StrategyCache
	selector      *SlotSelector
	catalog       selection_interface.CatalogProvider
	timeout       time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionHandle
}

func NewPlaylistSequencer(
	sessionStore selection_interface.SessionStore,
	strategyCache *StrategyCache,
	selector *SlotSelector,
	catalog selection_interface.CatalogProvider,
	timeout time.Duration,
) *PlaylistSequencer {
	return &PlaylistSequencer{
		sessionStore:  sessionStore,
		strategyCache: strategyCache,
		selector:      selector,
		catalog:       catalog,
		timeout:       timeout,
		sessions:      make(map[string]*sessionHandle),
	}
}

func sessionKey(userID, channelID string, tier selection_models.EnergyTier) string {
	return userID + "/" + channelID + "/" + string(tier)
}

func (seq *PlaylistSequencer) handle(key string) *sessionHandle {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	h, ok := seq.sessions[key]
	if !ok {
		h = &sessionHandle{}
		seq.sessions[key] = h
	}
	return h
}

// NextTrack 解析当前槽位的下一首轨道
// 只做选曲不做任何会话变更：历史追加与播放计数推进必须等到
// 轨道真正提交播放后经CommitPlayback完成，投递失败的轨道
// 不得污染防重复窗口
func (seq *PlaylistSequencer) NextTrack(
	ctx context.Context,
	userID, channelID string,
	tier selection_models.EnergyTier,
) (*NextTrack, error) {
	h := seq.handle(sessionKey(userID, channelID, tier))
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, seq.timeout)
	defer cancel()

	session, err := seq.loadSessionLocked(ctx, h, userID, channelID, tier)
	if err != nil {
		return nil, err
	}

	strategy, err := seq.strategyCache.Get(ctx, channelID, tier)
	if err != nil {
		return nil, err
	}
	if strategy.NumSlots <= 0 {
		return nil, fmt.Errorf("策略[%s/%s]槽位数非法: %d", channelID, tier, strategy.NumSlots)
	}

	slotIndex := session.PlayCount % strategy.NumSlots
	selection, err := seq.selector.SelectTrack(ctx, strategy, session, slotIndex)
	if err != nil {
		return nil, err
	}

	return &NextTrack{
		TrackID:   selection.Candidate.TrackID,
		Title:     selection.Candidate.Title,
		Artist:    selection.Candidate.Artist,
		Vector:    selection.Candidate.Vector,
		SlotIndex: slotIndex,
		Score:     selection.Score,
		Fallback:  selection.Fallback,
	}, nil
}

// CommitPlayback 轨道提交播放后的会话推进：
// 追加防重复历史、递增播放计数、持久化会话、更新目录播放统计
func (seq *PlaylistSequencer) CommitPlayback(
	ctx context.Context,
	userID, channelID string,
	tier selection_models.EnergyTier,
	trackID string,
) error {
	h := seq.handle(sessionKey(userID, channelID, tier))
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, seq.timeout)
	defer cancel()

	session, err := seq.loadSessionLocked(ctx, h, userID, channelID, tier)
	if err != nil {
		return err
	}

	strategy, err := seq.strategyCache.Get(ctx, channelID, tier)
	if err != nil {
		return err
	}

	session.AppendHistory(trackID, strategy.RecentRepeatWindow)
	session.PlayCount++

	if err := seq.sessionStore.SavePlaybackState(ctx, session); err != nil {
		return fmt.Errorf("保存播放会话失败: %w", err)
	}

	// 播放统计更新失败不阻断播放推进
	if err := seq.catalog.MarkPlayed(ctx, trackID); err != nil {
		slog.Warn("selection: 更新播放统计失败", "track_id", trackID, "error", err)
	}
	return nil
}

// SkipSlot 投递失败跳曲时的槽位推进：
// 轨道从未真正播放，不追加防重复历史（以免污染窗口），
// 但播放计数必须前进，否则同一轨道会在同一槽位被反复选中
func (seq *PlaylistSequencer) SkipSlot(
	ctx context.Context,
	userID, channelID string,
	tier selection_models.EnergyTier,
) error {
	h := seq.handle(sessionKey(userID, channelID, tier))
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, seq.timeout)
	defer cancel()

	session, err := seq.loadSessionLocked(ctx, h, userID, channelID, tier)
	if err != nil {
		return err
	}

	session.PlayCount++
	if err := seq.sessionStore.SavePlaybackState(ctx, session); err != nil {
		return fmt.Errorf("保存播放会话失败: %w", err)
	}
	return nil
}

// CurrentSlotIndex 当前会话槽位序号，供观测快照使用
func (seq *PlaylistSequencer) CurrentSlotIndex(
	ctx context.Context,
	userID, channelID string,
	tier selection_models.EnergyTier,
) int {
	h := seq.handle(sessionKey(userID, channelID, tier))
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return 0
	}
	strategy, err := seq.strategyCache.Get(ctx, channelID, tier)
	if err != nil || strategy.NumSlots <= 0 {
		return 0
	}
	return h.session.PlayCount % strategy.NumSlots
}

func (seq *PlaylistSequencer) loadSessionLocked(
	ctx context.Context,
	h *sessionHandle,
	userID, channelID string,
	tier selection_models.EnergyTier,
) (*selection_models.PlaybackSession, error) {
	if h.session != nil {
		return h.session, nil
	}

	session, err := seq.sessionStore.LoadPlaybackState(ctx, userID, channelID, tier)
	if err != nil {
		return nil, fmt.Errorf("加载播放会话失败: %w", err)
	}
	if session == nil {
		session = &selection_models.PlaybackSession{
			SessionID:  uuid.NewString(),
			UserID:     userID,
			ChannelID:  channelID,
			EnergyTier: tier,
		}
	}
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	h.session = session
	return session, nil
}
