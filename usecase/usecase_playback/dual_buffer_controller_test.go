package usecase_playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
	"github.com/trackflow-audio/trackflow/usecase/usecase_selection"
)

// ---------- 测试用协作方假实现 ----------

type memCatalog struct {
	mu         sync.Mutex
	byChannel  map[string][]selection_models.Candidate
	played     []string
	markPlayed func(trackID string)
}

func (m *memCatalog) QueryCandidates(
	_ context.Context,
	channelID string,
	_ selection_models.EnergyTier,
	_ []selection_models.Rule,
) ([]selection_models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byChannel[channelID], nil
}

func (m *memCatalog) MarkPlayed(_ context.Context, trackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, trackID)
	if m.markPlayed != nil {
		m.markPlayed(trackID)
	}
	return nil
}

func (m *memCatalog) playedTracks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.played))
	copy(out, m.played)
	return out
}

type memStrategyStore struct {
	byChannel map[string]*selection_models.Strategy
}

func (m *memStrategyStore) LoadStrategy(
	_ context.Context,
	channelID string,
	_ selection_models.EnergyTier,
) (*selection_models.Strategy, error) {
	s, ok := m.byChannel[channelID]
	if !ok {
		return nil, fmt.Errorf("频道[%s]无策略配置", channelID)
	}
	return s, nil
}

type memSessionStore struct {
	mu            sync.Mutex
	sessions      map[string]*selection_models.PlaybackSession
	failNextSaves int // 负数表示持续失败
	saves         int
}

func (m *memSessionStore) LoadPlaybackState(
	_ context.Context,
	userID, channelID string,
	tier selection_models.EnergyTier,
) (*selection_models.PlaybackSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID+"/"+channelID+"/"+string(tier)], nil
}

func (m *memSessionStore) SavePlaybackState(
	_ context.Context,
	session *selection_models.PlaybackSession,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failNextSaves != 0 {
		if m.failNextSaves > 0 {
			m.failNextSaves--
		}
		return errors.New("会话存储暂不可用")
	}
	m.sessions[session.UserID+"/"+session.ChannelID+"/"+string(session.EnergyTier)] = session
	return nil
}

func (m *memSessionStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type scriptedOrigin struct {
	mu       sync.Mutex
	failures map[string]error // trackID → 永久投递错误
	delivers []string
}

func (o *scriptedOrigin) ResolveURL(_ context.Context, trackID string) (string, error) {
	return "loc://" + trackID, nil
}

func (o *scriptedOrigin) Deliver(_ context.Context, locator string) (playback_interface.StreamHandle, error) {
	trackID := strings.TrimPrefix(locator, "loc://")
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivers = append(o.delivers, trackID)
	if err, ok := o.failures[trackID]; ok {
		return nil, err
	}
	return &fakeStream{}, nil
}

func (o *scriptedOrigin) OriginKey() string { return "test-origin" }

// playingElement 仅在Play后前进的假元素，轨道时长1秒，快速推进
type playingElement struct {
	mu       sync.Mutex
	playing  bool
	position float64
}

func (e *playingElement) Load(_ context.Context, _ string) error { return nil }

func (e *playingElement) Play(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
	return nil
}

func (e *playingElement) Pause() error { return nil }

func (e *playingElement) Seek(position float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = position
	return nil
}

func (e *playingElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		e.position += 0.2
	}
	return e.position
}

func (e *playingElement) Duration() float64 { return 1.0 }
func (e *playingElement) SetVolume(float64) {}
func (e *playingElement) Release()          {}

// trackedElement 记录每个元素的Release次数，可按轨道注入Play失败，
// 并捕获释放后仍被操作音量的违规
type trackedElement struct {
	playingElement
	registry *elementRegistry
	locator  string
	releases atomic.Int64
}

func (e *trackedElement) Load(_ context.Context, locator string) error {
	e.locator = locator
	return nil
}

func (e *trackedElement) Play(ctx context.Context) error {
	if e.registry.shouldFailPlay(strings.TrimPrefix(e.locator, "loc://")) {
		return errors.New("解码管线启动失败")
	}
	return e.playingElement.Play(ctx)
}

func (e *trackedElement) SetVolume(float64) {
	if e.releases.Load() > 0 {
		e.registry.usedAfterRelease.Store(true)
	}
}

func (e *trackedElement) Release() { e.releases.Add(1) }

type elementRegistry struct {
	mu               sync.Mutex
	elements         []*trackedElement
	failPlay         map[string]int // trackID → 剩余Play失败次数
	usedAfterRelease atomic.Bool
}

func (r *elementRegistry) newElement() playback_interface.AudioElement {
	e := &trackedElement{registry: r}
	r.mu.Lock()
	r.elements = append(r.elements, e)
	r.mu.Unlock()
	return e
}

func (r *elementRegistry) shouldFailPlay(trackID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPlay[trackID] <= 0 {
		return false
	}
	r.failPlay[trackID]--
	return true
}

func (r *elementRegistry) allReleasedOnce() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.elements {
		if e.locator == "" {
			continue
		}
		if e.releases.Load() != 1 {
			return false
		}
	}
	return true
}

func (r *elementRegistry) maxReleases() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var highest int64
	for _, e := range r.elements {
		if n := e.releases.Load(); n > highest {
			highest = n
		}
	}
	return highest
}

// ---------- 环境装配 ----------

func scenarioStrategy(channelID string) *selection_models.Strategy {
	return &selection_models.Strategy{
		ChannelID:          channelID,
		EnergyTier:         selection_models.EnergyTierMedium,
		NumSlots:           3,
		RecentRepeatWindow: 0,
		Slots: []selection_models.SlotTarget{
			{SlotIndex: 1, Intensity: floatPtr(1)},
			{SlotIndex: 2, Intensity: floatPtr(3)},
			{SlotIndex: 3, Intensity: floatPtr(5)},
		},
		Boosts: []selection_models.SlotBoost{
			{Field: selection_models.FieldIntensity, Mode: selection_models.BoostModeNear, Weight: 4},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }

func channelCandidates(ids []string, intensities []float64) []selection_models.Candidate {
	out := make([]selection_models.Candidate, len(ids))
	for i := range ids {
		out[i] = selection_models.Candidate{
			TrackID: ids[i],
			Vector:  selection_models.MetadataVector{Intensity: intensities[i]},
			Tags:    map[string]interface{}{"genre": "Electronic"},
		}
	}
	return out
}

type controllerEnv struct {
	catalog  *memCatalog
	origin   *scriptedOrigin
	breaker  *CircuitBreaker
	sessions *memSessionStore
	pc       *PlaybackController
}

func newControllerEnv(t *testing.T) *controllerEnv {
	t.Helper()
	return newControllerEnvWithFactory(t, func() playback_interface.AudioElement { return &playingElement{} })
}

func newControllerEnvWithFactory(t *testing.T, factory playback_interface.AudioElementFactory) *controllerEnv {
	t.Helper()

	catalog := &memCatalog{byChannel: map[string][]selection_models.Candidate{
		"ch1": channelCandidates([]string{"A", "B", "C", "D"}, []float64{1, 3, 5, 2}),
		"ch2": channelCandidates([]string{"X", "Y", "Z"}, []float64{1, 3, 5}),
	}}
	strategies := &memStrategyStore{byChannel: map[string]*selection_models.Strategy{
		"ch1": scenarioStrategy("ch1"),
		"ch2": scenarioStrategy("ch2"),
	}}
	sessions := &memSessionStore{sessions: map[string]*selection_models.PlaybackSession{}}

	cache := usecase_selection.NewStrategyCache(strategies, time.Second)
	selector := usecase_selection.NewSlotSelector(
		catalog, usecase_selection.NewRuleGroupEvaluator(), usecase_selection.NewCandidateScorer(), time.Second)
	sequencer := usecase_selection.NewPlaylistSequencer(sessions, cache, selector, catalog, time.Second)

	origin := &scriptedOrigin{failures: map[string]error{}}
	breaker := NewCircuitBreaker(origin.OriginKey(), playback_models.DefaultCircuitBreakerConfig())

	policy := playback_models.DefaultRetryPolicy()
	policy.BaseDelay = 5 * time.Millisecond
	policy.MaxDelay = 10 * time.Millisecond
	retry := NewRetryController(policy, breaker, NewErrorClassifier())
	stall := NewStallMonitor(playback_models.StallPolicy{
		DetectionDelay:  200 * time.Millisecond,
		RecoveryTimeout: 50 * time.Millisecond,
		PollInterval:    20 * time.Millisecond,
	})

	pc := NewPlaybackController(
		sequencer, origin, retry, stall, breaker,
		factory,
		40*time.Millisecond,
	)
	return &controllerEnv{catalog: catalog, origin: origin, breaker: breaker, sessions: sessions, pc: pc}
}

func playedPrefix(env *controllerEnv, want []string) func() bool {
	return func() bool {
		played := env.catalog.playedTracks()
		if len(played) < len(want) {
			return false
		}
		for i := range want {
			if played[i] != want[i] {
				return false
			}
		}
		return true
	}
}

// ---------- 用例 ----------

func TestPlaybackController_GaplessSlotCycle(t *testing.T) {
	env := newControllerEnv(t)
	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))
	defer env.pc.Stop()

	// 规格场景：顺序提交A,B,C后回绕到A（槽位 3 mod 3 = 0）
	assert.Eventually(t, playedPrefix(env, []string{"A", "B", "C", "A"}),
		10*time.Second, 20*time.Millisecond)
}

func TestPlaybackController_NonRetriableSkipsToNextTrack(t *testing.T) {
	env := newControllerEnv(t)
	env.origin.failures["B"] = errors.New("401 unauthorized")

	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))
	defer env.pc.Stop()

	// B投递不可重试失败：跳到C，且B不得进入已播放记录
	assert.Eventually(t, playedPrefix(env, []string{"A", "C"}),
		10*time.Second, 20*time.Millisecond)
	assert.NotContains(t, env.catalog.playedTracks(), "B")

	// B只消耗一次投递尝试（不可重试不重试）
	env.origin.mu.Lock()
	attempts := 0
	for _, id := range env.origin.delivers {
		if id == "B" {
			attempts++
		}
	}
	env.origin.mu.Unlock()
	assert.Equal(t, 1, attempts)
}

func TestPlaybackController_SkipAdvancesImmediately(t *testing.T) {
	env := newControllerEnv(t)
	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))
	defer env.pc.Stop()

	require.Eventually(t, playedPrefix(env, []string{"A"}), 5*time.Second, 10*time.Millisecond)
	env.pc.Skip()

	assert.Eventually(t, playedPrefix(env, []string{"A", "B"}),
		5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, env.pc.Metrics().SkipCount, int64(1))
}

func TestPlaybackController_SwitchDiscardsOldSequence(t *testing.T) {
	env := newControllerEnv(t)
	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))

	require.Eventually(t, playedPrefix(env, []string{"A"}), 5*time.Second, 10*time.Millisecond)
	before := len(env.catalog.playedTracks())

	require.NoError(t, env.pc.Switch("u1", "ch2", selection_models.EnergyTierMedium))
	defer env.pc.Stop()

	// 切台后只允许新序列的轨道提交，旧序列standby预取必须丢弃
	assert.Eventually(t, func() bool {
		played := env.catalog.playedTracks()
		return len(played) > before && played[len(played)-1] == "X"
	}, 10*time.Second, 20*time.Millisecond)

	for _, id := range env.catalog.playedTracks()[before:] {
		assert.Contains(t, []string{"X", "Y", "Z"}, id)
	}
}

func TestPlaybackController_MetricsSnapshot(t *testing.T) {
	env := newControllerEnv(t)
	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))
	defer env.pc.Stop()

	require.Eventually(t, playedPrefix(env, []string{"A"}), 5*time.Second, 10*time.Millisecond)

	snapshot := env.pc.Metrics()
	assert.Equal(t, string(playback_models.CircuitClosed), snapshot.CircuitStatus)
	assert.GreaterOrEqual(t, snapshot.RetryAttemptCount, int64(1))

	flat := snapshot.Flatten()
	assert.Contains(t, flat, "circuit_status")
	assert.Contains(t, flat, "retry_attempt_count")
}

func TestPlaybackController_OnMetricsPushes(t *testing.T) {
	env := newControllerEnv(t)

	var mu sync.Mutex
	var pushes int
	stop := env.pc.OnMetrics(10*time.Millisecond, func(playback_models.MetricsSnapshot) {
		mu.Lock()
		pushes++
		mu.Unlock()
	})
	defer stop()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return pushes >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func (env *controllerEnv) sequenceRunning() bool {
	env.pc.mu.Lock()
	defer env.pc.mu.Unlock()
	return env.pc.running
}

func TestPlaybackController_FailedSlotReleasedExactlyOnce(t *testing.T) {
	registry := &elementRegistry{failPlay: map[string]int{"B": 1}}
	env := newControllerEnvWithFactory(t, registry.newElement)

	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))

	// B首次启动播放失败后重选、重播成功，序列照常推进到C
	require.Eventually(t, playedPrefix(env, []string{"A", "B", "C"}),
		15*time.Second, 20*time.Millisecond)

	// 等在途交叉淡入淡出收尾，避免与Stop的释放交错
	time.Sleep(100 * time.Millisecond)
	env.pc.Stop()

	// 失败槽与正常槽都恰好释放一次，释放后的元素不得再被操作音量
	assert.Eventually(t, registry.allReleasedOnce, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, registry.maxReleases(), int64(1))
	assert.False(t, registry.usedAfterRelease.Load())
}

func TestPlaybackController_PersistentCommitFailureStopsSequence(t *testing.T) {
	env := newControllerEnv(t)
	env.sessions.mu.Lock()
	env.sessions.failNextSaves = -1
	env.sessions.mu.Unlock()

	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))
	defer env.pc.Stop()

	// 会话存储持续不可用：连续失败达到上限后序列终止，不再无界推进
	assert.Eventually(t, func() bool { return !env.sequenceRunning() },
		15*time.Second, 20*time.Millisecond)
	assert.Equal(t, maxConsecutiveCommitFailures, env.sessions.saveCount())
	assert.Empty(t, env.catalog.playedTracks())
}

func TestPlaybackController_TransientCommitFailureRecovers(t *testing.T) {
	env := newControllerEnv(t)
	env.sessions.mu.Lock()
	env.sessions.failNextSaves = 2
	env.sessions.mu.Unlock()

	require.NoError(t, env.pc.Start("u1", "ch1", selection_models.EnergyTierMedium))
	defer env.pc.Stop()

	// 低于上限的瞬时失败不终止序列，恢复后失败计数清零
	assert.Eventually(t, func() bool { return len(env.catalog.playedTracks()) >= 2 },
		20*time.Second, 20*time.Millisecond)
	assert.True(t, env.sequenceRunning())
	assert.Equal(t, int64(0), env.pc.commitFailures.Load())
}

func TestPlaybackController_ReportDeliveryOutcomeFeedsBreaker(t *testing.T) {
	env := newControllerEnv(t)

	for i := 0; i < 5; i++ {
		env.pc.ReportDeliveryOutcome("T", false, playback_models.ErrKindNetwork)
	}
	assert.Equal(t, playback_models.CircuitOpen, env.breaker.State().Status)

	env.pc.ReportDeliveryOutcome("T", true, playback_models.ErrKindNetwork)
	assert.Equal(t, playback_models.CircuitClosed, env.breaker.State().Status)
}
