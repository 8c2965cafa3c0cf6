package usecase_playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
	"github.com/trackflow-audio/trackflow/usecase/usecase_selection"
)

// maxConsecutiveSkips 连续投递失败跳曲的上限，防止坏源站导致无界循环
const maxConsecutiveSkips = 5

// crossfadeSteps 交叉淡入淡出的音量斜坡步数
const crossfadeSteps = 20

// maxConsecutiveCommitFailures 会话推进连续失败的上限
// 会话存储长时间不可用时PlayCount被冻结，同一槽位目标会被反复
// 重打分，不能放任序列无界推进
const maxConsecutiveCommitFailures = 3

var errSessionAdvanceExhausted = errors.New("会话推进连续失败达到上限")

// playbackSlot 一个播放槽：音频元素与其装载的轨道
type playbackSlot struct {
	element playback_interface.AudioElement
	track   *usecase_selection.NextTrack
	locator string
	stream  playback_interface.StreamHandle
}

func (s *playbackSlot) release() {
	if s == nil {
		return
	}
	if s.stream != nil {
		_ = s.stream.Close()
	}
	if s.element != nil {
		s.element.Release()
	}
}

// sequenceTarget 当前播放序列指向的用户/频道/能量档位
type sequenceTarget struct {
	userID     string
	channelID  string
	energyTier selection_models.EnergyTier
}

// PlaybackController 双缓冲播放控制器，上层代码的唯一入口
// 持有active/standby两个播放槽：active播放期间standby静默预取下一首，
// 轨道边界处standby经约1秒交叉淡入淡出转正，旧active释放，随即开始
// 新的standby预取——无间隙播放由此实现，边界处不阻塞在网络I/O上
// 全部轨道装载经重试控制器（受熔断器门控）完成
type PlaybackController struct {
	sequencer  *usecase_selection.PlaylistSequencer
	origin     playback_interface.ContentOrigin
	retry      *RetryController
	stall      *StallMonitor
	breaker    *CircuitBreaker
	newElement playback_interface.AudioElementFactory
	crossfade  time.Duration

	mu       sync.Mutex
	target   sequenceTarget
	active   *playbackSlot
	standby  *playbackSlot
	cancel   context.CancelFunc // 取消当前序列的全部在途工作
	running  bool
	skipCh   chan struct{}
	lastSlot atomic.Int64

	skipCount      atomic.Int64
	fallbackCount  atomic.Int64
	commitFailures atomic.Int64
}

func NewPlaybackController(
	sequencer *usecase_selection.PlaylistSequencer,
	origin playback_interface.ContentOrigin,
	retry *RetryController,
	stall *StallMonitor,
	breaker *CircuitBreaker,
	newElement playback_interface.AudioElementFactory,
	crossfade time.Duration,
) *PlaybackController {
	return &PlaybackController{
		sequencer:  sequencer,
		origin:     origin,
		retry:      retry,
		stall:      stall,
		breaker:    breaker,
		newElement: newElement,
		crossfade:  crossfade,
	}
}

// Start 启动指定频道/能量档位的播放序列
func (pc *PlaybackController) Start(
	userID, channelID string,
	tier selection_models.EnergyTier,
) error {
	pc.mu.Lock()
	if pc.running {
		pc.mu.Unlock()
		return fmt.Errorf("播放序列已在运行，请先Stop或Switch")
	}
	ctx, cancel := context.WithCancel(context.Background())
	pc.target = sequenceTarget{userID: userID, channelID: channelID, energyTier: tier}
	pc.cancel = cancel
	pc.running = true
	pc.skipCh = make(chan struct{}, 1)
	pc.mu.Unlock()
	pc.commitFailures.Store(0)

	go pc.run(ctx)
	return nil
}

// Skip 显式跳曲：取消当前轨道的在途尝试与停滞监视，推进到下一首
func (pc *PlaybackController) Skip() {
	pc.mu.Lock()
	ch := pc.skipCh
	pc.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Switch 切换频道/能量档位
// 旧序列的在途投递、停滞监视与standby预取全部取消丢弃，不得默默播出
func (pc *PlaybackController) Switch(
	userID, channelID string,
	tier selection_models.EnergyTier,
) error {
	pc.Stop()
	return pc.Start(userID, channelID, tier)
}

// Stop 停止当前序列并释放两个播放槽
func (pc *PlaybackController) Stop() {
	pc.mu.Lock()
	if pc.cancel != nil {
		pc.cancel()
		pc.cancel = nil
	}
	pc.active.release()
	pc.standby.release()
	pc.active = nil
	pc.standby = nil
	pc.running = false
	pc.mu.Unlock()
}

// ReportDeliveryOutcome 外部投递结果上报，直接驱动熔断器记账
func (pc *PlaybackController) ReportDeliveryOutcome(trackID string, success bool, kind playback_models.ErrorKind) {
	if success {
		pc.breaker.RecordSuccess()
		return
	}
	pc.breaker.RecordFailure()
	slog.Info("playback: 外部投递结果上报",
		"track_id", trackID, "success", success, "kind", kind.String())
}

// run 单一逻辑播放时间线的主循环
func (pc *PlaybackController) run(ctx context.Context) {
	for ctx.Err() == nil {
		slot, err := pc.takeNextSlot(ctx)
		if err != nil {
			var noCandidates *selection_models.NoCandidatesError
			if errors.As(err, &noCandidates) {
				// 数据/配置问题而非瞬时故障，必须显式上报后终止序列
				slog.Error("playback: 选曲候选耗尽，序列终止", "error", err)
			} else if ctx.Err() == nil {
				slog.Error("playback: 轨道解析失败，序列终止", "error", err)
			}
			pc.Stop()
			return
		}

		if err := pc.playSlot(ctx, slot); err != nil {
			// 经releaseActive摘槽，保证每个槽恰好释放一次
			pc.releaseActive(slot)
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, errSessionAdvanceExhausted) {
				slog.Error("playback: 会话状态持续丢失，序列终止", "error", err)
				pc.Stop()
				return
			}
			slog.Warn("playback: 轨道播放失败，跳到下一首",
				"track_id", slot.track.TrackID, "error", err)
			pc.skipCount.Add(1)
			continue
		}
	}
}

// takeNextSlot 取下一个可播放槽：优先转正已预取的standby，否则现场解析
func (pc *PlaybackController) takeNextSlot(ctx context.Context) (*playbackSlot, error) {
	pc.mu.Lock()
	slot := pc.standby
	pc.standby = nil
	pc.mu.Unlock()
	if slot != nil {
		return slot, nil
	}
	return pc.resolveSlot(ctx)
}

// resolveSlot 解析并装载下一首轨道
// 投递失败的轨道不会进入防重复历史（从未真正播放），但槽位必须
// 推进，否则同一轨道会被反复选中；连续失败有上限
func (pc *PlaybackController) resolveSlot(ctx context.Context) (*playbackSlot, error) {
	target := pc.currentTarget()

	for failures := 0; failures < maxConsecutiveSkips; failures++ {
		next, err := pc.sequencer.NextTrack(ctx, target.userID, target.channelID, target.energyTier)
		if err != nil {
			return nil, err
		}
		if next.Fallback != selection_models.FallbackNone {
			pc.fallbackCount.Add(1)
		}

		slot, err := pc.loadSlot(ctx, next)
		if err == nil {
			return slot, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		slog.Warn("playback: 轨道装载失败",
			"track_id", next.TrackID,
			"kind", playback_models.KindOf(err).String(),
			"error", err,
		)
		pc.skipCount.Add(1)
		if err := pc.sequencer.SkipSlot(ctx, target.userID, target.channelID, target.energyTier); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("连续%d首轨道装载失败，序列中止", maxConsecutiveSkips)
}

// loadSlot 经重试控制器解析URL并投递，装载进新的播放元素
func (pc *PlaybackController) loadSlot(
	ctx context.Context,
	next *usecase_selection.NextTrack,
) (*playbackSlot, error) {
	locator, err := pc.origin.ResolveURL(ctx, next.TrackID)
	if err != nil {
		return nil, playback_models.NewDeliveryError(
			playback_models.KindOf(err), next.TrackID, err)
	}

	stream, err := pc.retry.Deliver(ctx, next.TrackID, func(attemptCtx context.Context) (playback_interface.StreamHandle, error) {
		return pc.origin.Deliver(attemptCtx, locator)
	})
	if err != nil {
		return nil, err
	}

	element := pc.newElement()
	if err := element.Load(ctx, locator); err != nil {
		_ = stream.Close()
		element.Release()
		return nil, playback_models.NewDeliveryError(
			playback_models.ErrKindDecode, next.TrackID, err)
	}

	return &playbackSlot{
		element: element,
		track:   next,
		locator: locator,
		stream:  stream,
	}, nil
}

// playSlot 播放一个槽直到轨道边界/跳曲/停滞不可恢复
func (pc *PlaybackController) playSlot(ctx context.Context, slot *playbackSlot) error {
	previous := pc.promote(slot)

	if err := slot.element.Play(ctx); err != nil {
		// 本槽的释放交给run的失败分支统一处理
		previous.release()
		return playback_models.NewDeliveryError(
			playback_models.KindOf(err), slot.track.TrackID, err)
	}

	if ctx.Err() != nil {
		// 序列已切换，刚转正的槽不再提交
		previous.release()
		pc.releaseActive(slot)
		return nil
	}

	// 轨道已提交播放，此刻起才允许追加防重复历史
	target := pc.currentTarget()
	if err := pc.sequencer.CommitPlayback(ctx, target.userID, target.channelID, target.energyTier, slot.track.TrackID); err != nil {
		failures := pc.commitFailures.Add(1)
		slog.Warn("playback: 会话推进失败",
			"track_id", slot.track.TrackID, "consecutive", failures, "error", err)
		if failures >= maxConsecutiveCommitFailures {
			previous.release()
			return fmt.Errorf("%w: %v", errSessionAdvanceExhausted, err)
		}
	} else {
		pc.commitFailures.Store(0)
	}
	pc.lastSlot.Store(int64(slot.track.SlotIndex))

	// 旧active淡出释放
	if previous != nil {
		go pc.crossfadeOut(previous, slot)
	}

	// standby预取立即开始
	go pc.prefetchStandby(ctx)

	// 停滞监视伴随整段播放
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	stallErr := make(chan error, 1)
	go func() {
		stallErr <- pc.stall.Watch(watchCtx, slot.element, func(reloadCtx context.Context) error {
			position := slot.element.Position()
			if err := slot.element.Load(reloadCtx, slot.locator); err != nil {
				return err
			}
			if err := slot.element.Seek(position); err != nil {
				return err
			}
			return slot.element.Play(reloadCtx)
		})
	}()

	boundary := time.NewTicker(100 * time.Millisecond)
	defer boundary.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pc.skipChan():
			pc.skipCount.Add(1)
			slog.Info("playback: 显式跳曲", "track_id", slot.track.TrackID)
			return nil
		case err := <-stallErr:
			if err != nil {
				return err
			}
			return nil
		case <-boundary.C:
			duration := slot.element.Duration()
			if duration <= 0 {
				continue
			}
			remaining := duration - slot.element.Position()
			if remaining <= pc.crossfade.Seconds() {
				// 轨道边界：返回主循环转正standby
				return nil
			}
		}
	}
}

// promote 将slot设为active，返回被替换的旧active
func (pc *PlaybackController) promote(slot *playbackSlot) *playbackSlot {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	previous := pc.active
	pc.active = slot
	return previous
}

// releaseActive 将slot从active槽摘下后释放
// 仅在摘下成功时释放：Stop已释放过的槽不会被二次释放
func (pc *PlaybackController) releaseActive(slot *playbackSlot) {
	pc.mu.Lock()
	owned := pc.active == slot
	if owned {
		pc.active = nil
	}
	pc.mu.Unlock()
	if owned {
		slot.release()
	}
}

// prefetchStandby 预取下一首进standby槽，对当前播放无可闻影响
func (pc *PlaybackController) prefetchStandby(ctx context.Context) {
	pc.mu.Lock()
	if pc.standby != nil || ctx.Err() != nil {
		pc.mu.Unlock()
		return
	}
	pc.mu.Unlock()

	slot, err := pc.resolveSlot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("playback: standby预取失败", "error", err)
		}
		return
	}

	pc.mu.Lock()
	if ctx.Err() != nil || pc.standby != nil {
		// 序列已切换或已有预取结果，丢弃而非默默播出
		pc.mu.Unlock()
		slot.release()
		return
	}
	pc.standby = slot
	pc.mu.Unlock()
	slog.Info("playback: standby预取完成", "track_id", slot.track.TrackID)
}

// crossfadeOut 旧元素音量斜坡归零后释放，新元素同步升至全量
func (pc *PlaybackController) crossfadeOut(old, next *playbackSlot) {
	step := pc.crossfade / crossfadeSteps
	for i := 1; i <= crossfadeSteps; i++ {
		ratio := float64(i) / crossfadeSteps
		old.element.SetVolume(1 - ratio)
		next.element.SetVolume(ratio)
		time.Sleep(step)
	}
	old.release()
}

func (pc *PlaybackController) skipChan() chan struct{} {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.skipCh
}

func (pc *PlaybackController) currentTarget() sequenceTarget {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.target
}

// Metrics 当前观测快照
func (pc *PlaybackController) Metrics() playback_models.MetricsSnapshot {
	state := pc.breaker.State()
	return playback_models.MetricsSnapshot{
		CircuitStatus:       string(state.Status),
		ConsecutiveFailures: state.ConsecutiveFailures,
		RetryAttemptCount:   pc.retry.AttemptCount(),
		StallCount:          pc.stall.StallCount(),
		FallbackCount:       pc.fallbackCount.Load(),
		SkipCount:           pc.skipCount.Load(),
		CurrentSlotIndex:    int(pc.lastSlot.Load()),
		CapturedAt:          time.Now(),
	}
}

// OnMetrics 周期性推送观测快照，返回停止函数
func (pc *PlaybackController) OnMetrics(
	interval time.Duration,
	callback func(playback_models.MetricsSnapshot),
) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				callback(pc.Metrics())
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
