package usecase_playback

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
)

// DeliverFunc 单次投递尝试，由内容源站适配层提供
type DeliverFunc func(ctx context.Context) (playback_interface.StreamHandle, error)

// RetryController 包装一次"投递该轨道"逻辑操作
// 有界指数退避加抖动，受熔断器门控；只有可重试分类消耗尝试配额，
// 不可重试分类立即中止并上抛，调用方据此跳到下一首而不浪费尝试
// 整体超时独立于单次超时与退避计算强制执行，退避途中超限同样中止
type RetryController struct {
	policy     playback_models.RetryPolicy
	breaker    *CircuitBreaker
	classifier *ErrorClassifier

	attemptCount atomic.Int64
	sleep        func(ctx context.Context, d time.Duration) error
	jitter       func() float64 // [0,1)均匀分布
}

func NewRetryController(
	policy playback_models.RetryPolicy,
	breaker *CircuitBreaker,
	classifier *ErrorClassifier,
) *RetryController {
	return &RetryController{
		policy:     policy,
		breaker:    breaker,
		classifier: classifier,
		sleep:      sleepContext,
		jitter:     rand.Float64,
	}
}

// Deliver 执行带重试的投递，返回流句柄或最终分类错误
func (r *RetryController) Deliver(
	ctx context.Context,
	trackID string,
	fn DeliverFunc,
) (playback_interface.StreamHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, r.policy.OverallTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		// 熔断器门控：open期间不发起任何网络调用
		if !r.breaker.Allow() {
			return nil, playback_models.NewDeliveryError(
				playback_models.ErrKindCircuitOpen, trackID, playback_models.ErrCircuitOpen)
		}

		r.attemptCount.Add(1)
		attemptCtx, attemptCancel := context.WithTimeout(ctx, r.policy.PerAttemptTimeout)
		handle, err := fn(attemptCtx)
		attemptCancel()

		if err == nil {
			r.breaker.RecordSuccess()
			return handle, nil
		}

		// 每次尝试的成败恰好上报一次
		r.breaker.RecordFailure()
		kind := r.classifier.Classify(err)
		lastErr = playback_models.NewDeliveryError(kind, trackID, err)

		if !kind.Retriable() {
			slog.Warn("playback: 不可重试错误，立即中止投递",
				"track_id", trackID, "kind", kind.String(), "attempt", attempt)
			return nil, lastErr
		}

		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.backoffDelay(attempt)
		slog.Info("playback: 投递重试退避",
			"track_id", trackID, "attempt", attempt, "kind", kind.String(), "delay", delay)
		if err := r.sleep(ctx, delay); err != nil {
			// 整体超时或取消在退避途中同样生效
			return nil, playback_models.NewDeliveryError(
				playback_models.ErrKindTimeout, trackID, err)
		}
	}
	return nil, lastErr
}

// backoffDelay 第attempt次（1起）失败后的退避时长
// min(base × 2^(n−1), cap) × (1 ± jitterFactor)
func (r *RetryController) backoffDelay(attempt int) time.Duration {
	base := float64(r.policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	capped := math.Min(base, float64(r.policy.MaxDelay))
	factor := 1 + r.policy.JitterFactor*(2*r.jitter()-1)
	return time.Duration(capped * factor)
}

// AttemptCount 累计投递尝试次数，供观测快照使用
func (r *RetryController) AttemptCount() int64 {
	return r.attemptCount.Load()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
