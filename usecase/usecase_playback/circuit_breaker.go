package usecase_playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
)

// CircuitBreaker 单个内容源站的熔断器
// closed→open：连续失败达到阈值；open→half_open：冷却期满后的惰性时钟
// 检查（在每次Allow调用时判定，不依赖后台定时器）；half_open下放行
// 单次试探，成功回closed，失败回open
// 状态跨该源站全部轨道共享，预取与前台播放并发上报也只加减一次
type CircuitBreaker struct {
	config playback_models.CircuitBreakerConfig
	origin string
	now    func() time.Time

	mu                  sync.Mutex
	status              playback_models.CircuitStatus
	consecutiveFailures int
	openedAt            time.Time
}

func NewCircuitBreaker(origin string, config playback_models.CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		origin: origin,
		now:    time.Now,
		status: playback_models.CircuitClosed,
	}
}

// Allow 每次投递尝试前调用：返回false时必须短路，不得产生网络调用
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.status {
	case playback_models.CircuitClosed:
		return true
	case playback_models.CircuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
			// 转入半开的这次Allow即为唯一试探
			cb.status = playback_models.CircuitHalfOpen
			slog.Info("playback: 熔断器进入半开", "origin", cb.origin)
			return true
		}
		return false
	case playback_models.CircuitHalfOpen:
		// 试探已放行，等待结果上报前一律拒绝
		return false
	}
	return false
}

// RecordSuccess 投递成功上报
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.status != playback_models.CircuitClosed {
		slog.Info("playback: 熔断器关闭", "origin", cb.origin)
	}
	cb.status = playback_models.CircuitClosed
	cb.consecutiveFailures = 0
}

// RecordFailure 投递失败上报，每次尝试恰好记录一次
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.status {
	case playback_models.CircuitHalfOpen:
		cb.open()
	case playback_models.CircuitClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.config.FailureThreshold {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.status = playback_models.CircuitOpen
	cb.openedAt = cb.now()
	slog.Warn("playback: 熔断器打开",
		"origin", cb.origin,
		"consecutive_failures", cb.consecutiveFailures,
		"reset_timeout", cb.config.ResetTimeout,
	)
}

// State 当前状态快照
func (cb *CircuitBreaker) State() playback_models.CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return playback_models.CircuitBreakerState{
		Status:              cb.status,
		ConsecutiveFailures: cb.consecutiveFailures,
		OpenedAt:            cb.openedAt,
	}
}
