package playback_models

import "time"

// DeliveryAttempt 单次投递尝试的临时记录，不持久化
type DeliveryAttempt struct {
	TrackID       string
	AttemptNumber int // 1起
	StartedAt     time.Time
	TimeoutAt     time.Time
}

// RetryPolicy 单条"投递该轨道"逻辑操作的重试参数
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	PerAttemptTimeout time.Duration
	OverallTimeout    time.Duration // 独立于退避计算强制执行，超过即中止
	JitterFactor      float64       // delay × (1 ± JitterFactor)
}

// DefaultRetryPolicy 默认重试参数
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       5,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          8000 * time.Millisecond,
		PerAttemptTimeout: 15 * time.Second,
		OverallTimeout:    45 * time.Second,
		JitterFactor:      0.3,
	}
}

// StallPolicy 停滞检测与渐进恢复参数
type StallPolicy struct {
	DetectionDelay  time.Duration // 无前进进度判定为停滞的时长
	RecoveryTimeout time.Duration // 每个恢复策略的解决窗口
	PollInterval    time.Duration // 进度采样间隔
}

// DefaultStallPolicy 默认停滞参数
func DefaultStallPolicy() StallPolicy {
	return StallPolicy{
		DetectionDelay:  5 * time.Second,
		RecoveryTimeout: 5 * time.Second,
		PollInterval:    500 * time.Millisecond,
	}
}
