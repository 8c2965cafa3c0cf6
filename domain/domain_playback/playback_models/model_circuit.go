package playback_models

import "time"

// CircuitStatus 熔断器状态
type CircuitStatus string

const (
	CircuitClosed   CircuitStatus = "closed"    // 正常放行
	CircuitOpen     CircuitStatus = "open"      // 全部短路
	CircuitHalfOpen CircuitStatus = "half_open" // 放行单次试探
)

// CircuitBreakerState 单个内容源站的熔断状态快照
// 每个源站一个实例（而非每轨道一个），跨预取与前台播放共享
type CircuitBreakerState struct {
	Status              CircuitStatus `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	OpenedAt            time.Time     `json:"opened_at"`
}

// CircuitBreakerConfig 熔断参数
type CircuitBreakerConfig struct {
	FailureThreshold int           // 连续失败次数阈值
	ResetTimeout     time.Duration // open到half_open的冷却时长
}

// DefaultCircuitBreakerConfig 默认熔断参数
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}
