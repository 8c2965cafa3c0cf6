package playback_models

import "time"

// MetricsSnapshot 可观测性扁平快照，周期性推送给OnMetrics回调
type MetricsSnapshot struct {
	CircuitStatus       string    `json:"circuit_status"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	RetryAttemptCount   int64     `json:"retry_attempt_count"`
	StallCount          int64     `json:"stall_count"`
	FallbackCount       int64     `json:"fallback_count"`
	SkipCount           int64     `json:"skip_count"`
	CurrentSlotIndex    int       `json:"current_slot_index"`
	CapturedAt          time.Time `json:"captured_at"`
}

// Flatten 转换为扁平键值映射，满足无固定格式要求的观测接口
func (m *MetricsSnapshot) Flatten() map[string]interface{} {
	return map[string]interface{}{
		"circuit_status":       m.CircuitStatus,
		"consecutive_failures": m.ConsecutiveFailures,
		"retry_attempt_count":  m.RetryAttemptCount,
		"stall_count":          m.StallCount,
		"fallback_count":       m.FallbackCount,
		"skip_count":           m.SkipCount,
		"current_slot_index":   m.CurrentSlotIndex,
		"captured_at":          m.CapturedAt,
	}
}
