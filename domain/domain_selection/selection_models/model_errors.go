package selection_models

import "fmt"

// NoCandidatesError 全部回退层级耗尽后候选池仍为空
// 属于该频道/能量档位的数据或配置问题，调用方必须显式上报而非静默跳过
type NoCandidatesError struct {
	ChannelID  string
	EnergyTier EnergyTier
	SlotIndex  int
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("频道[%s]能量档位[%s]槽位[%d]无可用候选轨道", e.ChannelID, e.EnergyTier, e.SlotIndex)
}

// FallbackTier 选曲使用的回退层级，零值表示严格命中
type FallbackTier int

const (
	FallbackNone          FallbackTier = iota // 严格过滤命中
	FallbackIgnoreHistory                     // 放宽防重复窗口
	FallbackIgnoreRules                       // 放宽全部规则组，回退到频道全量目录
)

func (t FallbackTier) String() string {
	switch t {
	case FallbackNone:
		return "none"
	case FallbackIgnoreHistory:
		return "ignore_history"
	case FallbackIgnoreRules:
		return "ignore_rules"
	}
	return "unknown"
}
