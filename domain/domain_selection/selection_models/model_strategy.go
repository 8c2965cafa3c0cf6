package selection_models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EnergyTier 能量档位，与频道共同构成策略的唯一键
type EnergyTier string

const (
	EnergyTierLow    EnergyTier = "low"
	EnergyTierMedium EnergyTier = "medium"
	EnergyTierHigh   EnergyTier = "high"
)

// ParseEnergyTier 解析能量档位字符串
func ParseEnergyTier(s string) (EnergyTier, bool) {
	switch EnergyTier(s) {
	case EnergyTierLow, EnergyTierMedium, EnergyTierHigh:
		return EnergyTier(s), true
	}
	return "", false
}

// BoostMode 加权比较模式
type BoostMode string

const (
	BoostModeNear  BoostMode = "near"  // 归一化距离递减
	BoostModeExact BoostMode = "exact" // 全有或全无
)

// SlotTarget 单个槽位的目标元数据
// 指针字段为空表示该字段不参与评分
type SlotTarget struct {
	SlotIndex  int      `bson:"slot_index" json:"slot_index"` // [1, num_slots]
	Speed      *float64 `bson:"speed,omitempty" json:"speed,omitempty"`
	Intensity  *float64 `bson:"intensity,omitempty" json:"intensity,omitempty"`
	Brightness *float64 `bson:"brightness,omitempty" json:"brightness,omitempty"`
	Complexity *float64 `bson:"complexity,omitempty" json:"complexity,omitempty"`
	BPM        *float64 `bson:"bpm,omitempty" json:"bpm,omitempty"`
	Valence    *float64 `bson:"valence,omitempty" json:"valence,omitempty"`
	Arousal    *float64 `bson:"arousal,omitempty" json:"arousal,omitempty"`
	Key        *string  `bson:"key,omitempty" json:"key,omitempty"`
}

// Numeric 按字段取目标值，未设置或非数值字段返回false
func (t *SlotTarget) Numeric(f Field) (float64, bool) {
	var p *float64
	switch f {
	case FieldSpeed:
		p = t.Speed
	case FieldIntensity:
		p = t.Intensity
	case FieldBrightness:
		p = t.Brightness
	case FieldComplexity:
		p = t.Complexity
	case FieldBPM:
		p = t.BPM
	case FieldValence:
		p = t.Valence
	case FieldArousal:
		p = t.Arousal
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// SlotBoost 字段加权配置，策略级全局生效（适用于该策略下所有槽位）
// 每个策略中同一字段至多一条
type SlotBoost struct {
	Field  Field     `bson:"field" json:"field"`
	Mode   BoostMode `bson:"mode" json:"mode"`
	Weight float64   `bson:"weight" json:"weight"` // [1, 5]
}

// Strategy 频道在某一能量档位下的完整选曲策略
// 由外部配置方创建和编辑，本引擎只读（仅缓存失效钩子除外）
type Strategy struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChannelID          string             `bson:"channel_id" json:"channel_id"`
	EnergyTier         EnergyTier         `bson:"energy_tier" json:"energy_tier"`
	NumSlots           int                `bson:"num_slots" json:"num_slots"`                       // [1, 60]
	RecentRepeatWindow int                `bson:"recent_repeat_window" json:"recent_repeat_window"` // >= 0
	Slots              []SlotTarget       `bson:"slots" json:"slots"`
	Boosts             []SlotBoost        `bson:"boosts" json:"boosts"`
	RuleGroups         []RuleGroup        `bson:"rule_groups" json:"rule_groups"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// SlotAt 按槽位序号（0起）取目标，配置缺失时返回空目标
func (s *Strategy) SlotAt(index int) *SlotTarget {
	for i := range s.Slots {
		if s.Slots[i].SlotIndex == index+1 {
			return &s.Slots[i]
		}
	}
	return &SlotTarget{SlotIndex: index + 1}
}
