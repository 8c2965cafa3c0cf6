package usecase_selection

import (
	"math"
	"strings"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// neutralScore 无任何加权字段同时具备目标值时的中性分
// 返回中性分而非未定义值，使排序可以平滑退化而不是崩溃
const neutralScore = 0.5

// CandidateScorer 候选评分器
// 对每个同时具备加权与目标值的字段计算归一化距离匹配分，
// 按权重加权求和，结果恒落在[0,1]
type CandidateScorer struct{}

func NewCandidateScorer() *CandidateScorer {
	return &CandidateScorer{}
}

// Score 计算候选对槽位目标的匹配分
// 加权为策略级全局配置，对该策略所有槽位统一生效
// 未加权的字段即使有目标值也完全不参与评分
func (s *CandidateScorer) Score(
	candidate *selection_models.Candidate,
	target *selection_models.SlotTarget,
	boosts []selection_models.SlotBoost,
) float64 {
	var weightedSum, totalWeight float64

	for i := range boosts {
		boost := &boosts[i]

		if boost.Field == selection_models.FieldKey {
			// 调性为类别字段，near模式无意义，一律退化为精确匹配
			if target.Key == nil || candidate.Vector.Key == "" {
				continue
			}
			match := 0.0
			if strings.EqualFold(*target.Key, candidate.Vector.Key) {
				match = 1.0
			}
			weightedSum += match * boost.Weight
			totalWeight += boost.Weight
			continue
		}

		targetValue, hasTarget := target.Numeric(boost.Field)
		candidateValue, hasValue := candidate.Vector.Numeric(boost.Field)
		if !hasTarget || !hasValue {
			continue
		}

		fieldRange := boost.Field.Range()
		if fieldRange <= 0 {
			continue
		}

		distance := math.Abs(targetValue-candidateValue) / fieldRange
		var match float64
		switch boost.Mode {
		case selection_models.BoostModeExact:
			if distance == 0 {
				match = 1.0
			}
		default: // near
			match = math.Max(0, 1.0-distance)
		}

		weightedSum += match * boost.Weight
		totalWeight += boost.Weight
	}

	if totalWeight == 0 {
		return neutralScore
	}
	return weightedSum / totalWeight
}
