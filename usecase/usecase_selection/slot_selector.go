package usecase_selection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// SlotSelection 单个槽位的选曲结果
type SlotSelection struct {
	Candidate selection_models.Candidate
	SlotIndex int
	Score     float64
	Fallback  selection_models.FallbackTier // 非零表示命中时使用了回退层级
}

// SlotSelector 槽位选曲器：为一个槽位产出恰好一条轨道，或显式失败
type SlotSelector struct {
	catalog   selection_interface.CatalogProvider
	evaluator *RuleGroupEvaluator
	scorer    *CandidateScorer
	timeout   time.Duration
}

func NewSlotSelector(
	catalog selection_interface.CatalogProvider,
	evaluator *RuleGroupEvaluator,
	scorer *CandidateScorer,
	timeout time.Duration,
) *SlotSelector {
	return &SlotSelector{
		catalog:   catalog,
		evaluator: evaluator,
		scorer:    scorer,
		timeout:   timeout,
	}
}

// SelectTrack 为指定槽位选曲
// 回退策略为刻意的设计选择而非缺陷：配置与目录不匹配时逐级放宽
// （严格 → 放宽防重复 → 放宽规则组），避免硬失败；使用了回退层级时
// 通过SlotSelection.Fallback向调用方发出警告信号
func (s *SlotSelector) SelectTrack(
	ctx context.Context,
	strategy *selection_models.Strategy,
	session *selection_models.PlaybackSession,
	slotIndex int,
) (*SlotSelection, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	candidates, err := s.catalog.QueryCandidates(
		ctx,
		strategy.ChannelID,
		strategy.EnergyTier,
		pushDownRules(strategy.RuleGroups),
	)
	if err != nil {
		return nil, fmt.Errorf("查询候选轨道失败: %w", err)
	}

	recent := make(map[string]bool)
	for _, id := range session.RecentHistory(strategy.RecentRepeatWindow) {
		recent[id] = true
	}

	// 层级0：防重复排除 + 规则组全量复查（下推可能不完整）
	admitted := s.filter(candidates, strategy.RuleGroups, recent)
	fallback := selection_models.FallbackNone

	if len(admitted) == 0 {
		// 层级1：放宽防重复窗口
		admitted = s.filter(candidates, strategy.RuleGroups, nil)
		fallback = selection_models.FallbackIgnoreHistory
	}
	if len(admitted) == 0 {
		// 层级2：放宽全部规则组，回退到频道/能量档位全量目录
		admitted = candidates
		fallback = selection_models.FallbackIgnoreRules
	}
	if len(admitted) == 0 {
		return nil, &selection_models.NoCandidatesError{
			ChannelID:  strategy.ChannelID,
			EnergyTier: strategy.EnergyTier,
			SlotIndex:  slotIndex,
		}
	}

	if fallback != selection_models.FallbackNone {
		slog.Warn("selection: 选曲使用了回退层级",
			"channel_id", strategy.ChannelID,
			"energy_tier", strategy.EnergyTier,
			"slot_index", slotIndex,
			"fallback", fallback.String(),
		)
	}

	target := strategy.SlotAt(slotIndex)
	best := 0
	bestScore := -1.0
	for i := range admitted {
		score := s.scorer.Score(&admitted[i], target, strategy.Boosts)
		// 平局取track_id最小者，保证确定性和可复现测试
		if score > bestScore ||
			(score == bestScore && admitted[i].TrackID < admitted[best].TrackID) {
			best = i
			bestScore = score
		}
	}

	return &SlotSelection{
		Candidate: admitted[best],
		SlotIndex: slotIndex,
		Score:     bestScore,
		Fallback:  fallback,
	}, nil
}

func (s *SlotSelector) filter(
	candidates []selection_models.Candidate,
	groups []selection_models.RuleGroup,
	recent map[string]bool,
) []selection_models.Candidate {
	var admitted []selection_models.Candidate
	for i := range candidates {
		if recent != nil && recent[candidates[i].TrackID] {
			continue
		}
		if !s.evaluator.Admit(&candidates[i], groups) {
			continue
		}
		admitted = append(admitted, candidates[i])
	}
	return admitted
}

// pushDownRules 挑选可下推到目录查询层的规则：
// 仅AND组内针对标签字段的eq/in等值过滤，下推仅为性能优化
func pushDownRules(groups []selection_models.RuleGroup) []selection_models.Rule {
	var rules []selection_models.Rule
	for i := range groups {
		if groups[i].Logic == selection_models.GroupLogicOr {
			continue
		}
		for _, rule := range groups[i].Rules {
			if _, isVector := selection_models.ParseField(rule.Field); isVector {
				continue
			}
			if rule.Operator == selection_models.OperatorEq ||
				rule.Operator == selection_models.OperatorIn {
				rules = append(rules, rule)
			}
		}
	}
	return rules
}
