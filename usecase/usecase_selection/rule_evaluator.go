package usecase_selection

import (
	"sort"
	"strings"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// RuleGroupEvaluator 规则组求值器
// 组间AND：候选必须满足每一组；组内按Logic取AND或OR
// 缺失字段约定：除neq/nin判定为通过外，其余算子一律判定为失败
// （缺失值不可能等于任何值，也不可能是任何集合的成员）
type RuleGroupEvaluator struct{}

func NewRuleGroupEvaluator() *RuleGroupEvaluator {
	return &RuleGroupEvaluator{}
}

// Admit 判定候选是否通过全部规则组，空规则组列表放行一切
func (e *RuleGroupEvaluator) Admit(
	candidate *selection_models.Candidate,
	groups []selection_models.RuleGroup,
) bool {
	if len(groups) == 0 {
		return true
	}

	// 按Order排序仅为提前退出优化，不改变语义
	ordered := make([]selection_models.RuleGroup, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	for i := range ordered {
		if !e.evaluateGroup(candidate, &ordered[i]) {
			return false
		}
	}
	return true
}

func (e *RuleGroupEvaluator) evaluateGroup(
	candidate *selection_models.Candidate,
	group *selection_models.RuleGroup,
) bool {
	if len(group.Rules) == 0 {
		return true
	}

	if group.Logic == selection_models.GroupLogicOr {
		for i := range group.Rules {
			if e.evaluateRule(candidate, &group.Rules[i]) {
				return true
			}
		}
		return false
	}

	// 默认AND
	for i := range group.Rules {
		if !e.evaluateRule(candidate, &group.Rules[i]) {
			return false
		}
	}
	return true
}

func (e *RuleGroupEvaluator) evaluateRule(
	candidate *selection_models.Candidate,
	rule *selection_models.Rule,
) bool {
	value, present := candidate.FieldValue(rule.Field)

	switch rule.Operator {
	case selection_models.OperatorExists:
		return present
	case selection_models.OperatorEq:
		return present && equalValues(value, rule.Value)
	case selection_models.OperatorNeq:
		// 缺失字段视为不相等
		return !present || !equalValues(value, rule.Value)
	case selection_models.OperatorIn:
		return present && containsValue(rule.Value, value)
	case selection_models.OperatorNin:
		// 缺失字段视为不属于任何集合
		return !present || !containsValue(rule.Value, value)
	case selection_models.OperatorGte:
		cv, ok1 := toFloat(value)
		rv, ok2 := toFloat(rule.Value)
		return present && ok1 && ok2 && cv >= rv
	case selection_models.OperatorLte:
		cv, ok1 := toFloat(value)
		rv, ok2 := toFloat(rule.Value)
		return present && ok1 && ok2 && cv <= rv
	case selection_models.OperatorBetween:
		if !present {
			return false
		}
		low, high, ok := betweenBounds(rule.Value)
		if !ok {
			return false
		}
		cv, okc := toFloat(value)
		return okc && cv >= low && cv <= high
	}
	return false
}

// equalValues 数值双方按浮点比较，否则按字符串不区分大小写比较
func equalValues(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.EqualFold(as, bs)
	}
	return a == b
}

func containsValue(set, value interface{}) bool {
	items, ok := set.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if equalValues(item, value) {
			return true
		}
	}
	return false
}

// betweenBounds between算子要求[low, high]闭区间两元素数组
func betweenBounds(value interface{}) (float64, float64, bool) {
	bounds, ok := value.([]interface{})
	if !ok || len(bounds) != 2 {
		return 0, 0, false
	}
	low, ok1 := toFloat(bounds[0])
	high, ok2 := toFloat(bounds[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return low, high, true
}

// toFloat bson解码可能产生int32/int64/float64等多种数值类型
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
