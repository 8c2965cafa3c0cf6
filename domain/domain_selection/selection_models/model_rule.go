package selection_models

// Operator 过滤规则比较算子
type Operator string

const (
	OperatorEq      Operator = "eq"
	OperatorNeq     Operator = "neq"
	OperatorIn      Operator = "in"
	OperatorNin     Operator = "nin"
	OperatorGte     Operator = "gte"
	OperatorLte     Operator = "lte"
	OperatorBetween Operator = "between" // value为[low, high]闭区间
	OperatorExists  Operator = "exists"  // 仅检查字段存在且非空
)

// GroupLogic 规则组内部组合逻辑
type GroupLogic string

const (
	GroupLogicAnd GroupLogic = "AND"
	GroupLogicOr  GroupLogic = "OR"
)

// Rule 单条过滤规则
// Field可指向MetadataVector数值字段或目录标签（如genre、artist、duration）
type Rule struct {
	Field    string      `bson:"field" json:"field"`
	Operator Operator    `bson:"operator" json:"operator"`
	Value    interface{} `bson:"value" json:"value"`
}

// RuleGroup 规则组，组间以AND组合（候选必须满足每一组）
// Order仅影响求值顺序以便提前退出，不影响语义
type RuleGroup struct {
	Logic GroupLogic `bson:"logic" json:"logic"`
	Order int        `bson:"order" json:"order"`
	Rules []Rule     `bson:"rules" json:"rules"`
}
