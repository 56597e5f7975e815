package metrics

// Label 指标标签
//
// 标签值应保持低基数：引擎名、结果分类可以作为标签，单个 ID 不可以。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

const (
	// 常见的标签
	LabelService  = "service"
	LabelEngine   = "engine"
	LabelBusiness = "business"
	LabelOutcome  = "outcome"
	LabelReason   = "reason"
)

const (
	// 常见的结果
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
