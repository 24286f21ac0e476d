package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
const (
	// 选择相关属性
	AttrSelectionStrategy    = "selection.strategy"
	AttrSelectionBudget      = "selection.budget"
	AttrSelectionCandidates  = "selection.candidates"
	AttrSelectionSelected    = "selection.selected"
	AttrSelectionUtilization = "selection.utilization"

	// 文档相关属性
	AttrDocumentID    = "document.id"
	AttrDocumentCount = "document.count"

	// 冲突相关属性
	AttrConflictRule     = "conflict.rule"
	AttrConflictSeverity = "conflict.severity"

	AttrComposeLimit = "compose.character_limit"
	AttrQualityGrade = "quality.grade"
)

// SelectionStrategy 创建选择策略属性
func SelectionStrategy(name string) attribute.KeyValue {
	return attribute.String(AttrSelectionStrategy, name)
}

// SelectionBudget 创建字符预算属性
func SelectionBudget(chars int) attribute.KeyValue {
	return attribute.Int(AttrSelectionBudget, chars)
}

// DocumentCount 创建文档数量属性
func DocumentCount(n int) attribute.KeyValue {
	return attribute.Int(AttrDocumentCount, n)
}

// DocumentID 创建文档 ID 属性
func DocumentID(id string) attribute.KeyValue {
	return attribute.String(AttrDocumentID, id)
}

// ComposeLimit 创建组合字符限制属性
func ComposeLimit(limit int) attribute.KeyValue {
	return attribute.Int(AttrComposeLimit, limit)
}
