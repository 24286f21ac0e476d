// Package conflict 检测并解决候选文档之间的语义冲突。
//
// 每对文档在规范化（较小 ID 在前）之后按规则集逐条评估，
// 因此检测与解决结果与输入顺序无关。
package conflict

import (
	"github.com/google/uuid"

	"github.com/easyops/llmsdigest-go/pkg/document"
)

// Severity 冲突严重程度。
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Rank 返回严重程度的排序值，越严重越大；未知返回 0。
func (s Severity) Rank() int {
	switch s {
	case SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeverityMajor:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Factor 返回影响系数。
func (s Severity) Factor() float64 {
	return float64(s.Rank()) / 4
}

// Action 冲突解决动作。
type Action string

const (
	ActionExcludeFirst  Action = "exclude-first"
	ActionExcludeSecond Action = "exclude-second"
	ActionExcludeBoth   Action = "exclude-both"
	ActionModifyFirst   Action = "modify-first"
	ActionModifySecond  Action = "modify-second"
	ActionMerge         Action = "merge"
	ActionKeepBoth      Action = "keep-both"
	ActionManualReview  Action = "manual-review"
)

// planOrder 解决方案计划中动作分组的固定顺序。
var planOrder = []Action{
	ActionExcludeFirst,
	ActionExcludeSecond,
	ActionExcludeBoth,
	ActionMerge,
	ActionModifyFirst,
	ActionModifySecond,
	ActionKeepBoth,
	ActionManualReview,
}

// Impact 冲突对用户体验、内容质量与系统复杂度的影响，各项 [0, 1]。
type Impact struct {
	UserExperience   float64 `json:"user_experience"`
	ContentQuality   float64 `json:"content_quality"`
	SystemComplexity float64 `json:"system_complexity"`
}

// scale 按系数缩放影响。
func (i Impact) scale(f float64) Impact {
	return Impact{
		UserExperience:   i.UserExperience * f,
		ContentQuality:   i.ContentQuality * f,
		SystemComplexity: i.SystemComplexity * f,
	}
}

// Resolution 建议的解决方案。
type Resolution struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	// Patch modify/merge 动作作用于保留文档的补丁
	Patch *document.Patch `json:"-"`
}

// Conflict 两个文档之间检测到的冲突。First 总是 ID 较小的文档。
type Conflict struct {
	ID          string      `json:"id"`
	Rule        RuleKind    `json:"rule"`
	Severity    Severity    `json:"severity"`
	First       string      `json:"first"`
	Second      string      `json:"second"`
	Description string      `json:"description"`
	Resolution  *Resolution `json:"resolution,omitempty"`
	Impact      Impact      `json:"impact"`
}

// NeedsReview 判断冲突是否需要人工处理。
func (c *Conflict) NeedsReview() bool {
	return c.Resolution == nil || c.Resolution.Action == ActionManualReview
}

// conflictNamespace 冲突 ID 的 UUID 命名空间。
var conflictNamespace = uuid.MustParse("6f1c2b8e-4a52-4d0b-9a57-3f0d8e7c1a24")

// conflictID 根据规则与文档对生成确定性的 ID。
func conflictID(kind RuleKind, first, second string) string {
	return uuid.NewSHA1(conflictNamespace, []byte(string(kind)+"|"+first+"|"+second)).String()
}
