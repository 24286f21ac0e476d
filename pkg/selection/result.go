package selection

import (
	"github.com/easyops/llmsdigest-go/pkg/conflict"
	"github.com/easyops/llmsdigest-go/pkg/document"
)

// 处理阶段名称（用于单文档错误记录）。
const (
	StageValidate = "validate"
	StageScore    = "score"
)

// DocumentError 单文档错误，局部恢复后记录在结果中，不会作为调用错误返回。
type DocumentError struct {
	// DocumentID 出错文档 ID（nil 文档为空）
	DocumentID string `json:"document_id"`
	// Index 文档在输入中的位置
	Index int    `json:"index"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

// Error 实现 error 接口。
func (e DocumentError) Error() string {
	return e.Stage + " " + e.DocumentID + ": " + e.Err.Error()
}

// Unwrap 返回底层错误。
func (e DocumentError) Unwrap() error {
	return e.Err
}

// Optimization 优化记录。
type Optimization struct {
	// Strategy 使用的选择策略
	Strategy Strategy `json:"strategy"`
	// CompositionStrategy 评分使用的组合策略（空表示按分类默认）
	CompositionStrategy string `json:"composition_strategy,omitempty"`
	// QualityScore 入选文档的平均总分 [0, 1]
	QualityScore float64 `json:"quality_score"`
	// TotalSize 入选文档的尺寸估算之和
	TotalSize int `json:"total_size"`
	// Budget 字符预算
	Budget int `json:"budget"`
	// Utilization TotalSize / Budget
	Utilization float64 `json:"utilization"`
}

// Analysis 选择分析记录。
type Analysis struct {
	// CategoryCoverage 每个分类的入选文档数
	CategoryCoverage map[document.Category]int `json:"category_coverage"`
	// TagCoverage 每个标签的入选文档数
	TagCoverage map[string]int `json:"tag_coverage"`
	// Candidates 参与策略选择的候选数
	Candidates int `json:"candidates"`
	// Excluded 标签过滤、质量阈值与冲突导致的排除
	Excluded []Exclusion `json:"excluded"`
	// Added 因依赖新增的文档
	Added []string `json:"added"`
	// Cycles 依赖环
	Cycles [][]string `json:"cycles,omitempty"`
	// Missing 缺失的依赖目标
	Missing []MissingDependency `json:"missing,omitempty"`
	// DependencyExclusions 依赖解析中因冲突关系排除的文档
	DependencyExclusions []DependencyExclusion `json:"dependency_exclusions,omitempty"`
	// Conflicts 冲突分析
	Conflicts *conflict.AnalysisResult `json:"conflicts,omitempty"`
	// Resolutions 自动解决冲突的执行结果（未启用时为 nil）
	Resolutions *conflict.ApplyResult `json:"resolutions,omitempty"`
}

// SelectionResult 一次选择的结果。
type SelectionResult struct {
	// ID 本次运行的唯一标识
	ID string `json:"id"`
	// Selected 入选文档（总分降序，优先级降序，ID 升序）
	Selected     []ScoredDocument `json:"selected"`
	Optimization Optimization     `json:"optimization"`
	Analysis     Analysis         `json:"analysis"`
	// Errors 局部恢复的单文档错误
	Errors []DocumentError `json:"errors,omitempty"`
}

// Documents 返回入选文档。
func (r *SelectionResult) Documents() []*document.DocumentMetadata {
	docs := make([]*document.DocumentMetadata, len(r.Selected))
	for i, s := range r.Selected {
		docs[i] = s.Document
	}
	return docs
}

// IDs 返回入选文档 ID。
func (r *SelectionResult) IDs() []string {
	ids := make([]string, len(r.Selected))
	for i, s := range r.Selected {
		ids[i] = s.ID
	}
	return ids
}

// analyze 统计覆盖率与优化记录。
func analyze(selected []ScoredDocument, budget int) (Optimization, map[document.Category]int, map[string]int) {
	opt := Optimization{Budget: budget}
	cats := make(map[document.Category]int)
	tags := make(map[string]int)

	var sum float64
	for _, s := range selected {
		opt.TotalSize += s.Size
		sum += s.Score.Total
		cats[s.Document.Category]++
		for _, tag := range s.Document.AllTags() {
			tags[tag]++
		}
	}
	if len(selected) > 0 {
		opt.QualityScore = sum / float64(len(selected))
	}
	if budget > 0 {
		opt.Utilization = float64(opt.TotalSize) / float64(budget)
	}
	return opt, cats, tags
}
