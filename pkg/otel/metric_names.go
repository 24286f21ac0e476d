package otel

// 预定义的指标名称
const (
	// 选择指标
	MetricSelectionRuns        = "selection.runs"               // 计数器: 选择执行次数
	MetricSelectionDuration    = "selection.duration"           // 直方图: 选择耗时(ms)
	MetricSelectionSelected    = "selection.documents.selected" // 计数器: 入选文档数
	MetricSelectionExcluded    = "selection.documents.excluded" // 计数器: 过滤排除文档数
	MetricSelectionErrors      = "selection.document.errors"    // 计数器: 单文档错误数
	MetricSelectionUtilization = "selection.utilization"        // 仪表: 预算利用率

	// 冲突指标
	MetricConflictDetected = "conflict.detected" // 计数器: 检测到的冲突数
	MetricConflictResolved = "conflict.resolved" // 计数器: 已应用的解决方案数

	// 组合指标
	MetricComposeRuns        = "compose.runs"        // 计数器: 组合执行次数
	MetricComposeUtilization = "compose.utilization" // 直方图: 字符利用率

	// 质量指标
	MetricQualityScore = "quality.score" // 直方图: 总体质量分数
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitCount        MetricUnit = "1"
	UnitRatio        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricSelectionRuns, "Number of document selection runs", UnitCount, "counter"},
	{MetricSelectionDuration, "Duration of document selection runs", UnitMilliseconds, "histogram"},
	{MetricSelectionSelected, "Number of selected documents", UnitCount, "counter"},
	{MetricSelectionExcluded, "Number of documents excluded by filters", UnitCount, "counter"},
	{MetricSelectionErrors, "Number of per-document errors recovered during selection", UnitCount, "counter"},
	{MetricSelectionUtilization, "Share of the character budget used by the last selection", UnitRatio, "gauge"},

	{MetricConflictDetected, "Number of detected document conflicts", UnitCount, "counter"},
	{MetricConflictResolved, "Number of applied conflict resolutions", UnitCount, "counter"},

	{MetricComposeRuns, "Number of composition runs", UnitCount, "counter"},
	{MetricComposeUtilization, "Character utilization of compositions", UnitRatio, "histogram"},

	{MetricQualityScore, "Overall quality score of evaluated selections", UnitNone, "histogram"},
}

// describeMetric 查找预定义指标的描述
func describeMetric(name string) (MetricDescription, bool) {
	for _, d := range PredefinedMetrics {
		if d.Name == name {
			return d, true
		}
	}
	return MetricDescription{}, false
}
