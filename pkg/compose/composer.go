// Package compose 在严格的字符上限内把已选文档渲染为最终文本。
//
// 预算分两阶段：先用每个文档最短的摘录生成目录，剩余预算再用有界贪心
// 填充正文，每个文档选择仍能放下的最长摘录。输出长度按 rune 计，
// 永远不超过 CharacterLimit。
package compose

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/otel"
)

const (
	tocHeader = "# Contents\n"
	ellipsis  = "..."
	separator = "\n"
)

// Variant 预渲染的摘录版本。
type Variant struct {
	// Limit 该版本面向的字符长度
	Limit int    `json:"limit"`
	Text  string `json:"text"`
}

// Entry 待组合的文档及其摘录版本。
type Entry struct {
	Document *document.DocumentMetadata
	Variants []Variant
}

// NewEntry 创建组合条目，摘录按长度升序排列。
func NewEntry(doc *document.DocumentMetadata, variants ...Variant) Entry {
	vs := make([]Variant, 0, len(variants))
	for _, v := range variants {
		if strings.TrimSpace(v.Text) != "" {
			vs = append(vs, v)
		}
	}
	sort.SliceStable(vs, func(i, j int) bool {
		return runeLen(strings.TrimSpace(vs[i].Text)) < runeLen(strings.TrimSpace(vs[j].Text))
	})
	return Entry{Document: doc, Variants: vs}
}

// Entries 按文档 ID 查找摘录，构造组合条目。
func Entries(docs []*document.DocumentMetadata, excerpts map[string][]Variant) []Entry {
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		entries = append(entries, NewEntry(doc, excerpts[doc.ID]...))
	}
	return entries
}

// DocumentSize 单个文档在正文中的实际尺寸。
type DocumentSize struct {
	ID string `json:"id"`
	// Characters 渲染后的字符数
	Characters int `json:"characters"`
	// VariantLimit 所用摘录的目标长度
	VariantLimit int `json:"variant_limit"`
}

// Summary 组合摘要。
type Summary struct {
	TargetCharacters  int     `json:"target_characters"`
	ActualCharacters  int     `json:"actual_characters"`
	Utilization       float64 `json:"utilization"`
	DocumentsIncluded int     `json:"documents_included"`
	TOCCharacters     int     `json:"toc_characters"`
	// TOCTruncated 目录是否被截断并插入省略标记
	TOCTruncated bool `json:"toc_truncated"`
	// TOCOnly 目录已占满预算，正文为空
	TOCOnly bool `json:"toc_only"`
	// EstimatedTokens 最终文本的 Token 估算
	EstimatedTokens int            `json:"estimated_tokens"`
	Documents       []DocumentSize `json:"documents"`
}

// CompositionResult 组合结果。
type CompositionResult struct {
	ID              string  `json:"id"`
	Text            string  `json:"text"`
	TableOfContents string  `json:"table_of_contents,omitempty"`
	Body            string  `json:"body"`
	Summary         Summary `json:"summary"`
}

// Composer 自适应组合器，不保存调用之间的状态，可并发使用。
type Composer struct {
	counter TokenCounter
	tracer  otel.Tracer
	metrics otel.Metrics
	logger  otel.Logger
}

// NewComposer 创建组合器，默认使用字符估算的 Token 计数器。
func NewComposer(opts ...ComposerOption) *Composer {
	c := &Composer{
		counter: NewEstimatedCounter(),
		tracer:  otel.NewNoopTracer(),
		metrics: otel.NewNoopMetrics(),
		logger:  otel.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose 在 opts.CharacterLimit 内组合文本。
//
// 目录先按 TOCCharacterLimit 渲染；渲染结果达到或超过上限时只返回
// 截断到 CharacterLimit 的目录，正文为空；
// 这是正常结果而不是错误。输入条目不会被修改。
func (c *Composer) Compose(ctx context.Context, entries []Entry, opts Options) (*CompositionResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "compose",
		otel.ComposeLimit(opts.CharacterLimit),
		otel.DocumentCount(len(entries)),
	)
	defer span.End()

	limit := opts.CharacterLimit
	ordered := eligible(entries, opts)
	result := &CompositionResult{ID: uuid.NewString()}
	result.Summary.TargetCharacters = limit

	if opts.IncludeTableOfContents && len(ordered) > 0 {
		full := renderTOC(ordered)
		toc, truncated := fitTOC(full, opts.tocLimit())
		// 受目录上限约束后的目录仍占满预算时，只输出截断到总上限的目录
		if runeLen(toc) >= limit {
			toc, truncated = fitTOC(full, limit)
			result.Summary.TOCOnly = true
		}
		result.TableOfContents = toc
		result.Summary.TOCCharacters = runeLen(toc)
		result.Summary.TOCTruncated = truncated
	}

	if !result.Summary.TOCOnly {
		budget := limit
		if result.TableOfContents != "" {
			budget -= runeLen(result.TableOfContents) + runeLen(separator)
		}
		result.Body, result.Summary.Documents = fillBody(ordered, budget, opts.BodyReserve)
	}

	result.Text = result.TableOfContents
	if result.Body != "" {
		if result.Text != "" {
			result.Text += separator
		}
		result.Text += result.Body
	}

	s := &result.Summary
	s.ActualCharacters = runeLen(result.Text)
	s.Utilization = float64(s.ActualCharacters) / float64(limit)
	s.DocumentsIncluded = len(s.Documents)
	s.EstimatedTokens = c.counter.Count(result.Text)

	span.SetAttributes(
		attribute.Int("compose.actual_characters", s.ActualCharacters),
		attribute.Int("compose.documents_included", s.DocumentsIncluded),
		attribute.Bool("compose.toc_only", s.TOCOnly),
	)
	limitAttr := otel.NewAttr(otel.AttrComposeLimit, limit)
	c.metrics.Counter(otel.MetricComposeRuns).Add(ctx, 1, limitAttr)
	c.metrics.Histogram(otel.MetricComposeUtilization).Record(ctx, s.Utilization, limitAttr)
	c.logger.WithContext(ctx).Debug("composition completed",
		"limit", limit,
		"actual", s.ActualCharacters,
		"documents", s.DocumentsIncluded,
		"toc_truncated", s.TOCTruncated,
		"toc_only", s.TOCOnly,
	)
	return result, nil
}

// ComposeMany 并发组合多个字符上限，结果与 limits 一一对应。
//
// 各次组合只读共享的 entries，互不影响；任一上限无效时返回错误。
func (c *Composer) ComposeMany(ctx context.Context, entries []Entry, limits []int, opts Options) ([]*CompositionResult, error) {
	results := make([]*CompositionResult, len(limits))
	g, gctx := errgroup.WithContext(ctx)
	for i, limit := range limits {
		i, limit := i, limit
		o := opts
		o.CharacterLimit = limit
		g.Go(func() error {
			res, err := c.Compose(gctx, entries, o)
			if err != nil {
				return fmt.Errorf("compose limit %d: %w", limit, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// eligible 过滤并按优先级降序（ID 升序）排列条目。
func eligible(entries []Entry, opts Options) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		doc := e.Document
		if doc == nil || doc.Priority.Score < opts.PriorityThreshold {
			continue
		}
		if opts.Language != "" && doc.Language != "" && !strings.EqualFold(doc.Language, opts.Language) {
			continue
		}
		out = append(out, NewEntry(doc, e.Variants...))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Document, out[j].Document
		if a.Priority.Score != b.Priority.Score {
			return a.Priority.Score > b.Priority.Score
		}
		return a.ID < b.ID
	})
	return out
}

// renderTOC 生成完整目录，每行使用文档最短的摘录。
func renderTOC(entries []Entry) string {
	var b strings.Builder
	b.WriteString(tocHeader)
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(title(e.Document))
		if v, ok := shortest(e); ok {
			b.WriteString(": ")
			b.WriteString(flatten(v.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// fitTOC 将目录限制在 maxChars 个字符内，按整行截断并追加省略标记。
func fitTOC(full string, maxChars int) (string, bool) {
	if runeLen(full) <= maxChars {
		return full, false
	}
	var acc strings.Builder
	n := 0
	for _, line := range strings.SplitAfter(full, "\n") {
		l := runeLen(line)
		if n+l+len(ellipsis) > maxChars {
			break
		}
		acc.WriteString(line)
		n += l
	}
	if n == 0 {
		return truncateRunes(full, maxChars), true
	}
	return acc.String() + ellipsis, true
}

// fillBody 有界贪心：按顺序为每个文档选择放得下的最长摘录，
// 剩余预算不超过 reserve 时停止。
func fillBody(entries []Entry, budget, reserve int) (string, []DocumentSize) {
	var b strings.Builder
	var sizes []DocumentSize
	used := 0
	for _, e := range entries {
		remaining := budget - used
		if remaining <= reserve {
			break
		}
		block, v, ok := largestFitting(e, remaining)
		if !ok {
			continue
		}
		size := runeLen(block)
		b.WriteString(block)
		used += size
		sizes = append(sizes, DocumentSize{ID: e.Document.ID, Characters: size, VariantLimit: v.Limit})
	}
	return b.String(), sizes
}

func largestFitting(e Entry, remaining int) (string, Variant, bool) {
	for i := len(e.Variants) - 1; i >= 0; i-- {
		v := e.Variants[i]
		block := renderBlock(e.Document, v)
		if runeLen(block) <= remaining {
			return block, v, true
		}
	}
	return "", Variant{}, false
}

func renderBlock(doc *document.DocumentMetadata, v Variant) string {
	return "## " + title(doc) + "\n\n" + strings.TrimSpace(v.Text) + "\n\n"
}

func shortest(e Entry) (Variant, bool) {
	if len(e.Variants) == 0 {
		return Variant{}, false
	}
	return e.Variants[0], true
}

func title(doc *document.DocumentMetadata) string {
	if t := flatten(doc.Title); t != "" {
		return t
	}
	return doc.ID
}

// flatten 把多行文本压成单行。
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= len(ellipsis) {
		return string(r[:n])
	}
	return string(r[:n-len(ellipsis)]) + ellipsis
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
