package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/easyops/llmsdigest-go/pkg/conflict"
	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/otel"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// Selector 自适应文档选择器。
//
// 依次执行过滤、依赖解析、冲突处理与评分，再在字符预算内运行选择策略。
// Selector 不保存调用之间的状态，可被多个 goroutine 并发使用。
type Selector struct {
	registry *strategy.Registry
	scorer   *Scorer
	filter   *TagFilter
	resolver *DependencyResolver
	opts     Options
}

// NewSelector 创建选择器，注册表或选项无效时返回配置错误。
func NewSelector(reg *strategy.Registry, opts ...Option) (*Selector, error) {
	if reg == nil {
		return nil, fmt.Errorf("nil registry: %w", coreerrors.ErrInvalidConfig)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := checkOptions(reg, &o); err != nil {
		return nil, err
	}

	return &Selector{
		registry: reg,
		scorer:   NewScorer(reg),
		filter:   NewTagFilter(reg),
		resolver: NewDependencyResolver(),
		opts:     o,
	}, nil
}

// Options 返回选择器的默认选项副本。
func (s *Selector) Options() Options {
	return s.opts
}

func checkOptions(reg *strategy.Registry, o *Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.CompositionStrategy != "" {
		if _, err := reg.Weights(o.CompositionStrategy); err != nil {
			return err
		}
	}
	return nil
}

// SelectDocuments 在约束内选择文档。
//
// 约束或选项无效时返回错误；单文档错误记录在结果的 Errors 中，不会中断处理。
// 预算内放不下任何文档时返回空选择，不视为错误。
func (s *Selector) SelectDocuments(ctx context.Context, docs []*document.DocumentMetadata, c Constraints, opts ...Option) (*SelectionResult, error) {
	o := s.opts
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	ctx, span := o.Tracer.Start(ctx, "selection",
		otel.SelectionStrategy(string(o.Strategy)),
		otel.SelectionBudget(c.MaxCharacters),
		otel.DocumentCount(len(docs)),
	)
	defer span.End()
	logger := o.Logger.WithContext(ctx)

	if err := checkOptions(s.registry, &o); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := c.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &SelectionResult{ID: uuid.NewString()}
	valid, index := s.validate(docs, result, logger)

	// 1. 过滤
	_, filterSpan := o.Tracer.Start(ctx, "selection.filter", otel.DocumentCount(len(valid)))
	filtered := s.filter.Filter(valid, c.Criteria())
	filterSpan.SetAttributes(attribute.Int("selection.filtered", len(filtered.Filtered)))
	filterSpan.End()
	logger.Debug("selection filter", "filtered", len(filtered.Filtered), "excluded", len(filtered.Excluded))

	// 2. 依赖解析：硬排除的文档不会作为依赖重新加入，指向它们的依赖记为缺失
	_, resolveSpan := o.Tracer.Start(ctx, "selection.resolve")
	hard := make(map[string]struct{})
	for _, ex := range filtered.Excluded {
		if hardExclusion(ex.Reason) {
			hard[ex.DocumentID] = struct{}{}
		}
	}
	universe := make([]*document.DocumentMetadata, 0, len(valid))
	for _, doc := range valid {
		if _, ok := hard[doc.ID]; !ok {
			universe = append(universe, doc)
		}
	}
	resolved := s.resolver.Resolve(filtered.Filtered, universe, ResolveOptions{
		MaxDepth:           o.DependencyDepth,
		IncludeOptional:    o.IncludeOptional,
		ConflictResolution: o.ConflictResolution,
	})
	resolveSpan.SetAttributes(
		attribute.Int("selection.added", len(resolved.Added)),
		attribute.Int("selection.cycles", len(resolved.Cycles)),
	)
	resolveSpan.End()
	for i, m := range resolved.Missing {
		if _, ok := hard[m.To]; ok {
			resolved.Missing[i].Filtered = true
		}
	}
	logger.Debug("selection resolve", "resolved", len(resolved.Resolved), "added", len(resolved.Added),
		"cycles", len(resolved.Cycles), "missing", len(resolved.Missing))

	readded := make(map[string]struct{}, len(resolved.Added))
	for _, id := range resolved.Added {
		readded[id] = struct{}{}
	}
	excluded := make([]Exclusion, 0, len(filtered.Excluded))
	for _, ex := range filtered.Excluded {
		if _, ok := readded[ex.DocumentID]; ok {
			ex.Readded = true
			ex.Detail += "; re-added as prerequisite"
		}
		excluded = append(excluded, ex)
	}

	// 3. 冲突检测与自动解决
	conflictCtx, conflictSpan := o.Tracer.Start(ctx, "selection.conflicts")
	detector := conflict.NewDetector(s.registry, o.Rules)
	analysis := detector.Detect(resolved.Resolved, conflict.DetectOptions{FlaggedPairs: resolved.FlaggedPairs})
	for _, cf := range analysis.Conflicts {
		o.Metrics.Counter(otel.MetricConflictDetected).Add(conflictCtx, 1,
			otel.NewAttr(otel.AttrConflictRule, string(cf.Rule)),
			otel.NewAttr(otel.AttrConflictSeverity, string(cf.Severity)))
	}
	candidates := resolved.Resolved
	var applied *conflict.ApplyResult
	if o.AutoResolveConflicts {
		applied = conflict.Apply(resolved.Resolved, analysis.Conflicts)
		candidates = applied.Documents
		for _, id := range applied.Excluded {
			excluded = append(excluded, Exclusion{
				DocumentID: id,
				Reason:     ReasonConflict,
				Detail:     "excluded by conflict resolution",
			})
		}
		o.Metrics.Counter(otel.MetricConflictResolved).Add(conflictCtx, int64(len(applied.Applied)))
	}
	conflictSpan.SetAttributes(
		attribute.Int("conflict.total", analysis.Summary.Total),
		attribute.Int("conflict.manual_review", analysis.Summary.ManualReview),
	)
	conflictSpan.End()
	logger.Debug("selection conflicts", "detected", analysis.Summary.Total,
		"unresolved", len(analysis.Unresolved), "auto_resolve", o.AutoResolveConflicts)

	// 4. 评分与质量阈值
	_, scoreSpan := o.Tracer.Start(ctx, "selection.score", otel.DocumentCount(len(candidates)))
	sctx := NewContext(c, o.CompositionStrategy)
	scored := make([]ScoredDocument, 0, len(candidates))
	for _, doc := range candidates {
		sc, err := s.scorer.Score(doc, sctx)
		if err != nil {
			s.recordError(result, logger, DocumentError{DocumentID: doc.ID, Index: index[doc.ID], Stage: StageScore, Err: err})
			scoreSpan.AddEvent("score failed", otel.DocumentID(doc.ID))
			continue
		}
		if sc.Total < c.QualityThreshold {
			excluded = append(excluded, Exclusion{
				DocumentID: doc.ID,
				Reason:     ReasonBelowThreshold,
				Detail:     fmt.Sprintf("score %.3f below threshold %.3f", sc.Total, c.QualityThreshold),
			})
			continue
		}
		scored = append(scored, ScoredDocument{
			Document: doc,
			ID:       doc.ID,
			Score:    sc,
			Size:     o.SizeEstimator(doc),
		})
	}
	scoreSpan.End()

	// 5. 预算内选择
	_, strategySpan := o.Tracer.Start(ctx, "selection.strategy",
		otel.SelectionStrategy(string(o.Strategy)),
		attribute.Int(otel.AttrSelectionCandidates, len(scored)),
	)
	result.Selected = selectWithin(o.Strategy, scored, c.MaxCharacters, s.registry, o.DiverseCategoryCap)
	strategySpan.SetAttributes(attribute.Int(otel.AttrSelectionSelected, len(result.Selected)))
	strategySpan.End()

	opt, cats, tags := analyze(result.Selected, c.MaxCharacters)
	opt.Strategy = o.Strategy
	opt.CompositionStrategy = o.CompositionStrategy
	result.Optimization = opt
	result.Analysis = Analysis{
		CategoryCoverage:     cats,
		TagCoverage:          tags,
		Candidates:           len(scored),
		Excluded:             excluded,
		Added:                resolved.Added,
		Cycles:               resolved.Cycles,
		Missing:              resolved.Missing,
		DependencyExclusions: resolved.Excluded,
		Conflicts:            analysis,
		Resolutions:          applied,
	}

	span.SetAttributes(
		attribute.Int(otel.AttrSelectionSelected, len(result.Selected)),
		attribute.Float64(otel.AttrSelectionUtilization, opt.Utilization),
	)
	strategyAttr := otel.NewAttr(otel.AttrSelectionStrategy, string(o.Strategy))
	o.Metrics.Counter(otel.MetricSelectionRuns).Add(ctx, 1, strategyAttr)
	o.Metrics.Counter(otel.MetricSelectionSelected).Add(ctx, int64(len(result.Selected)), strategyAttr)
	o.Metrics.Counter(otel.MetricSelectionExcluded).Add(ctx, int64(len(excluded)-len(readded)))
	o.Metrics.Counter(otel.MetricSelectionErrors).Add(ctx, int64(len(result.Errors)))
	o.Metrics.Gauge(otel.MetricSelectionUtilization).Set(ctx, opt.Utilization, strategyAttr)
	o.Metrics.Histogram(otel.MetricSelectionDuration).Record(ctx, float64(time.Since(start).Milliseconds()), strategyAttr)

	logger.Info("selection completed",
		"id", result.ID,
		"strategy", string(o.Strategy),
		"selected", len(result.Selected),
		"total_size", opt.TotalSize,
		"budget", c.MaxCharacters,
		"errors", len(result.Errors),
	)
	return result, nil
}

// validate 逐个校验输入文档，返回有效文档（已规范化）及其输入位置。
func (s *Selector) validate(docs []*document.DocumentMetadata, result *SelectionResult, logger otel.Logger) ([]*document.DocumentMetadata, map[string]int) {
	valid := make([]*document.DocumentMetadata, 0, len(docs))
	index := make(map[string]int, len(docs))
	for i, doc := range docs {
		if doc == nil {
			s.recordError(result, logger, DocumentError{
				Index: i,
				Stage: StageValidate,
				Err:   fmt.Errorf("nil document: %w", coreerrors.ErrInvalidDocument),
			})
			continue
		}
		if err := doc.Validate(); err != nil {
			s.recordError(result, logger, DocumentError{DocumentID: doc.ID, Index: i, Stage: StageValidate, Err: err})
			continue
		}
		if _, dup := index[doc.ID]; dup {
			s.recordError(result, logger, DocumentError{
				DocumentID: doc.ID,
				Index:      i,
				Stage:      StageValidate,
				Err:        fmt.Errorf("duplicate id %q: %w", doc.ID, coreerrors.ErrInvalidDocument),
			})
			continue
		}
		index[doc.ID] = i
		valid = append(valid, doc.Normalize())
	}
	return valid, index
}

func (s *Selector) recordError(result *SelectionResult, logger otel.Logger, e DocumentError) {
	result.Errors = append(result.Errors, e)
	logger.Warn("document skipped",
		"document_id", e.DocumentID,
		"index", e.Index,
		"stage", e.Stage,
		"error", e.Err,
	)
}
