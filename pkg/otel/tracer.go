// Package otel 提供 OpenTelemetry 可观测性支持
//
// 所有组件通过构造选项显式接收 Tracer、Metrics 与 Logger，
// 本包不持有任何进程级的全局状态。
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer 定义追踪器接口
type Tracer interface {
	// Start 开始一个新的 Span，返回包含该 Span 的上下文
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span)
}

// Span 处理阶段的 Span
type Span interface {
	End()
	SetAttributes(attrs ...attribute.KeyValue)
	// AddEvent 记录阶段内的单文档事件（如评分失败）
	AddEvent(name string, attrs ...attribute.KeyValue)
	// RecordError 记录错误并将 Span 标记为失败，nil 被忽略
	RecordError(err error)
}

// OTelTracer 基于 TracerProvider 的追踪器
type OTelTracer struct {
	tracer trace.Tracer
}

// NewTracer 从 TracerProvider 创建追踪器，instrumentation 名称固定为本模块路径
func NewTracer(tp trace.TracerProvider) *OTelTracer {
	return &OTelTracer{tracer: tp.Tracer(instrumentationName)}
}

// Start 开始一个新的 Span
func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() {
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

func (s otelSpan) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SpanIDs 返回上下文中有效 Span 的 trace_id 与 span_id
func SpanIDs(ctx context.Context) (traceID, spanID string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

// NoopTracer 空实现追踪器（用于禁用追踪）
type NoopTracer struct{}

// NewNoopTracer 创建空实现追踪器
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

// Start 原样返回上下文
func (*NoopTracer) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()                                   {}
func (noopSpan) SetAttributes(...attribute.KeyValue)    {}
func (noopSpan) AddEvent(string, ...attribute.KeyValue) {}
func (noopSpan) RecordError(error)                      {}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Tracer = (*NoopTracer)(nil)
	_ Span   = otelSpan{}
	_ Span   = noopSpan{}
)
