package otel

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// Logger 定义日志接口
type Logger interface {
	// Debug 调试日志
	Debug(msg string, args ...any)
	// Info 信息日志
	Info(msg string, args ...any)
	// Warn 警告日志
	Warn(msg string, args ...any)
	// Error 错误日志
	Error(msg string, args ...any)
	// WithContext 返回带上下文的 Logger（用于关联 Trace ID）
	WithContext(ctx context.Context) Logger
	// WithFields 返回带额外字段的 Logger
	WithFields(fields map[string]any) Logger
}

// SlogLogger slog 适配器
type SlogLogger struct {
	logger    *slog.Logger
	attrs     []any
	skipTrace bool
}

// NewSlogLogger 创建 slog 适配器
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// NewHandler 按日志配置创建 slog Handler
func NewHandler(w io.Writer, cfg LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug 调试日志
func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, l.with(args)...)
}

// Info 信息日志
func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.with(args)...)
}

// Warn 警告日志
func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, l.with(args)...)
}

// Error 错误日志
func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, l.with(args)...)
}

func (l *SlogLogger) with(args []any) []any {
	if len(l.attrs) == 0 {
		return args
	}
	out := make([]any, 0, len(l.attrs)+len(args))
	out = append(out, l.attrs...)
	return append(out, args...)
}

// WithContext 返回带上下文的 Logger
//
// 上下文中存在有效 Span 时附加 trace_id 与 span_id。
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if l.skipTrace {
		return l
	}
	traceID, spanID, ok := SpanIDs(ctx)
	if !ok {
		return l
	}
	return l.WithFields(map[string]any{
		"trace_id": traceID,
		"span_id":  spanID,
	})
}

// WithFields 返回带额外字段的 Logger
func (l *SlogLogger) WithFields(fields map[string]any) Logger {
	newAttrs := make([]any, len(l.attrs), len(l.attrs)+len(fields)*2)
	copy(newAttrs, l.attrs)

	for _, k := range sortedFieldKeys(fields) {
		newAttrs = append(newAttrs, k, fields[k])
	}

	return &SlogLogger{
		logger:    l.logger,
		attrs:     newAttrs,
		skipTrace: l.skipTrace,
	}
}

func sortedFieldKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NoopLogger 空实现日志
type NoopLogger struct{}

// NewNoopLogger 创建空实现日志
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...any)           {}
func (l *NoopLogger) Info(msg string, args ...any)            {}
func (l *NoopLogger) Warn(msg string, args ...any)            {}
func (l *NoopLogger) Error(msg string, args ...any)           {}
func (l *NoopLogger) WithContext(ctx context.Context) Logger  { return l }
func (l *NoopLogger) WithFields(fields map[string]any) Logger { return l }

// compile-time interface check
var _ Logger = (*SlogLogger)(nil)
var _ Logger = (*NoopLogger)(nil)
