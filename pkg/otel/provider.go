package otel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// instrumentationName 追踪器与 Meter 的名称
const instrumentationName = "github.com/easyops/llmsdigest-go"

// Provider 可观测性提供者
//
// 管理追踪、指标和日志的生命周期。Provider 只能通过构造选项传给各组件。
type Provider struct {
	config   Config
	tracer   Tracer
	metrics  Metrics
	logger   Logger
	shutdown []func(context.Context) error
	mu       sync.RWMutex
}

// ProviderOption Provider 构造选项
type ProviderOption func(*providerOptions)

type providerOptions struct {
	logWriter      io.Writer
	spanProcessors []sdktrace.SpanProcessor
	metricReaders  []sdkmetric.Reader
}

// WithLogWriter 设置日志输出（默认 os.Stderr）
func WithLogWriter(w io.Writer) ProviderOption {
	return func(o *providerOptions) {
		o.logWriter = w
	}
}

// WithSpanProcessor 注册 Span 处理器（如 tracetest.SpanRecorder）
func WithSpanProcessor(sp sdktrace.SpanProcessor) ProviderOption {
	return func(o *providerOptions) {
		o.spanProcessors = append(o.spanProcessors, sp)
	}
}

// WithMetricReader 注册指标读取器（仅 otel 后端生效）
func WithMetricReader(r sdkmetric.Reader) ProviderOption {
	return func(o *providerOptions) {
		o.metricReaders = append(o.metricReaders, r)
	}
}

// NewProvider 创建可观测性提供者
func NewProvider(cfg Config, opts ...ProviderOption) (*Provider, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &providerOptions{logWriter: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	p := &Provider{
		config:   cfg,
		tracer:   NewNoopTracer(),
		metrics:  NewNoopMetrics(),
		logger:   NewNoopLogger(),
		shutdown: make([]func(context.Context) error, 0),
	}
	if !cfg.Enabled {
		return p, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	// 初始化追踪
	if cfg.Tracing.Enabled {
		p.initTracing(res, o.spanProcessors)
	}

	// 初始化指标
	if cfg.Metrics.Enabled {
		p.initMetrics(res, o.metricReaders)
	}

	// 初始化日志
	logger := NewSlogLogger(slog.New(NewHandler(o.logWriter, cfg.Logging)))
	logger.skipTrace = !cfg.Logging.IncludeTraceID
	p.logger = logger

	return p, nil
}

// initTracing 初始化追踪（不配置导出器）
func (p *Provider) initTracing(res *resource.Resource, processors []sdktrace.SpanProcessor) {
	// 创建采样器
	var sampler sdktrace.Sampler
	switch rate := p.config.Tracing.SampleRate; {
	case rate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case rate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(rate)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}
	for _, sp := range processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	p.shutdown = append(p.shutdown, tp.Shutdown)
	p.tracer = NewTracer(tp)
}

// initMetrics 初始化指标后端
func (p *Provider) initMetrics(res *resource.Resource, readers []sdkmetric.Reader) {
	if p.config.Metrics.Backend != MetricsBackendOTel {
		p.metrics = NewInMemoryMetrics()
		return
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(mpOpts...)

	p.shutdown = append(p.shutdown, mp.Shutdown)
	p.metrics = NewOTelMetrics(mp.Meter(instrumentationName))
}

// Config 返回生效的配置
func (p *Provider) Config() Config {
	return p.config
}

// Tracer 返回追踪器
func (p *Provider) Tracer() Tracer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracer
}

// Metrics 返回指标收集器
func (p *Provider) Metrics() Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// Logger 返回日志器
func (p *Provider) Logger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// Shutdown 优雅关闭，返回所有关闭错误的合并
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdown = nil
	return errors.Join(errs...)
}
