package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics 基于 OpenTelemetry Meter 的指标实现
//
// 预定义指标会带上描述与单位；仪器创建失败时退化为空实现。
type OTelMetrics struct {
	meter      metric.Meter
	counters   map[string]Counter
	histograms map[string]Histogram
	gauges     map[string]Gauge
	mu         sync.Mutex
}

// NewOTelMetrics 创建基于 Meter 的指标实现
func NewOTelMetrics(meter metric.Meter) *OTelMetrics {
	return &OTelMetrics{
		meter:      meter,
		counters:   make(map[string]Counter),
		histograms: make(map[string]Histogram),
		gauges:     make(map[string]Gauge),
	}
}

func instrumentOptions(name string) (string, string) {
	if d, ok := describeMetric(name); ok {
		return d.Description, string(d.Unit)
	}
	return "", ""
}

// Counter 返回或创建计数器
func (m *OTelMetrics) Counter(name string) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c
	}
	desc, unit := instrumentOptions(name)
	inst, err := m.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	var c Counter = noopInstrument{}
	if err == nil {
		c = &otelCounter{inst: inst}
	}
	m.counters[name] = c
	return c
}

// Histogram 返回或创建直方图
func (m *OTelMetrics) Histogram(name string) Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h
	}
	desc, unit := instrumentOptions(name)
	inst, err := m.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	var h Histogram = noopInstrument{}
	if err == nil {
		h = &otelHistogram{inst: inst}
	}
	m.histograms[name] = h
	return h
}

// Gauge 返回或创建仪表
func (m *OTelMetrics) Gauge(name string) Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g
	}
	desc, unit := instrumentOptions(name)
	inst, err := m.meter.Float64Gauge(name, metric.WithDescription(desc), metric.WithUnit(unit))
	var g Gauge = noopInstrument{}
	if err == nil {
		g = &otelGauge{inst: inst}
	}
	m.gauges[name] = g
	return g
}

type otelCounter struct {
	inst metric.Int64Counter
}

func (c *otelCounter) Add(ctx context.Context, value int64, attrs ...Attr) {
	c.inst.Add(ctx, value, metric.WithAttributes(keyValues(attrs)...))
}

type otelHistogram struct {
	inst metric.Float64Histogram
}

func (h *otelHistogram) Record(ctx context.Context, value float64, attrs ...Attr) {
	h.inst.Record(ctx, value, metric.WithAttributes(keyValues(attrs)...))
}

type otelGauge struct {
	inst metric.Float64Gauge
}

func (g *otelGauge) Set(ctx context.Context, value float64, attrs ...Attr) {
	g.inst.Record(ctx, value, metric.WithAttributes(keyValues(attrs)...))
}

// compile-time interface check
var _ Metrics = (*OTelMetrics)(nil)
