package otel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// Metrics 定义指标接口
type Metrics interface {
	// Counter 返回或创建计数器
	Counter(name string) Counter
	// Histogram 返回或创建直方图
	Histogram(name string) Histogram
	// Gauge 返回或创建仪表
	Gauge(name string) Gauge
}

// Counter 计数器接口
type Counter interface {
	Add(ctx context.Context, value int64, attrs ...Attr)
}

// Histogram 直方图接口
type Histogram interface {
	Record(ctx context.Context, value float64, attrs ...Attr)
}

// Gauge 仪表接口
type Gauge interface {
	Set(ctx context.Context, value float64, attrs ...Attr)
}

// Attr 指标属性
type Attr struct {
	Key   string
	Value interface{}
}

// NewAttr 创建指标属性
func NewAttr(key string, value interface{}) Attr {
	return Attr{Key: key, Value: value}
}

// KeyValue 转换为 OpenTelemetry 属性，未知类型按字符串处理
func (a Attr) KeyValue() attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case fmt.Stringer:
		return attribute.String(a.Key, v.String())
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}

func keyValues(attrs []Attr) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kvs = append(kvs, a.KeyValue())
	}
	return kvs
}

// SeriesKey 返回属性集合的规范键，形如 "conflict.rule=content-duplicate,conflict.severity=major"
//
// 键按属性名排序；无属性时为空串。
func SeriesKey(attrs ...Attr) string {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, a.Key+"="+a.KeyValue().Value.Emit())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// InMemoryMetrics 内存指标实现（用于测试和示例）
//
// 计数器按属性集合分序列保存，GetCounterValue 返回全部序列之和。
type InMemoryMetrics struct {
	mu         sync.RWMutex
	counters   map[string]map[string]int64
	histograms map[string][]float64
	gauges     map[string]float64
}

// NewInMemoryMetrics 创建内存指标
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:   make(map[string]map[string]int64),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
	}
}

// Counter 返回计数器句柄
func (m *InMemoryMetrics) Counter(name string) Counter {
	return memCounter{m: m, name: name}
}

// Histogram 返回直方图句柄
func (m *InMemoryMetrics) Histogram(name string) Histogram {
	return memHistogram{m: m, name: name}
}

// Gauge 返回仪表句柄
func (m *InMemoryMetrics) Gauge(name string) Gauge {
	return memGauge{m: m, name: name}
}

// GetCounterValue 返回计数器所有序列之和
func (m *InMemoryMetrics) GetCounterValue(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, v := range m.counters[name] {
		total += v
	}
	return total
}

// GetCounterSeries 返回计数器各序列的值（键见 SeriesKey）
func (m *InMemoryMetrics) GetCounterSeries(name string) map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series, ok := m.counters[name]
	if !ok {
		return nil
	}
	out := make(map[string]int64, len(series))
	for k, v := range series {
		out[k] = v
	}
	return out
}

// GetHistogramValues 返回直方图按记录顺序的全部值
func (m *InMemoryMetrics) GetHistogramValues(name string) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values, ok := m.histograms[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

// GetGaugeValue 返回仪表最近一次设置的值
func (m *InMemoryMetrics) GetGaugeValue(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[name]
}

type memCounter struct {
	m    *InMemoryMetrics
	name string
}

func (c memCounter) Add(_ context.Context, value int64, attrs ...Attr) {
	key := SeriesKey(attrs...)
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	series, ok := c.m.counters[c.name]
	if !ok {
		series = make(map[string]int64)
		c.m.counters[c.name] = series
	}
	series[key] += value
}

type memHistogram struct {
	m    *InMemoryMetrics
	name string
}

func (h memHistogram) Record(_ context.Context, value float64, _ ...Attr) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	h.m.histograms[h.name] = append(h.m.histograms[h.name], value)
}

type memGauge struct {
	m    *InMemoryMetrics
	name string
}

func (g memGauge) Set(_ context.Context, value float64, _ ...Attr) {
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	g.m.gauges[g.name] = value
}

// NoopMetrics 空实现指标
type NoopMetrics struct{}

// NewNoopMetrics 创建空实现指标
func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (*NoopMetrics) Counter(string) Counter     { return noopInstrument{} }
func (*NoopMetrics) Histogram(string) Histogram { return noopInstrument{} }
func (*NoopMetrics) Gauge(string) Gauge         { return noopInstrument{} }

// noopInstrument 同时满足三种仪器接口
type noopInstrument struct{}

func (noopInstrument) Add(context.Context, int64, ...Attr)      {}
func (noopInstrument) Record(context.Context, float64, ...Attr) {}
func (noopInstrument) Set(context.Context, float64, ...Attr)    {}

var (
	_ Metrics   = (*InMemoryMetrics)(nil)
	_ Metrics   = (*NoopMetrics)(nil)
	_ Counter   = memCounter{}
	_ Histogram = memHistogram{}
	_ Gauge     = memGauge{}
	_ Counter   = noopInstrument{}
)
