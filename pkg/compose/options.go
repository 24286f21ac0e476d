package compose

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/otel"
)

var validate = validator.New()

// 组合默认值。
const (
	// DefaultTOCCharacterLimit 目录的默认字符上限
	DefaultTOCCharacterLimit = 500
	// DefaultBodyReserve 正文剩余预算低于该值时停止加入文档
	DefaultBodyReserve = 50
)

// Options 单次组合的选项。
type Options struct {
	// Language 只组合该语言的文档（为空不过滤；文档未标注语言时总是保留）
	Language string
	// CharacterLimit 输出文本的字符上限（按 rune 计）
	CharacterLimit int `validate:"gt=0"`
	// IncludeTableOfContents 是否生成目录
	IncludeTableOfContents bool
	// TOCCharacterLimit 目录字符上限（0 表示只受 CharacterLimit 约束）
	//
	// 按该上限渲染的目录短于 CharacterLimit 时，剩余部分留给正文。
	TOCCharacterLimit int `validate:"gte=0"`
	// PriorityThreshold 优先级低于该值的文档不参与组合
	PriorityThreshold int `validate:"gte=0,lte=100"`
	// BodyReserve 正文保留量
	BodyReserve int `validate:"gte=0"`
}

// DefaultOptions 返回给定字符上限的默认选项。
func DefaultOptions(limit int) Options {
	return Options{
		CharacterLimit:         limit,
		IncludeTableOfContents: true,
		TOCCharacterLimit:      DefaultTOCCharacterLimit,
		BodyReserve:            DefaultBodyReserve,
	}
}

// Validate 校验选项，失败返回 ErrInvalidOptions。
func (o *Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s fails %q: %w", fe.Namespace(), fe.Tag(), coreerrors.ErrInvalidOptions)
	}
	return fmt.Errorf("%v: %w", err, coreerrors.ErrInvalidOptions)
}

// tocLimit 返回渲染目录时的上限，0 表示不限制。
func (o *Options) tocLimit() int {
	if o.TOCCharacterLimit <= 0 {
		return math.MaxInt
	}
	return o.TOCCharacterLimit
}

// ComposerOption 配置 Composer。
type ComposerOption func(*Composer)

// WithTokenCounter 设置 Token 计数器。
func WithTokenCounter(counter TokenCounter) ComposerOption {
	return func(c *Composer) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// WithTracer 设置追踪器。
func WithTracer(t otel.Tracer) ComposerOption {
	return func(c *Composer) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMetrics 设置指标收集器。
func WithMetrics(m otel.Metrics) ComposerOption {
	return func(c *Composer) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(l otel.Logger) ComposerOption {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}
