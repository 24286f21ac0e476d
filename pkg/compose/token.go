package compose

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter 定义 Token 计数接口。
type TokenCounter interface {
	// Count 返回给定文本的 Token 数量。
	Count(text string) int
}

// TiktokenCounter 使用 tiktoken 实现精确的 Token 计数。
//
// 首次加载编码表可能需要下载 BPE 文件，因此默认不启用。
type TiktokenCounter struct {
	mu       sync.Mutex
	encoding *tiktoken.Tiktoken
	model    string
}

// TiktokenOption 配置 TiktokenCounter。
type TiktokenOption func(*TiktokenCounter)

// WithModel 设置 Token 编码使用的模型。
func WithModel(model string) TiktokenOption {
	return func(c *TiktokenCounter) {
		c.model = model
	}
}

// NewTiktokenCounter 创建 TiktokenCounter，未知模型降级到 cl100k_base 编码。
func NewTiktokenCounter(opts ...TiktokenOption) (*TiktokenCounter, error) {
	c := &TiktokenCounter{model: "gpt-4o"}
	for _, opt := range opts {
		opt(c)
	}

	encoding, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encoding = encoding
	return c, nil
}

// Count 返回给定文本的 Token 数量。
func (c *TiktokenCounter) Count(text string) int {
	if c.encoding == nil {
		return estimateTokens(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimatedCounter 使用字符估算实现 Token 计数。
type EstimatedCounter struct {
	// CharsPerToken 每个 Token 的平均字符数，默认 4
	CharsPerToken float64
}

// NewEstimatedCounter 创建 EstimatedCounter。
func NewEstimatedCounter() *EstimatedCounter {
	return &EstimatedCounter{CharsPerToken: 4.0}
}

// Count 返回估算的 Token 数量。
func (c *EstimatedCounter) Count(text string) int {
	if c.CharsPerToken <= 0 {
		return estimateTokens(text)
	}
	return int(float64(utf8.RuneCountInString(text)) / c.CharsPerToken)
}

// estimateTokens 混合字符数与词数的粗略估算。
func estimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	if words == 0 {
		return chars / 4
	}
	return (chars/4 + int(float64(words)*1.3)) / 2
}

// 编译时接口检查
var _ TokenCounter = (*TiktokenCounter)(nil)
var _ TokenCounter = (*EstimatedCounter)(nil)
