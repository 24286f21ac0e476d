// Package errors 定义摘要引擎的通用错误类型
package errors

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	// ErrNotImplemented 功能未实现
	ErrNotImplemented = errors.New("not implemented")
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid configuration")
)

// 配置相关错误（致命，应在处理文档之前返回）
var (
	// ErrInvalidWeights 策略权重之和不为 1.0 或存在负值
	ErrInvalidWeights = errors.New("invalid strategy weights")
	// ErrUnknownCategory 引用了未注册的分类
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownTag 引用了未注册的标签
	ErrUnknownTag = errors.New("unknown tag")
	// ErrUnknownStrategy 引用了未注册的组合策略
	ErrUnknownStrategy = errors.New("unknown composition strategy")
	// ErrUnknownRule 冲突规则类型未知
	ErrUnknownRule = errors.New("unknown conflict rule")
	// ErrDuplicateRule 冲突规则重复注册
	ErrDuplicateRule = errors.New("duplicate conflict rule")
)

// 文档数据相关错误（按文档局部恢复，绝不中断批处理）
var (
	// ErrInvalidDocument 文档元数据无效
	ErrInvalidDocument = errors.New("invalid document metadata")
	// ErrMissingField 缺少必填字段
	ErrMissingField = errors.New("missing required field")
	// ErrDocumentNotFound 文档未找到
	ErrDocumentNotFound = errors.New("document not found")
)

// 选择与组合相关错误
var (
	// ErrInvalidConstraints 选择约束无效
	ErrInvalidConstraints = errors.New("invalid selection constraints")
	// ErrInvalidOptions 组合选项无效
	ErrInvalidOptions = errors.New("invalid composition options")
	// ErrUnknownSelectionStrategy 选择策略未知
	ErrUnknownSelectionStrategy = errors.New("unknown selection strategy")
)

// WrapError 包装错误并添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsConfigError 判断错误是否属于配置错误
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidWeights) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrUnknownTag) ||
		errors.Is(err, ErrUnknownStrategy) ||
		errors.Is(err, ErrUnknownRule) ||
		errors.Is(err, ErrDuplicateRule)
}

// IsDocumentError 判断错误是否为单文档数据错误（可局部恢复）
func IsDocumentError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrDocumentNotFound)
}

// IsFatal 判断错误是否为致命错误（不可恢复）
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return IsConfigError(err) ||
		errors.Is(err, ErrInvalidConstraints) ||
		errors.Is(err, ErrInvalidOptions) ||
		errors.Is(err, ErrUnknownSelectionStrategy)
}
