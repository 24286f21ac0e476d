package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
)

// validate 文档校验器实例，validator.Validate 并发安全且会缓存结构体信息
var validate = validator.New()

// FieldError 单个字段的校验失败
type FieldError struct {
	// Field 字段路径（如 Priority.Score）
	Field string
	// Rule 失败的校验规则（如 required、lte）
	Rule string
}

// ValidationError 文档校验失败，包含所有出错字段
type ValidationError struct {
	DocumentID string
	Fields     []FieldError
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+"("+f.Rule+")")
	}
	id := e.DocumentID
	if id == "" {
		id = "<missing id>"
	}
	return fmt.Sprintf("document %s: %s: %s", id, coreerrors.ErrInvalidDocument, strings.Join(parts, ", "))
}

// Unwrap 使 errors.Is(err, ErrInvalidDocument) 成立；缺少必填字段时同时匹配 ErrMissingField
func (e *ValidationError) Unwrap() []error {
	errs := []error{coreerrors.ErrInvalidDocument}
	for _, f := range e.Fields {
		if f.Rule == "required" {
			errs = append(errs, coreerrors.ErrMissingField)
			break
		}
	}
	return errs
}

// Validate 校验文档元数据的必填字段与取值范围
func (d *DocumentMetadata) Validate() error {
	if d == nil {
		return fmt.Errorf("nil document: %w", coreerrors.ErrInvalidDocument)
	}

	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return coreerrors.WrapError(err, "validate document "+d.ID)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		// 去掉结构体名前缀：DocumentMetadata.Priority.Score -> Priority.Score
		ns := fe.StructNamespace()
		if idx := strings.Index(ns, "."); idx >= 0 {
			ns = ns[idx+1:]
		}
		fields = append(fields, FieldError{Field: ns, Rule: fe.Tag()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	return &ValidationError{DocumentID: d.ID, Fields: fields}
}

// Normalize 返回派生字段已补全的副本（等级由分数重新计算）
func (d *DocumentMetadata) Normalize() *DocumentMetadata {
	clone := d.Clone()
	clone.Priority.Tier = TierForScore(clone.Priority.Score)
	return clone
}
