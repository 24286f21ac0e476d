package config

import (
	"errors"
	"fmt"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
)

// ErrUnsupportedFormat 不支持的配置文件格式
var ErrUnsupportedFormat = errors.New("unsupported config file format")

// wrapConfigError 包装为配置错误，使 errors.Is(err, ErrInvalidConfig) 成立
func wrapConfigError(err error, context string) error {
	if err == nil {
		return nil
	}
	if coreerrors.IsConfigError(err) {
		return coreerrors.WrapError(err, context)
	}
	return fmt.Errorf("%s: %w: %w", context, coreerrors.ErrInvalidConfig, err)
}
