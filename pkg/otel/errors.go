package otel

import "errors"

// 可观测性配置错误
var (
	// ErrInvalidSampleRate 采样率无效
	ErrInvalidSampleRate = errors.New("sample rate must be between 0 and 1")
	// ErrInvalidLogLevel 日志级别无效
	ErrInvalidLogLevel = errors.New("log level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat 日志格式无效
	ErrInvalidLogFormat = errors.New("log format must be text or json")
	// ErrInvalidMetricsBackend 指标后端无效
	ErrInvalidMetricsBackend = errors.New("metrics backend must be memory or otel")
)
