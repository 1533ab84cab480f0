package models

import (
	"context"
	"errors"
	"fmt"
)

// 提取失败的错误分类,调用方通过errors.Is区分
var (
	ErrInvalidTarget   = errors.New("无效的帖子URL")
	ErrNavigation      = errors.New("页面导航或加载失败")
	ErrEmptyExtraction = errors.New("页面已加载但未提取到作者帖子")
	ErrPoolExhausted   = errors.New("等待渲染实例超时")
	ErrPoolClosed      = errors.New("渲染实例池已关闭")
)

// ExtractError 提取错误
// 携带失败的URL,Unwrap到具体的错误分类
type ExtractError struct {
	// URL 请求的原始URL
	URL string

	// JobID 任务ID(用于关联日志)
	JobID string

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *ExtractError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("提取失败 [%s] (任务 %s): %v", e.URL, e.JobID, e.Cause)
	}
	return fmt.Sprintf("提取失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Is/errors.As
func (e *ExtractError) Unwrap() error {
	return e.Cause
}

// ErrorKind 返回错误分类名称,用于日志和API响应
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_input"
	case errors.Is(err, ErrNavigation):
		return "navigation_failed"
	case errors.Is(err, ErrEmptyExtraction):
		return "empty_extraction"
	case errors.Is(err, ErrPoolExhausted):
		return "pool_exhausted"
	case errors.Is(err, ErrPoolClosed):
		return "pool_closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// ConfigError 配置文件错误
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误 (如viper.ConfigParseError)
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
