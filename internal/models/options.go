package models

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeout 单次提取的默认总超时
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPosts 默认最多加载的帖子数
	DefaultMaxPosts = 100
)

// ExtractOptions 单次提取的可选配置
// 未识别的选项被忽略,不会报错
type ExtractOptions struct {
	Timeout    time.Duration `json:"-"`
	TimeoutMs  int           `json:"timeoutMs,omitempty"`
	MaxPosts   int           `json:"maxPosts,omitempty"`
	AuthCookie string        `json:"authCookie,omitempty"`
}

// WithDefaults 填充缺省值
func (o ExtractOptions) WithDefaults() ExtractOptions {
	if o.Timeout <= 0 && o.TimeoutMs > 0 {
		o.Timeout = time.Duration(o.TimeoutMs) * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	o.TimeoutMs = int(o.Timeout / time.Millisecond)
	if o.MaxPosts <= 0 {
		o.MaxPosts = DefaultMaxPosts
	}
	return o
}

// Validate 校验选项范围
func (o ExtractOptions) Validate() error {
	if o.Timeout < 0 || o.TimeoutMs < 0 {
		return fmt.Errorf("超时时间不能为负数")
	}
	if o.MaxPosts < 0 || o.MaxPosts > 1000 {
		return fmt.Errorf("最大帖子数必须在0-1000之间,当前值: %d", o.MaxPosts)
	}
	return nil
}
