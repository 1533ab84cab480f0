package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/ThreadCrawl/internal/formatter"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
)

// ValidateURL 验证帖子URL格式
func ValidateURL(urlStr string) error {
	_, err := models.ParseTarget(urlStr)
	return err
}

// ValidateFlags 验证命令行标志
func ValidateFlags(
	targetURL string,
	format string,
	timeoutMs int,
	maxPosts int,
	poolSize int,
) error {
	// 验证URL
	if targetURL != "" {
		if err := ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	// 验证输出格式
	if !formatter.IsValid(format) {
		return fmt.Errorf("无效的输出格式: %s (有效值: %s)", format, strings.Join(formatter.Formats, ", "))
	}

	// 验证超时
	if timeoutMs < 1000 || timeoutMs > 600000 {
		return fmt.Errorf("超时必须在1000-600000毫秒之间,当前值: %d", timeoutMs)
	}

	// 验证帖子数
	if maxPosts < 1 || maxPosts > 1000 {
		return fmt.Errorf("最大帖子数必须在1-1000之间,当前值: %d", maxPosts)
	}

	// 验证实例数
	if poolSize < 1 || poolSize > 32 {
		return fmt.Errorf("渲染实例数量必须在1-32之间,当前值: %d", poolSize)
	}

	return nil
}

// ValidateBatchFlags 验证批量模式参数
func ValidateBatchFlags(rate float64, concurrency int) error {
	if rate < 0 {
		return fmt.Errorf("速率不能为负数,当前值: %.2f", rate)
	}
	if concurrency < 0 || concurrency > 32 {
		return fmt.Errorf("并发数必须在0-32之间,当前值: %d", concurrency)
	}
	return nil
}

// ValidateURLFile 验证URL文件路径
func ValidateURLFile(filepath string) error {
	if filepath == "" {
		return fmt.Errorf("URL文件路径不能为空")
	}
	// 文件存在性检查将在运行时进行
	return nil
}

// NormalizeURL 规范化URL
// 没有协议时默认使用https
func NormalizeURL(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", fmt.Errorf("URL为空")
	}
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
