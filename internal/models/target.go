package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// PlatformHost 规范化后的平台域名
	PlatformHost = "x.com"
)

// platformHosts 可识别的平台域名(含移动端子域名),统一规范化为PlatformHost
var platformHosts = map[string]bool{
	"x.com":              true,
	"www.x.com":          true,
	"mobile.x.com":       true,
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
}

var (
	handleRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
	postIDRegex = regexp.MustCompile(`^[0-9]+$`)
)

// ExtractionTarget 从输入URL解析出的提取目标
// 两个字段必须都非空,否则目标无效
type ExtractionTarget struct {
	Author string `json:"author"` // 作者handle(不含@)
	PostID string `json:"postId"` // 帖子ID(纯数字)
}

// ParseTarget 解析并校验帖子URL
// 支持 https://x.com/<handle>/status/<id>,移动端/旧域名同样规范化
func ParseTarget(rawURL string) (ExtractionTarget, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ExtractionTarget{}, fmt.Errorf("%w: URL为空", ErrInvalidTarget)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ExtractionTarget{}, fmt.Errorf("%w: URL格式无效: %v", ErrInvalidTarget, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return ExtractionTarget{}, fmt.Errorf("%w: URL必须是HTTP或HTTPS协议", ErrInvalidTarget)
	}
	if !platformHosts[strings.ToLower(parsed.Hostname())] {
		return ExtractionTarget{}, fmt.Errorf("%w: 不支持的域名 %s", ErrInvalidTarget, parsed.Hostname())
	}

	// 路径形如 /<handle>/status/<id>[/photo/1]
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 3 || !strings.EqualFold(segments[1], "status") {
		return ExtractionTarget{}, fmt.Errorf("%w: 路径不是帖子地址: %s", ErrInvalidTarget, parsed.Path)
	}

	target := ExtractionTarget{Author: segments[0], PostID: segments[2]}
	if err := target.Validate(); err != nil {
		return ExtractionTarget{}, err
	}
	return target, nil
}

// Validate 校验目标字段
func (t ExtractionTarget) Validate() error {
	if t.Author == "" || t.PostID == "" {
		return fmt.Errorf("%w: 作者和帖子ID不能为空", ErrInvalidTarget)
	}
	if !handleRegex.MatchString(t.Author) {
		return fmt.Errorf("%w: 非法的作者handle: %s", ErrInvalidTarget, t.Author)
	}
	if !postIDRegex.MatchString(t.PostID) {
		return fmt.Errorf("%w: 非法的帖子ID: %s", ErrInvalidTarget, t.PostID)
	}
	return nil
}

// URL 返回规范化后的帖子地址
func (t ExtractionTarget) URL() string {
	return fmt.Sprintf("https://%s/%s/status/%s", PlatformHost, t.Author, t.PostID)
}

// CacheKey 结果缓存键: 原始请求的平台帖子ID
func (t ExtractionTarget) CacheKey() string {
	return t.PostID
}

// SameAuthor 大小写不敏感地比较handle,允许带@前缀
func SameAuthor(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "@"), strings.TrimPrefix(b, "@"))
}
