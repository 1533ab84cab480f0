package crawlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
)

// DetectionSignals 串帖判定的三个独立信号
type DetectionSignals struct {
	ExplicitMarker bool // 页面包含"显示串帖"类标记文本
	AuthorPosts    int  // 目标作者的可见帖子数
	ConnectorLine  bool // 存在同作者连接线
}

// IsThread 任一信号成立即判定为串帖
func (s DetectionSignals) IsThread() bool {
	return s.ExplicitMarker || s.AuthorPosts >= 2 || s.ConnectorLine
}

// IsThread 读取页面并判定是否为串帖,不修改页面
func IsThread(ctx context.Context, page Page, author string) (DetectionSignals, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return DetectionSignals{}, fmt.Errorf("读取页面HTML失败: %w", err)
	}
	return DetectThread(html, author)
}

// DetectThread 基于HTML快照计算判定信号
func DetectThread(html string, author string) (DetectionSignals, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return DetectionSignals{}, fmt.Errorf("解析页面HTML失败: %w", err)
	}

	var signals DetectionSignals

	pageText := strings.ToLower(doc.Find("body").Text())
	for _, marker := range ThreadMarkers {
		if strings.Contains(pageText, marker) {
			signals.ExplicitMarker = true
			break
		}
	}

	doc.Find(PostSelector).Each(func(_ int, post *goquery.Selection) {
		if models.SameAuthor(postAuthorHandle(post), author) {
			signals.AuthorPosts++
		}
	})

	signals.ConnectorLine = doc.Find(ThreadConnectorSelector).Length() > 0
	return signals, nil
}

// postAuthorHandle 从名称区块中解析作者handle
// 优先使用指向个人主页的链接,其次使用@开头的文本
func postAuthorHandle(post *goquery.Selection) string {
	block := post.Find(UserNameSelector).First()
	if block.Length() == 0 {
		return ""
	}

	var handle string
	block.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		path := strings.Trim(href, "/")
		if path != "" && !strings.Contains(path, "/") && !strings.Contains(path, ":") {
			handle = path
			return false
		}
		return true
	})
	if handle != "" {
		return handle
	}

	block.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := strings.TrimSpace(span.Text())
		if strings.HasPrefix(text, "@") && !strings.Contains(text, " ") {
			handle = strings.TrimPrefix(text, "@")
			return false
		}
		return true
	})
	return handle
}
