// Package formatter 把提取结果渲染为纯文本或Markdown
// 只依赖 models.ThreadResult 的公开字段,没有副作用
package formatter

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
)

// 支持的输出格式
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Formats 全部输出格式
var Formats = []string{FormatJSON, FormatText, FormatMarkdown}

// IsValid 检查格式名称
func IsValid(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Extension 格式对应的文件扩展名
func Extension(format string) string {
	switch format {
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	default:
		return ".json"
	}
}

// Render 按格式渲染
func Render(result *models.ThreadResult, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return result.ToJSON()
	case FormatText:
		return []byte(Text(result)), nil
	case FormatMarkdown:
		return []byte(Markdown(result)), nil
	default:
		return nil, fmt.Errorf("不支持的输出格式: %s (可选: %s)", format, strings.Join(Formats, ", "))
	}
}

// Text 纯文本: 每条帖子之间空行分隔,串帖带 n/N 序号
func Text(result *models.ThreadResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (@%s)\n", authorName(result), result.Author.Username)
	fmt.Fprintf(&sb, "%s\n", result.SourceURL)

	for _, post := range result.Posts {
		sb.WriteString("\n")
		if result.IsThread {
			fmt.Fprintf(&sb, "[%d/%d] ", post.Number, result.ThreadLength)
		}
		if ts, ok := post.Timestamp(); ok {
			sb.WriteString(ts.UTC().Format("2006-01-02 15:04"))
			sb.WriteString("\n")
		} else if result.IsThread {
			sb.WriteString("\n")
		}
		if post.Text != "" {
			sb.WriteString(post.Text)
			sb.WriteString("\n")
		}
		for _, img := range post.Images {
			fmt.Fprintf(&sb, "[图片] %s\n", img)
		}
		for _, video := range post.Videos {
			fmt.Fprintf(&sb, "[视频] %s\n", video)
		}
	}
	return sb.String()
}

// Markdown 标题+作者信息,每条帖子一个小节,媒体以图片/链接形式嵌入
func Markdown(result *models.ThreadResult) string {
	var sb strings.Builder

	title := "帖子"
	if result.IsThread {
		title = fmt.Sprintf("串帖 (%d 条)", result.ThreadLength)
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "**%s** ([@%s](https://%s/%s))\n\n",
		escapeMarkdown(authorName(result)), result.Author.Username, models.PlatformHost, result.Author.Username)
	fmt.Fprintf(&sb, "来源: <%s>\n", result.SourceURL)

	for _, post := range result.Posts {
		sb.WriteString("\n---\n\n")
		if result.IsThread {
			fmt.Fprintf(&sb, "### %d/%d\n\n", post.Number, result.ThreadLength)
		}
		if post.Text != "" {
			sb.WriteString(post.Text)
			sb.WriteString("\n\n")
		}
		for i, img := range post.Images {
			fmt.Fprintf(&sb, "![图片%d](%s)\n", i+1, img)
		}
		for i, video := range post.Videos {
			fmt.Fprintf(&sb, "[视频%d](%s)\n", i+1, video)
		}
		if len(post.Images)+len(post.Videos) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(statsLine(post))
	}
	return sb.String()
}

func statsLine(post models.OrderedPost) string {
	var parts []string
	if ts, ok := post.Timestamp(); ok {
		parts = append(parts, ts.UTC().Format("2006-01-02 15:04 UTC"))
	}
	s := post.Stats
	parts = append(parts, fmt.Sprintf("💬 %d · 🔁 %d · ❤️ %d · 🔖 %d · 👁 %d",
		s.Replies, s.Reposts, s.Likes, s.Bookmarks, s.Views))
	line := "_" + strings.Join(parts, " · ") + "_"
	if post.Permalink != "" {
		line += fmt.Sprintf(" [原文](%s)", post.Permalink)
	}
	return line + "\n"
}

func authorName(result *models.ThreadResult) string {
	if result.Author.Name != "" {
		return result.Author.Name
	}
	return result.Author.Username
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
