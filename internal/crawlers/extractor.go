package crawlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"golang.org/x/net/html"
)

var countPattern = regexp.MustCompile(`\d[\d,]*`)

// ExtractAll 读取当前DOM,把每条可见帖子转换为原始记录
// 不做作者过滤和去重,交给组装阶段
func ExtractAll(ctx context.Context, page Page) ([]models.RawPostRecord, error) {
	snapshot, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取页面HTML失败: %w", err)
	}
	return ParsePosts(snapshot)
}

// ParsePosts 从HTML快照中解析帖子记录
// 既没有正文也没有媒体的帖子被丢弃
func ParsePosts(snapshot string) ([]models.RawPostRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("解析页面HTML失败: %w", err)
	}

	var records []models.RawPostRecord
	doc.Find(PostSelector).Each(func(_ int, post *goquery.Selection) {
		record := parsePost(post)
		if record.HasContent() {
			records = append(records, record)
		}
	})
	return records, nil
}

func parsePost(post *goquery.Selection) models.RawPostRecord {
	var record models.RawPostRecord

	if textBlock := post.Find(PostTextSelector).First(); textBlock.Length() > 0 {
		record.Text = strings.TrimSpace(visibleText(textBlock.Nodes[0]))
	}

	record.AuthorHandle = postAuthorHandle(post)
	record.AuthorDisplayName = displayName(post)
	if src, ok := post.Find(AvatarSelector).First().Attr("src"); ok {
		record.AuthorAvatarURL = src
	}

	if tm := post.Find(TimeSelector).First(); tm.Length() > 0 {
		record.TimestampISO, _ = tm.Attr("datetime")
		if href, ok := tm.Closest("a").Attr("href"); ok {
			record.Permalink = absoluteURL(href)
		}
	}

	record.Images = postImages(post)
	record.Videos = postVideos(post)

	record.Stats = models.PostStats{
		Replies:   statCount(post, ReplyStatSelector),
		Reposts:   statCount(post, RepostStatSelector),
		Likes:     statCount(post, LikeStatSelector),
		Bookmarks: statCount(post, BookmarkStatSelector),
		Views:     statCount(post, ViewStatSelector),
	}
	return record
}

// visibleText 拼接文本节点,表情图片用alt代替
func visibleText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "img":
				for _, attr := range n.Attr {
					if attr.Key == "alt" {
						sb.WriteString(attr.Val)
					}
				}
				return
			case "br":
				sb.WriteString("\n")
				return
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// displayName 名称区块中第一个不以@开头的非空文本
func displayName(post *goquery.Selection) string {
	block := post.Find(UserNameSelector).First()
	if block.Length() == 0 {
		return ""
	}

	var name string
	block.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		// 只看叶子span,外层span会把handle一起带上
		if span.Find("span").Length() > 0 {
			return true
		}
		text := strings.TrimSpace(visibleText(span.Nodes[0]))
		if text == "" || strings.HasPrefix(text, "@") || text == "·" {
			return true
		}
		name = text
		return false
	})
	return name
}

func postImages(post *goquery.Selection) []string {
	var images []string
	seen := make(map[string]bool)
	post.Find(PhotoSelector).Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" || seen[src] {
			return
		}
		if strings.Contains(src, "profile_images") || strings.Contains(src, "/emoji/") {
			return
		}
		seen[src] = true
		images = append(images, src)
	})
	return images
}

func postVideos(post *goquery.Selection) []string {
	var videos []string
	seen := make(map[string]bool)
	add := func(src string) {
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		videos = append(videos, src)
	}

	post.Find(VideoSelector).Each(func(_ int, video *goquery.Selection) {
		if src, ok := video.Attr("src"); ok && src != "" && !strings.HasPrefix(src, "blob:") {
			add(src)
			return
		}
		if src, ok := video.Find(VideoSourceSelector).First().Attr("src"); ok && !strings.HasPrefix(src, "blob:") {
			add(src)
			return
		}
		// 流媒体地址拿不到时退回封面图
		if poster, ok := video.Attr("poster"); ok {
			add(poster)
		}
	})
	return videos
}

// statCount 读取互动按钮的aria-label中的数字
func statCount(post *goquery.Selection, selector string) int {
	el := post.Find(selector).First()
	if el.Length() == 0 {
		return 0
	}
	label, ok := el.Attr("aria-label")
	if !ok {
		label = el.Text()
	}
	return ParseCount(label)
}

// ParseCount 解析标签中第一段数字,支持千分位逗号,无数字返回0
func ParseCount(label string) int {
	match := countPattern.FindString(label)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return "https://" + models.PlatformHost + href
}
