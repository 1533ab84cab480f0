package core

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
)

// dedupTextPrefix 无永久链接时用于去重的正文前缀长度(字符)
const dedupTextPrefix = 100

// Assemble 把原始记录组装为有序的结果
// 步骤: 按作者过滤 -> 去重 -> 按时间排序(无法解析的排最后) -> 编号
// 过滤去重后为空返回 models.ErrEmptyExtraction
func Assemble(raw []models.RawPostRecord, author string, sourceURL string) (*models.ThreadResult, error) {
	posts := filterByAuthor(raw, author)
	posts = dedupe(posts)
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: 作者 @%s 没有可用的帖子(原始记录 %d 条)", models.ErrEmptyExtraction, author, len(raw))
	}
	sortByTimestamp(posts)

	ordered := make([]models.OrderedPost, len(posts))
	for i, p := range posts {
		ordered[i] = models.OrderedPost{Number: i + 1, RawPostRecord: p}
	}

	first := posts[0]
	return &models.ThreadResult{
		IsThread: len(ordered) > 1,
		Author: models.Author{
			Name:     first.AuthorDisplayName,
			Username: first.AuthorHandle,
			Avatar:   first.AuthorAvatarURL,
		},
		Posts:        ordered,
		ThreadLength: len(ordered),
		SourceURL:    sourceURL,
		ExtractedAt:  time.Now().UTC(),
	}, nil
}

func filterByAuthor(raw []models.RawPostRecord, author string) []models.RawPostRecord {
	filtered := make([]models.RawPostRecord, 0, len(raw))
	for _, r := range raw {
		if models.SameAuthor(r.AuthorHandle, author) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// dedupeKey 永久链接优先,否则取正文前缀
func dedupeKey(r models.RawPostRecord) string {
	if r.Permalink != "" {
		return "link:" + r.Permalink
	}
	text := r.Text
	if utf8.RuneCountInString(text) > dedupTextPrefix {
		text = string([]rune(text)[:dedupTextPrefix])
	}
	return "text:" + text
}

// dedupe 保留首次出现的记录
func dedupe(records []models.RawPostRecord) []models.RawPostRecord {
	seen := make(map[string]bool, len(records))
	unique := records[:0]
	for _, r := range records {
		key := dedupeKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}
	return unique
}

// sortByTimestamp 时间升序,无法解析的时间戳保持原顺序排在最后
func sortByTimestamp(records []models.RawPostRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, okI := records[i].Timestamp()
		tj, okJ := records[j].Timestamp()
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}
