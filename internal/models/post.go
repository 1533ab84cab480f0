package models

import (
	"encoding/json"
	"time"
)

// PostStats 互动计数
type PostStats struct {
	Replies   int `json:"replies"`
	Reposts   int `json:"reposts"`
	Likes     int `json:"likes"`
	Bookmarks int `json:"bookmarks"`
	Views     int `json:"views"`
}

// RawPostRecord 从渲染页面读取的单条帖子
// 仅在一次提取过程中存在,组装后即丢弃
type RawPostRecord struct {
	Text              string    `json:"text"`
	AuthorHandle      string    `json:"authorHandle"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	AuthorAvatarURL   string    `json:"authorAvatarUrl"`
	TimestampISO      string    `json:"timestampIso"`
	Permalink         string    `json:"permalink"`
	Images            []string  `json:"images"`
	Videos            []string  `json:"videos"`
	Stats             PostStats `json:"stats"`
}

// HasContent 是否包含文本或媒体
func (r RawPostRecord) HasContent() bool {
	return r.Text != "" || len(r.Images) > 0 || len(r.Videos) > 0
}

// Timestamp 解析ISO时间戳,无法解析时ok为false
func (r RawPostRecord) Timestamp() (t time.Time, ok bool) {
	if r.TimestampISO == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, r.TimestampISO)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// OrderedPost 带序号的帖子,序号从1开始
type OrderedPost struct {
	Number int `json:"number"`
	RawPostRecord
}

// Author 结果中的作者信息
type Author struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ThreadResult 提取结果
// 不变量: len(Posts) == ThreadLength, Posts[i].Number == i+1
type ThreadResult struct {
	IsThread     bool          `json:"isThread"`
	Author       Author        `json:"author"`
	Posts        []OrderedPost `json:"posts"`
	ThreadLength int           `json:"threadLength"`
	SourceURL    string        `json:"sourceUrl"`
	ExtractedAt  time.Time     `json:"extractedAt"`
}

// ToJSON 序列化为JSON
func (r *ThreadResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
