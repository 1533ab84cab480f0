package core

import (
	"strings"
	"testing"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(handle, id, ts, text string) models.RawPostRecord {
	r := models.RawPostRecord{
		AuthorHandle:      handle,
		AuthorDisplayName: strings.ToUpper(handle),
		AuthorAvatarURL:   "https://pbs.twimg.com/profile_images/" + handle + ".jpg",
		TimestampISO:      ts,
		Text:              text,
	}
	if id != "" {
		r.Permalink = "https://x.com/" + handle + "/status/" + id
	}
	return r
}

func TestAssemble(t *testing.T) {
	t.Run("过滤其他作者并按时间排序", func(t *testing.T) {
		raw := []models.RawPostRecord{
			rec("alice", "3", "2024-01-01T00:03:00Z", "third"),
			rec("bob", "9", "2024-01-01T00:01:30Z", "reply"),
			rec("Alice", "1", "2024-01-01T00:01:00Z", "first"),
			rec("alice", "2", "2024-01-01T00:02:00Z", "second"),
		}

		result, err := Assemble(raw, "alice", "https://x.com/alice/status/1")
		require.NoError(t, err)
		require.Equal(t, 3, result.ThreadLength)
		require.Len(t, result.Posts, 3)

		for i, p := range result.Posts {
			assert.Equal(t, i+1, p.Number)
			assert.True(t, models.SameAuthor(p.AuthorHandle, "alice"))
		}
		assert.Equal(t, "first", result.Posts[0].Text)
		assert.Equal(t, "second", result.Posts[1].Text)
		assert.Equal(t, "third", result.Posts[2].Text)
		assert.Equal(t, "https://x.com/alice/status/1", result.SourceURL)
		assert.False(t, result.ExtractedAt.IsZero())

		// 作者信息取排序后的第一条
		assert.Equal(t, "Alice", result.Author.Username)
		assert.Equal(t, "ALICE", result.Author.Name)
	})

	t.Run("按永久链接去重", func(t *testing.T) {
		raw := []models.RawPostRecord{
			rec("alice", "1", "2024-01-01T00:01:00Z", "first"),
			rec("alice", "2", "2024-01-01T00:02:00Z", "second"),
			rec("alice", "1", "2024-01-01T00:01:00Z", "first (captured again)"),
		}
		result, err := Assemble(raw, "alice", "src")
		require.NoError(t, err)
		require.Len(t, result.Posts, 2)

		seen := map[string]bool{}
		for _, p := range result.Posts {
			assert.False(t, seen[p.Permalink], "永久链接重复: %s", p.Permalink)
			seen[p.Permalink] = true
		}
		assert.Equal(t, "first", result.Posts[0].Text)
	})

	t.Run("无永久链接按正文前缀去重", func(t *testing.T) {
		long := strings.Repeat("串", 100)
		raw := []models.RawPostRecord{
			rec("alice", "", "2024-01-01T00:01:00Z", long+"尾巴A"),
			rec("alice", "", "2024-01-01T00:02:00Z", long+"尾巴B"),
			rec("alice", "", "2024-01-01T00:03:00Z", "short"),
		}
		result, err := Assemble(raw, "alice", "src")
		require.NoError(t, err)
		require.Len(t, result.Posts, 2)
		assert.Equal(t, long+"尾巴A", result.Posts[0].Text)
		assert.Equal(t, "short", result.Posts[1].Text)
	})

	t.Run("无法解析的时间排在最后且保持原顺序", func(t *testing.T) {
		raw := []models.RawPostRecord{
			rec("alice", "5", "", "no time 1"),
			rec("alice", "2", "2024-01-01T00:02:00Z", "b"),
			rec("alice", "6", "yesterday", "no time 2"),
			rec("alice", "1", "2024-01-01T00:01:00Z", "a"),
		}
		result, err := Assemble(raw, "alice", "src")
		require.NoError(t, err)

		var texts []string
		for _, p := range result.Posts {
			texts = append(texts, p.Text)
		}
		assert.Equal(t, []string{"a", "b", "no time 1", "no time 2"}, texts)
	})

	t.Run("过滤后为空", func(t *testing.T) {
		raw := []models.RawPostRecord{rec("bob", "1", "2024-01-01T00:01:00Z", "hi")}
		_, err := Assemble(raw, "alice", "src")
		assert.ErrorIs(t, err, models.ErrEmptyExtraction)

		_, err = Assemble(nil, "alice", "src")
		assert.ErrorIs(t, err, models.ErrEmptyExtraction)
	})
}

func TestAssemble_OrderingInvariant(t *testing.T) {
	raw := []models.RawPostRecord{
		rec("alice", "4", "2024-05-01T12:00:00.500Z", "d"),
		rec("alice", "2", "2024-05-01T11:00:00Z", "b"),
		rec("alice", "3", "2024-05-01T12:00:00Z", "c"),
		rec("alice", "1", "2024-04-30T23:59:59Z", "a"),
	}
	result, err := Assemble(raw, "alice", "src")
	require.NoError(t, err)

	for i := 0; i+1 < len(result.Posts); i++ {
		ti, ok1 := result.Posts[i].Timestamp()
		tj, ok2 := result.Posts[i+1].Timestamp()
		require.True(t, ok1 && ok2)
		assert.False(t, tj.Before(ti), "第%d条时间晚于第%d条", i+1, i+2)
		assert.Equal(t, i+1, result.Posts[i].Number)
	}
}
