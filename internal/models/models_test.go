package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    ExtractionTarget
		wantErr bool
	}{
		{"标准地址", "https://x.com/alice/status/111", ExtractionTarget{"alice", "111"}, false},
		{"twitter域名", "https://twitter.com/Bob_1/status/1234567890", ExtractionTarget{"Bob_1", "1234567890"}, false},
		{"移动端域名", "https://mobile.twitter.com/alice/status/42?s=20", ExtractionTarget{"alice", "42"}, false},
		{"www前缀", "https://www.x.com/alice/status/42/", ExtractionTarget{"alice", "42"}, false},
		{"图片子路径", "https://x.com/alice/status/42/photo/1", ExtractionTarget{"alice", "42"}, false},
		{"http协议", "http://x.com/alice/status/42", ExtractionTarget{"alice", "42"}, false},
		{"空字符串", "", ExtractionTarget{}, true},
		{"其它域名", "https://example.com/alice/status/42", ExtractionTarget{}, true},
		{"非帖子路径", "https://x.com/alice", ExtractionTarget{}, true},
		{"非数字ID", "https://x.com/alice/status/abc", ExtractionTarget{}, true},
		{"非法handle", "https://x.com/al-ice/status/42", ExtractionTarget{}, true},
		{"ftp协议", "ftp://x.com/alice/status/42", ExtractionTarget{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTarget), "错误应归类为无效输入: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractionTarget_URL(t *testing.T) {
	target, err := ParseTarget("https://mobile.twitter.com/alice/status/111?lang=en")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/alice/status/111", target.URL())
	assert.Equal(t, "111", target.CacheKey())
}

func TestSameAuthor(t *testing.T) {
	assert.True(t, SameAuthor("Alice", "alice"))
	assert.True(t, SameAuthor("@alice", "ALICE"))
	assert.False(t, SameAuthor("alice", "alice2"))
}

func TestRawPostRecord_Timestamp(t *testing.T) {
	ts, ok := RawPostRecord{TimestampISO: "2024-03-01T10:00:00.000Z"}.Timestamp()
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	_, ok = RawPostRecord{TimestampISO: "yesterday"}.Timestamp()
	assert.False(t, ok)

	_, ok = RawPostRecord{}.Timestamp()
	assert.False(t, ok)
}

func TestRawPostRecord_HasContent(t *testing.T) {
	assert.False(t, RawPostRecord{}.HasContent())
	assert.True(t, RawPostRecord{Text: "hi"}.HasContent())
	assert.True(t, RawPostRecord{Images: []string{"a.jpg"}}.HasContent())
	assert.True(t, RawPostRecord{Videos: []string{"a.mp4"}}.HasContent())
}

func TestExtractOptions_WithDefaults(t *testing.T) {
	opts := ExtractOptions{}.WithDefaults()
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, 30000, opts.TimeoutMs)
	assert.Equal(t, DefaultMaxPosts, opts.MaxPosts)

	opts = ExtractOptions{TimeoutMs: 5000, MaxPosts: 7}.WithDefaults()
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, 7, opts.MaxPosts)

	assert.Error(t, ExtractOptions{MaxPosts: 5000}.Validate())
	assert.NoError(t, ExtractOptions{}.WithDefaults().Validate())
}

func TestErrorKind(t *testing.T) {
	wrapped := &ExtractError{URL: "https://x.com/a/status/1", Cause: fmt.Errorf("包装: %w", ErrEmptyExtraction)}
	assert.Equal(t, "empty_extraction", ErrorKind(wrapped))
	assert.Equal(t, "navigation_failed", ErrorKind(fmt.Errorf("x: %w", ErrNavigation)))
	assert.Equal(t, "pool_exhausted", ErrorKind(ErrPoolExhausted))
	assert.Equal(t, "internal", ErrorKind(errors.New("boom")))
	assert.Equal(t, "canceled", ErrorKind(fmt.Errorf("等待: %w", context.Canceled)))
	assert.Equal(t, "", ErrorKind(nil))
	assert.Contains(t, wrapped.Error(), "https://x.com/a/status/1")
}

func TestThreadResult_ToJSON(t *testing.T) {
	result := &ThreadResult{
		IsThread:     true,
		Author:       Author{Name: "Alice", Username: "alice"},
		Posts:        []OrderedPost{{Number: 1, RawPostRecord: RawPostRecord{Text: "hello", AuthorHandle: "alice"}}},
		ThreadLength: 1,
		SourceURL:    "https://x.com/alice/status/1",
	}
	data, err := result.ToJSON()
	require.NoError(t, err)
	for _, field := range []string{`"isThread"`, `"threadLength"`, `"sourceUrl"`, `"extractedAt"`, `"number": 1`, `"authorHandle"`, `"timestampIso"`} {
		assert.Contains(t, string(data), field)
	}
}
