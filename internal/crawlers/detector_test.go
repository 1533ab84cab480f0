package crawlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectThread(t *testing.T) {
	root := fixturePost{Handle: "alice", Name: "Alice", ID: "1", Time: "2024-01-01T00:00:00Z", Text: "root"}
	selfReply := fixturePost{Handle: "alice", Name: "Alice", ID: "2", Time: "2024-01-01T00:01:00Z", Text: "part 2"}
	otherReply := fixturePost{Handle: "bob", Name: "Bob", ID: "3", Time: "2024-01-01T00:02:00Z", Text: "nice"}
	connected := root
	connected.Connects = true

	tests := []struct {
		name       string
		html       string
		author     string
		wantThread bool
		wantPosts  int
	}{
		{
			name:       "单条帖子无回复",
			html:       pageHTML("", root),
			author:     "alice",
			wantThread: false,
			wantPosts:  1,
		},
		{
			name:       "其他用户回复不算串帖",
			html:       pageHTML("", root, otherReply),
			author:     "alice",
			wantThread: false,
			wantPosts:  1,
		},
		{
			name:       "作者两条帖子",
			html:       pageHTML("", root, selfReply, otherReply),
			author:     "alice",
			wantThread: true,
			wantPosts:  2,
		},
		{
			name:       "handle大小写不敏感",
			html:       pageHTML("", root, selfReply),
			author:     "@ALICE",
			wantThread: true,
			wantPosts:  2,
		},
		{
			name:       "显式标记",
			html:       pageHTML(`<a href="/alice/status/1"><span>Show this thread</span></a>`, root),
			author:     "alice",
			wantThread: true,
			wantPosts:  1,
		},
		{
			name:       "连接线",
			html:       pageHTML("", connected),
			author:     "alice",
			wantThread: true,
			wantPosts:  1,
		},
		{
			name:       "空页面",
			html:       `<html><body></body></html>`,
			author:     "alice",
			wantThread: false,
			wantPosts:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals, err := DetectThread(tt.html, tt.author)
			require.NoError(t, err)
			assert.Equal(t, tt.wantThread, signals.IsThread())
			assert.Equal(t, tt.wantPosts, signals.AuthorPosts)
		})
	}
}

func TestIsThread_DoesNotMutatePage(t *testing.T) {
	page := &fakePage{html: pageHTML("", fixturePost{Handle: "alice", Name: "Alice", ID: "1", Text: "a"})}

	signals, err := IsThread(context.Background(), page, "alice")
	require.NoError(t, err)
	assert.False(t, signals.IsThread())
	assert.Empty(t, page.calls)
	assert.Zero(t, page.scrolls)
	assert.Zero(t, page.clickCalls)
}
