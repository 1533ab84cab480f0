package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/ThreadCrawl/internal/core"
	"github.com/RecoveryAshes/ThreadCrawl/internal/crawlers"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
)

// stubExtractor 按URL返回预设结果或错误
type stubExtractor struct {
	errs     map[string]error
	lastURL  string
	lastOpts models.ExtractOptions
}

func (s *stubExtractor) Extract(_ context.Context, rawURL string, opts models.ExtractOptions) (*models.ThreadResult, error) {
	s.lastURL = rawURL
	s.lastOpts = opts
	if err, ok := s.errs[rawURL]; ok {
		return nil, &models.ExtractError{URL: rawURL, Cause: err}
	}
	target, err := models.ParseTarget(rawURL)
	if err != nil {
		return nil, &models.ExtractError{URL: rawURL, Cause: err}
	}
	return &models.ThreadResult{
		IsThread:     true,
		Author:       models.Author{Username: target.Author, Name: "Alice"},
		ThreadLength: 2,
		SourceURL:    target.URL(),
		Posts: []models.OrderedPost{
			{Number: 1, RawPostRecord: models.RawPostRecord{Text: "第一条", TimestampISO: "2024-01-01T10:00:00.000Z"}},
			{Number: 2, RawPostRecord: models.RawPostRecord{Text: "第二条", TimestampISO: "2024-01-01T10:01:00.000Z"}},
		},
	}, nil
}

type stubStats struct{}

func (stubStats) Stats() core.EngineStats {
	return core.EngineStats{Pool: crawlers.PoolStats{Capacity: 2, Busy: 1}, CacheEntries: 3}
}

type stubResources struct {
	ok     bool
	reason string
}

func (s stubResources) CheckResourceAvailability() (bool, string) {
	return s.ok, s.reason
}

func TestExtract_PostJSON(t *testing.T) {
	extractor := &stubExtractor{}
	srv := New(extractor)

	body := `{"url":"https://x.com/alice/status/1","maxPosts":20,"timeoutMs":5000,"unknown":true}`
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result models.ThreadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsThread)
	assert.Equal(t, 2, result.ThreadLength)
	assert.Equal(t, "alice", result.Author.Username)

	assert.Equal(t, 20, extractor.lastOpts.MaxPosts)
	assert.Equal(t, 5000, extractor.lastOpts.TimeoutMs)
}

func TestExtract_GetFormats(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		contentType string
		contains    string
	}{
		{"默认JSON", "", "application/json", `"isThread":true`},
		{"纯文本", "text", "text/plain; charset=utf-8", "[1/2]"},
		{"Markdown", "markdown", "text/markdown; charset=utf-8", "### 1/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&stubExtractor{})
			target := "/extract?url=https://x.com/alice/status/1&maxPosts=5"
			if tt.format != "" {
				target += "&format=" + tt.format
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestExtract_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		err      error
		wantCode int
		wantKind string
	}{
		{"无效URL", "https://example.com/foo", nil, http.StatusBadRequest, "invalid_input"},
		{"空提取", "https://x.com/a/status/1", models.ErrEmptyExtraction, http.StatusUnprocessableEntity, "empty_extraction"},
		{"导航失败", "https://x.com/a/status/2", fmt.Errorf("%w: 超时", models.ErrNavigation), http.StatusBadGateway, "navigation_failed"},
		{"池耗尽", "https://x.com/a/status/3", models.ErrPoolExhausted, http.StatusServiceUnavailable, "pool_exhausted"},
		{"池关闭", "https://x.com/a/status/4", models.ErrPoolClosed, http.StatusServiceUnavailable, "pool_closed"},
		{"取消", "https://x.com/a/status/5", context.DeadlineExceeded, http.StatusRequestTimeout, "canceled"},
		{"其他", "https://x.com/a/status/6", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &stubExtractor{errs: map[string]error{}}
			if tt.err != nil {
				extractor.errs[tt.url] = tt.err
			}
			srv := New(extractor)

			body, _ := json.Marshal(map[string]string{"url": tt.url})
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(string(body))))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestExtract_BadRequests(t *testing.T) {
	srv := New(&stubExtractor{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/extract?url=https://x.com/a/status/1&format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_input")
}

func TestHealth(t *testing.T) {
	t.Run("仅状态", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(&stubExtractor{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("资源不足时降级", func(t *testing.T) {
		srv := New(&stubExtractor{},
			WithStats(stubStats{}),
			WithResourceChecker(stubResources{ok: false, reason: "内存不足"}),
		)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		require.NotNil(t, resp.Engine)
		assert.Equal(t, 2, resp.Engine.Pool.Capacity)
		assert.Equal(t, 3, resp.Engine.CacheEntries)
		require.NotNil(t, resp.Resources)
		assert.Equal(t, "内存不足", resp.Resources.Reason)
	})
}

func TestListenAndServe_Shutdown(t *testing.T) {
	srv := New(&stubExtractor{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("服务未在超时内关闭")
	}
}
