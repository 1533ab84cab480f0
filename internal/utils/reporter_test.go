package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *models.ThreadResult {
	return &models.ThreadResult{
		Author: models.Author{Name: "Alice", Username: "alice"},
		Posts: []models.OrderedPost{{
			Number:        1,
			RawPostRecord: models.RawPostRecord{Text: "hello", AuthorHandle: "alice"},
		}},
		ThreadLength: 1,
		SourceURL:    "https://x.com/alice/status/1",
		ExtractedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestReporter_Write(t *testing.T) {
	t.Run("默认json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewReporter("", "").Write(&buf, sampleResult()))
		assert.Contains(t, buf.String(), `"threadLength": 1`)
		assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	})

	t.Run("纯文本", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewReporter("", "text").Write(&buf, sampleResult()))
		assert.Contains(t, buf.String(), "Alice (@alice)")
	})

	t.Run("未知格式", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, NewReporter("", "yaml").Write(&buf, sampleResult()))
	})
}

func TestReporter_SaveResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	reporter := NewReporter(dir, "markdown")

	path, err := reporter.SaveResult(models.ExtractionTarget{Author: "alice", PostID: "1"}, sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alice_1.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello")

	reportPath, err := reporter.SaveJSONReport("batch_report.json", map[string]int{"total": 1})
	require.NoError(t, err)
	content, err = os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"total": 1`)
}
