package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

// BatchOptions 批量提取参数
type BatchOptions struct {
	Concurrency     int     // 同时进行的任务数,通常等于渲染实例池容量
	Rate            float64 // 每秒最多启动的任务数,<=0 不限速
	ContinueOnError bool    // 失败后是否继续处理剩余URL
	ShowProgress    bool
	Extract         models.ExtractOptions
}

// BatchExtractor 批量提取器
// 所有任务共享同一个引擎(渲染实例池和缓存)
type BatchExtractor struct {
	extractor Extractor
	reporter  *utils.Reporter
	opts      BatchOptions
	out       io.Writer
}

// NewBatchExtractor 创建批量提取器
// reporter为nil时不保存结果文件
func NewBatchExtractor(extractor Extractor, reporter *utils.Reporter, opts BatchOptions) *BatchExtractor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &BatchExtractor{
		extractor: extractor,
		reporter:  reporter,
		opts:      opts,
		out:       os.Stderr,
	}
}

// SetOutput 摘要表格的输出位置
func (be *BatchExtractor) SetOutput(w io.Writer) {
	be.out = w
}

// Run 批量提取URL列表
// 结果顺序与输入一致; ctx取消后未开始的URL标记为跳过
func (be *BatchExtractor) Run(ctx context.Context, urls []string) (*models.BatchSummary, error) {
	utils.Infof("🚀 开始批量提取: %d个URL (并发 %d)", len(urls), be.opts.Concurrency)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := rate.Inf
	if be.opts.Rate > 0 {
		limit = rate.Limit(be.opts.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)

	var bar *progressbar.ProgressBar
	if be.opts.ShowProgress {
		bar = utils.NewProgressBar(len(urls), "提取中")
	}

	results := make([]models.JobResult, len(urls))
	for i, u := range urls {
		results[i] = models.JobResult{URL: u, Status: models.JobStatusPending}
	}

	startTime := time.Now()
	sem := make(chan struct{}, be.opts.Concurrency)
	var wg sync.WaitGroup

dispatch:
	for i := range urls {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		if ctx.Err() != nil {
			<-sem
			break
		}

		results[i].Status = models.JobStatusRunning
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			be.process(ctx, &results[i])
			if results[i].Status == models.JobStatusFailed && !be.opts.ContinueOnError {
				utils.Warn("批量提取中止 (--continue-on-error=false)")
				cancel()
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}(i)
	}
	wg.Wait()

	summary := &models.BatchSummary{
		TotalURLs: len(urls),
		Results:   results,
	}
	for i := range results {
		r := &results[i]
		switch r.Status {
		case models.JobStatusCompleted:
			summary.SuccessCount++
			summary.TotalPosts += r.ThreadLength
		case models.JobStatusPending:
			r.Status = models.JobStatusSkipped
			summary.SkippedCount++
		case models.JobStatusCancelled:
			summary.SkippedCount++
		default:
			summary.FailCount++
		}
	}
	summary.TotalDuration = time.Since(startTime).Seconds()

	if bar != nil {
		_ = bar.Finish()
	}
	be.printSummary(summary)

	if be.reporter != nil {
		if path, err := be.reporter.SaveJSONReport("batch_report.json", summary); err != nil {
			utils.Warnf("保存批量报告失败: %v", err)
		} else {
			utils.Infof("✅ 批量报告已生成: %s", path)
		}
	}
	return summary, nil
}

// process 提取单个URL并保存结果
func (be *BatchExtractor) process(ctx context.Context, job *models.JobResult) {
	start := time.Now()
	job.ProcessedAt = start
	defer func() {
		job.Duration = time.Since(start).Seconds()
	}()

	result, err := be.extractor.Extract(ctx, job.URL, be.opts.Extract)
	if err != nil {
		job.Error = err.Error()
		job.ErrorKind = models.ErrorKind(err)
		job.Status = models.JobStatusFailed
		// 因其他任务失败被取消,不计为本URL的失败
		if errors.Is(err, context.Canceled) || (ctx.Err() != nil && errors.Is(err, models.ErrPoolExhausted)) {
			job.Status = models.JobStatusCancelled
		}
		utils.Errorf("❌ 提取失败 [%s]: %v", job.URL, err)
		return
	}

	job.Status = models.JobStatusCompleted
	job.Result = result
	job.IsThread = result.IsThread
	job.ThreadLength = result.ThreadLength

	if be.reporter == nil {
		return
	}
	target, err := models.ParseTarget(job.URL)
	if err != nil {
		return
	}
	path, err := be.reporter.SaveResult(target, result)
	if err != nil {
		utils.Warnf("保存结果失败 [%s]: %v", job.URL, err)
		return
	}
	job.OutputFile = path
}

// printSummary 打印批量提取摘要
func (be *BatchExtractor) printSummary(summary *models.BatchSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(be.out)
	t.SetTitle("📊 批量提取摘要")
	t.AppendHeader(table.Row{"#", "URL", "状态", "串帖", "帖子数", "耗时(秒)", "输出/错误"})

	for i, r := range summary.Results {
		detail := r.OutputFile
		if r.Error != "" {
			detail = r.ErrorKind
		}
		thread := ""
		if r.Status == models.JobStatusCompleted {
			thread = "否"
			if r.IsThread {
				thread = "是"
			}
		}
		t.AppendRow(table.Row{i + 1, r.URL, string(r.Status), thread, r.ThreadLength, fmt.Sprintf("%.2f", r.Duration), detail})
	}

	t.AppendFooter(table.Row{
		"", fmt.Sprintf("总计 %d", summary.TotalURLs),
		fmt.Sprintf("✅ %d / ❌ %d / ⏭ %d", summary.SuccessCount, summary.FailCount, summary.SkippedCount),
		"", summary.TotalPosts, fmt.Sprintf("%.2f", summary.TotalDuration), "",
	})
	t.SetStyle(table.StyleLight)
	t.Render()

	// 显示失败的URL
	if summary.FailCount > 0 {
		utils.Warn("失败的URL:")
		for _, r := range summary.Results {
			if r.Status == models.JobStatusFailed {
				utils.Warnf("  - %s: %s", r.URL, r.Error)
			}
		}
	}
}
