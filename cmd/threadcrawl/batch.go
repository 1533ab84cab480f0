package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/ThreadCrawl/internal/core"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

// 批量处理参数
var (
	urlFile         string
	batchOutputDir  string
	batchFormat     string
	batchRate       float64
	concurrency     int
	continueOnError bool
	noProgress      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch -f urls.txt",
	Short: "批量提取URL列表",
	Long: `从文件读取帖子URL (每行一个,#开头为注释),共享渲染实例池和缓存并发提取。

每个URL的结果保存为 <输出目录>/<作者>_<帖子ID>.<扩展名>,
结束时打印摘要表格并生成 batch_report.json。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateURLFile(urlFile); err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("output-dir") {
			appConfig.Batch.OutputDir = batchOutputDir
		}
		if flags.Changed("format") {
			appConfig.Batch.Format = batchFormat
		}
		if flags.Changed("rate") {
			appConfig.Batch.Rate = batchRate
		}
		if flags.Changed("continue-on-error") {
			appConfig.Batch.ContinueOnError = continueOnError
		}

		if err := ValidateFlags("", appConfig.Batch.Format, appConfig.Extract.TimeoutMs, appConfig.Extract.MaxPosts, appConfig.Browser.PoolSize); err != nil {
			return err
		}
		if err := ValidateBatchFlags(appConfig.Batch.Rate, concurrency); err != nil {
			return err
		}

		urls, err := utils.ReadURLsFromFile(urlFile)
		if err != nil {
			return fmt.Errorf("读取URL文件失败: %w", err)
		}

		ctx, stop := signalContext()
		defer stop()

		app, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer app.Close()

		// 并发数默认等于实际的池容量,更多的任务只会在池上排队
		workers := concurrency
		if workers <= 0 {
			workers = app.pool.Capacity()
		}

		batch := core.NewBatchExtractor(app.engine, utils.NewReporter(appConfig.Batch.OutputDir, appConfig.Batch.Format), core.BatchOptions{
			Concurrency:     workers,
			Rate:            appConfig.Batch.Rate,
			ContinueOnError: appConfig.Batch.ContinueOnError,
			ShowProgress:    !noProgress,
			Extract:         appConfig.ExtractDefaults(),
		})

		summary, err := batch.Run(ctx, urls)
		if err != nil {
			return fmt.Errorf("批量提取失败: %w", err)
		}

		utils.Infof("✨ 批量提取完成: 成功 %d, 失败 %d, 跳过 %d",
			summary.SuccessCount, summary.FailCount, summary.SkippedCount)
		if summary.FailCount > 0 && !appConfig.Batch.ContinueOnError {
			return fmt.Errorf("批量提取中止: %d个URL失败", summary.FailCount)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径 (必需)")
	batchCmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", "output", "输出目录")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "输出格式 (json|text|markdown)")
	batchCmd.Flags().Float64Var(&batchRate, "rate", 0.5, "每秒最多启动的任务数,0表示不限速")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "并发任务数 (默认等于渲染实例数量)")
	batchCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理")
	batchCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")
	_ = batchCmd.MarkFlagRequired("url-file")
}
