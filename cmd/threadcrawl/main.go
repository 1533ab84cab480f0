package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/ThreadCrawl/internal/config"
	"github.com/RecoveryAshes/ThreadCrawl/internal/formatter"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile     string
	verbose        bool
	logLevel       string
	validateConfig bool

	// 渲染实例参数
	headless bool
	poolSize int
	browser  string

	// 提取参数
	targetURL  string
	format     string
	outputFile string
	timeoutMs  int
	maxPosts   int
	authCookie string
)

// appConfig 在PersistentPreRunE中加载,命令行参数覆盖其中的值
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "threadcrawl [URL]",
	Short: "串帖提取工具",
	Long: `ThreadCrawl - 社交平台串帖提取工具

给定一条帖子的URL,在无头浏览器中渲染页面,判断它是否属于同一作者的串帖,
并按时间顺序提取整串帖子(文本、媒体、互动数据)。

  • 单帖直接返回,串帖自动展开并滚动加载
  • 渲染实例池复用浏览器,结果缓存24小时
  • 输出JSON / 纯文本 / Markdown
  • 批量模式 (threadcrawl batch) 与HTTP服务 (threadcrawl serve)

示例:
  threadcrawl https://x.com/alice/status/1234567890
  threadcrawl -u https://x.com/alice/status/1234567890 --format markdown -o thread.md
  THREADCRAWL_EXTRACT_AUTH_COOKIE=xxxx threadcrawl https://x.com/alice/status/1234567890

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			created, err := config.EnsureConfigExists(config.DefaultConfigFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
			} else if created {
				fmt.Fprintf(os.Stderr, "已生成默认配置文件: %s\n", config.DefaultConfigFile)
			}
		}

		// 加载配置
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		applyFlagOverrides(cmd, cfg)
		appConfig = cfg

		// 初始化日志系统
		logConfig := cfg.LogOptions()
		if logLevel != "" {
			logConfig.Level = logLevel
		} else if verbose {
			logConfig.Level = "debug"
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfig {
			return printConfig(appConfig)
		}

		if targetURL == "" && len(args) == 1 {
			targetURL = args[0]
		}
		// 如果没有提供任何参数,显示帮助信息
		if targetURL == "" {
			return cmd.Help()
		}

		normalized, err := NormalizeURL(targetURL)
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
		if err := ValidateFlags(normalized, format, appConfig.Extract.TimeoutMs, appConfig.Extract.MaxPosts, appConfig.Browser.PoolSize); err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		app, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.engine.Extract(ctx, normalized, appConfig.ExtractDefaults())
		if err != nil {
			return err
		}

		reporter := utils.NewReporter("", format)
		if outputFile == "" {
			return reporter.Write(os.Stdout, result)
		}
		if err := reporter.WriteFile(outputFile, result); err != nil {
			return err
		}

		kind := "单帖"
		if result.IsThread {
			kind = "串帖"
		}
		utils.Infof("✨ 提取完成: %s, %d条帖子 -> %s", kind, result.ThreadLength, outputFile)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ThreadCrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// applyFlagOverrides 显式指定的命令行参数覆盖配置文件
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("pool-size") {
		cfg.Browser.PoolSize = poolSize
	}
	if flags.Changed("browser") {
		cfg.Browser.Bin = browser
	}
	if flags.Changed("timeout") {
		cfg.Extract.TimeoutMs = timeoutMs
	}
	if flags.Changed("max-posts") {
		cfg.Extract.MaxPosts = maxPosts
	}
	if flags.Changed("cookie") {
		cfg.Extract.AuthCookie = authCookie
	}
}

// printConfig 输出生效的配置,凭证脱敏
func printConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	utils.Info("✅ 配置验证通过!")

	lines := []string{
		fmt.Sprintf("browser.headless: %v", cfg.Browser.Headless),
		fmt.Sprintf("browser.pool_size: %d", cfg.Browser.PoolSize),
		fmt.Sprintf("browser.remote_url: %s", cfg.Browser.RemoteURL),
		fmt.Sprintf("extract.timeout_ms: %d", cfg.Extract.TimeoutMs),
		fmt.Sprintf("extract.max_posts: %d", cfg.Extract.MaxPosts),
		fmt.Sprintf("extract.auth_cookie: %s", utils.RedactSecret(cfg.Extract.AuthCookie)),
		fmt.Sprintf("cache.ttl: %s", cfg.Cache.TTL),
		fmt.Sprintf("server.addr: %s", cfg.Server.Addr),
		fmt.Sprintf("batch.format: %s", cfg.Batch.Format),
	}
	fmt.Println(strings.Join(lines, "\n"))
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认 configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件并显示生效值")

	// 渲染实例参数
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.PersistentFlags().IntVar(&poolSize, "pool-size", 2, "渲染实例数量上限 (1-32)")
	rootCmd.PersistentFlags().StringVar(&browser, "browser", "", "浏览器可执行文件路径")

	// 提取参数
	rootCmd.PersistentFlags().IntVarP(&timeoutMs, "timeout", "t", int(models.DefaultTimeout.Milliseconds()), "单个URL的总超时(毫秒)")
	rootCmd.PersistentFlags().IntVar(&maxPosts, "max-posts", models.DefaultMaxPosts, "最多加载的帖子数 (1-1000)")
	rootCmd.PersistentFlags().StringVar(&authCookie, "cookie", "", "登录凭证auth_token (建议使用环境变量 THREADCRAWL_EXTRACT_AUTH_COOKIE)")

	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "帖子URL")
	rootCmd.Flags().StringVar(&format, "format", formatter.FormatJSON, "输出格式 ("+strings.Join(formatter.Formats, "|")+")")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出文件 (默认写到标准输出)")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		if kind := models.ErrorKind(err); kind != "internal" {
			fmt.Fprintf(os.Stderr, "错误类型: %s\n", kind)
		}
		os.Exit(1)
	}
}
