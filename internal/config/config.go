package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/RecoveryAshes/ThreadCrawl/internal/core"
	"github.com/RecoveryAshes/ThreadCrawl/internal/crawlers"
	"github.com/RecoveryAshes/ThreadCrawl/internal/formatter"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

const (
	// DefaultConfigFile 默认配置文件路径
	DefaultConfigFile = "configs/config.yaml"

	// EnvPrefix 环境变量前缀
	EnvPrefix = "THREADCRAWL"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed config_template.yaml
var defaultTemplate string

// Config 应用程序配置
type Config struct {
	Browser  BrowserConfig  `mapstructure:"browser"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Session  SessionConfig  `mapstructure:"session"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Resource ResourceConfig `mapstructure:"resource"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Batch    BatchConfig    `mapstructure:"batch"`
}

// BrowserConfig 渲染实例配置
type BrowserConfig struct {
	Headless  bool           `mapstructure:"headless"`
	Bin       string         `mapstructure:"bin"`
	RemoteURL string         `mapstructure:"remote_url"`
	Stealth   bool           `mapstructure:"stealth"`
	PoolSize  int            `mapstructure:"pool_size"`
	UserAgent string         `mapstructure:"user_agent"`
	Viewport  ViewportConfig `mapstructure:"viewport"`
}

// ViewportConfig 视口配置
type ViewportConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	Jitter int `mapstructure:"jitter"`
}

// ExtractConfig 单次提取的默认选项
type ExtractConfig struct {
	TimeoutMs  int    `mapstructure:"timeout_ms"`
	MaxPosts   int    `mapstructure:"max_posts"`
	AuthCookie string `mapstructure:"auth_cookie"`
}

// LoaderConfig 增量加载策略
type LoaderConfig struct {
	ExpandSettle time.Duration `mapstructure:"expand_settle"`
	ScrollDelta  int           `mapstructure:"scroll_delta"`
	ScrollDelay  time.Duration `mapstructure:"scroll_delay"`
	StableRounds int           `mapstructure:"stable_rounds"`
	SafetyMargin time.Duration `mapstructure:"safety_margin"`
}

// SessionConfig 会话准备参数
type SessionConfig struct {
	FirstPostTimeout time.Duration `mapstructure:"first_post_timeout"`
	SettleDelay      time.Duration `mapstructure:"settle_delay"`
	CookieDomain     string        `mapstructure:"cookie_domain"`
}

// CacheConfig 结果缓存配置
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ResourceConfig 资源限制配置
type ResourceConfig struct {
	Enabled           bool  `mapstructure:"enabled"`
	SafetyReserveMB   int64 `mapstructure:"safety_reserve_mb"`
	SafetyThresholdMB int64 `mapstructure:"safety_threshold_mb"`
	CPULoadThreshold  int   `mapstructure:"cpu_load_threshold"`
	InstanceMemoryMB  int64 `mapstructure:"instance_memory_mb"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// BatchConfig 批量模式配置
type BatchConfig struct {
	Rate            float64 `mapstructure:"rate"`
	ContinueOnError bool    `mapstructure:"continue_on_error"`
	OutputDir       string  `mapstructure:"output_dir"`
	Format          string  `mapstructure:"format"`
}

// LoadConfig 加载配置
// 执行流程:
//  1. 加载 .env (不存在时忽略)
//  2. 设置默认值
//  3. 读取配置文件 (未指定且默认位置不存在时只用默认值)
//  4. 环境变量覆盖
//  5. 绑定到结构体并校验
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载.env失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := validateFileSize(configPath); err != nil {
			return nil, err
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".threadcrawl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
		// 配置文件不存在,使用默认值
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{
			FilePath: v.ConfigFileUsed(),
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: err}
	}
	return &cfg, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	session := crawlers.DefaultSessionConfig()
	loader := crawlers.DefaultLoaderPolicy()
	resource := crawlers.DefaultResourceMonitorConfig()
	logging := utils.DefaultLogConfig()

	// 渲染实例
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.pool_size", crawlers.DefaultPoolCapacity)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.viewport.width", session.ViewportWidth)
	v.SetDefault("browser.viewport.height", session.ViewportHeight)
	v.SetDefault("browser.viewport.jitter", session.ViewportJitter)

	// 提取
	v.SetDefault("extract.timeout_ms", int(models.DefaultTimeout/time.Millisecond))
	v.SetDefault("extract.max_posts", models.DefaultMaxPosts)
	v.SetDefault("extract.auth_cookie", "")

	// 加载策略
	v.SetDefault("loader.expand_settle", loader.ExpandSettle)
	v.SetDefault("loader.scroll_delta", loader.ScrollDelta)
	v.SetDefault("loader.scroll_delay", loader.ScrollDelay)
	v.SetDefault("loader.stable_rounds", loader.StableRounds)
	v.SetDefault("loader.safety_margin", loader.SafetyMargin)

	// 会话
	v.SetDefault("session.first_post_timeout", session.FirstPostTimeout)
	v.SetDefault("session.settle_delay", session.SettleDelay)
	v.SetDefault("session.cookie_domain", session.CookieDomain)

	// 缓存
	v.SetDefault("cache.ttl", core.DefaultCacheTTL)
	v.SetDefault("cache.max_entries", core.DefaultCacheEntries)

	// 服务
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// 资源
	v.SetDefault("resource.enabled", true)
	v.SetDefault("resource.safety_reserve_mb", resource.SafetyReserveMemory/mb)
	v.SetDefault("resource.safety_threshold_mb", resource.SafetyThreshold/mb)
	v.SetDefault("resource.cpu_load_threshold", resource.CPULoadThreshold)
	v.SetDefault("resource.instance_memory_mb", resource.InstanceMemoryUsage/mb)

	// 日志
	v.SetDefault("logging.level", logging.Level)
	v.SetDefault("logging.log_dir", logging.LogDir)
	v.SetDefault("logging.rotation.max_size", logging.MaxSize)
	v.SetDefault("logging.rotation.max_backups", logging.MaxBackups)
	v.SetDefault("logging.rotation.max_age", logging.MaxAge)
	v.SetDefault("logging.rotation.compress", logging.Compress)

	// 批量
	v.SetDefault("batch.rate", 0.5)
	v.SetDefault("batch.continue_on_error", true)
	v.SetDefault("batch.output_dir", "output")
	v.SetDefault("batch.format", formatter.FormatJSON)
}

const mb = 1024 * 1024

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Browser.PoolSize < 1 || c.Browser.PoolSize > 32 {
		return fmt.Errorf("browser.pool_size 必须在1-32之间,当前值: %d", c.Browser.PoolSize)
	}
	if c.Extract.TimeoutMs < 0 {
		return fmt.Errorf("extract.timeout_ms 不能为负数")
	}
	if c.Extract.MaxPosts < 0 || c.Extract.MaxPosts > 1000 {
		return fmt.Errorf("extract.max_posts 必须在0-1000之间,当前值: %d", c.Extract.MaxPosts)
	}
	if c.Loader.StableRounds < 1 {
		return fmt.Errorf("loader.stable_rounds 必须大于0")
	}
	if !formatter.IsValid(c.Batch.Format) {
		return fmt.Errorf("batch.format 无效: %s (可选: %s)", c.Batch.Format, strings.Join(formatter.Formats, ", "))
	}
	if c.Batch.Rate < 0 {
		return fmt.Errorf("batch.rate 不能为负数")
	}
	return nil
}

// BrowserOptions 渲染实例启动参数
func (c *Config) BrowserOptions() crawlers.BrowserConfig {
	return crawlers.BrowserConfig{
		Headless:  c.Browser.Headless,
		Bin:       c.Browser.Bin,
		RemoteURL: c.Browser.RemoteURL,
		Stealth:   c.Browser.Stealth,
	}
}

// ResourceMonitorOptions 资源监控参数,未启用时返回false
func (c *Config) ResourceMonitorOptions() (crawlers.ResourceMonitorConfig, bool) {
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMemory: c.Resource.SafetyReserveMB * mb,
		SafetyThreshold:     c.Resource.SafetyThresholdMB * mb,
		CPULoadThreshold:    c.Resource.CPULoadThreshold,
		InstanceMemoryUsage: c.Resource.InstanceMemoryMB * mb,
	}, c.Resource.Enabled
}

// EngineOptions 引擎的时间策略与默认选项
func (c *Config) EngineOptions() core.EngineConfig {
	session := crawlers.DefaultSessionConfig()
	if c.Browser.UserAgent != "" {
		session.UserAgent = c.Browser.UserAgent
	}
	session.ViewportWidth = c.Browser.Viewport.Width
	session.ViewportHeight = c.Browser.Viewport.Height
	session.ViewportJitter = c.Browser.Viewport.Jitter
	session.FirstPostTimeout = c.Session.FirstPostTimeout
	session.SettleDelay = c.Session.SettleDelay
	session.CookieDomain = c.Session.CookieDomain

	loader := crawlers.DefaultLoaderPolicy()
	loader.ExpandSettle = c.Loader.ExpandSettle
	loader.ScrollDelta = c.Loader.ScrollDelta
	loader.ScrollDelay = c.Loader.ScrollDelay
	loader.StableRounds = c.Loader.StableRounds
	loader.SafetyMargin = c.Loader.SafetyMargin

	return core.EngineConfig{
		Session:  session,
		Loader:   loader,
		Defaults: c.ExtractDefaults(),
	}
}

// ExtractDefaults 单次提取的默认选项
func (c *Config) ExtractDefaults() models.ExtractOptions {
	return models.ExtractOptions{
		TimeoutMs:  c.Extract.TimeoutMs,
		MaxPosts:   c.Extract.MaxPosts,
		AuthCookie: c.Extract.AuthCookie,
	}.WithDefaults()
}

// LogOptions 日志参数
func (c *Config) LogOptions() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// EnsureConfigExists 配置文件不存在时写入模板
// 返回是否新建了文件
func EnsureConfigExists(path string) (bool, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("无法读取配置文件信息 [%s]: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(defaultTemplate), 0644); err != nil {
		return false, fmt.Errorf("无法生成配置文件 [%s]: %w", path, err)
	}
	return true, nil
}

// validateFileSize 验证配置文件大小是否在限制内
func validateFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &models.ConfigError{FilePath: path, Cause: err}
	}
	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: path,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}
	return nil
}
