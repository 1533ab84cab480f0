package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RecoveryAshes/ThreadCrawl/internal/crawlers"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

// Extractor 提取能力,供批量模式和HTTP接口使用
type Extractor interface {
	Extract(ctx context.Context, rawURL string, opts models.ExtractOptions) (*models.ThreadResult, error)
}

// EngineConfig 引擎的时间策略
type EngineConfig struct {
	Session  crawlers.SessionConfig
	Loader   crawlers.LoaderPolicy
	Defaults models.ExtractOptions // 调用方未指定时使用
}

// DefaultEngineConfig 默认配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Session:  crawlers.DefaultSessionConfig(),
		Loader:   crawlers.DefaultLoaderPolicy(),
		Defaults: models.ExtractOptions{}.WithDefaults(),
	}
}

// Engine 提取流水线协调器
// 执行流程:
//  1. 解析URL(失败时不占用渲染实例)
//  2. 查询缓存
//  3. 借出渲染实例并准备会话
//  4. 判定是否为串帖
//  5. 串帖: 增量加载 -> 提取 -> 组装; 单帖: 直接提取目标帖子
//  6. 写入缓存
//
// 页面关闭和实例归还在所有退出路径上执行
type Engine struct {
	pool   *crawlers.BrowserPool
	cache  *ResultCache
	config EngineConfig
}

// EngineStats 引擎状态
type EngineStats struct {
	Pool         crawlers.PoolStats `json:"pool"`
	CacheEntries int                `json:"cacheEntries"`
}

// NewEngine 创建提取引擎
func NewEngine(pool *crawlers.BrowserPool, cache *ResultCache, config EngineConfig) *Engine {
	return &Engine{pool: pool, cache: cache, config: config}
}

// Stats 返回池和缓存状态
func (e *Engine) Stats() EngineStats {
	stats := EngineStats{Pool: e.pool.Stats()}
	if e.cache != nil {
		stats.CacheEntries = e.cache.Len()
	}
	return stats
}

// Extract 提取URL对应的帖子或串帖
// 失败时返回 *models.ExtractError,可用errors.Is判断具体分类
func (e *Engine) Extract(ctx context.Context, rawURL string, opts models.ExtractOptions) (*models.ThreadResult, error) {
	jobID := models.NewJobID()
	logger := log.With().Str("job", jobID).Str("url", rawURL).Logger()

	fail := func(err error) (*models.ThreadResult, error) {
		logger.Warn().Err(err).Str("kind", models.ErrorKind(err)).Msg("提取失败")
		return nil, &models.ExtractError{URL: rawURL, JobID: jobID, Cause: err}
	}

	target, err := models.ParseTarget(rawURL)
	if err != nil {
		return fail(err)
	}
	opts = e.mergeDefaults(opts)
	if err := opts.Validate(); err != nil {
		return fail(fmt.Errorf("%w: %v", models.ErrInvalidTarget, err))
	}
	logger = logger.With().Str("author", target.Author).Str("post_id", target.PostID).Logger()

	if e.cache != nil {
		if cached, ok := e.cache.Get(target.CacheKey()); ok {
			logger.Info().Int("count", cached.ThreadLength).Msg("命中缓存")
			return cached, nil
		}
	}

	jobCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	result, err := e.run(jobCtx, target, opts, logger)
	if err != nil {
		return fail(err)
	}

	if e.cache != nil {
		e.cache.Put(target.CacheKey(), result)
	}
	logger.Info().
		Bool("thread", result.IsThread).
		Int("count", result.ThreadLength).
		Dur("elapsed", time.Since(start)).
		Msg("提取完成")
	return result, nil
}

func (e *Engine) mergeDefaults(opts models.ExtractOptions) models.ExtractOptions {
	if opts.Timeout <= 0 && opts.TimeoutMs <= 0 {
		opts.Timeout = e.config.Defaults.Timeout
	}
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = e.config.Defaults.MaxPosts
	}
	if opts.AuthCookie == "" {
		opts.AuthCookie = e.config.Defaults.AuthCookie
	}
	return opts.WithDefaults()
}

func (e *Engine) run(ctx context.Context, target models.ExtractionTarget, opts models.ExtractOptions, logger zerolog.Logger) (*models.ThreadResult, error) {
	pb, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(pb)
	logger.Debug().Int("instance", pb.ID).Msg("已借出渲染实例")

	page, err := crawlers.PrepareSession(ctx, pb.Browser, target, opts.AuthCookie, e.config.Session)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug().Err(err).Msg("关闭页面失败")
		}
	}()

	signals, err := crawlers.IsThread(ctx, page, target.Author)
	if err != nil {
		return nil, pageError(ctx, err)
	}
	logger.Debug().
		Bool("marker", signals.ExplicitMarker).
		Int("author_posts", signals.AuthorPosts).
		Bool("connector", signals.ConnectorLine).
		Msg("串帖判定")

	if !signals.IsThread() {
		return e.singlePost(ctx, page, target)
	}
	return e.thread(ctx, page, target, opts, logger)
}

// singlePost 非串帖时只返回目标帖子
func (e *Engine) singlePost(ctx context.Context, page crawlers.Page, target models.ExtractionTarget) (*models.ThreadResult, error) {
	records, err := crawlers.ExtractAll(ctx, page)
	if err != nil {
		return nil, pageError(ctx, err)
	}

	record, ok := pickTargetPost(records, target)
	if !ok {
		return nil, fmt.Errorf("%w: 页面上没有 @%s 的帖子", models.ErrEmptyExtraction, target.Author)
	}

	result, err := Assemble([]models.RawPostRecord{record}, target.Author, target.URL())
	if err != nil {
		return nil, err
	}
	result.IsThread = false
	return result, nil
}

// pickTargetPost 优先选择永久链接指向目标ID的作者帖子,否则取第一条作者帖子
func pickTargetPost(records []models.RawPostRecord, target models.ExtractionTarget) (models.RawPostRecord, bool) {
	var (
		fallback models.RawPostRecord
		found    bool
	)
	suffix := "/status/" + target.PostID
	for _, r := range records {
		if !models.SameAuthor(r.AuthorHandle, target.Author) {
			continue
		}
		if strings.HasSuffix(r.Permalink, suffix) || strings.Contains(r.Permalink, suffix+"/") {
			return r, true
		}
		if !found {
			fallback, found = r, true
		}
	}
	return fallback, found
}

func (e *Engine) thread(ctx context.Context, page crawlers.Page, target models.ExtractionTarget, opts models.ExtractOptions, logger zerolog.Logger) (*models.ThreadResult, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(opts.Timeout)
	}
	deadline = deadline.Add(-e.config.Loader.SafetyMargin)

	stats, err := crawlers.LoadAll(ctx, page, deadline, opts.MaxPosts, e.config.Loader)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("rounds", stats.Rounds).
		Int("clicks", stats.Clicks).
		Int("posts", stats.Posts).
		Str("exit", string(stats.Exit)).
		Msg("增量加载结束")

	records, err := crawlers.ExtractAll(ctx, page)
	if err != nil {
		return nil, pageError(ctx, err)
	}

	result, err := Assemble(records, target.Author, target.URL())
	if err != nil {
		return nil, err
	}
	// 判定为串帖却只拿到一条作者帖子,说明加载或提取没有看到真实内容
	if result.ThreadLength < 2 {
		return nil, fmt.Errorf("%w: 判定为串帖但只找到 %d 条作者帖子", models.ErrEmptyExtraction, result.ThreadLength)
	}
	if opts.MaxPosts > 0 && len(result.Posts) > opts.MaxPosts {
		utils.Debugf("帖子数 %d 超过上限 %d,截断", len(result.Posts), opts.MaxPosts)
		result.Posts = result.Posts[:opts.MaxPosts]
		result.ThreadLength = opts.MaxPosts
	}
	result.IsThread = true
	return result, nil
}

// pageError 页面读取失败: ctx结束时原样返回,否则归为导航失败
func pageError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(err, ctxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return fmt.Errorf("%w: %v", models.ErrNavigation, err)
}
