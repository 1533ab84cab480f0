package crawlers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

const (
	// DefaultUserAgent 固定的桌面浏览器标识
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/124.0.0.0 Safari/537.36"

	// AuthCookieName 登录凭证Cookie名
	AuthCookieName = "auth_token"
)

// SessionConfig 会话准备阶段的参数
type SessionConfig struct {
	UserAgent        string
	ViewportWidth    int           // 基础视口宽度
	ViewportJitter   int           // 宽度随机抖动范围 [0, jitter)
	ViewportHeight   int
	FirstPostTimeout time.Duration // 等待首条帖子出现的超时
	SettleDelay      time.Duration // 首条帖子出现后等待会话面板填充
	CookieDomain     string
}

// DefaultSessionConfig 默认会话参数
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		UserAgent:        DefaultUserAgent,
		ViewportWidth:    1280,
		ViewportJitter:   100,
		ViewportHeight:   900,
		FirstPostTimeout: 15 * time.Second,
		SettleDelay:      2 * time.Second,
		CookieDomain:     "." + models.PlatformHost,
	}
}

// PrepareSession 打开页面、设置身份、注入凭证并导航到目标帖子
// 失败时页面已关闭。调用方的ctx已结束时返回的错误保留取消原因,否则归类为导航失败
func PrepareSession(ctx context.Context, browser Browser, target models.ExtractionTarget, authCookie string, cfg SessionConfig) (Page, error) {
	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, sessionError(ctx, err, "打开页面失败")
	}

	if err := setupPage(ctx, page, target, authCookie, cfg); err != nil {
		if closeErr := page.Close(); closeErr != nil {
			utils.Debugf("关闭页面失败: %v", closeErr)
		}
		return nil, err
	}
	return page, nil
}

func setupPage(ctx context.Context, page Page, target models.ExtractionTarget, authCookie string, cfg SessionConfig) error {
	width := cfg.ViewportWidth
	if cfg.ViewportJitter > 0 {
		width += rand.Intn(cfg.ViewportJitter)
	}
	if err := page.SetViewport(ctx, width, cfg.ViewportHeight); err != nil {
		return sessionError(ctx, err, "设置视口失败")
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if err := page.SetUserAgent(ctx, userAgent); err != nil {
		return sessionError(ctx, err, "设置UA失败")
	}

	// 凭证必须在导航前注入
	if authCookie != "" {
		cookie := Cookie{
			Name:     AuthCookieName,
			Value:    authCookie,
			Domain:   cfg.CookieDomain,
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
		}
		if err := page.SetCookie(ctx, cookie); err != nil {
			return sessionError(ctx, err, "注入Cookie失败")
		}
		utils.Debugf("已注入登录凭证: %s", utils.RedactSecret(authCookie))
	}

	targetURL := target.URL()
	if err := page.Navigate(ctx, targetURL); err != nil {
		return sessionError(ctx, err, fmt.Sprintf("导航到 %s 失败", targetURL))
	}

	if err := page.WaitElement(ctx, PostSelector, cfg.FirstPostTimeout); err != nil {
		return sessionError(ctx, err, fmt.Sprintf("%s 内未出现帖子", cfg.FirstPostTimeout))
	}

	// 等待页面自身的异步填充
	if err := sleepCtx(ctx, cfg.SettleDelay); err != nil {
		return sessionError(ctx, err, "等待页面填充中断")
	}
	return nil
}

// sessionError 包装会话阶段的错误
// ctx已结束时只保留取消原因,首帖等待自身的超时仍算导航失败
func sessionError(ctx context.Context, err error, msg string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(err, ctxErr) {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return fmt.Errorf("%s: %w (%v)", msg, ctxErr, err)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrNavigation, msg, err)
}
