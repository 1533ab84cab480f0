package crawlers

import (
	"context"
	"time"
)

// Cookie 注入到页面的Cookie
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Browser 一个可复用的渲染实例(浏览器进程)
type Browser interface {
	// NewPage 打开一个新标签页
	NewPage(ctx context.Context) (Page, error)

	// Connected 实例是否仍然可用
	Connected() bool

	// Close 关闭实例,释放进程
	Close() error
}

// Launcher 创建新的渲染实例
type Launcher func(ctx context.Context) (Browser, error)

// Page 渲染页面的操作能力
// 所有阻塞调用都接受context,context取消即中止
type Page interface {
	// Navigate 导航到URL并等待网络空闲
	Navigate(ctx context.Context, url string) error

	// WaitElement 等待选择器出现,超过timeout返回错误
	WaitElement(ctx context.Context, selector string, timeout time.Duration) error

	SetViewport(ctx context.Context, width, height int) error
	SetUserAgent(ctx context.Context, userAgent string) error
	SetCookie(ctx context.Context, cookie Cookie) error

	// HTML 返回当前DOM的完整HTML
	HTML(ctx context.Context) (string, error)

	// Count 返回匹配选择器的元素个数
	Count(ctx context.Context, selector string) (int, error)

	// ClickByText 点击所有可见文本命中phrases之一的元素,返回点击数量
	ClickByText(ctx context.Context, selector string, phrases []string) (int, error)

	// ScrollBy 纵向滚动指定像素
	ScrollBy(ctx context.Context, dy int) error

	Close() error
}

// sleepCtx 可被context中断的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
