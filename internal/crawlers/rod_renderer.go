package crawlers

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig 浏览器启动配置
type BrowserConfig struct {
	Headless  bool   // 无头模式
	Bin       string // 浏览器可执行文件路径,为空时自动查找/下载
	RemoteURL string // 远程浏览器的WebSocket地址,非空时不在本地启动
	Stealth   bool   // 使用stealth脚本创建标签页
}

// NewRodLauncher 返回基于go-rod的实例创建函数
func NewRodLauncher(cfg BrowserConfig) Launcher {
	return func(ctx context.Context) (Browser, error) {
		return launchRod(ctx, cfg)
	}
}

// rodBrowser go-rod浏览器实例
type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	stealth  bool
}

// 实例生命周期长于单个任务,启动进程不绑定任务context
func launchRod(ctx context.Context, cfg BrowserConfig) (*rodBrowser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		controlURL string
		l          *launcher.Launcher
	)

	if cfg.RemoteURL != "" {
		controlURL = cfg.RemoteURL
		utils.Debugf("连接远程浏览器: %s", controlURL)
	} else {
		l = launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}

		// 允许自签名证书,并隐藏自动化特征
		l = l.Set("ignore-certificate-errors").
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("启动浏览器失败: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	return &rodBrowser{browser: b, launcher: l, stealth: cfg.Stealth}, nil
}

// NewPage 打开新标签页
func (rb *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if rb.stealth {
		page, err = stealth.Page(rb.browser)
	} else {
		page, err = rb.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败(浏览器可能已崩溃): %w", err)
	}
	return &rodPage{page: page}, nil
}

// Connected 通过一次轻量CDP调用探测连接
func (rb *rodBrowser) Connected() bool {
	_, err := proto.BrowserGetVersion{}.Call(rb.browser.Timeout(3 * time.Second))
	return err == nil
}

// Close 关闭浏览器并清理本地进程
func (rb *rodBrowser) Close() error {
	err := rb.browser.Close()
	if rb.launcher != nil {
		rb.launcher.Cleanup()
	}
	return err
}

// rodPage go-rod页面
type rodPage struct {
	page *rod.Page
}

// Navigate 导航并等待网络请求空闲
func (rp *rodPage) Navigate(ctx context.Context, url string) error {
	p := rp.page.Context(ctx)
	wait := p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (rp *rodPage) WaitElement(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := rp.page.Context(ctx).Timeout(timeout).Element(selector)
	return err
}

func (rp *rodPage) SetViewport(ctx context.Context, width, height int) error {
	return rp.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func (rp *rodPage) SetUserAgent(ctx context.Context, userAgent string) error {
	return rp.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: userAgent,
	})
}

func (rp *rodPage) SetCookie(ctx context.Context, cookie Cookie) error {
	return rp.page.Context(ctx).SetCookies([]*proto.NetworkCookieParam{{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   cookie.Domain,
		Path:     cookie.Path,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HTTPOnly,
	}})
}

func (rp *rodPage) HTML(ctx context.Context) (string, error) {
	return rp.page.Context(ctx).HTML()
}

func (rp *rodPage) Count(ctx context.Context, selector string) (int, error) {
	res, err := rp.page.Context(ctx).Eval(`(sel) => document.querySelectorAll(sel).length`, selector)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// ClickByText 在页面内查找文本命中的可交互元素并逐个点击
func (rp *rodPage) ClickByText(ctx context.Context, selector string, phrases []string) (int, error) {
	res, err := rp.page.Context(ctx).Eval(`(sel, phrases) => {
		var clicked = 0;
		var nodes = document.querySelectorAll(sel);
		for (var i = 0; i < nodes.length; i++) {
			var el = nodes[i];
			var text = (el.innerText || el.textContent || '').trim().toLowerCase();
			if (!text || el.offsetParent === null) {
				continue;
			}
			for (var j = 0; j < phrases.length; j++) {
				if (text === phrases[j] || text.indexOf(phrases[j]) === 0) {
					try {
						el.click();
						clicked++;
					} catch (e) {
						// ignore
					}
					break;
				}
			}
		}
		return clicked;
	}`, selector, phrases)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (rp *rodPage) ScrollBy(ctx context.Context, dy int) error {
	_, err := rp.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (rp *rodPage) Close() error {
	return rp.page.Close()
}
