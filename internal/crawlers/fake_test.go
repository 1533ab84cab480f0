package crawlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakePage 脚本化的页面: 按调用次数返回预设的计数和点击数
type fakePage struct {
	mu sync.Mutex

	html   string
	counts []int // 第i次Count的返回值,用完后重复最后一个
	clicks []int // 第i次ClickByText的返回值,用完后返回0

	countErr error
	clickErr error
	navErr   error
	waitErr  error

	onNavigate func() // 导航进行中触发,用于模拟中途取消

	calls      []string
	countCalls int
	clickCalls int
	scrolls    int
	viewport   [2]int
	userAgent  string
	cookies    []Cookie
	navigated  string
	closed     bool
}

func (p *fakePage) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate")
	if err := ctx.Err(); err != nil {
		return err
	}
	p.navigated = url
	if p.onNavigate != nil {
		p.onNavigate()
	}
	return p.navErr
}

func (p *fakePage) WaitElement(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait")
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.waitErr
}

func (p *fakePage) SetViewport(ctx context.Context, width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("viewport")
	p.viewport = [2]int{width, height}
	return nil
}

func (p *fakePage) SetUserAgent(ctx context.Context, userAgent string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("useragent")
	p.userAgent = userAgent
	return nil
}

func (p *fakePage) SetCookie(ctx context.Context, cookie Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("cookie")
	p.cookies = append(p.cookies, cookie)
	return nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.html, nil
}

func (p *fakePage) Count(ctx context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.countErr != nil {
		return 0, p.countErr
	}
	if len(p.counts) == 0 {
		return 0, nil
	}
	i := min(p.countCalls, len(p.counts)-1)
	p.countCalls++
	return p.counts[i], nil
}

func (p *fakePage) ClickByText(ctx context.Context, selector string, phrases []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.clickErr != nil {
		return 0, p.clickErr
	}
	n := 0
	if p.clickCalls < len(p.clicks) {
		n = p.clicks[p.clickCalls]
	}
	p.clickCalls++
	return n, nil
}

func (p *fakePage) ScrollBy(ctx context.Context, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	p.scrolls++
	return nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// fakeBrowser 每次NewPage返回newPage生成的页面
type fakeBrowser struct {
	mu        sync.Mutex
	id        int
	newPage   func() *fakePage
	pages     []*fakePage
	pageErr   error
	connected bool
	closed    bool
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	page := &fakePage{}
	if b.newPage != nil {
		page = b.newPage()
	}
	b.pages = append(b.pages, page)
	return page, nil
}

func (b *fakeBrowser) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.connected = false
	return nil
}

func (b *fakeBrowser) disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

func (b *fakeBrowser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// fakeLauncher 记录创建过的实例
type fakeLauncher struct {
	mu       sync.Mutex
	browsers []*fakeBrowser
	err      error
}

func (l *fakeLauncher) launch(ctx context.Context) (Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	b := &fakeBrowser{id: len(l.browsers) + 1, connected: true}
	l.browsers = append(l.browsers, b)
	return b, nil
}

func (l *fakeLauncher) launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.browsers)
}

var errFakeLaunch = errors.New("浏览器启动失败")

// fixturePost 测试用帖子
type fixturePost struct {
	Handle   string
	Name     string
	ID       string
	Time     string
	Text     string
	Images   []string
	Video    string
	Poster   string
	Likes    string
	Views    string
	Replies  string
	Emoji    string
	Connects bool
}

func (f fixturePost) html() string {
	var sb strings.Builder
	sb.WriteString(`<article data-testid="tweet">`)
	if f.Connects {
		sb.WriteString(`<div data-testid="thread-connector"></div>`)
	}
	sb.WriteString(`<div data-testid="Tweet-User-Avatar"><img src="https://pbs.twimg.com/profile_images/` + f.Handle + `.jpg"></div>`)
	fmt.Fprintf(&sb, `<div data-testid="User-Name"><a href="/%s"><span><span>%s</span></span></a>`, f.Handle, f.Name)
	fmt.Fprintf(&sb, `<a href="/%s"><span>@%s</span></a>`, f.Handle, f.Handle)
	if f.Time != "" {
		fmt.Fprintf(&sb, `<a href="/%s/status/%s"><time datetime="%s">Jan 1</time></a>`, f.Handle, f.ID, f.Time)
	}
	sb.WriteString(`</div>`)
	if f.Text != "" || f.Emoji != "" {
		sb.WriteString(`<div data-testid="tweetText"><span>` + f.Text + `</span>`)
		if f.Emoji != "" {
			sb.WriteString(`<img alt="` + f.Emoji + `" src="https://abs-0.twimg.com/emoji/v2/svg/1f680.svg">`)
		}
		sb.WriteString(`</div>`)
	}
	for _, img := range f.Images {
		sb.WriteString(`<div data-testid="tweetPhoto"><img src="` + img + `"></div>`)
	}
	if f.Video != "" || f.Poster != "" {
		fmt.Fprintf(&sb, `<video src="%s" poster="%s"></video>`, f.Video, f.Poster)
	}
	if f.Replies != "" {
		fmt.Fprintf(&sb, `<button data-testid="reply" aria-label="%s"></button>`, f.Replies)
	}
	if f.Likes != "" {
		fmt.Fprintf(&sb, `<button data-testid="like" aria-label="%s"></button>`, f.Likes)
	}
	if f.Views != "" {
		fmt.Fprintf(&sb, `<a href="/%s/status/%s/analytics" aria-label="%s"></a>`, f.Handle, f.ID, f.Views)
	}
	sb.WriteString(`</article>`)
	return sb.String()
}

func pageHTML(extra string, posts ...fixturePost) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><main>`)
	for _, p := range posts {
		sb.WriteString(p.html())
	}
	sb.WriteString(extra)
	sb.WriteString(`</main></body></html>`)
	return sb.String()
}
