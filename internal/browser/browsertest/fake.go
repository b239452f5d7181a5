// Package browsertest 提供内存中的browser.Driver实现,用于测试
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

// Page 某个URL导航后的页面状态
type Page struct {
	FinalURL string        // 导航后的当前URL,为空时等于请求的URL
	Source   string        // 页面源码
	NoLoad   bool          // WaitLoaded返回false
	NavErr   error         // Navigate返回的错误
	Panic    any           // Navigate时panic
	Delay    time.Duration // Navigate耗时,超过页面加载超时时按超时返回
}

// Driver 可编程的假驱动
// 同时进入多个方法会被记为并发违规
type Driver struct {
	mu           sync.Mutex
	pages        map[string]Page
	fallback     Page
	current      string
	userAgent    string
	scrollHeight int
	calls        []string
	scripts      []string

	inFlight   atomic.Int32
	violations atomic.Int32
	quits      atomic.Int32
	navigates  atomic.Int32
	quitErr    error
}

// New 创建假驱动,未登记的URL默认加载成功且当前URL等于请求URL
func New() *Driver {
	return &Driver{pages: make(map[string]Page)}
}

// SetPage 登记URL对应的页面
func (d *Driver) SetPage(url string, p Page) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[url] = p
	return d
}

// SetFallback 设置未登记URL的页面
func (d *Driver) SetFallback(p Page) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = p
	return d
}

// SetScrollHeight 设置document.body.scrollHeight
func (d *Driver) SetScrollHeight(h int) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrollHeight = h
	return d
}

// SetQuitError 设置Quit返回的错误
func (d *Driver) SetQuitError(err error) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quitErr = err
	return d
}

func (d *Driver) enter(call string) func() {
	if d.inFlight.Add(1) > 1 {
		d.violations.Add(1)
	}
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
	return func() { d.inFlight.Add(-1) }
}

func (d *Driver) page(url string) Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pages[url]; ok {
		return p
	}
	return d.fallback
}

// Navigate 实现browser.Driver
func (d *Driver) Navigate(url string, timeout time.Duration) error {
	defer d.enter("navigate " + url)()
	d.navigates.Add(1)

	p := d.page(url)
	if timeout > 0 && p.Delay > timeout {
		time.Sleep(timeout)
		return fmt.Errorf("%w: %s", models.ErrPageLoadTimeout, url)
	}
	if p.Delay > 0 {
		time.Sleep(p.Delay)
	}
	if p.Panic != nil {
		panic(p.Panic)
	}
	if p.NavErr != nil {
		return p.NavErr
	}

	d.mu.Lock()
	d.current = url
	d.mu.Unlock()
	return nil
}

// WaitLoaded 实现browser.Driver
func (d *Driver) WaitLoaded(time.Duration) bool {
	defer d.enter("wait")()
	d.mu.Lock()
	current := d.current
	d.mu.Unlock()
	return !d.page(current).NoLoad
}

// OverrideUserAgent 实现browser.Driver
func (d *Driver) OverrideUserAgent(ua string) error {
	defer d.enter("ua " + ua)()
	d.mu.Lock()
	d.userAgent = ua
	d.mu.Unlock()
	return nil
}

// CurrentURL 实现browser.Driver
func (d *Driver) CurrentURL() (string, error) {
	defer d.enter("url")()
	d.mu.Lock()
	current := d.current
	d.mu.Unlock()
	if p := d.page(current); p.FinalURL != "" {
		return p.FinalURL, nil
	}
	return current, nil
}

// PageSource 实现browser.Driver
func (d *Driver) PageSource() (string, error) {
	defer d.enter("source")()
	d.mu.Lock()
	current := d.current
	d.mu.Unlock()
	return d.page(current).Source, nil
}

// RunScript 实现browser.Driver,只识别scrollHeight查询和scrollTo
func (d *Driver) RunScript(js string) (any, error) {
	defer d.enter("script")()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, js)
	if js == "() => document.body.scrollHeight" {
		return float64(d.scrollHeight), nil
	}
	return nil, nil
}

// Quit 实现browser.Driver
func (d *Driver) Quit() error {
	d.quits.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quitErr
}

// Quits Quit被调用的次数
func (d *Driver) Quits() int {
	return int(d.quits.Load())
}

// Navigates Navigate被调用的次数
func (d *Driver) Navigates() int {
	return int(d.navigates.Load())
}

// Violations 并发进入驱动的次数
func (d *Driver) Violations() int {
	return int(d.violations.Load())
}

// UserAgent 最近设置的User-Agent
func (d *Driver) UserAgent() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userAgent
}

// Calls 调用记录的副本
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Scripts 执行过的脚本
func (d *Driver) Scripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.scripts...)
}

// Launcher 返回总是产生该驱动的启动器
func (d *Driver) Launcher() browser.Launcher {
	return browser.LauncherFunc(func(context.Context, browser.LaunchOptions) (browser.Driver, error) {
		return d, nil
	})
}

// FailingLauncher 总是启动失败的启动器
func FailingLauncher(msg string) browser.Launcher {
	return browser.LauncherFunc(func(context.Context, browser.LaunchOptions) (browser.Driver, error) {
		return nil, fmt.Errorf("启动浏览器失败: %w", errors.New(msg))
	})
}
