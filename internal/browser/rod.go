package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// RodLauncher 基于go-rod启动Chrome
type RodLauncher struct {
	logger zerolog.Logger
}

// NewRodLauncher 创建go-rod启动器
func NewRodLauncher(logger zerolog.Logger) *RodLauncher {
	return &RodLauncher{logger: logger}
}

// Launch 启动浏览器并打开一个标签页
func (rl *RodLauncher) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	l := rl.configure(opts)

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, &models.SetupError{Stage: "launch", Cause: fmt.Errorf("启动浏览器失败: %w", err), Hints: models.DefaultSetupHints}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, &models.SetupError{Stage: "connect", Cause: fmt.Errorf("连接浏览器失败: %w", err), Hints: models.DefaultSetupHints}
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, &models.SetupError{Stage: "page", Cause: fmt.Errorf("创建标签页失败: %w", err), Hints: models.DefaultSetupHints}
	}

	rl.logger.Debug().Str("control_url", controlURL).Msg("浏览器已启动")

	return &RodDriver{
		launcher: l,
		browser:  browser,
		page:     page,
		logger:   rl.logger,
	}, nil
}

// configure 构建启动参数
func (rl *RodLauncher) configure(opts LaunchOptions) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")

	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		l = l.Set("window-size", strconv.Itoa(opts.WindowWidth)+","+strconv.Itoa(opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}
	if opts.BinPath != "" {
		l = l.Bin(opts.BinPath)
	}

	for _, raw := range opts.ExtraFlags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(raw, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	return l
}

// RodDriver 通过go-rod控制单个标签页
type RodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   zerolog.Logger
}

// Navigate 导航到URL并等待load事件
// 监听在导航前注册,不会被上一个文档的load事件满足
func (d *RodDriver) Navigate(url string, timeout time.Duration) error {
	p := d.page.Timeout(timeout)
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := p.Navigate(url); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", models.ErrPageLoadTimeout, url)
		}
		return fmt.Errorf("导航失败 [%s]: %w", url, err)
	}
	wait()

	if errors.Is(p.GetContext().Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", models.ErrPageLoadTimeout, url)
	}
	return nil
}

// WaitLoaded 确认已加载文档中存在<body>,超时返回false
func (d *RodDriver) WaitLoaded(timeout time.Duration) bool {
	p := d.page.Timeout(timeout)
	defer p.CancelTimeout()

	if _, err := p.Element("body"); err != nil {
		d.logger.Debug().Err(err).Dur("timeout", timeout).Msg("等待页面加载失败")
		return false
	}
	return true
}

// OverrideUserAgent 运行期修改User-Agent(Network.setUserAgentOverride)
func (d *RodDriver) OverrideUserAgent(ua string) error {
	if err := d.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		return fmt.Errorf("设置User-Agent失败: %w", err)
	}
	return nil
}

// CurrentURL 返回当前地址
func (d *RodDriver) CurrentURL() (string, error) {
	info, err := d.page.Info()
	if err != nil {
		return "", fmt.Errorf("获取当前URL失败: %w", err)
	}
	return info.URL, nil
}

// PageSource 返回页面HTML
func (d *RodDriver) PageSource() (string, error) {
	html, err := d.page.HTML()
	if err != nil {
		return "", fmt.Errorf("获取页面源码失败: %w", err)
	}
	return html, nil
}

// RunScript 执行JS表达式,js需为函数形式,例如 "() => document.title"
func (d *RodDriver) RunScript(js string) (any, error) {
	obj, err := d.page.Eval(js)
	if err != nil {
		return nil, fmt.Errorf("执行脚本失败: %w", err)
	}
	return obj.Value.Val(), nil
}

// Quit 关闭浏览器并清理用户数据目录
func (d *RodDriver) Quit() error {
	err := d.browser.Close()
	d.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("关闭浏览器失败: %w", err)
	}
	d.logger.Debug().Msg("浏览器已关闭")
	return nil
}
