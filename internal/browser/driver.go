// Package browser 管理共享浏览器会话
//
// 一次运行只创建一个浏览器进程,所有worker通过Session共享它。
// 对页面的访问必须由调用方串行化(见core.Dispatcher的浏览器闸门)。
package browser

import (
	"context"
	"time"
)

// Driver 浏览器驱动的最小操作集合
// 所有方法都作用于同一个标签页,实现不保证并发安全
type Driver interface {
	// Navigate 导航并等待新文档load事件,整个过程受timeout约束
	// 超时返回的错误满足errors.Is(err, models.ErrPageLoadTimeout)
	Navigate(url string, timeout time.Duration) error
	WaitLoaded(timeout time.Duration) bool
	OverrideUserAgent(ua string) error
	CurrentURL() (string, error)
	PageSource() (string, error)
	RunScript(js string) (any, error)
	Quit() error
}

// Launcher 根据启动参数创建Driver
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Driver, error)
}

// LaunchOptions 浏览器启动参数
type LaunchOptions struct {
	Headless        bool
	WindowWidth     int
	WindowHeight    int
	UserAgent       string        // 初始User-Agent,为空时使用浏览器默认值
	Proxy           string        // scheme://host:port,为空表示直连
	BinPath         string        // 浏览器可执行文件,为空时自动查找或下载
	ExtraFlags      []string      // 额外命令行参数,格式 name 或 name=value
	PageLoadTimeout time.Duration // 页面加载超时
}

// DefaultLaunchOptions 返回默认启动参数
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Headless:        true,
		WindowWidth:     1920,
		WindowHeight:    1080,
		PageLoadTimeout: 30 * time.Second,
	}
}

// LauncherFunc 将普通函数适配为Launcher
type LauncherFunc func(ctx context.Context, opts LaunchOptions) (Driver, error)

// Launch 实现Launcher接口
func (f LauncherFunc) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	return f(ctx, opts)
}
