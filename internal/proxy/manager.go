// Package proxy 管理和验证代理地址
package proxy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/utils"
	"github.com/rs/zerolog"
	xproxy "golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"
)

// Options 代理管理器配置
type Options struct {
	Type         string        // http, https 或 socks5
	CheckURL     string        // 验证时访问的地址
	CheckTimeout time.Duration // 单个代理验证超时
	Concurrency  int           // 并发验证数
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		Type:         "http",
		CheckURL:     "http://www.baidu.com",
		CheckTimeout: 5 * time.Second,
		Concurrency:  8,
	}
}

// Manager 代理管理器
// 实现 models.ProxyProvider 接口
type Manager struct {
	opts   Options
	logger zerolog.Logger

	mu        sync.Mutex
	proxies   []string
	valid     []string
	validated bool
	current   int
}

// NewManager 创建代理管理器
func NewManager(opts Options, logger zerolog.Logger) *Manager {
	def := DefaultOptions()
	if opts.Type == "" {
		opts.Type = def.Type
	}
	if opts.CheckURL == "" {
		opts.CheckURL = def.CheckURL
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = def.CheckTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	return &Manager{opts: opts, logger: logger, current: -1}
}

// Add 添加代理,格式 host:port 或 user:pass@host:port
func (m *Manager) Add(proxies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			m.proxies = append(m.proxies, p)
			m.validated = false
		}
	}
}

// LoadFile 从文件加载代理,每行一个
func (m *Manager) LoadFile(path string) error {
	list, err := utils.ReadTargetsFromFile(path)
	if err != nil {
		return fmt.Errorf("加载代理文件失败: %w", err)
	}
	m.Add(list...)
	m.logger.Info().Int("count", len(list)).Str("file", path).Msg("已加载代理文件")
	return nil
}

// Proxies 已添加的代理
func (m *Manager) Proxies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.proxies...)
}

// Valid 验证通过的代理
func (m *Manager) Valid() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.valid...)
}

// URL 返回带协议的代理地址,用于浏览器--proxy-server
func (m *Manager) URL(proxy string) string {
	if proxy == "" || strings.Contains(proxy, "://") {
		return proxy
	}
	return m.opts.Type + "://" + proxy
}

// Validate 通过代理访问检测地址,返回200视为可用
func (m *Manager) Validate(ctx context.Context, proxy string) bool {
	client, err := m.client(proxy)
	if err != nil {
		m.logger.Debug().Err(err).Str("proxy", utils.RedactProxy(proxy)).Msg("代理地址无效")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.opts.CheckURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		m.logger.Debug().Err(err).Str("proxy", utils.RedactProxy(proxy)).Msg("代理不可用")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// client 构造经由代理的HTTP客户端
func (m *Manager) client(proxy string) (*http.Client, error) {
	u, err := url.Parse(m.URL(proxy))
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errors.New("代理缺少主机地址")
	}

	transport := &http.Transport{DisableKeepAlives: true}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5":
		var auth *xproxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &xproxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := xproxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{Timeout: m.opts.CheckTimeout})
		if err != nil {
			return nil, err
		}
		contextDialer, ok := dialer.(xproxy.ContextDialer)
		if !ok {
			return nil, errors.New("SOCKS5拨号器不支持context")
		}
		transport.DialContext = contextDialer.DialContext
	default:
		return nil, fmt.Errorf("不支持的代理类型: %s", u.Scheme)
	}

	return &http.Client{Transport: transport, Timeout: m.opts.CheckTimeout}, nil
}

// ValidateAll 并发验证所有代理,返回可用列表(保持添加顺序)
func (m *Manager) ValidateAll(ctx context.Context) []string {
	proxies := m.Proxies()
	ok := make([]bool, len(proxies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i, p := range proxies {
		i, p := i, p
		g.Go(func() error {
			ok[i] = m.Validate(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	valid := make([]string, 0, len(proxies))
	for i, p := range proxies {
		if ok[i] {
			valid = append(valid, p)
		}
	}

	m.mu.Lock()
	m.valid = valid
	m.validated = true
	m.current = -1
	m.mu.Unlock()

	m.logger.Info().
		Int("total", len(proxies)).
		Int("valid", len(valid)).
		Msg("代理验证完成")
	return valid
}

func (m *Manager) ensureValidated() {
	m.mu.Lock()
	validated := m.validated
	m.mu.Unlock()
	if !validated {
		m.ValidateAll(context.Background())
	}
}

// Random 随机返回一个可用代理
func (m *Manager) Random() (string, bool) {
	m.ensureValidated()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.valid) == 0 {
		return "", false
	}
	m.current = rand.Intn(len(m.valid))
	return m.valid[m.current], true
}

// Next 按顺序轮换可用代理
func (m *Manager) Next() (string, bool) {
	m.ensureValidated()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.valid) == 0 {
		return "", false
	}
	m.current = (m.current + 1) % len(m.valid)
	return m.valid[m.current], true
}

// Get 实现 models.ProxyProvider,返回随机可用代理
func (m *Manager) Get() (string, bool) {
	return m.Random()
}
