package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/RecoveryAshes/AutoClicker/internal/utils"
	"github.com/rs/zerolog"
)

// State 会话生命周期状态
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateRetired
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRetired:
		return "retired"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrSessionRetired 会话已释放
var ErrSessionRetired = errors.New("浏览器会话已释放")

// handle 被所有委托会话共享的浏览器句柄
type handle struct {
	driver Driver
	state  atomic.Int32
	once   sync.Once

	mu        sync.Mutex
	userAgent string
	proxy     string
}

// Session 浏览器会话
//
// 通过Open/Attach创建的会话拥有浏览器,Retire会关闭它;
// Delegate返回的会话共享同一个浏览器,但Retire不做任何事。
type Session struct {
	h               *handle
	owner           bool
	pageLoadTimeout time.Duration
	logger          zerolog.Logger
}

// Open 启动新浏览器并返回拥有它的会话
// 失败时返回*models.SetupError
func Open(ctx context.Context, opts LaunchOptions, l Launcher, logger zerolog.Logger) (*Session, error) {
	logger.Info().
		Bool("headless", opts.Headless).
		Str("proxy", utils.RedactProxy(opts.Proxy)).
		Msg("正在初始化浏览器")

	driver, err := l.Launch(ctx, opts)
	if err != nil {
		var setupErr *models.SetupError
		if !errors.As(err, &setupErr) {
			setupErr = &models.SetupError{Stage: "launch", Cause: err, Hints: models.DefaultSetupHints}
		}
		logger.Error().Err(setupErr.Cause).Str("stage", setupErr.Stage).Msg("浏览器初始化失败")
		for _, hint := range setupErr.Hints {
			logger.Error().Msgf("  - %s", hint)
		}
		return nil, setupErr
	}

	s := Attach(driver, opts.PageLoadTimeout, logger)
	s.h.userAgent = opts.UserAgent
	s.h.proxy = opts.Proxy
	logger.Info().Msg("浏览器初始化成功")
	return s, nil
}

// Attach 包装已有的Driver(复用模式),返回拥有它的会话
func Attach(driver Driver, pageLoadTimeout time.Duration, logger zerolog.Logger) *Session {
	if pageLoadTimeout <= 0 {
		pageLoadTimeout = DefaultLaunchOptions().PageLoadTimeout
	}
	h := &handle{driver: driver}
	h.state.Store(int32(StateReady))
	return &Session{
		h:               h,
		owner:           true,
		pageLoadTimeout: pageLoadTimeout,
		logger:          logger,
	}
}

// Delegate 返回共享同一浏览器的非拥有会话
func (s *Session) Delegate() *Session {
	d := *s
	d.owner = false
	return &d
}

// Owner 是否拥有浏览器
func (s *Session) Owner() bool {
	return s.owner
}

// State 当前生命周期状态
func (s *Session) State() State {
	return State(s.h.state.Load())
}

// UserAgent 最近一次设置的User-Agent
func (s *Session) UserAgent() string {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.userAgent
}

// Proxy 启动时使用的代理
func (s *Session) Proxy() string {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.proxy
}

// PageLoadTimeout 页面加载超时
func (s *Session) PageLoadTimeout() time.Duration {
	return s.pageLoadTimeout
}

// Retire 关闭浏览器,只有拥有者调用才生效,且最多执行一次
func (s *Session) Retire() error {
	if !s.owner {
		return nil
	}
	var err error
	s.h.once.Do(func() {
		s.h.state.Store(int32(StateRetired))
		if quitErr := s.h.driver.Quit(); quitErr != nil {
			s.logger.Warn().Err(quitErr).Msg("关闭浏览器时出错")
			err = quitErr
			return
		}
		s.logger.Info().Msg("浏览器已关闭")
	})
	return err
}

func (s *Session) ready() error {
	if s.State() != StateReady {
		return ErrSessionRetired
	}
	return nil
}

// ApplyIdentity 运行期切换User-Agent,空值不做修改
func (s *Session) ApplyIdentity(ua string) error {
	if ua == "" {
		return nil
	}
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.h.driver.OverrideUserAgent(ua); err != nil {
		return err
	}
	s.h.mu.Lock()
	s.h.userAgent = ua
	s.h.mu.Unlock()
	return nil
}

// Navigate 在页面加载超时内导航到URL
func (s *Session) Navigate(url string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.h.driver.Navigate(url, s.pageLoadTimeout)
}

// WaitLoaded 在页面加载超时内等待页面加载完成
func (s *Session) WaitLoaded() bool {
	if s.ready() != nil {
		return false
	}
	return s.h.driver.WaitLoaded(s.pageLoadTimeout)
}

// CurrentURL 当前地址
func (s *Session) CurrentURL() (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return s.h.driver.CurrentURL()
}

// PageSource 页面源码
func (s *Session) PageSource() (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return s.h.driver.PageSource()
}

// RunScript 执行脚本
func (s *Session) RunScript(js string) (any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.h.driver.RunScript(js)
}
