package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/RecoveryAshes/AutoClicker/internal/utils"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

var (
	// ErrDispatcherDraining 所有任务已提交,不再接收新任务
	ErrDispatcherDraining = errors.New("调度器正在收尾,不再接收任务")

	// ErrDispatcherIdle 调度器尚未启动
	ErrDispatcherIdle = errors.New("调度器尚未启动")

	// ErrDispatcherBusy Run只能调用一次
	ErrDispatcherBusy = errors.New("调度器已运行过")

	// ErrQueueFull 任务队列已满
	ErrQueueFull = errors.New("任务队列已满")
)

// SessionFactory 创建本次运行共享的浏览器会话
type SessionFactory func(ctx context.Context) (*browser.Session, error)

// DispatchConfig 调度配置
type DispatchConfig struct {
	Workers         int       // worker数量
	Engine          string    // 策略名称,generic或平台名
	ClicksPerSecond float64   // 点击速率上限,0表示不限
	ShowProgress    bool      // 显示进度条
	ProgressWriter  io.Writer // 进度条输出,为nil时使用stderr
}

// Deps 调度器依赖
type Deps struct {
	NewSession SessionFactory
	Registry   *engines.Registry
	Platforms  []models.Platform
	UserAgents models.UserAgentProvider
	Humanizer  *browser.Humanizer // 为nil时不模拟人类行为
	Logger     zerolog.Logger
}

type clickTask struct {
	index  int
	target string
}

// Dispatcher 点击调度器
//
// 一次运行只创建一个浏览器会话,由固定数量的worker共享。
// 浏览器闸门(gate)保证同一时刻只有一个任务操作浏览器,
// 统计账本有自己的锁,两把锁从不嵌套持有。
type Dispatcher struct {
	cfg    DispatchConfig
	deps   Deps
	logger zerolog.Logger

	state atomic.Int32

	gate    sync.Mutex
	ledger  *Ledger
	limiter *rate.Limiter

	// submitMu 只保护入队和关闭队列
	submitMu  sync.Mutex
	queue     chan clickTask
	submitted int
	reserved  int // 为尚未入队的初始目标保留的队列空间

	progress *progressbar.ProgressBar
}

// NewDispatcher 创建调度器
func NewDispatcher(cfg DispatchConfig, deps Deps) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Engine == "" {
		cfg.Engine = engines.GenericPlatform
	}
	if deps.Registry == nil {
		deps.Registry = engines.DefaultRegistry()
	}

	d := &Dispatcher{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "dispatcher").Logger(),
		ledger: NewLedger(),
	}
	if cfg.ClicksPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.ClicksPerSecond), 1)
	}
	return d
}

// State 当前运行状态
func (d *Dispatcher) State() models.RunState {
	return models.RunState(d.state.Load())
}

// Stats 当前统计快照
func (d *Dispatcher) Stats() models.ClickStats {
	return d.ledger.Snapshot()
}

// Results 已完成任务的结果,按提交顺序排列
func (d *Dispatcher) Results() []models.TaskResult {
	return d.ledger.Results()
}

// Run 执行所有目标并返回报告
// 只有浏览器初始化失败会返回错误,单个任务的失败都计入统计
func (d *Dispatcher) Run(ctx context.Context, targets []string) (*models.ClickReport, error) {
	if !d.state.CompareAndSwap(int32(models.RunIdle), int32(models.RunDispatching)) {
		return nil, ErrDispatcherBusy
	}
	if d.deps.NewSession == nil {
		d.state.Store(int32(models.RunReported))
		return nil, errors.New("未配置浏览器会话工厂")
	}

	startedAt := time.Now()
	d.logger.Info().Int("targets", len(targets)).Int("workers", d.cfg.Workers).Str("engine", d.cfg.Engine).Msg("开始点击任务")

	session, err := d.deps.NewSession(ctx)
	if err != nil {
		d.state.Store(int32(models.RunReported))
		var setupErr *models.SetupError
		if !errors.As(err, &setupErr) {
			err = &models.SetupError{Stage: "session", Cause: err, Hints: models.DefaultSetupHints}
		}
		return nil, err
	}

	d.dispatch(ctx, session, targets)

	d.state.Store(int32(models.RunReported))
	return d.buildReport(startedAt), nil
}

// dispatch 启动worker、提交任务、等待完成,返回前总会释放浏览器
func (d *Dispatcher) dispatch(ctx context.Context, session *browser.Session, targets []string) {
	defer func() {
		if err := session.Retire(); err != nil {
			d.logger.Warn().Err(err).Msg("释放浏览器失败")
		}
	}()

	d.submitMu.Lock()
	d.queue = make(chan clickTask, len(targets)+d.cfg.Workers)
	d.reserved = len(targets)
	d.submitMu.Unlock()

	if d.cfg.ShowProgress && len(targets) > 0 {
		d.progress = utils.NewProgressBar(len(targets), "点击中", d.cfg.ProgressWriter)
	}

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go d.worker(ctx, i, session, len(targets), &wg)
	}

	for _, target := range targets {
		d.enqueue(target)
	}

	d.submitMu.Lock()
	d.state.Store(int32(models.RunDraining))
	close(d.queue)
	d.submitMu.Unlock()

	wg.Wait()

	if d.progress != nil {
		_ = d.progress.Finish()
	}
}

// enqueue 提交初始目标,使用预留空间,不会阻塞
func (d *Dispatcher) enqueue(target string) {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.queue <- clickTask{index: d.submitted, target: target}
	d.submitted++
	d.reserved--
}

// Submit 在运行期间追加目标
// 调度器进入收尾阶段后返回ErrDispatcherDraining
func (d *Dispatcher) Submit(target string) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	switch d.State() {
	case models.RunDispatching:
	case models.RunIdle:
		return ErrDispatcherIdle
	default:
		return ErrDispatcherDraining
	}
	if d.queue == nil {
		return ErrDispatcherIdle
	}

	if len(d.queue) >= cap(d.queue)-d.reserved {
		return ErrQueueFull
	}
	d.queue <- clickTask{index: d.submitted, target: target}
	d.submitted++
	return nil
}

// worker 从队列取任务直到队列关闭
// context取消后继续排空队列但不再执行任务
func (d *Dispatcher) worker(ctx context.Context, id int, session *browser.Session, total int, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range d.queue {
		if ctx.Err() != nil {
			continue
		}

		d.logger.Info().Int("worker", id).Msgf("点击 %d/%d: %s", task.index+1, total, task.target)
		result := d.execute(ctx, session, task)

		d.ledger.Record(result)
		if d.progress != nil {
			_ = d.progress.Add(1)
		}

		if !result.Success {
			d.logger.Warn().Int("worker", id).Str("target", task.target).Str("kind", string(result.Kind)).Msg("点击失败")
			continue
		}
		if d.deps.Humanizer != nil {
			d.deps.Humanizer.Dwell(ctx)
		}
	}
}

// execute 执行单个任务,panic会被转换为失败结果
func (d *Dispatcher) execute(ctx context.Context, session *browser.Session, task clickTask) (result models.TaskResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("target", task.target).Msgf("任务panic: %v", r)
			result = models.Failed(task.target, "", d.cfg.Engine, models.ErrKindTask, fmt.Errorf("任务panic: %v", r))
			result.Duration = time.Since(start)
		}
		result.Index = task.index
	}()

	strategy, err := d.deps.Registry.New(d.cfg.Engine, engines.Deps{
		Session:    session.Delegate(),
		Logger:     d.deps.Logger,
		UserAgents: d.deps.UserAgents,
		Platforms:  d.deps.Platforms,
	})
	if err != nil {
		return models.Failed(task.target, "", d.cfg.Engine, models.ErrKindTask, err)
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return models.Failed(task.target, "", strategy.Name(), models.ErrKindTask, err)
		}
	}

	return d.clickWithGate(ctx, session, strategy, task.target)
}

// clickWithGate 在浏览器闸门内完成 切换身份+导航+验证,成功时顺带滚动页面
func (d *Dispatcher) clickWithGate(ctx context.Context, session *browser.Session, strategy engines.Strategy, target string) models.TaskResult {
	d.gate.Lock()
	defer d.gate.Unlock()

	result := strategy.Click(ctx, target)
	if result.Success && d.deps.Humanizer != nil {
		d.deps.Humanizer.Scroll(ctx, session)
	}
	return result
}

func (d *Dispatcher) buildReport(startedAt time.Time) *models.ClickReport {
	report := models.NewClickReport(d.cfg.Engine, d.cfg.Workers, startedAt)
	report.FinishedAt = time.Now()
	report.Duration = report.FinishedAt.Sub(startedAt).Seconds()

	d.submitMu.Lock()
	report.Targets = d.submitted
	d.submitMu.Unlock()

	report.Stats = d.ledger.Snapshot()
	report.Failures = d.ledger.Failures()
	report.Skipped = report.Targets - report.Stats.Total

	d.logger.Info().
		Int("total", report.Stats.Total).
		Int("successful", report.Stats.Successful).
		Int("failed", report.Stats.Failed).
		Int("skipped", report.Skipped).
		Msg("点击任务完成")
	return report
}
