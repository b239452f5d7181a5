package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/browser/browsertest"
	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testPlatforms = []models.Platform{
	{Name: "csdn", Domain: "csdn.net"},
	{Name: "xueqiu", Domain: "xueqiu.com"},
	{Name: "sohu", Domain: "sohu.com"},
	{Name: "netease", Domain: "163.com"},
	{Name: "toutiao", Domain: "toutiao.com"},
	{Name: "smzdm", Domain: "smzdm.com"},
}

func fakeFactory(fake *browsertest.Driver) SessionFactory {
	return func(ctx context.Context) (*browser.Session, error) {
		return browser.Open(ctx, browser.DefaultLaunchOptions(), fake.Launcher(), zerolog.Nop())
	}
}

func newTestDispatcher(fake *browsertest.Driver, workers int, engine string) *Dispatcher {
	return NewDispatcher(
		DispatchConfig{Workers: workers, Engine: engine},
		Deps{
			NewSession: fakeFactory(fake),
			Platforms:  testPlatforms,
			Logger:     zerolog.Nop(),
		},
	)
}

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://example.com/post/%d", i)
	}
	return out
}

func TestDispatcher_NeteaseURLWithGeneric(t *testing.T) {
	target := "https://www.163.com/dy/article/ABCD1234.html"
	fake := browsertest.New().SetPage(target, browsertest.Page{Source: "<html>ABCD1234</html>"})
	d := newTestDispatcher(fake, 2, engines.GenericPlatform)

	report, err := d.Run(context.Background(), []string{target})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.Total)
	assert.Equal(t, 1, report.Stats.Successful)
	assert.Equal(t, 0, report.Stats.Failed)
	assert.Equal(t, 1, report.Stats.PerPlatform["netease"].Successful)
	assert.Equal(t, 1, fake.Quits())
	assert.Equal(t, models.RunReported, d.State())
}

func TestDispatcher_PlatformEngine(t *testing.T) {
	fake := browsertest.New().
		SetPage("https://blog.csdn.net/2501_94652164/article/details/155947200", browsertest.Page{}).
		SetPage("https://blog.csdn.net/1_2/article/details/3", browsertest.Page{FinalURL: "https://www.csdn.net/"})
	d := newTestDispatcher(fake, 3, "csdn")

	report, err := d.Run(context.Background(), []string{
		"2501_94652164:155947200",
		"bad_id:abc",
		"1_2:3",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Stats.Total)
	assert.Equal(t, 1, report.Stats.Successful)
	assert.Equal(t, 2, report.Stats.Failed)
	assert.Equal(t, 2, fake.Navigates(), "非法标识不应导航")
	require.Len(t, report.Failures, 2)

	kinds := map[string]models.ErrKind{}
	for _, f := range report.Failures {
		kinds[f.Target] = f.Kind
	}
	assert.Equal(t, models.ErrKindValidation, kinds["bad_id:abc"])
	assert.Equal(t, models.ErrKindVerification, kinds["1_2:3"])
}

func TestDispatcher_MutualExclusion(t *testing.T) {
	fake := browsertest.New().SetFallback(browsertest.Page{Delay: 2 * time.Millisecond})
	d := newTestDispatcher(fake, 8, engines.GenericPlatform)

	report, err := d.Run(context.Background(), urls(40))
	require.NoError(t, err)

	assert.Equal(t, 40, report.Stats.Total)
	assert.Zero(t, fake.Violations(), "浏览器调用出现交叠")

	// 每个任务的 navigate 后紧跟自己的 wait,不会被其它任务插入
	calls := fake.Calls()
	for i, c := range calls {
		if strings.HasPrefix(c, "navigate ") {
			require.Less(t, i+1, len(calls))
			assert.Equal(t, "wait", calls[i+1])
		}
	}
}

func TestDispatcher_StuckTaskSerializesOthers(t *testing.T) {
	const stuck = "https://example.com/post/0"
	const hold = 300 * time.Millisecond
	fake := browsertest.New().
		SetFallback(browsertest.Page{Delay: time.Millisecond}).
		SetPage(stuck, browsertest.Page{Delay: hold})
	d := newTestDispatcher(fake, 6, engines.GenericPlatform)

	start := time.Now()
	report, err := d.Run(context.Background(), urls(12))
	require.NoError(t, err)

	assert.Equal(t, 12, report.Stats.Successful)
	assert.GreaterOrEqual(t, time.Since(start), hold)
	assert.Zero(t, fake.Violations(), "卡住的任务期间其它任务进入了浏览器")

	// 卡住任务的 navigate 与 wait 之间没有其它任务的调用
	calls := fake.Calls()
	idx := -1
	for i, c := range calls {
		if c == "navigate "+stuck {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx+1, len(calls))
	assert.Equal(t, "wait", calls[idx+1])
}

type platformUA struct{}

func (platformUA) UserAgentFor(platform string) string {
	return "UA-" + platform
}

func TestDispatcher_IdentityAppliedBeforeNavigate(t *testing.T) {
	var targets []string
	for i := 0; i < 4; i++ {
		targets = append(targets,
			fmt.Sprintf("https://blog.csdn.net/u_%d/article/details/%d", i, i+100),
			fmt.Sprintf("https://xueqiu.com/1234/%d", i+200),
			fmt.Sprintf("https://www.sohu.com/a/%d_1", i+300),
			fmt.Sprintf("https://www.163.com/dy/article/X%d.html", i),
			fmt.Sprintf("https://www.toutiao.com/article/%d/", i+400),
			fmt.Sprintf("https://post.smzdm.com/p/%d/", i+500),
		)
	}

	fake := browsertest.New().SetFallback(browsertest.Page{Delay: time.Millisecond})
	d := NewDispatcher(
		DispatchConfig{Workers: 6, Engine: engines.GenericPlatform},
		Deps{
			NewSession: fakeFactory(fake),
			Platforms:  testPlatforms,
			UserAgents: platformUA{},
			Logger:     zerolog.Nop(),
		},
	)

	report, err := d.Run(context.Background(), targets)
	require.NoError(t, err)
	assert.Equal(t, len(targets), report.Stats.Successful)
	assert.Zero(t, fake.Violations())

	calls := fake.Calls()
	navigations := 0
	for i, c := range calls {
		target, ok := strings.CutPrefix(c, "navigate ")
		if !ok {
			continue
		}
		navigations++
		p, found := engines.DetectPlatform(testPlatforms, target)
		require.True(t, found, target)
		require.Greater(t, i, 0)
		assert.Equal(t, "ua UA-"+p.Name, calls[i-1], "%s 导航前应紧接着切换为本平台的User-Agent", target)
	}
	assert.Equal(t, len(targets), navigations)
}

func TestDispatcher_ScrollInsideGate(t *testing.T) {
	fake := browsertest.New().SetScrollHeight(5000).SetFallback(browsertest.Page{Delay: time.Millisecond})

	var slept atomic.Int32
	opts := browser.DefaultHumanOptions()
	humanizer := browser.NewHumanizer(opts, func(context.Context, time.Duration) error {
		slept.Add(1)
		return nil
	}, zerolog.Nop())

	d := NewDispatcher(DispatchConfig{Workers: 4}, Deps{
		NewSession: fakeFactory(fake),
		Humanizer:  humanizer,
		Logger:     zerolog.Nop(),
	})

	report, err := d.Run(context.Background(), urls(10))
	require.NoError(t, err)

	assert.Equal(t, 10, report.Stats.Successful)
	assert.Zero(t, fake.Violations())
	assert.NotEmpty(t, fake.Scripts())
	// 每次成功至少一次停留,外加滚动间隔
	assert.GreaterOrEqual(t, int(slept.Load()), 10)
}

func TestDispatcher_QuitOnceWhenTasksPanic(t *testing.T) {
	fake := browsertest.New().
		SetPage("https://example.com/post/1", browsertest.Page{Panic: "驱动崩溃"}).
		SetPage("https://example.com/post/3", browsertest.Page{Panic: errors.New("boom")})
	d := newTestDispatcher(fake, 4, engines.GenericPlatform)

	report, err := d.Run(context.Background(), urls(5))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Stats.Total)
	assert.Equal(t, 3, report.Stats.Successful)
	assert.Equal(t, 2, report.Stats.Failed)
	assert.Equal(t, 1, fake.Quits())
	for _, f := range report.Failures {
		assert.Equal(t, models.ErrKindTask, f.Kind)
	}
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panicky" }

func (panicStrategy) GenerateURL(string) (string, error) { return "", nil }

func (panicStrategy) Click(context.Context, string) models.TaskResult { panic("策略崩溃") }

func TestDispatcher_RecoversStrategyPanic(t *testing.T) {
	fake := browsertest.New()
	registry := engines.DefaultRegistry()
	registry.Register("panicky", func(engines.Deps, string) engines.Strategy { return panicStrategy{} })

	d := NewDispatcher(DispatchConfig{Workers: 2, Engine: "panicky"}, Deps{
		NewSession: fakeFactory(fake),
		Registry:   registry,
		Logger:     zerolog.Nop(),
	})

	report, err := d.Run(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Stats.Failed)
	assert.Equal(t, 1, fake.Quits())

	// panic时闸门也要释放,否则后续任务会卡住
	results := d.Results()
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Contains(t, r.ErrorMessage(), "策略崩溃")
	}
}

func TestDispatcher_ZeroTargets(t *testing.T) {
	fake := browsertest.New()
	d := newTestDispatcher(fake, 3, engines.GenericPlatform)

	report, err := d.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Targets)
	assert.Equal(t, 0, report.Stats.Total)
	assert.Equal(t, 1, fake.Quits())
}

func TestDispatcher_SetupFailureAborts(t *testing.T) {
	d := NewDispatcher(DispatchConfig{Workers: 2}, Deps{
		NewSession: func(ctx context.Context) (*browser.Session, error) {
			return browser.Open(ctx, browser.DefaultLaunchOptions(), browsertest.FailingLauncher("chrome not found"), zerolog.Nop())
		},
		Logger: zerolog.Nop(),
	})

	report, err := d.Run(context.Background(), urls(3))
	require.Error(t, err)
	assert.Nil(t, report)

	var setupErr *models.SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "launch", setupErr.Stage)
	assert.NotEmpty(t, setupErr.Hints)
	assert.Zero(t, d.Stats().Total)
}

func TestDispatcher_FactoryErrorWrapped(t *testing.T) {
	d := NewDispatcher(DispatchConfig{}, Deps{
		NewSession: func(context.Context) (*browser.Session, error) {
			return nil, errors.New("no display")
		},
		Logger: zerolog.Nop(),
	})

	_, err := d.Run(context.Background(), urls(1))

	var setupErr *models.SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "session", setupErr.Stage)
}

func TestDispatcher_MissingFactory(t *testing.T) {
	d := NewDispatcher(DispatchConfig{}, Deps{Logger: zerolog.Nop()})
	_, err := d.Run(context.Background(), urls(1))
	assert.Error(t, err)
}

func TestDispatcher_RunOnlyOnce(t *testing.T) {
	fake := browsertest.New()
	d := newTestDispatcher(fake, 1, engines.GenericPlatform)

	_, err := d.Run(context.Background(), urls(1))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), urls(1))
	assert.ErrorIs(t, err, ErrDispatcherBusy)
	assert.Equal(t, 1, fake.Quits())
}

func TestDispatcher_SubmitStates(t *testing.T) {
	fake := browsertest.New()
	d := newTestDispatcher(fake, 1, engines.GenericPlatform)

	assert.ErrorIs(t, d.Submit("https://example.com/early"), ErrDispatcherIdle)

	_, err := d.Run(context.Background(), urls(2))
	require.NoError(t, err)

	assert.ErrorIs(t, d.Submit("https://example.com/late"), ErrDispatcherDraining)
	assert.Equal(t, 2, d.Stats().Total)
}

// submitStrategy 在点击时追加任务,模拟运行期间的Submit
type submitStrategy struct {
	d    *Dispatcher
	mu   *sync.Mutex
	errs *[]error
}

func (s submitStrategy) Name() string { return "submitter" }

func (s submitStrategy) GenerateURL(id string) (string, error) { return id, nil }

func (s submitStrategy) Click(_ context.Context, id string) models.TaskResult {
	if !strings.HasSuffix(id, "/extra") {
		err := s.d.Submit(id + "/extra")
		s.mu.Lock()
		*s.errs = append(*s.errs, err)
		s.mu.Unlock()
	}
	return models.Succeeded(id, id, "generic")
}

func TestDispatcher_SubmitDuringRun(t *testing.T) {
	fake := browsertest.New()
	registry := engines.DefaultRegistry()

	var (
		mu   sync.Mutex
		errs []error
	)
	d := NewDispatcher(DispatchConfig{Workers: 2, Engine: "submitter"}, Deps{
		NewSession: fakeFactory(fake),
		Registry:   registry,
		Logger:     zerolog.Nop(),
	})
	registry.Register("submitter", func(engines.Deps, string) engines.Strategy {
		return submitStrategy{d: d, mu: &mu, errs: &errs}
	})

	report, err := d.Run(context.Background(), urls(5))
	require.NoError(t, err)

	accepted := 0
	for _, e := range errs {
		if e == nil {
			accepted++
			continue
		}
		assert.True(t, errors.Is(e, ErrDispatcherDraining) || errors.Is(e, ErrQueueFull), "意外错误: %v", e)
	}

	// 被接受的追加任务都要执行完
	assert.Equal(t, 5+accepted, report.Targets)
	assert.Equal(t, report.Targets, report.Stats.Total)
	assert.Zero(t, report.Skipped)
}

func TestDispatcher_CancelledContextSkips(t *testing.T) {
	fake := browsertest.New()
	d := newTestDispatcher(fake, 2, engines.GenericPlatform)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := d.Run(ctx, urls(6))
	require.NoError(t, err)

	assert.Equal(t, 6, report.Targets)
	assert.Equal(t, 0, report.Stats.Total)
	assert.Equal(t, 6, report.Skipped)
	assert.Zero(t, fake.Navigates())
	assert.Equal(t, 1, fake.Quits())
}

func TestDispatcher_RateLimit(t *testing.T) {
	fake := browsertest.New()
	d := NewDispatcher(DispatchConfig{Workers: 4, ClicksPerSecond: 50}, Deps{
		NewSession: fakeFactory(fake),
		Logger:     zerolog.Nop(),
	})

	start := time.Now()
	report, err := d.Run(context.Background(), urls(6))
	require.NoError(t, err)

	assert.Equal(t, 6, report.Stats.Successful)
	// 突发为1,6次点击至少间隔5个周期
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestDispatcher_LedgerInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		workers := rapid.SampledFrom([]int{1, 8}).Draw(t, "workers")
		n := rapid.IntRange(0, 24).Draw(t, "targets")

		fake := browsertest.New()
		targets := urls(n)
		wantFailed := 0
		for i, target := range targets {
			page := browsertest.Page{
				Delay: time.Duration(rapid.IntRange(0, 300).Draw(t, fmt.Sprintf("delay%d", i))) * time.Microsecond,
			}
			switch rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("outcome%d", i)) {
			case 1:
				page.NoLoad = true
				wantFailed++
			case 2:
				page.NavErr = errors.New("net::ERR_CONNECTION_RESET")
				wantFailed++
			}
			fake.SetPage(target, page)
		}

		d := newTestDispatcher(fake, workers, engines.GenericPlatform)
		report, err := d.Run(context.Background(), targets)
		if err != nil {
			t.Fatalf("运行失败: %v", err)
		}

		stats := report.Stats
		if stats.Total != n {
			t.Fatalf("total=%d, 期望 %d", stats.Total, n)
		}
		if stats.Successful+stats.Failed != stats.Total {
			t.Fatalf("successful(%d)+failed(%d) != total(%d)", stats.Successful, stats.Failed, stats.Total)
		}
		if stats.Failed != wantFailed {
			t.Fatalf("failed=%d, 期望 %d", stats.Failed, wantFailed)
		}
		if fake.Violations() != 0 {
			t.Fatalf("浏览器并发访问 %d 次", fake.Violations())
		}
		if fake.Quits() != 1 {
			t.Fatalf("Quit调用 %d 次", fake.Quits())
		}
	})
}
