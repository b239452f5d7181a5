package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// HumanOptions 模拟人类浏览行为的参数
type HumanOptions struct {
	Enabled         bool
	Scroll          bool
	MinDwell        time.Duration
	MaxDwell        time.Duration
	ScrollThreshold int // 页面高度超过该值才滚动
	MinScrolls      int
	MaxScrolls      int
	MinScrollPause  time.Duration
	MaxScrollPause  time.Duration
}

// DefaultHumanOptions 默认参数
func DefaultHumanOptions() HumanOptions {
	return HumanOptions{
		Enabled:         true,
		Scroll:          true,
		MinDwell:        time.Second,
		MaxDwell:        5 * time.Second,
		ScrollThreshold: 1000,
		MinScrolls:      2,
		MaxScrolls:      5,
		MinScrollPause:  500 * time.Millisecond,
		MaxScrollPause:  1500 * time.Millisecond,
	}
}

// ScriptRunner 可以执行页面脚本的对象,Session满足该接口
type ScriptRunner interface {
	RunScript(js string) (any, error)
}

// SleepFunc 可被context打断的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep 默认等待实现
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// Humanizer 执行停留与滚动,错误只记录日志
type Humanizer struct {
	opts   HumanOptions
	sleep  SleepFunc
	logger zerolog.Logger
}

// NewHumanizer 创建Humanizer,sleep为nil时使用Sleep
func NewHumanizer(opts HumanOptions, sleep SleepFunc, logger zerolog.Logger) *Humanizer {
	if sleep == nil {
		sleep = Sleep
	}
	return &Humanizer{opts: opts, sleep: sleep, logger: logger}
}

// Enabled 是否启用
func (h *Humanizer) Enabled() bool {
	return h.opts.Enabled
}

// Dwell 在页面上随机停留 [MinDwell, MaxDwell]
func (h *Humanizer) Dwell(ctx context.Context) {
	if !h.opts.Enabled {
		return
	}
	d := between(h.opts.MinDwell, h.opts.MaxDwell)
	if err := h.sleep(ctx, d); err != nil {
		h.logger.Debug().Err(err).Msg("停留被中断")
	}
}

// Scroll 页面足够高时随机滚动若干次
// 调用方必须持有浏览器闸门,保证滚动作用于刚验证过的页面
func (h *Humanizer) Scroll(ctx context.Context, page ScriptRunner) int {
	if !h.opts.Enabled || !h.opts.Scroll {
		return 0
	}

	raw, err := page.RunScript("() => document.body.scrollHeight")
	if err != nil {
		h.logger.Warn().Err(err).Msg("模拟人类行为时出错")
		return 0
	}
	height, ok := toInt(raw)
	if !ok {
		h.logger.Warn().Msgf("无法解析页面高度: %v", raw)
		return 0
	}
	if height <= h.opts.ScrollThreshold {
		return 0
	}

	steps := h.opts.MinScrolls
	if h.opts.MaxScrolls > h.opts.MinScrolls {
		steps += rand.Intn(h.opts.MaxScrolls - h.opts.MinScrolls + 1)
	}

	done := 0
	for i := 0; i < steps; i++ {
		pos := rand.Intn(height + 1)
		if _, err := page.RunScript(fmt.Sprintf("() => window.scrollTo(0, %d)", pos)); err != nil {
			h.logger.Warn().Err(err).Msg("模拟人类行为时出错")
			return done
		}
		done++
		if err := h.sleep(ctx, between(h.opts.MinScrollPause, h.opts.MaxScrollPause)); err != nil {
			return done
		}
	}
	return done
}

func between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
