package core

import (
	"sort"
	"sync"

	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

// Ledger 点击统计账本,每个完成的任务恰好记录一次
type Ledger struct {
	mu       sync.Mutex
	stats    models.ClickStats
	failures []models.FailedTarget
	results  []models.TaskResult
}

// NewLedger 创建空账本
func NewLedger() *Ledger {
	return &Ledger{stats: models.NewClickStats()}
}

// Record 记录一个任务结果
func (l *Ledger) Record(result models.TaskResult) {
	platform := result.Platform
	if platform == "" {
		platform = engines.GenericPlatform
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.stats.PerPlatform[platform]
	l.stats.Total++
	ps.Total++
	if result.Success {
		l.stats.Successful++
		ps.Successful++
	} else {
		l.stats.Failed++
		ps.Failed++
		l.failures = append(l.failures, models.FailedTarget{
			Target:   result.Target,
			Platform: platform,
			Kind:     result.Kind,
			Error:    result.ErrorMessage(),
		})
	}
	l.stats.PerPlatform[platform] = ps
	l.results = append(l.results, result)
}

// Snapshot 返回当前统计的副本
func (l *Ledger) Snapshot() models.ClickStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.Clone()
}

// Failures 返回失败目标列表的副本
func (l *Ledger) Failures() []models.FailedTarget {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.FailedTarget{}, l.failures...)
}

// Results 返回所有任务结果,按提交顺序排列
func (l *Ledger) Results() []models.TaskResult {
	l.mu.Lock()
	out := append([]models.TaskResult{}, l.results...)
	l.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
