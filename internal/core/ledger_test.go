package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLedger_Record(t *testing.T) {
	l := NewLedger()

	l.Record(models.Succeeded("a", "https://a", "csdn"))
	l.Record(models.Failed("b", "", "csdn", models.ErrKindValidation, errors.New("格式错误")))
	l.Record(models.Succeeded("c", "https://c", ""))

	stats := l.Snapshot()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, models.PlatformStats{Total: 2, Successful: 1, Failed: 1}, stats.PerPlatform["csdn"])
	assert.Equal(t, 1, stats.PerPlatform[engines.GenericPlatform].Successful, "未归属平台的结果计入通用平台")

	failures := l.Failures()
	assert.Len(t, failures, 1)
	assert.Equal(t, "b", failures[0].Target)
	assert.Equal(t, models.ErrKindValidation, failures[0].Kind)
	assert.Contains(t, failures[0].Error, "格式错误")
}

func TestLedger_SnapshotIsCopy(t *testing.T) {
	l := NewLedger()
	l.Record(models.Succeeded("a", "", "sohu"))

	snap := l.Snapshot()
	snap.PerPlatform["sohu"] = models.PlatformStats{Total: 99}

	assert.Equal(t, 1, l.Snapshot().PerPlatform["sohu"].Total)
}

func TestLedger_ResultsOrdered(t *testing.T) {
	l := NewLedger()
	for _, i := range []int{2, 0, 1} {
		r := models.Succeeded(fmt.Sprint(i), "", "generic")
		r.Index = i
		l.Record(r)
	}

	results := l.Results()
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
}

func TestLedger_ConcurrentInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outcomes := rapid.SliceOf(rapid.Bool()).Draw(t, "outcomes")
		platforms := []string{"csdn", "xueqiu", "generic"}

		l := NewLedger()
		var wg sync.WaitGroup
		wantSuccess := 0
		for i, ok := range outcomes {
			i, ok := i, ok
			if ok {
				wantSuccess++
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				platform := platforms[i%len(platforms)]
				if ok {
					l.Record(models.Succeeded(fmt.Sprint(i), "", platform))
				} else {
					l.Record(models.Failed(fmt.Sprint(i), "", platform, models.ErrKindTask, errors.New("x")))
				}
			}()
		}
		wg.Wait()

		stats := l.Snapshot()
		if stats.Total != len(outcomes) || stats.Successful != wantSuccess {
			t.Fatalf("total=%d successful=%d, 期望 %d/%d", stats.Total, stats.Successful, len(outcomes), wantSuccess)
		}
		if stats.Successful+stats.Failed != stats.Total {
			t.Fatalf("successful+failed != total")
		}
		sum := 0
		for _, ps := range stats.PerPlatform {
			sum += ps.Total
		}
		if sum != stats.Total {
			t.Fatalf("平台合计 %d != total %d", sum, stats.Total)
		}
		if len(l.Failures()) != stats.Failed {
			t.Fatalf("失败列表长度 %d != failed %d", len(l.Failures()), stats.Failed)
		}
	})
}
