package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClickStats_SuccessRate(t *testing.T) {
	tests := []struct {
		name  string
		stats ClickStats
		want  float64
	}{
		{"空统计", NewClickStats(), 0},
		{"全部成功", ClickStats{Total: 4, Successful: 4}, 100},
		{"一半成功", ClickStats{Total: 4, Successful: 2, Failed: 2}, 50},
		{"全部失败", ClickStats{Total: 3, Failed: 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.SuccessRate(); got != tt.want {
				t.Errorf("SuccessRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClickStats_Clone(t *testing.T) {
	stats := NewClickStats()
	stats.Total = 1
	stats.PerPlatform["csdn"] = PlatformStats{Total: 1, Successful: 1}

	clone := stats.Clone()
	clone.PerPlatform["csdn"] = PlatformStats{Total: 9}

	if stats.PerPlatform["csdn"].Total != 1 {
		t.Errorf("Clone() 与原统计共享了map")
	}
}

func TestTaskResult_Constructors(t *testing.T) {
	ok := Succeeded("t", "https://a.com", "generic")
	if !ok.Success || ok.Kind != ErrKindNone || ok.ID == "" {
		t.Errorf("Succeeded() = %+v", ok)
	}
	if ok.ErrorMessage() != "" {
		t.Errorf("成功结果不应有错误信息")
	}

	cause := errors.New("boom")
	bad := Failed("t", "", "csdn", ErrKindTask, cause)
	if bad.Success || bad.Kind != ErrKindTask {
		t.Errorf("Failed() = %+v", bad)
	}
	if bad.ErrorMessage() != "boom" {
		t.Errorf("ErrorMessage() = %q", bad.ErrorMessage())
	}
	if bad.ID == ok.ID {
		t.Errorf("两个结果的ID不应相同")
	}
}

func TestErrors_Unwrap(t *testing.T) {
	verr := &ValidationError{Platform: "csdn", Identifier: "abc", Reason: "缺少冒号"}
	if !errors.Is(verr, ErrInvalidIdentifier) {
		t.Errorf("ValidationError 应包装 ErrInvalidIdentifier")
	}

	wrapped := fmt.Errorf("生成URL: %w", verr)
	var target *ValidationError
	if !errors.As(wrapped, &target) || target.Platform != "csdn" {
		t.Errorf("errors.As 无法取出 ValidationError")
	}

	vfail := &VerificationError{Platform: "netease", Identifier: "X", Diagnosis: "被重定向到首页"}
	if !errors.Is(vfail, ErrVerification) {
		t.Errorf("VerificationError 应包装 ErrVerification")
	}

	cause := errors.New("chrome not found")
	serr := &SetupError{Stage: "launch", Cause: cause, Hints: DefaultSetupHints}
	if !errors.Is(serr, cause) {
		t.Errorf("SetupError 应包装底层错误")
	}

	cerr := &ConfigError{FilePath: "config/config.json", Cause: cause}
	if !errors.Is(cerr, cause) {
		t.Errorf("ConfigError 应包装底层错误")
	}
}

func TestClickReport_JSON(t *testing.T) {
	report := NewClickReport("generic", 3, time.Now())
	report.Targets = 2
	report.Stats.Total = 2
	report.Stats.Successful = 1
	report.Stats.Failed = 1
	report.Stats.PerPlatform["generic"] = PlatformStats{Total: 2, Successful: 1, Failed: 1}
	report.Failures = append(report.Failures, FailedTarget{Target: "x", Platform: "generic", Kind: ErrKindNavigation, Error: "超时"})

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var decoded ClickReport
	if err := decoded.FromJSON(data); err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if decoded.RunID != report.RunID || decoded.Stats.PerPlatform["generic"].Failed != 1 {
		t.Errorf("往返后报告不一致: %+v", decoded)
	}
	if len(decoded.Failures) != 1 || decoded.Failures[0].Kind != ErrKindNavigation {
		t.Errorf("失败列表不一致: %+v", decoded.Failures)
	}
}

func TestRunState_String(t *testing.T) {
	if RunDraining.String() != "draining" {
		t.Errorf("RunDraining.String() = %q", RunDraining.String())
	}
	if RunState(42).String() != "RunState(42)" {
		t.Errorf("未知状态 = %q", RunState(42).String())
	}
}
