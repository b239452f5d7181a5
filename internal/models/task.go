package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunState 调度运行状态
type RunState int32

const (
	RunIdle        RunState = iota // 未启动
	RunDispatching                 // 浏览器已创建,worker已启动,正在提交任务
	RunDraining                    // 任务已全部提交,等待完成
	RunReported                    // 浏览器已释放,报告已生成
)

// String 返回状态名称
func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunDispatching:
		return "dispatching"
	case RunDraining:
		return "draining"
	case RunReported:
		return "reported"
	default:
		return fmt.Sprintf("RunState(%d)", int32(s))
	}
}

// TaskResult 单个点击任务的结果,创建后不再修改
type TaskResult struct {
	ID       string        `json:"id"`             // 任务唯一ID (UUID)
	Index    int           `json:"index"`          // 在目标列表中的位置(从0开始)
	Target   string        `json:"target"`         // 原始目标(URL或平台标识)
	URL      string        `json:"url,omitempty"`  // 实际访问的URL
	Platform string        `json:"platform"`       // 归属平台
	Success  bool          `json:"success"`        // 是否成功
	Kind     ErrKind       `json:"kind,omitempty"` // 失败类别
	Err      error         `json:"-"`              // 失败原因
	Duration time.Duration `json:"duration"`       // 耗时
}

func generateID() string {
	return uuid.New().String()
}

// Succeeded 构造成功结果
func Succeeded(target, url, platform string) TaskResult {
	return TaskResult{
		ID:       generateID(),
		Target:   target,
		URL:      url,
		Platform: platform,
		Success:  true,
	}
}

// Failed 构造失败结果
func Failed(target, url, platform string, kind ErrKind, err error) TaskResult {
	return TaskResult{
		ID:       generateID(),
		Target:   target,
		URL:      url,
		Platform: platform,
		Kind:     kind,
		Err:      err,
	}
}

// ErrorMessage 返回失败原因文本,成功时为空
func (r TaskResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// PlatformStats 单个平台的点击统计
type PlatformStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// SuccessRate 成功率(百分比)
func (s PlatformStats) SuccessRate() float64 {
	return successRate(s.Successful, s.Total)
}

// ClickStats 点击统计
// 不变式: Total == Successful + Failed, 且各平台Total之和等于Total
type ClickStats struct {
	Total       int                      `json:"total"`
	Successful  int                      `json:"successful"`
	Failed      int                      `json:"failed"`
	PerPlatform map[string]PlatformStats `json:"per_platform"`
}

// NewClickStats 创建空统计
func NewClickStats() ClickStats {
	return ClickStats{PerPlatform: make(map[string]PlatformStats)}
}

// SuccessRate 成功率(百分比),总数为0时返回0
func (s ClickStats) SuccessRate() float64 {
	return successRate(s.Successful, s.Total)
}

// Clone 深拷贝
func (s ClickStats) Clone() ClickStats {
	out := s
	out.PerPlatform = make(map[string]PlatformStats, len(s.PerPlatform))
	for name, ps := range s.PerPlatform {
		out.PerPlatform[name] = ps
	}
	return out
}

func successRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

// FailedTarget 报告中的失败目标
type FailedTarget struct {
	Target   string  `json:"target"`
	Platform string  `json:"platform"`
	Kind     ErrKind `json:"kind"`
	Error    string  `json:"error"`
}

// ClickReport 一次运行的最终报告
type ClickReport struct {
	RunID      string         `json:"run_id"`
	Engine     string         `json:"engine"`
	Workers    int            `json:"workers"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   float64        `json:"duration"` // 秒
	Targets    int            `json:"targets"`  // 提交的目标数
	Skipped    int            `json:"skipped"`  // 因中断未执行的目标数
	Stats      ClickStats     `json:"stats"`
	Failures   []FailedTarget `json:"failures"`
}

// NewClickReport 创建报告
func NewClickReport(engine string, workers int, startedAt time.Time) *ClickReport {
	return &ClickReport{
		RunID:     generateID(),
		Engine:    engine,
		Workers:   workers,
		StartedAt: startedAt,
		Stats:     NewClickStats(),
		Failures:  make([]FailedTarget, 0),
	}
}

// ToJSON 序列化为JSON
func (r *ClickReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *ClickReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
