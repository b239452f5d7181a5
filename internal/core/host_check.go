package core

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// BrowserMemoryReserve 运行一个浏览器实例需要预留的内存
	BrowserMemoryReserve uint64 = 512 * 1024 * 1024

	// CPULoadThreshold CPU负载告警阈值(%)
	CPULoadThreshold = 90.0
)

// MemoryPressure 内存压力等级
type MemoryPressure string

const (
	PressureLow     MemoryPressure = "low"
	PressureMedium  MemoryPressure = "medium"
	PressureHigh    MemoryPressure = "high"
	PressureUnknown MemoryPressure = "unknown"
)

// HostStatus 启动浏览器前的主机资源状态
type HostStatus struct {
	TotalMemory     uint64
	AvailableMemory uint64
	CPUPercent      float64
	Pressure        MemoryPressure
	Workers         int // 调整后的并发数
}

// HostProbe 资源采样函数,测试中可替换
type HostProbe struct {
	VirtualMemory func() (*mem.VirtualMemoryStat, error)
	CPUPercent    func(interval time.Duration, percpu bool) ([]float64, error)
}

// DefaultHostProbe 使用gopsutil采样
func DefaultHostProbe() HostProbe {
	return HostProbe{
		VirtualMemory: mem.VirtualMemory,
		CPUPercent:    cpu.Percent,
	}
}

// HostCheck 检查主机资源
// 可用内存不足以运行浏览器时记录警告并把并发数降为1,
// 所有任务共用一个浏览器,降并发只减少排队中的goroutine
func HostCheck(probe HostProbe, workers int, logger zerolog.Logger) HostStatus {
	status := HostStatus{Pressure: PressureUnknown, Workers: workers}

	if probe.VirtualMemory != nil {
		vm, err := probe.VirtualMemory()
		if err != nil {
			logger.Warn().Err(err).Msg("获取系统内存失败,跳过资源检查")
		} else {
			status.TotalMemory = vm.Total
			status.AvailableMemory = vm.Available
			status.Pressure = pressureOf(vm.Available)
		}
	}

	if probe.CPUPercent != nil {
		if percentages, err := probe.CPUPercent(100*time.Millisecond, false); err == nil && len(percentages) > 0 {
			status.CPUPercent = percentages[0]
		}
	}

	switch status.Pressure {
	case PressureHigh:
		logger.Warn().
			Str("available", formatGB(status.AvailableMemory)).
			Msg("可用内存不足,浏览器可能无法启动,并发数降为1")
		status.Workers = 1
	case PressureMedium:
		logger.Warn().
			Str("available", formatGB(status.AvailableMemory)).
			Msg("可用内存偏低")
	}
	if status.CPUPercent >= CPULoadThreshold {
		logger.Warn().Float64("cpu", status.CPUPercent).Msg("CPU负载过高,页面加载可能超时")
	}

	logger.Debug().
		Str("total", formatGB(status.TotalMemory)).
		Str("available", formatGB(status.AvailableMemory)).
		Float64("cpu", status.CPUPercent).
		Str("pressure", string(status.Pressure)).
		Msg("主机资源检查完成")

	return status
}

func pressureOf(available uint64) MemoryPressure {
	switch {
	case available < BrowserMemoryReserve:
		return PressureHigh
	case available < 2*BrowserMemoryReserve:
		return PressureMedium
	default:
		return PressureLow
	}
}

func formatGB(b uint64) string {
	return strconv.FormatFloat(float64(b)/(1024*1024*1024), 'f', 2, 64) + " GB"
}
