package crawlers

import (
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 职责: 根据可用内存和CPU计算渲染实例上限,创建实例前检查资源
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 便于测试替换的采样函数
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	cpuPercent    func(interval time.Duration, percpu bool) ([]float64, error)
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 安全阈值(字节)
	CPULoadThreshold    int   // CPU负载阈值(%),>=200视为禁用
	InstanceMemoryUsage int64 // 单个浏览器实例平均内存消耗(字节)
}

// DefaultResourceMonitorConfig 默认配置
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: 1024 * 1024 * 1024, // 1GB
		SafetyThreshold:     500 * 1024 * 1024,  // 500MB
		CPULoadThreshold:    90,
		InstanceMemoryUsage: 300 * 1024 * 1024, // 300MB per browser
	}
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64 // 系统总内存(字节)
	AvailableMemory int64  // 扣除安全保留后的可用内存(字节)
	MemoryPressure  string // 内存压力等级
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.InstanceMemoryUsage <= 0 {
		config.InstanceMemoryUsage = 300 * 1024 * 1024
	}
	return &ResourceMonitor{
		config:        config,
		virtualMemory: mem.VirtualMemory,
		cpuPercent:    cpu.Percent,
	}
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() (MemoryStatus, error) {
	vmStat, err := rm.virtualMemory()
	if err != nil {
		return MemoryStatus{}, fmt.Errorf("获取系统内存失败: %w", err)
	}

	available := int64(vmStat.Available) - rm.config.SafetyReserveMemory
	availableMB := available / (1024 * 1024)

	var pressure string
	switch {
	case availableMB < 200:
		pressure = "emergency"
	case availableMB < 300:
		pressure = "critical"
	case availableMB < 500:
		pressure = "warning"
	default:
		pressure = "normal"
	}

	return MemoryStatus{
		TotalMemory:     vmStat.Total,
		AvailableMemory: available,
		MemoryPressure:  pressure,
	}, nil
}

// CalculateMaxInstances 计算允许的最大实例数,结果不超过requested且至少为1
func (rm *ResourceMonitor) CalculateMaxInstances(requested int) int {
	if requested < 1 {
		requested = 1
	}

	status, err := rm.GetMemoryStatus()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用配置的实例数")
		return requested
	}

	maxByMemory := 1
	if status.AvailableMemory > rm.config.SafetyThreshold {
		surplus := status.AvailableMemory - rm.config.SafetyThreshold
		maxByMemory = int(surplus / rm.config.InstanceMemoryUsage)
	}
	maxByCPU := runtime.NumCPU()

	result := min(requested, maxByMemory, maxByCPU)
	if result < 1 {
		result = 1
	}

	if result < requested {
		log.Warn().Msgf("资源受限,渲染实例上限从 %d 调整为 %d (可用内存 %dMB, 压力 %s)",
			requested, result, status.AvailableMemory/(1024*1024), status.MemoryPressure)
	}
	return result
}

// CheckResourceAvailability 检查当前资源是否允许创建新实例
// 返回canCreate(是否允许创建)和reason(不允许时的原因)
func (rm *ResourceMonitor) CheckResourceAvailability() (canCreate bool, reason string) {
	status, err := rm.GetMemoryStatus()
	if err != nil {
		return true, ""
	}

	if status.AvailableMemory < rm.config.SafetyThreshold {
		return false, fmt.Sprintf("内存不足(当前%dMB)", status.AvailableMemory/(1024*1024))
	}

	if rm.config.CPULoadThreshold < 200 {
		percentages, err := rm.cpuPercent(100*time.Millisecond, false)
		if err == nil && len(percentages) > 0 && percentages[0] > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", percentages[0])
		}
	}

	return true, ""
}
