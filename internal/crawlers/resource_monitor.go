package crawlers

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const mib = 1024 * 1024

// ResourceMonitor 系统资源监控器
// 职责: 根据可用内存和CPU负载,限制引擎每批并发处理的页面数
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 可替换的采样函数,测试中注入固定值
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	cpuPercent    func(time.Duration, bool) ([]float64, error)

	// 缓存的CalculateMaxWorkers结果(每秒最多重算一次)
	cacheMu       sync.Mutex
	cachedMax     int
	lastCacheTime time.Time

	// 后台采样的CPU使用率
	cpuMu        sync.RWMutex
	lastCPUUsage float64

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 为系统保留的内存(字节)
	WorkerMemoryUsage   int64 // 单个worker的估算内存(字节)
	CPULoadThreshold    int   // CPU负载阈值(%),>= 200 视为禁用
	MaxWorkersLimit     int   // 绝对上限
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64
	AvailableMemory int64 // 扣除保留内存后的可用量,可能为负
	MemoryPressure  string
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage <= 0 {
		config.WorkerMemoryUsage = 32 * mib
	}
	if config.MaxWorkersLimit <= 0 {
		config.MaxWorkersLimit = 64
	}
	return &ResourceMonitor{
		config:        config,
		virtualMemory: mem.VirtualMemory,
		cpuPercent:    cpu.Percent,
	}
}

// StartMonitoring 启动后台CPU采样,重复调用无副作用
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cancelFunc != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usage := rm.sampleCPU()
			rm.cpuMu.Lock()
			rm.lastCPUUsage = usage
			rm.cpuMu.Unlock()
		}
	}
}

// sampleCPU 100毫秒窗口内所有核心的平均使用率
func (rm *ResourceMonitor) sampleCPU() float64 {
	percentages, err := rm.cpuPercent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		log.Debug().Err(err).Msg("获取CPU使用率失败")
		return 0
	}
	return percentages[0]
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.cancelFunc = nil
	}
}

// CalculateMaxWorkers 返回本批允许的并发数,不超过requested,至少为1
// 内存紧张或CPU负载超过阈值时降为1,即退化为顺序爬取
func (rm *ResourceMonitor) CalculateMaxWorkers(requested int) int {
	if requested <= 1 {
		return 1
	}

	rm.cacheMu.Lock()
	if time.Since(rm.lastCacheTime) < time.Second && rm.cachedMax > 0 {
		cached := rm.cachedMax
		rm.cacheMu.Unlock()
		return min(cached, requested)
	}
	rm.cacheMu.Unlock()

	limit := rm.config.MaxWorkersLimit

	status := rm.GetMemoryStatus()
	if status.TotalMemory > 0 {
		byMemory := int(status.AvailableMemory / rm.config.WorkerMemoryUsage)
		limit = min(limit, max(byMemory, 1))
	}

	if rm.config.CPULoadThreshold > 0 && rm.config.CPULoadThreshold < 200 {
		rm.cpuMu.RLock()
		usage := rm.lastCPUUsage
		rm.cpuMu.RUnlock()
		if usage > float64(rm.config.CPULoadThreshold) {
			log.Warn().Msgf("CPU负载过高(当前%.1f%%),本批退化为顺序处理", usage)
			limit = 1
		}
	}

	limit = max(limit, 1)

	rm.cacheMu.Lock()
	rm.cachedMax = limit
	rm.lastCacheTime = time.Now()
	rm.cacheMu.Unlock()

	return min(limit, requested)
}

// GetMemoryStatus 读取系统内存;读取失败时TotalMemory为0,调用方不做内存限制
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	vm, err := rm.virtualMemory()
	if err != nil || vm == nil {
		log.Debug().Err(err).Msg("获取系统内存失败")
		return MemoryStatus{MemoryPressure: "unknown"}
	}

	available := int64(vm.Available) - rm.config.SafetyReserveMemory

	var pressure string
	switch availableMB := available / mib; {
	case availableMB < 200:
		pressure = "emergency"
	case availableMB < 500:
		pressure = "warning"
	default:
		pressure = "normal"
	}

	return MemoryStatus{
		TotalMemory:     vm.Total,
		AvailableMemory: available,
		MemoryPressure:  pressure,
	}
}

// NumCPU 逻辑CPU数,用于日志
func NumCPU() int {
	return runtime.NumCPU()
}
