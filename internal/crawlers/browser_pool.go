package crawlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultPoolCapacity 默认渲染实例上限
const DefaultPoolCapacity = 2

// PooledBrowser 池中的渲染实例
// 同一时刻只借给一个任务
type PooledBrowser struct {
	ID      int
	Browser Browser
	busy    bool
}

// PoolStats 池状态快照
type PoolStats struct {
	Capacity  int `json:"capacity"`
	Instances int `json:"instances"`
	Busy      int `json:"busy"`
	Waiting   int `json:"waiting"`
	Replaced  int `json:"replaced"`
}

// BrowserPool 渲染实例池
// 职责: 按需创建实例(不超过容量),独占借出,归还后唤醒一个等待者,获取时替换已断开的实例
type BrowserPool struct {
	launch   Launcher
	capacity int

	// 保护以下字段
	mu        sync.Mutex
	instances []*PooledBrowser
	waiters   []chan struct{}
	nextID    int
	replaced  int
	closed    bool
}

// PoolOption 池配置项
type PoolOption func(*BrowserPool)

// WithResourceMonitor 根据系统资源收紧容量,仅在创建时计算一次
func WithResourceMonitor(monitor *ResourceMonitor) PoolOption {
	return func(bp *BrowserPool) {
		if monitor != nil {
			bp.capacity = monitor.CalculateMaxInstances(bp.capacity)
		}
	}
}

// NewBrowserPool 创建渲染实例池,实例延迟创建
func NewBrowserPool(launch Launcher, capacity int, opts ...PoolOption) *BrowserPool {
	if capacity < 1 {
		capacity = DefaultPoolCapacity
	}
	bp := &BrowserPool{
		launch:   launch,
		capacity: capacity,
		nextID:   1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	log.Debug().Int("capacity", bp.capacity).Msg("渲染实例池已创建")
	return bp
}

// Capacity 返回固定容量
func (bp *BrowserPool) Capacity() int {
	return bp.capacity
}

// Acquire 借出一个渲染实例
// 池满且全部繁忙时挂起等待,直到有实例归还或ctx结束
func (bp *BrowserPool) Acquire(ctx context.Context) (*PooledBrowser, error) {
	for {
		bp.mu.Lock()
		if bp.closed {
			bp.mu.Unlock()
			return nil, models.ErrPoolClosed
		}

		// 1. 复用空闲实例
		for _, pb := range bp.instances {
			if !pb.busy {
				pb.busy = true
				bp.mu.Unlock()
				return bp.ensureConnected(ctx, pb)
			}
		}

		// 2. 未达上限,预占一个位置后在锁外创建
		if len(bp.instances) < bp.capacity {
			pb := &PooledBrowser{ID: bp.nextID, busy: true}
			bp.nextID++
			bp.instances = append(bp.instances, pb)
			bp.mu.Unlock()

			browser, err := bp.launch(ctx)
			if err != nil {
				bp.discard(pb)
				return nil, fmt.Errorf("创建渲染实例失败: %w", err)
			}
			if err := bp.install(pb, browser); err != nil {
				return nil, err
			}
			log.Debug().Int("instance", pb.ID).Msg("创建新渲染实例")
			return pb, nil
		}

		// 3. 全部繁忙,登记等待
		wake := make(chan struct{})
		bp.waiters = append(bp.waiters, wake)
		bp.mu.Unlock()

		select {
		case <-wake:
			// 被唤醒后重新扫描,不保证一定抢到
		case <-ctx.Done():
			bp.cancelWait(wake)
			return nil, fmt.Errorf("%w: %v", models.ErrPoolExhausted, ctx.Err())
		}
	}
}

// ensureConnected 检查借出的实例,已断开则原位替换
func (bp *BrowserPool) ensureConnected(ctx context.Context, pb *PooledBrowser) (*PooledBrowser, error) {
	if pb.Browser != nil && pb.Browser.Connected() {
		return pb, nil
	}

	log.Warn().Int("instance", pb.ID).Msg("渲染实例已断开,重新创建")
	if pb.Browser != nil {
		if err := pb.Browser.Close(); err != nil {
			log.Debug().Err(err).Int("instance", pb.ID).Msg("关闭断开的实例失败")
		}
	}

	browser, err := bp.launch(ctx)
	if err != nil {
		bp.discard(pb)
		return nil, fmt.Errorf("替换渲染实例失败: %w", err)
	}
	if err := bp.install(pb, browser); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	bp.replaced++
	bp.mu.Unlock()
	return pb, nil
}

// install 把锁外创建的实例挂到位置上
// 创建期间池已关闭时,新实例由这里关闭,Drain不会再看到它
func (bp *BrowserPool) install(pb *PooledBrowser, browser Browser) error {
	bp.mu.Lock()
	if !bp.closed {
		pb.Browser = browser
		bp.mu.Unlock()
		return nil
	}
	bp.mu.Unlock()

	if err := browser.Close(); err != nil {
		log.Debug().Err(err).Int("instance", pb.ID).Msg("关闭池关闭后创建的实例失败")
	}
	return models.ErrPoolClosed
}

// discard 移除创建失败的位置,并把机会让给一个等待者
func (bp *BrowserPool) discard(pb *PooledBrowser) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for i, p := range bp.instances {
		if p == pb {
			bp.instances = append(bp.instances[:i], bp.instances[i+1:]...)
			break
		}
	}
	bp.wakeOneLocked()
}

// Release 归还实例,不做任何校验
func (bp *BrowserPool) Release(pb *PooledBrowser) {
	if pb == nil {
		return
	}
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pb.busy = false
	bp.wakeOneLocked()
}

func (bp *BrowserPool) wakeOneLocked() {
	if len(bp.waiters) == 0 {
		return
	}
	wake := bp.waiters[0]
	bp.waiters = bp.waiters[1:]
	close(wake)
}

// cancelWait 撤销等待登记;若已被唤醒,把唤醒转交给下一个等待者
func (bp *BrowserPool) cancelWait(wake chan struct{}) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for i, w := range bp.waiters {
		if w == wake {
			bp.waiters = append(bp.waiters[:i], bp.waiters[i+1:]...)
			return
		}
	}
	bp.wakeOneLocked()
}

// Stats 返回池状态
func (bp *BrowserPool) Stats() PoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := PoolStats{
		Capacity:  bp.capacity,
		Instances: len(bp.instances),
		Waiting:   len(bp.waiters),
		Replaced:  bp.replaced,
	}
	for _, pb := range bp.instances {
		if pb.busy {
			stats.Busy++
		}
	}
	return stats
}

// Drain 关闭所有实例并清空池
// 仅在进程受控退出时调用,调用前应确保没有任务在运行
func (bp *BrowserPool) Drain() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}

	var firstErr error
	for _, pb := range bp.instances {
		if pb.Browser == nil {
			continue
		}
		if err := pb.Browser.Close(); err != nil {
			log.Warn().Err(err).Int("instance", pb.ID).Msg("关闭渲染实例失败")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	bp.instances = nil

	for _, w := range bp.waiters {
		close(w)
	}
	bp.waiters = nil
	bp.closed = true

	log.Info().Msg("渲染实例池已关闭")
	return firstErr
}
