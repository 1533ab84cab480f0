package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/ThreadCrawl/internal/config"
	"github.com/RecoveryAshes/ThreadCrawl/internal/core"
	"github.com/RecoveryAshes/ThreadCrawl/internal/crawlers"
	"github.com/RecoveryAshes/ThreadCrawl/internal/utils"
)

// app 进程内共享的引擎组件
type app struct {
	pool    *crawlers.BrowserPool
	cache   *core.ResultCache
	monitor *crawlers.ResourceMonitor
	engine  *core.Engine
}

// newApp 按配置组装渲染实例池、缓存和引擎
func newApp(cfg *config.Config) (*app, error) {
	var opts []crawlers.PoolOption
	var monitor *crawlers.ResourceMonitor
	if monitorCfg, enabled := cfg.ResourceMonitorOptions(); enabled {
		monitor = crawlers.NewResourceMonitor(monitorCfg)
		opts = append(opts, crawlers.WithResourceMonitor(monitor))
	}

	pool := crawlers.NewBrowserPool(crawlers.NewRodLauncher(cfg.BrowserOptions()), cfg.Browser.PoolSize, opts...)
	if pool.Capacity() < cfg.Browser.PoolSize {
		utils.Warnf("⚠️  系统资源有限,渲染实例上限从 %d 调整为 %d", cfg.Browser.PoolSize, pool.Capacity())
	}

	cache, err := core.NewResultCache(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("创建结果缓存失败: %w", err)
	}

	return &app{
		pool:    pool,
		cache:   cache,
		monitor: monitor,
		engine:  core.NewEngine(pool, cache, cfg.EngineOptions()),
	}, nil
}

// Close 关闭所有渲染实例
func (a *app) Close() {
	if err := a.pool.Drain(); err != nil {
		utils.Warnf("关闭渲染实例失败: %v", err)
	}
}

// signalContext 收到中断信号时取消context
// 第二次信号直接退出
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("收到中断信号: %v, 正在优雅关闭...", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		sig := <-sigChan
		utils.Warnf("再次收到信号: %v, 强制退出", sig)
		os.Exit(130)
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
