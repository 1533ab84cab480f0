package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/RecoveryAshes/ThreadCrawl/internal/config"
	"github.com/RecoveryAshes/ThreadCrawl/internal/crawlers"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  ThreadCrawl 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	// 检查Go版本
	goVersion := runtime.Version()
	fmt.Printf("✅ Go版本: %s\n", goVersion)
	if !strings.HasPrefix(goVersion, "go1.24") && !strings.HasPrefix(goVersion, "go1.25") {
		fmt.Println("⚠️  警告: 建议使用Go 1.24+版本")
	}

	// 检查操作系统
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 检查配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("❌ 配置加载失败: %v\n", err)
		allOK = false
	} else {
		fmt.Println("✅ 配置加载成功")
	}

	// 检查浏览器
	switch {
	case cfg != nil && cfg.Browser.RemoteURL != "":
		fmt.Printf("✅ 使用远程浏览器: %s\n", cfg.Browser.RemoteURL)
	case cfg != nil && cfg.Browser.Bin != "":
		if _, err := os.Stat(cfg.Browser.Bin); err == nil {
			fmt.Printf("✅ 浏览器: %s\n", cfg.Browser.Bin)
		} else {
			fmt.Printf("❌ 配置的浏览器不存在: %s\n", cfg.Browser.Bin)
			allOK = false
		}
	default:
		if path, found := launcher.LookPath(); found {
			fmt.Printf("✅ 找到Chromium: %s\n", path)
		} else {
			fmt.Println("⚠️  未找到本地Chromium - 首次运行时将自动下载")
		}
	}

	// 检查系统资源
	if cfg != nil {
		if monitorCfg, enabled := cfg.ResourceMonitorOptions(); enabled {
			monitor := crawlers.NewResourceMonitor(monitorCfg)
			if status, err := monitor.GetMemoryStatus(); err == nil {
				fmt.Printf("✅ 可用内存: %d MB (压力: %s)\n", status.AvailableMemory/(1024*1024), status.MemoryPressure)
			}
			limit := monitor.CalculateMaxInstances(cfg.Browser.PoolSize)
			fmt.Printf("✅ 渲染实例上限: %d (配置 %d)\n", limit, cfg.Browser.PoolSize)
			if ok, reason := monitor.CheckResourceAvailability(); !ok {
				fmt.Printf("⚠️  %s\n", reason)
			}
		}
	}

	// 检查项目结构
	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/threadcrawl",
		"internal/core",
		"internal/crawlers",
		"internal/server",
		"internal/utils",
		"internal/models",
	}

	for _, dir := range requiredDirs {
		if _, err := os.Stat(dir); err == nil {
			fmt.Printf("✅ %s/\n", dir)
		} else {
			fmt.Printf("❌ %s/ 不存在\n", dir)
			allOK = false
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build ./cmd/threadcrawl' 构建项目")
		fmt.Println("  2. 运行 './threadcrawl --help' 查看帮助")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}
