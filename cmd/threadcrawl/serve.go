package main

import (
	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/ThreadCrawl/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP提取服务",
	Long: `启动HTTP服务,所有请求共享渲染实例池和结果缓存。

接口:
  POST /extract   {"url": "...", "timeoutMs": 30000, "maxPosts": 100, "authCookie": "...", "format": "json"}
  GET  /extract?url=...&format=markdown
  GET  /healthz`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			appConfig.Server.Addr = serveAddr
		}
		if err := ValidateFlags("", "json", appConfig.Extract.TimeoutMs, appConfig.Extract.MaxPosts, appConfig.Browser.PoolSize); err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		app, err := newApp(appConfig)
		if err != nil {
			return err
		}
		// 服务关闭后(进行中的请求已返回)再关闭渲染实例
		defer app.Close()

		opts := []server.Option{server.WithStats(app.engine)}
		if app.monitor != nil {
			opts = append(opts, server.WithResourceChecker(app.monitor))
		}
		srv := server.New(app.engine, opts...)
		return srv.ListenAndServe(ctx, appConfig.Server.Addr, appConfig.Server.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "监听地址")
}
