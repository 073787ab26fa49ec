package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	gateway "github.com/50zero/HL-trade-ledger/internal/gateway"
	"github.com/50zero/HL-trade-ledger/internal/gateway/config"
	"github.com/50zero/HL-trade-ledger/pkg/logger"
)

func main() {
	// 初始化配置
	cfg, err := config.InitConfig()
	if err != nil {
		// logger 未就绪，直接写 stderr
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	// 初始化 trace provider 与 root logger
	logger.InitTrace("hl-trade-ledger", "server")
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	rootLogger := logger.NewLogger("server")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	// 启动配置热加载监听
	go config.WatchConfig(&cfg, tl, func(newCfg config.Config) {
		logger.SetLogLevel(newCfg.Log.Level)
	})

	core, err := gateway.New(cfg, tl)
	if err != nil {
		tl.Error("Gateway init failed", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := core.Start(ctx)

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		tl.Info("Received shutdown signal, starting graceful shutdown...", zap.String("signal", sig.String()))
		core.Stop(ctx)
	case err := <-serverErr:
		if err != nil {
			tl.Error("HTTP server failed", zap.Error(err))
			core.Stop(ctx)
			os.Exit(1)
		}
	}

	tl.Info("Shutting down all cores...")
}
