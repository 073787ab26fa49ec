package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/api"
	"github.com/50zero/HL-trade-ledger/internal/gateway/builder"
	"github.com/50zero/HL-trade-ledger/internal/gateway/cache"
	"github.com/50zero/HL-trade-ledger/internal/gateway/config"
	"github.com/50zero/HL-trade-ledger/internal/gateway/datasource"
	"github.com/50zero/HL-trade-ledger/internal/gateway/job"
	"github.com/50zero/HL-trade-ledger/internal/gateway/monitor"
	"github.com/50zero/HL-trade-ledger/internal/gateway/registry"
	"github.com/50zero/HL-trade-ledger/internal/gateway/service"
)

// Core 自底向上组装所有组件并管理生命周期
type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	server    *api.Server
	scheduler *job.Scheduler
	metrics   *monitor.MetricsServer
}

// New 构建 Core。依赖图无环：限流 → 上游 → 缓存 → 服务 → HTTP。
func New(cfg config.Config, logger *zap.Logger) (*Core, error) {
	ds, err := datasource.New(cfg.Datasource, cfg.Rate, logger)
	if err != nil {
		return nil, err
	}

	store := cache.NewStore(cfg.Cache, ds, logger)
	filter := builder.NewFilter(cfg.Builder.Target)
	reg := registry.New()

	trades := service.NewTradeService(store, filter, cfg.Builder.Labels, logger)
	positions := service.NewPositionService(trades, filter, logger)
	pnl := service.NewPnlService(trades, store, filter, cfg.Pnl.MaxStartCapital, logger)
	leaderboard := service.NewLeaderboardService(pnl, reg, logger)

	server := api.NewServer(cfg.Server.Port, logger, ds, trades, positions, pnl, leaderboard, reg)

	scheduler := job.NewScheduler(logger)
	cacheStats := job.NewCacheStats(store, reg)
	scheduler.RegisterJob("cache_stats", time.Minute, cacheStats.Run)

	if cfg.Leaderboard.RefreshMs > 0 {
		refresh := time.Duration(cfg.Leaderboard.RefreshMs) * time.Millisecond
		warmup := job.NewLeaderboardWarmup(leaderboard, 24*time.Hour, logger)
		scheduler.RegisterJob("leaderboard_warmup", refresh, warmup.Run)
	}

	return &Core{
		cfg:       cfg,
		tl:        logger,
		server:    server,
		scheduler: scheduler,
		metrics:   monitor.NewMetricsServer(cfg.Monitor),
	}, nil
}

// Start 启动各子系统，HTTP 监听失败通过 errCh 上抛
func (c *Core) Start(ctx context.Context) <-chan error {
	c.tl.Info("Starting gateway core...",
		zap.String("datasource", c.cfg.Datasource.Type),
		zap.Int("port", c.cfg.Server.Port))

	if c.metrics != nil {
		c.metrics.Run()
	}
	c.scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.server.Run()
	}()

	c.tl.Info("Gateway started successfully")
	return errCh
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping gateway core...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.server.Shutdown(shutdownCtx); err != nil {
		c.tl.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	c.scheduler.Stop(shutdownCtx)

	if c.metrics != nil {
		_ = c.metrics.Stop(shutdownCtx)
	}

	c.tl.Info("Gateway core stopped.")
}
