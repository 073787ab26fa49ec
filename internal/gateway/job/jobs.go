package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/cache"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
	"github.com/50zero/HL-trade-ledger/internal/gateway/monitor"
	"github.com/50zero/HL-trade-ledger/internal/gateway/registry"
	"github.com/50zero/HL-trade-ledger/internal/gateway/service"
)

// CacheStats 周期性上报缓存与注册表规模
type CacheStats struct {
	store *cache.Store
	reg   *registry.Registry
}

func NewCacheStats(store *cache.Store, reg *registry.Registry) *CacheStats {
	return &CacheStats{store: store, reg: reg}
}

func (j *CacheStats) Run(ctx context.Context) error {
	monitor.CacheEntries.WithLabelValues("fills").Set(float64(j.store.FillsCount()))
	monitor.CacheEntries.WithLabelValues("clearinghouse").Set(float64(j.store.ClearinghouseCount()))
	monitor.RegisteredUsers.Set(float64(j.reg.Size()))
	return nil
}

// LeaderboardWarmup 周期性计算最近 window 时长内的盈亏榜。
// 成交缓存键含精确的 fromMs/toMs，只有窗口完全相同的请求才会复用本作业写入的缓存。
type LeaderboardWarmup struct {
	leaderboard *service.LeaderboardService
	window      time.Duration
	tl          *zap.Logger
}

func NewLeaderboardWarmup(leaderboard *service.LeaderboardService, window time.Duration, logger *zap.Logger) *LeaderboardWarmup {
	return &LeaderboardWarmup{
		leaderboard: leaderboard,
		window:      window,
		tl:          logger,
	}
}

func (j *LeaderboardWarmup) Run(ctx context.Context) error {
	nowMs := time.Now().UnixMilli()
	params := service.LeaderboardParams{
		Metric: model.MetricPnl,
		FromMs: nowMs - j.window.Milliseconds(),
		ToMs:   nowMs,
	}

	result, err := j.leaderboard.GetLeaderboard(ctx, params)
	if err != nil {
		return err
	}
	j.tl.Debug("Leaderboard warmup completed", zap.Int("entries", len(result.Entries)))
	return nil
}
