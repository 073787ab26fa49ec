package service

import (
	"context"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
	"github.com/50zero/HL-trade-ledger/internal/gateway/monitor"
	"github.com/50zero/HL-trade-ledger/internal/gateway/registry"
)

const (
	// DefaultLeaderboardLimit 默认与最大返回行数
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 1000

	// 扇出计算的并发上限，受上游权重预算约束不宜过大
	leaderboardMaxGoroutines = 8
)

// LeaderboardParams 排行榜查询参数
type LeaderboardParams struct {
	Metric          string
	Coin            string
	FromMs          int64
	ToMs            int64
	BuilderOnly     bool
	MaxStartCapital float64
	Limit           int
}

// LeaderboardResult 排行榜响应
type LeaderboardResult struct {
	Entries     []model.LeaderboardEntry `json:"entries"`
	GeneratedAt int64                    `json:"generatedAt"`
}

// LeaderboardService 对注册用户集扇出盈亏计算并排序
type LeaderboardService struct {
	pnl      *PnlService
	registry *registry.Registry
	tl       *zap.Logger
	now      func() time.Time
}

func NewLeaderboardService(pnl *PnlService, reg *registry.Registry, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		pnl:      pnl,
		registry: reg,
		tl:       logger,
		now:      time.Now,
	}
}

// GetLeaderboard 计算并返回排行榜。单用户失败记录日志后跳过，不拖垮整榜。
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, p LeaderboardParams) (*LeaderboardResult, error) {
	start := time.Now()
	users := s.registry.List()

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	type row struct {
		entry model.LeaderboardEntry
		ok    bool
	}
	rows := make([]row, len(users))

	workers := pool.New().WithMaxGoroutines(leaderboardMaxGoroutines)
	for i, user := range users {
		idx := i
		addr := user
		workers.Go(func() {
			pnlParams := PnlParams{
				User:            addr,
				Coin:            p.Coin,
				FromMs:          p.FromMs,
				ToMs:            p.ToMs,
				BuilderOnly:     p.BuilderOnly,
				MaxStartCapital: p.MaxStartCapital,
			}

			res, err := s.pnl.CalculatePnl(ctx, pnlParams)
			if err != nil {
				monitor.LeaderboardUsersSkipped.Inc()
				s.tl.Warn("Leaderboard user skipped",
					zap.String("user", addr),
					zap.Error(err))
				return
			}
			if p.BuilderOnly && res.Tainted {
				return
			}

			var metricValue float64
			switch p.Metric {
			case model.MetricPnl:
				metricValue = res.RealizedPnl
			case model.MetricReturnPct:
				metricValue = res.ReturnPct
			case model.MetricVolume:
				volume, err := s.pnl.CalculateVolume(ctx, pnlParams)
				if err != nil {
					monitor.LeaderboardUsersSkipped.Inc()
					s.tl.Warn("Leaderboard volume skipped",
						zap.String("user", addr),
						zap.Error(err))
					return
				}
				metricValue = volume
			default:
				metricValue = res.RealizedPnl
			}

			rows[idx] = row{
				entry: model.LeaderboardEntry{
					User:        addr,
					MetricValue: metricValue,
					TradeCount:  res.TradeCount,
					Tainted:     res.Tainted,
				},
				ok: true,
			}
		})
	}
	workers.Wait()

	// 注册表快照顺序即同分时的稳定顺序
	entries := make([]model.LeaderboardEntry, 0, len(users))
	for _, r := range rows {
		if r.ok {
			entries = append(entries, r.entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MetricValue > entries[j].MetricValue
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	monitor.LeaderboardBuildDuration.Observe(time.Since(start).Seconds())
	return &LeaderboardResult{
		Entries:     entries,
		GeneratedAt: s.now().UnixMilli(),
	}, nil
}
