package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/builder"
	"github.com/50zero/HL-trade-ledger/internal/gateway/cache"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

const (
	// 有效本金下限与收益率钳制区间
	minEffectiveCapital = 0.01
	returnPctCap        = 1000.0

	// DefaultMaxStartCapital 有效本金上限默认值
	DefaultMaxStartCapital = 1_000_000.0
)

// PnlParams 盈亏计算参数
type PnlParams struct {
	User            string
	Coin            string
	FromMs          int64
	ToMs            int64
	BuilderOnly     bool
	MaxStartCapital float64
}

// PnlService 区间已实现盈亏与收益率
type PnlService struct {
	trades          *TradeService
	store           *cache.Store
	filter          *builder.Filter
	maxStartCapital float64
	tl              *zap.Logger
	now             func() time.Time
}

func NewPnlService(trades *TradeService, store *cache.Store, filter *builder.Filter, maxStartCapital float64, logger *zap.Logger) *PnlService {
	if maxStartCapital <= 0 {
		maxStartCapital = DefaultMaxStartCapital
	}
	return &PnlService{
		trades:          trades,
		store:           store,
		filter:          filter,
		maxStartCapital: maxStartCapital,
		tl:              logger,
		now:             time.Now,
	}
}

// CalculatePnl 单趟扫描窗口内成交，汇总已实现盈亏并按封顶本金折算收益率
func (s *PnlService) CalculatePnl(ctx context.Context, p PnlParams) (*model.PnlResult, error) {
	fills, err := s.trades.GetRawFills(ctx, p.User, p.Coin, p.FromMs, p.ToMs)
	if err != nil {
		return nil, err
	}

	var (
		realizedPnl float64
		feesPaid    float64
		tradeCount  int

		hasBuilder    bool
		hasNonBuilder bool
	)

	for i := range fills {
		fill := &fills[i]
		if fill.Time < p.FromMs || fill.Time > p.ToMs {
			continue
		}

		attributed := s.filter.IsBuilderFill(fill)
		if attributed {
			hasBuilder = true
		} else {
			hasNonBuilder = true
		}

		if p.BuilderOnly && !attributed {
			continue
		}
		realizedPnl += fill.ClosedPnlAmount()
		feesPaid += fill.FeeAmount()
		tradeCount++
	}

	equity, err := s.equityAt(ctx, p.User, p.FromMs, fills)
	if err != nil {
		return nil, err
	}

	maxStartCapital := p.MaxStartCapital
	if maxStartCapital <= 0 {
		maxStartCapital = s.maxStartCapital
	}

	effectiveCapital := equity
	if effectiveCapital < minEffectiveCapital {
		effectiveCapital = minEffectiveCapital
	}
	if effectiveCapital > maxStartCapital {
		effectiveCapital = maxStartCapital
	}

	returnPct := 100 * realizedPnl / effectiveCapital
	if returnPct > returnPctCap {
		returnPct = returnPctCap
	} else if returnPct < -returnPctCap {
		returnPct = -returnPctCap
	}

	return &model.PnlResult{
		RealizedPnl:      realizedPnl,
		ReturnPct:        returnPct,
		FeesPaid:         feesPaid,
		TradeCount:       tradeCount,
		Tainted:          p.BuilderOnly && hasBuilder && hasNonBuilder,
		EffectiveCapital: effectiveCapital,
	}, nil
}

// CalculateVolume 同一成交集的名义成交额汇总
func (s *PnlService) CalculateVolume(ctx context.Context, p PnlParams) (float64, error) {
	fills, err := s.trades.GetRawFills(ctx, p.User, p.Coin, p.FromMs, p.ToMs)
	if err != nil {
		return 0, err
	}

	var volume float64
	for i := range fills {
		fill := &fills[i]
		if fill.Time < p.FromMs || fill.Time > p.ToMs {
			continue
		}
		if p.BuilderOnly && !s.filter.IsBuilderFill(fill) {
			continue
		}
		volume += fill.Price() * fill.Size()
	}
	return volume, nil
}

// equityAt 历史权益近似：当前权益减去本次窗口成交中时间落在 (fromMs, now] 的已实现盈亏。
// 只扫描传入的 [fromMs, toMs] 成交，toMs 之后的成交不参与扣减。
// 不修正出入金，是已知的近似误差。
func (s *PnlService) equityAt(ctx context.Context, user string, fromMs int64, fills []model.RawFill) (float64, error) {
	state, err := s.store.GetClearinghouse(ctx, user)
	if err != nil {
		return 0, err
	}
	current := state.AccountValue()

	nowMs := s.now().UnixMilli()
	if fromMs >= nowMs {
		return current, nil
	}

	var pnlSince float64
	for i := range fills {
		if fills[i].Time > fromMs && fills[i].Time <= nowMs {
			pnlSince += fills[i].ClosedPnlAmount()
		}
	}

	equity := current - pnlSince
	if equity < minEffectiveCapital {
		equity = minEffectiveCapital
	}
	return equity, nil
}
