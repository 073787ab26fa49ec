package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/builder"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

const sizeEpsilon = 1e-9

// PositionParams 仓位重建参数
type PositionParams struct {
	User         string
	Coin         string
	FromMs       int64
	ToMs         int64
	BuilderOnly  bool
	IncludePrior bool
}

// PositionService 以平均成本法从成交流重建仓位时间线
type PositionService struct {
	trades *TradeService
	filter *builder.Filter
	tl     *zap.Logger
}

func NewPositionService(trades *TradeService, filter *builder.Filter, logger *zap.Logger) *PositionService {
	return &PositionService{
		trades: trades,
		filter: filter,
		tl:     logger,
	}
}

// GetPositionHistory 重建窗口内的仓位状态序列。
// includePrior 时从 0 拉起，fromMs 时刻的开仓均价才能重建正确。
func (s *PositionService) GetPositionHistory(ctx context.Context, p PositionParams) ([]model.PositionState, error) {
	startMs := int64(0)
	if !p.IncludePrior {
		startMs = p.FromMs
	}

	fills, err := s.trades.GetRawFills(ctx, p.User, p.Coin, startMs, p.ToMs)
	if err != nil {
		return nil, err
	}

	var coins []string
	if p.Coin != "" {
		coins = []string{strings.ToUpper(p.Coin)}
	} else {
		coins = distinctCoins(fills)
	}

	var states []model.PositionState
	for _, coin := range coins {
		states = append(states, s.reconstructCoin(fills, coin, p)...)
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].TimeMs < states[j].TimeMs
	})
	return states, nil
}

// distinctCoins 按首次出现顺序去重
func distinctCoins(fills []model.RawFill) []string {
	seen := make(map[string]struct{}, 8)
	var coins []string
	for _, fill := range fills {
		if _, ok := seen[fill.Coin]; ok {
			continue
		}
		seen[fill.Coin] = struct{}{}
		coins = append(coins, fill.Coin)
	}
	return coins
}

// reconstructCoin 单币种平均成本重建。
// builderOnly 模式下非归属成交不动仓位，但参与周期污染计数；净仓归零时计数清零。
func (s *PositionService) reconstructCoin(fills []model.RawFill, coin string, p PositionParams) []model.PositionState {
	var (
		netSize    float64
		avgEntryPx float64
		totalCost  float64

		hasBuilder    bool
		hasNonBuilder bool

		states []model.PositionState
	)

	for i := range fills {
		fill := &fills[i]
		if !strings.EqualFold(fill.Coin, coin) {
			continue
		}

		attributed := s.filter.IsBuilderFill(fill)
		if attributed {
			hasBuilder = true
		} else {
			hasNonBuilder = true
		}

		counted := !p.BuilderOnly || attributed
		if !counted {
			continue
		}

		signed := fill.SignedSize()
		price := fill.Price()
		prev := netSize
		next := prev + signed
		if math.Abs(next) < sizeEpsilon {
			next = 0
		}

		switch {
		case prev == 0:
			// 开仓
			avgEntryPx = price
			totalCost = math.Abs(next) * price
		case sameSign(prev, signed):
			// 加仓，成本摊平
			totalCost = math.Abs(prev)*avgEntryPx + math.Abs(signed)*price
			if next != 0 {
				avgEntryPx = totalCost / math.Abs(next)
			}
		case math.Abs(signed) > math.Abs(prev) && next != 0:
			// 反向穿仓，按新方向重新开仓
			avgEntryPx = price
			totalCost = math.Abs(next) * price
		default:
			// 减仓，均价不变
		}

		netSize = next
		if netSize == 0 {
			// 周期结束
			avgEntryPx = 0
			totalCost = 0
		}

		if fill.Time >= p.FromMs {
			states = append(states, model.PositionState{
				TimeMs:     fill.Time,
				Coin:       fill.Coin,
				NetSize:    netSize,
				AvgEntryPx: avgEntryPx,
				Tainted:    hasBuilder && hasNonBuilder,
			})
		}

		if netSize == 0 {
			hasBuilder = false
			hasNonBuilder = false
		}
	}

	return states
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
