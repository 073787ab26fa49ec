package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/builder"
	"github.com/50zero/HL-trade-ledger/internal/gateway/cache"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

// collapseBy 可选值
const (
	CollapseByHash = "hash"
	CollapseByOid  = "oid"
	CollapseByTid  = "tid"
)

// TradeParams 成交查询参数
type TradeParams struct {
	User        string
	Coin        string
	FromMs      int64
	ToMs        int64
	BuilderOnly bool
	CollapseBy  string
}

// TradeService 成交归一化与过滤
type TradeService struct {
	store  *cache.Store
	filter *builder.Filter
	labels map[string]string
	tl     *zap.Logger
}

func NewTradeService(store *cache.Store, filter *builder.Filter, labels map[string]string, logger *zap.Logger) *TradeService {
	return &TradeService{
		store:  store,
		filter: filter,
		labels: labels,
		tl:     logger,
	}
}

// GetRawFills 供兄弟服务复用同一缓存后备的原始成交
func (s *TradeService) GetRawFills(ctx context.Context, user, coin string, fromMs, toMs int64) ([]model.RawFill, error) {
	return s.store.GetFills(ctx, user, coin, fromMs, toMs)
}

// GetTrades 拉取、过滤并归一化窗口内成交
func (s *TradeService) GetTrades(ctx context.Context, p TradeParams) ([]model.Trade, error) {
	fills, err := s.store.GetFills(ctx, p.User, p.Coin, p.FromMs, p.ToMs)
	if err != nil {
		return nil, err
	}

	// 缓存键精确对应窗口，这里的窗口过滤只是兜底
	windowed := make([]model.RawFill, 0, len(fills))
	for _, fill := range fills {
		if fill.Time >= p.FromMs && fill.Time <= p.ToMs {
			windowed = append(windowed, fill)
		}
	}

	if p.BuilderOnly {
		windowed = s.filter.FilterBuilder(windowed)
	}

	if p.CollapseBy != "" {
		windowed = collapseFills(windowed, p.CollapseBy)
	}

	trades := make([]model.Trade, 0, len(windowed))
	for i := range windowed {
		trades = append(trades, s.normalize(&windowed[i]))
	}
	return trades, nil
}

// collapseFills 按标识键保留首条，缺键成交原样保留。输入已按时间升序。
func collapseFills(fills []model.RawFill, collapseBy string) []model.RawFill {
	seen := make(map[string]struct{}, len(fills))
	out := make([]model.RawFill, 0, len(fills))

	for _, fill := range fills {
		key := collapseKey(&fill, collapseBy)
		if key == "" {
			out = append(out, fill)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, fill)
	}
	return out
}

func collapseKey(fill *model.RawFill, collapseBy string) string {
	switch collapseBy {
	case CollapseByHash:
		return fill.Hash
	case CollapseByOid:
		if fill.Oid == 0 {
			return ""
		}
		return "oid:" + strconv.FormatInt(fill.Oid, 10)
	case CollapseByTid:
		if fill.Tid == 0 {
			return ""
		}
		return "tid:" + strconv.FormatInt(fill.Tid, 10)
	default:
		return ""
	}
}

// normalize 原始成交映射为对外成交
func (s *TradeService) normalize(fill *model.RawFill) model.Trade {
	side := model.SideSell
	if fill.IsBuy() {
		side = model.SideBuy
	}

	trade := model.Trade{
		TimeMs:    fill.Time,
		Coin:      fill.Coin,
		Side:      side,
		Px:        fill.Price(),
		Sz:        fill.Size(),
		Fee:       fill.FeeAmount(),
		ClosedPnl: fill.ClosedPnlAmount(),
	}

	if addr := builder.BuilderOf(fill); addr != "" {
		trade.Builder = addr
		trade.BuilderLabel = s.labels[addr]
	} else if fill.BuilderFeeAmount() > 0 {
		trade.Builder = "builder"
	}

	return trade
}
