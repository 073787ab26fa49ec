package service

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/builder"
	"github.com/50zero/HL-trade-ledger/internal/gateway/cache"
	"github.com/50zero/HL-trade-ledger/internal/gateway/config"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

var (
	userA         = "0x" + strings.Repeat("aa", 20)
	userB         = "0x" + strings.Repeat("bb", 20)
	targetBuilder = "0x" + strings.Repeat("cc", 20)
)

// fakeSource 按用户存成交与权益的可编程数据源
type fakeSource struct {
	fillsByUser  map[string][]model.RawFill
	equityByUser map[string]string
	errByUser    map[string]error
	fillsCalls   atomic.Int64
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]model.RawFill, error) {
	return f.FetchAllFills(ctx, user, "", startMs, endMs)
}

func (f *fakeSource) FetchAllFills(ctx context.Context, user, coin string, fromMs, toMs int64) ([]model.RawFill, error) {
	f.fillsCalls.Add(1)
	key := strings.ToLower(user)
	if err := f.errByUser[key]; err != nil {
		return nil, err
	}

	var out []model.RawFill
	for _, fill := range f.fillsByUser[key] {
		if fill.Time < fromMs || fill.Time > toMs {
			continue
		}
		if coin != "" && !strings.EqualFold(fill.Coin, coin) {
			continue
		}
		out = append(out, fill)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (f *fakeSource) FetchClearinghouse(ctx context.Context, user string) (*model.ClearinghouseState, error) {
	key := strings.ToLower(user)
	if err := f.errByUser[key]; err != nil {
		return nil, err
	}
	equity := f.equityByUser[key]
	if equity == "" {
		equity = "1000"
	}
	return &model.ClearinghouseState{MarginSummary: model.MarginSummary{AccountValue: equity}}, nil
}

func (f *fakeSource) Ping(ctx context.Context) error { return nil }

type testStack struct {
	source      *fakeSource
	store       *cache.Store
	filter      *builder.Filter
	trades      *TradeService
	positions   *PositionService
	pnl         *PnlService
	leaderboard *LeaderboardService
}

// newTestStack 以假数据源组装完整服务栈
func newTestStack(fs *fakeSource, target string) *testStack {
	logger := zap.NewNop()
	store := cache.NewStore(config.CacheConfig{FillsTTLMs: 60_000, ClearinghouseTTLMs: 60_000}, fs, logger)
	filter := builder.NewFilter(target)

	trades := NewTradeService(store, filter, nil, logger)
	positions := NewPositionService(trades, filter, logger)
	pnl := NewPnlService(trades, store, filter, 0, logger)

	return &testStack{
		source:    fs,
		store:     store,
		filter:    filter,
		trades:    trades,
		positions: positions,
		pnl:       pnl,
	}
}

func mkFill(coin, side, px, sz string, timeMs int64, closedPnl, fee string) model.RawFill {
	return model.RawFill{
		Coin:      coin,
		Px:        px,
		Sz:        sz,
		Side:      side,
		Time:      timeMs,
		ClosedPnl: closedPnl,
		Fee:       fee,
	}
}

func mkBuilderFill(coin, side, px, sz string, timeMs int64, closedPnl, fee string) model.RawFill {
	f := mkFill(coin, side, px, sz, timeMs, closedPnl, fee)
	f.Builder = &model.BuilderInfo{Addr: targetBuilder, Fee: 10}
	f.BuilderFee = "0.1"
	return f
}
