package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

func TestCalculatePnlBasic(t *testing.T) {
	fs := &fakeSource{
		fillsByUser: map[string][]model.RawFill{
			userA: {
				mkFill("BTC", "B", "100", "1", 1000, "0", "1"),
				mkFill("BTC", "A", "110", "1", 2000, "10", "1"),
			},
		},
		equityByUser: map[string]string{userA: "1000"},
	}
	stack := newTestStack(fs, "")

	result, err := stack.pnl.CalculatePnl(context.Background(), PnlParams{User: userA, FromMs: 0, ToMs: 3000})
	require.NoError(t, err)

	assert.InDelta(t, 10.0, result.RealizedPnl, 1e-9)
	assert.InDelta(t, 2.0, result.FeesPaid, 1e-9)
	assert.Equal(t, 2, result.TradeCount)
	assert.False(t, result.Tainted)

	// 权益近似：当前 1000 − 窗口内已实现 10 = 990
	assert.InDelta(t, 990.0, result.EffectiveCapital, 1e-9)
	assert.InDelta(t, 100*10.0/990.0, result.ReturnPct, 1e-9)
}

func TestCalculatePnlReturnCap(t *testing.T) {
	fs := &fakeSource{
		fillsByUser: map[string][]model.RawFill{
			userA: {mkFill("BTC", "A", "100", "50", 1000, "5000", "0")},
		},
		equityByUser: map[string]string{userA: "10000"},
	}
	stack := newTestStack(fs, "")

	result, err := stack.pnl.CalculatePnl(context.Background(), PnlParams{
		User: userA, FromMs: 0, ToMs: 2000, MaxStartCapital: 1,
	})
	require.NoError(t, err)

	// 历史权益 5000，被上限 1 封顶
	assert.InDelta(t, 1.0, result.EffectiveCapital, 1e-9)
	// 原始值 500000，钳制到 +1000
	assert.InDelta(t, 1000.0, result.ReturnPct, 1e-9)
}

func TestCalculatePnlNegativeCap(t *testing.T) {
	fs := &fakeSource{
		fillsByUser: map[string][]model.RawFill{
			userA: {mkFill("BTC", "A", "100", "50", 1000, "-5000", "0")},
		},
		equityByUser: map[string]string{userA: "1"},
	}
	stack := newTestStack(fs, "")

	result, err := stack.pnl.CalculatePnl(context.Background(), PnlParams{
		User: userA, FromMs: 0, ToMs: 2000, MaxStartCapital: 1,
	})
	require.NoError(t, err)
	assert.InDelta(t, -1000.0, result.ReturnPct, 1e-9)
}

func TestCalculatePnlEffectiveCapitalFloor(t *testing.T) {
	fs := &fakeSource{
		fillsByUser: map[string][]model.RawFill{
			userA: {mkFill("BTC", "A", "100", "1", 1000, "100", "0")},
		},
		// 当前权益已小于窗口盈亏，近似历史权益触底
		equityByUser: map[string]string{userA: "50"},
	}
	stack := newTestStack(fs, "")

	result, err := stack.pnl.CalculatePnl(context.Background(), PnlParams{User: userA, FromMs: 0, ToMs: 2000})
	require.NoError(t, err)
	assert.InDelta(t, 0.01, result.EffectiveCapital, 1e-9)
	assert.InDelta(t, 1000.0, result.ReturnPct, 1e-9)
}

func TestCalculatePnlBuilderOnlyTaint(t *testing.T) {
	fs := &fakeSource{
		fillsByUser: map[string][]model.RawFill{
			userA: {
				mkBuilderFill("BTC", "B", "100", "1", 1000, "0", "1"),
				mkFill("BTC", "B", "100", "1", 1500, "0", "1"),
				mkFill("BTC", "A", "110", "2", 2000, "20", "1"),
			},
		},
		equityByUser: map[string]string{userA: "1000"},
	}
	stack := newTestStack(fs, targetBuilder)

	result, err := stack.pnl.CalculatePnl(context.Background(), PnlParams{
		User: userA, FromMs: 0, ToMs: 3000, BuilderOnly: true,
	})
	require.NoError(t, err)

	// 只统计归属成交
	assert.Equal(t, 1, result.TradeCount)
	assert.InDelta(t, 1.0, result.FeesPaid, 1e-9)
	assert.True(t, result.Tainted)
}

func TestCalculatePnlTaintRequiresBuilderOnly(t *testing.T) {
	fs := &fakeSource{
		fillsByUser: map[string][]model.RawFill{
			userA: {
				mkBuilderFill("BTC", "B", "100", "1", 1000, "0", "1"),
				mkFill("BTC", "A", "110", "1", 2000, "10", "1"),
			},
		},
		equityByUser: map[string]string{userA: "1000"},
	}
	stack := newTestStack(fs, targetBuilder)

	result, err := stack.pnl.CalculatePnl(context.Background(), PnlParams{User: userA, FromMs: 0, ToMs: 3000})
	require.NoError(t, err)
	assert.False(t, result.Tainted)
	assert.Equal(t, 2, result.TradeCount)
}

func TestCalculateVolume(t *testing.T) {
	fs := &fakeSource{
		fillsByUser: map[string][]model.RawFill{
			userA: {
				mkFill("BTC", "B", "100", "2", 1000, "0", "0"),
				mkFill("BTC", "A", "110", "1", 2000, "10", "0"),
			},
		},
	}
	stack := newTestStack(fs, "")

	volume, err := stack.pnl.CalculateVolume(context.Background(), PnlParams{User: userA, FromMs: 0, ToMs: 3000})
	require.NoError(t, err)
	assert.InDelta(t, 100*2+110*1, volume, 1e-9)
}

func TestEquityAtFutureFromMs(t *testing.T) {
	fs := &fakeSource{
		fillsByUser:  map[string][]model.RawFill{userA: {}},
		equityByUser: map[string]string{userA: "777"},
	}
	stack := newTestStack(fs, "")

	// fromMs 在当前时刻之后：直接取当前权益
	futureMs := int64(4_000_000_000_000)
	result, err := stack.pnl.CalculatePnl(context.Background(), PnlParams{
		User: userA, FromMs: futureMs, ToMs: futureMs + 1000,
	})
	require.NoError(t, err)
	assert.InDelta(t, 777.0, result.EffectiveCapital, 1e-9)
}
