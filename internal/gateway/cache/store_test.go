package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/config"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

var testUser = "0x" + strings.Repeat("ab", 20)

// fakeSource 可编程数据源，统计回源次数
type fakeSource struct {
	fills      []model.RawFill
	state      *model.ClearinghouseState
	err        error
	delay      time.Duration
	fillsCalls atomic.Int64
	chCalls    atomic.Int64
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]model.RawFill, error) {
	return f.fills, f.err
}

func (f *fakeSource) FetchAllFills(ctx context.Context, user, coin string, fromMs, toMs int64) ([]model.RawFill, error) {
	f.fillsCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.fills, f.err
}

func (f *fakeSource) FetchClearinghouse(ctx context.Context, user string) (*model.ClearinghouseState, error) {
	f.chCalls.Add(1)
	return f.state, f.err
}

func (f *fakeSource) Ping(ctx context.Context) error { return f.err }

func newTestStore(fs *fakeSource, fillsTTLMs int64) *Store {
	return NewStore(config.CacheConfig{
		FillsTTLMs:         fillsTTLMs,
		ClearinghouseTTLMs: fillsTTLMs,
	}, fs, zap.NewNop())
}

func TestFillsKey(t *testing.T) {
	key := FillsKey("0xABC", "eth", 1, 2)
	assert.Equal(t, "0xabc|ETH|1|2", key)
	assert.Equal(t, "0xabc|*|1|2", FillsKey("0xABC", "", 1, 2))
}

func TestGetFillsReadThrough(t *testing.T) {
	fs := &fakeSource{fills: []model.RawFill{{Coin: "BTC", Px: "1", Sz: "1", Side: "B", Time: 1}}}
	store := newTestStore(fs, 60_000)

	first, err := store.GetFills(context.Background(), testUser, "", 0, 100)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := store.GetFills(context.Background(), testUser, "", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), fs.fillsCalls.Load())

	// 窗口偏移即未命中
	_, err = store.GetFills(context.Background(), testUser, "", 0, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fs.fillsCalls.Load())
}

func TestGetFillsExpiry(t *testing.T) {
	fs := &fakeSource{}
	store := newTestStore(fs, 30)

	_, err := store.GetFills(context.Background(), testUser, "", 0, 100)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)

	_, err = store.GetFills(context.Background(), testUser, "", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fs.fillsCalls.Load())
}

func TestGetFillsSingleFlight(t *testing.T) {
	fs := &fakeSource{delay: 50 * time.Millisecond}
	store := newTestStore(fs, 60_000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.GetFills(context.Background(), testUser, "", 0, 100)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), fs.fillsCalls.Load())
}

func TestGetFillsErrorNotCached(t *testing.T) {
	fs := &fakeSource{err: errors.New("boom")}
	store := newTestStore(fs, 60_000)

	_, err := store.GetFills(context.Background(), testUser, "", 0, 100)
	require.Error(t, err)

	fs.err = nil
	_, err = store.GetFills(context.Background(), testUser, "", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fs.fillsCalls.Load())
}

func TestFollowerCancellation(t *testing.T) {
	fs := &fakeSource{delay: 200 * time.Millisecond}
	store := newTestStore(fs, 60_000)

	leaderDone := make(chan error, 1)
	go func() {
		_, err := store.GetFills(context.Background(), testUser, "", 0, 100)
		leaderDone <- err
	}()

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := store.GetFills(ctx, testUser, "", 0, 100)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 领导者不受跟随者取消影响
	require.NoError(t, <-leaderDone)
	assert.Equal(t, int64(1), fs.fillsCalls.Load())
}

func TestGetClearinghouse(t *testing.T) {
	fs := &fakeSource{state: &model.ClearinghouseState{MarginSummary: model.MarginSummary{AccountValue: "1000"}}}
	store := newTestStore(fs, 60_000)

	state, err := store.GetClearinghouse(context.Background(), strings.ToUpper(testUser))
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, state.AccountValue(), 1e-9)

	// 大小写归一命中同一条目
	_, err = store.GetClearinghouse(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fs.chCalls.Load())
}

func TestInvalidate(t *testing.T) {
	fs := &fakeSource{state: &model.ClearinghouseState{}}
	store := newTestStore(fs, 60_000)

	_, _ = store.GetFills(context.Background(), testUser, "BTC", 0, 100)
	_, _ = store.GetFills(context.Background(), testUser, "", 0, 100)
	_, _ = store.GetClearinghouse(context.Background(), testUser)
	require.Equal(t, 2, store.FillsCount())
	require.Equal(t, 1, store.ClearinghouseCount())

	store.InvalidateFills(testUser)
	store.InvalidateClearinghouse(testUser)
	assert.Equal(t, 0, store.FillsCount())
	assert.Equal(t, 0, store.ClearinghouseCount())

	_, _ = store.GetFills(context.Background(), testUser, "BTC", 0, 100)
	assert.Equal(t, int64(3), fs.fillsCalls.Load())
}
