package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/50zero/HL-trade-ledger/internal/gateway/config"
	"github.com/50zero/HL-trade-ledger/internal/gateway/datasource"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
	"github.com/50zero/HL-trade-ledger/internal/gateway/monitor"
)

const (
	fillsCacheName         = "fills"
	clearinghouseCacheName = "clearinghouse"

	// 领导者回源的独立超时，与请求方生命周期解耦
	fetchTimeout = 90 * time.Second
)

// Store 读穿透 TTL 缓存。同一 key 的并发未命中只触发一次回源，其余调用共享结果。
type Store struct {
	ds            datasource.Datasource
	fills         *gocache.Cache
	clearinghouse *gocache.Cache
	group         singleflight.Group
	tl            *zap.Logger
}

// NewStore 创建缓存，清理协程按 TTL 周期回收过期条目
func NewStore(cfg config.CacheConfig, ds datasource.Datasource, logger *zap.Logger) *Store {
	fillsTTL := time.Duration(cfg.FillsTTLMs) * time.Millisecond
	chTTL := time.Duration(cfg.ClearinghouseTTLMs) * time.Millisecond

	return &Store{
		ds:            ds,
		fills:         gocache.New(fillsTTL, fillsTTL),
		clearinghouse: gocache.New(chTTL, chTTL),
		tl:            logger,
	}
}

// FillsKey 成交窗口的缓存键
func FillsKey(user, coin string, fromMs, toMs int64) string {
	c := strings.ToUpper(coin)
	if c == "" {
		c = "*"
	}
	return fmt.Sprintf("%s|%s|%d|%d", strings.ToLower(user), c, fromMs, toMs)
}

// GetFills 命中返回缓存成交，否则回源并写缓存
func (s *Store) GetFills(ctx context.Context, user, coin string, fromMs, toMs int64) ([]model.RawFill, error) {
	key := FillsKey(user, coin, fromMs, toMs)

	if cached, ok := s.fills.Get(key); ok {
		monitor.CacheRequests.WithLabelValues(fillsCacheName, "hit").Inc()
		return cached.([]model.RawFill), nil
	}
	monitor.CacheRequests.WithLabelValues(fillsCacheName, "miss").Inc()

	value, err := s.readThrough(ctx, fillsCacheName+"|"+key, func(fetchCtx context.Context) (interface{}, error) {
		fills, err := s.ds.FetchAllFills(fetchCtx, user, coin, fromMs, toMs)
		if err != nil {
			return nil, err
		}
		s.fills.Set(key, fills, gocache.DefaultExpiration)
		return fills, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]model.RawFill), nil
}

// GetClearinghouse 命中返回缓存状态，否则回源并写缓存
func (s *Store) GetClearinghouse(ctx context.Context, user string) (*model.ClearinghouseState, error) {
	key := strings.ToLower(user)

	if cached, ok := s.clearinghouse.Get(key); ok {
		monitor.CacheRequests.WithLabelValues(clearinghouseCacheName, "hit").Inc()
		return cached.(*model.ClearinghouseState), nil
	}
	monitor.CacheRequests.WithLabelValues(clearinghouseCacheName, "miss").Inc()

	value, err := s.readThrough(ctx, clearinghouseCacheName+"|"+key, func(fetchCtx context.Context) (interface{}, error) {
		state, err := s.ds.FetchClearinghouse(fetchCtx, user)
		if err != nil {
			return nil, err
		}
		s.clearinghouse.Set(key, state, gocache.DefaultExpiration)
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*model.ClearinghouseState), nil
}

// readThrough 单航班回源。领导者在脱离请求方取消的上下文里完成抓取，
// 跟随者只等待结果，可随自身 ctx 独立放弃。
func (s *Store) readThrough(ctx context.Context, flightKey string, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(flightKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InvalidateFills 丢弃该用户全部成交窗口缓存
func (s *Store) InvalidateFills(user string) {
	prefix := strings.ToLower(user) + "|"
	for key := range s.fills.Items() {
		if strings.HasPrefix(key, prefix) {
			s.fills.Delete(key)
		}
	}
}

// InvalidateClearinghouse 丢弃该用户清算所状态缓存
func (s *Store) InvalidateClearinghouse(user string) {
	s.clearinghouse.Delete(strings.ToLower(user))
}

// FillsCount 当前成交缓存条目数
func (s *Store) FillsCount() int {
	return s.fills.ItemCount()
}

// ClearinghouseCount 当前清算所缓存条目数
func (s *Store) ClearinghouseCount() int {
	return s.clearinghouse.ItemCount()
}
