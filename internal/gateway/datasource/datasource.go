package datasource

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/config"
	"github.com/50zero/HL-trade-ledger/internal/gateway/datasource/hyperliquid"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

// Datasource 上游交易所的统一只读视图
type Datasource interface {
	Name() string

	// FetchFillsOnce 单次拉取 [startMs, endMs] 内的成交，上游按时间升序返回，单批最多 2000 条
	FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]model.RawFill, error)

	// FetchAllFills 翻页拉全窗口成交，coin 为空表示不过滤
	FetchAllFills(ctx context.Context, user, coin string, fromMs, toMs int64) ([]model.RawFill, error)

	// FetchClearinghouse 拉取账户当前清算所状态
	FetchClearinghouse(ctx context.Context, user string) (*model.ClearinghouseState, error)

	// Ping 健康探测
	Ping(ctx context.Context) error
}

// New 按配置创建数据源
func New(cfg config.DatasourceConfig, rateCfg config.RateConfig, logger *zap.Logger) (Datasource, error) {
	switch strings.ToLower(cfg.Type) {
	case "hyperliquid":
		return hyperliquid.NewClient(cfg, rateCfg, logger), nil
	default:
		return nil, &model.UnsupportedDatasourceError{Type: cfg.Type}
	}
}
