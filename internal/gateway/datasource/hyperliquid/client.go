package hyperliquid

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/config"
	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
	"github.com/50zero/HL-trade-ledger/internal/gateway/monitor"
	"github.com/50zero/HL-trade-ledger/pkg/httpclient"
	"github.com/50zero/HL-trade-ledger/pkg/ratelimit"
)

const (
	infoPath = "/info"

	// BatchMax 上游单批成交数量上限
	BatchMax = 2000

	// 各操作的权重
	weightFills         = 20
	weightClearinghouse = 2
	weightMeta          = 1
)

// Client Hyperliquid /info 端点的类型化客户端，所有调用先按权重取令牌
type Client struct {
	httpClient *httpclient.HTTPClient
	limiter    *ratelimit.WeightedLimiter
	tl         *zap.Logger
}

// NewClient 创建 Hyperliquid 客户端
func NewClient(cfg config.DatasourceConfig, rateCfg config.RateConfig, logger *zap.Logger) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		BaseURL: cfg.BaseURL,
		Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
	}

	return &Client{
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		limiter:    ratelimit.NewWeightedLimiter(rateCfg.MaxWeight, time.Duration(rateCfg.WindowMs)*time.Millisecond),
		tl:         logger,
	}
}

func (c *Client) Name() string {
	return "hyperliquid"
}

type fillsByTimeRequest struct {
	Type            string `json:"type"`
	User            string `json:"user"`
	StartTime       int64  `json:"startTime"`
	EndTime         int64  `json:"endTime"`
	AggregateByTime bool   `json:"aggregateByTime"`
}

type userStateRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type metaRequest struct {
	Type string `json:"type"`
}

// post 取令牌后发起 /info 调用并解码响应
func (c *Client) post(ctx context.Context, reqType string, weight int, body interface{}, out interface{}) error {
	waitStart := time.Now()
	if err := c.limiter.Acquire(ctx, weight); err != nil {
		return err
	}
	monitor.RateLimiterWaitDuration.Observe(time.Since(waitStart).Seconds())

	reqStart := time.Now()
	raw, err := c.httpClient.PostJSON(ctx, infoPath, body)
	monitor.UpstreamRequestDuration.WithLabelValues(reqType).Observe(time.Since(reqStart).Seconds())
	if err != nil {
		monitor.UpstreamRequests.WithLabelValues(reqType, "error").Inc()
		return model.NewUpstreamError(reqType, err)
	}

	if out != nil {
		if err := sonic.Unmarshal(raw, out); err != nil {
			monitor.UpstreamRequests.WithLabelValues(reqType, "decode_error").Inc()
			c.tl.Warn("Upstream response decode failed",
				zap.String("type", reqType),
				zap.Int("bytes", len(raw)),
				zap.Error(err))
			return model.NewUpstreamError(reqType, err)
		}
	}

	monitor.UpstreamRequests.WithLabelValues(reqType, "ok").Inc()
	return nil
}

// FetchFillsOnce 拉取 [startMs, endMs] 内的一批成交
func (c *Client) FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]model.RawFill, error) {
	req := fillsByTimeRequest{
		Type:            "userFillsByTime",
		User:            user,
		StartTime:       startMs,
		EndTime:         endMs,
		AggregateByTime: true,
	}

	var fills []model.RawFill
	if err := c.post(ctx, "userFillsByTime", weightFills, req, &fills); err != nil {
		return nil, err
	}
	return fills, nil
}

// FetchClearinghouse 拉取账户当前清算所状态
func (c *Client) FetchClearinghouse(ctx context.Context, user string) (*model.ClearinghouseState, error) {
	req := userStateRequest{
		Type: "clearinghouseState",
		User: user,
	}

	var state model.ClearinghouseState
	if err := c.post(ctx, "clearinghouseState", weightClearinghouse, req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Ping meta 调用返回 2xx 即视为健康
func (c *Client) Ping(ctx context.Context) error {
	return c.post(ctx, "meta", weightMeta, metaRequest{Type: "meta"}, nil)
}
