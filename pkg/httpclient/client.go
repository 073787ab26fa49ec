package httpclient

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"go.uber.org/zap"
)

// HTTPClientConfig 配置参数
type HTTPClientConfig struct {
	BaseURL   string        // 基础地址
	Timeout   time.Duration // 请求超时时间
	UserAgent string        // 可选 User-Agent
}

// HTTPClient 是一个通用的 HTTP 客户端
type HTTPClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPClient 创建一个新的 HTTP 客户端
func NewHTTPClient(cfg HTTPClientConfig, logger *zap.Logger) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	restyClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			if cfg.UserAgent != "" {
				r.SetHeader("User-Agent", cfg.UserAgent)
			}
			logger.Debug("Outgoing request", zap.String("url", r.URL))
			return nil
		}).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Warn("HTTP request failed",
					zap.Int("status", resp.StatusCode()),
					zap.String("url", resp.Request.URL),
				)
			}
			return nil
		})

	return &HTTPClient{
		client: restyClient,
		logger: logger,
	}
}

// PostJSON 发送 JSON 请求并返回原始响应体，交由调用方解码
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body interface{}) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		c.logger.Error("HTTP POST JSON request failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("non-2xx status code: %d", resp.StatusCode())
	}

	return resp.Bytes(), nil
}

// Close 释放底层连接
func (c *HTTPClient) Close() error {
	return c.client.Close()
}
