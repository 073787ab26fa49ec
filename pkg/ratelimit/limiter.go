package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMaxWeight = 1200
	DefaultWindow    = 60 * time.Second
)

// WeightedLimiter 按权重消耗配额的令牌桶，窗口内总配额为 maxWeight
type WeightedLimiter struct {
	limiter   *rate.Limiter
	maxWeight int
}

// NewWeightedLimiter 创建限流器，maxWeight/window 不合法时回退默认值
func NewWeightedLimiter(maxWeight int, window time.Duration) *WeightedLimiter {
	if maxWeight <= 0 {
		maxWeight = DefaultMaxWeight
	}
	if window <= 0 {
		window = DefaultWindow
	}
	refillPerSecond := float64(maxWeight) / window.Seconds()
	return &WeightedLimiter{
		limiter:   rate.NewLimiter(rate.Limit(refillPerSecond), maxWeight),
		maxWeight: maxWeight,
	}
}

// Acquire 阻塞直到拿到 weight 个令牌。ctx 取消时返回错误且不消耗令牌。
func (l *WeightedLimiter) Acquire(ctx context.Context, weight int) error {
	if weight <= 0 {
		return nil
	}
	if weight > l.maxWeight {
		return fmt.Errorf("ratelimit: weight %d exceeds bucket capacity %d", weight, l.maxWeight)
	}
	return l.limiter.WaitN(ctx, weight)
}

// Allow 非阻塞尝试，仅用于探测
func (l *WeightedLimiter) Allow(weight int) bool {
	return l.limiter.AllowN(time.Now(), weight)
}

// MaxWeight 返回桶容量
func (l *WeightedLimiter) MaxWeight() int {
	return l.maxWeight
}
