package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// IsValidAddress 检查是否为 0x 前缀的 20 字节十六进制地址
func IsValidAddress(addr string) bool {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return false
	}
	return common.IsHexAddress(addr)
}

// NormalizeAddress 地址统一转小写，非法地址返回空串
func NormalizeAddress(addr string) string {
	if !IsValidAddress(addr) {
		return ""
	}
	return strings.ToLower(addr)
}

// ParseDecimal 解析交易所返回的十进制字符串，空串或非法值按 0 处理
func ParseDecimal(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// IsUnixMillis 检查时间戳是否为毫秒级
func IsUnixMillis(ts int64) bool {
	// 毫秒级时间戳范围：2001-09-09 之后、2100-01-01 之前
	const minMillis = 1_000_000_000_000
	const maxMillis = 4_102_444_800_000
	return ts >= minMillis && ts < maxMillis
}
