package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
	"github.com/50zero/HL-trade-ledger/internal/gateway/service"
	"github.com/50zero/HL-trade-ledger/pkg/utils"
)

// requireAddressParam 必填地址参数，返回小写规范形式
func requireAddressParam(c *gin.Context, name string) (string, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return "", model.NewValidationError(name, "required")
	}
	addr := utils.NormalizeAddress(raw)
	if addr == "" {
		return "", model.NewValidationError(name, "must be a 0x-prefixed 20-byte hex address")
	}
	return addr, nil
}

// parseInt64Param 非负整数参数
func parseInt64Param(c *gin.Context, name string, def int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewValidationError(name, "must be an integer")
	}
	if v < 0 {
		return 0, model.NewValidationError(name, "must be non-negative")
	}
	return v, nil
}

// parseFloatParam 非负浮点参数
func parseFloatParam(c *gin.Context, name string, def float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, model.NewValidationError(name, "must be a number")
	}
	if v < 0 {
		return 0, model.NewValidationError(name, "must be non-negative")
	}
	return v, nil
}

// parseBoolParam 仅接受 true/false
func parseBoolParam(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	switch raw {
	case "":
		return false, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, model.NewValidationError(name, "must be true or false")
	}
}

// parseCollapseBy 校验折叠键
func parseCollapseBy(c *gin.Context) (string, error) {
	raw := c.Query("collapseBy")
	switch raw {
	case "", service.CollapseByHash, service.CollapseByOid, service.CollapseByTid:
		return raw, nil
	default:
		return "", model.NewValidationError("collapseBy", "must be one of hash, oid, tid")
	}
}

// parseMetric 校验排行榜指标
func parseMetric(c *gin.Context) (string, error) {
	raw := c.Query("metric")
	switch raw {
	case model.MetricPnl, model.MetricReturnPct, model.MetricVolume:
		return raw, nil
	case "":
		return "", model.NewValidationError("metric", "required")
	default:
		return "", model.NewValidationError("metric", "must be one of volume, pnl, returnPct")
	}
}

// parseLimit 排行榜行数上限
func parseLimit(c *gin.Context) (int, error) {
	v, err := parseInt64Param(c, "limit", service.DefaultLeaderboardLimit)
	if err != nil {
		return 0, err
	}
	if v > service.MaxLeaderboardLimit {
		return 0, model.NewValidationError("limit", "must not exceed 1000")
	}
	return int(v), nil
}

// parseWindow fromMs 缺省为 0，toMs 缺省为当前时刻
func parseWindow(c *gin.Context) (int64, int64, error) {
	fromMs, err := parseInt64Param(c, "fromMs", 0)
	if err != nil {
		return 0, 0, err
	}
	toMs, err := parseInt64Param(c, "toMs", time.Now().UnixMilli())
	if err != nil {
		return 0, 0, err
	}
	if toMs < fromMs {
		return 0, 0, model.NewValidationError("toMs", "must not be before fromMs")
	}
	return fromMs, toMs, nil
}
