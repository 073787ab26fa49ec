package model

// PositionState 重建出的某一时刻仓位快照
type PositionState struct {
	TimeMs     int64   `json:"timeMs"`
	Coin       string  `json:"coin"`
	NetSize    float64 `json:"netSize"`
	AvgEntryPx float64 `json:"avgEntryPx"`
	Tainted    bool    `json:"tainted"`
}

// PnlResult 区间已实现盈亏汇总
type PnlResult struct {
	RealizedPnl      float64 `json:"realizedPnl"`
	ReturnPct        float64 `json:"returnPct"`
	FeesPaid         float64 `json:"feesPaid"`
	TradeCount       int     `json:"tradeCount"`
	Tainted          bool    `json:"tainted"`
	EffectiveCapital float64 `json:"effectiveCapital"`
}

// LeaderboardEntry 排行榜单行
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	User        string  `json:"user"`
	MetricValue float64 `json:"metricValue"`
	TradeCount  int     `json:"tradeCount"`
	Tainted     bool    `json:"tainted"`
}

// 排行榜可选指标
const (
	MetricPnl       = "pnl"
	MetricReturnPct = "returnPct"
	MetricVolume    = "volume"
)
