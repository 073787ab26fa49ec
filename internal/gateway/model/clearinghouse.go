package model

import "github.com/50zero/HL-trade-ledger/pkg/utils"

// Leverage 仓位杠杆
type Leverage struct {
	Type   string  `json:"type"`
	Value  int     `json:"value"`
	RawUsd *string `json:"rawUsd,omitempty"`
}

// Position 单币种仓位
type Position struct {
	Coin           string   `json:"coin"`
	EntryPx        *string  `json:"entryPx"`
	Leverage       Leverage `json:"leverage"`
	LiquidationPx  *string  `json:"liquidationPx"`
	MarginUsed     string   `json:"marginUsed"`
	PositionValue  string   `json:"positionValue"`
	ReturnOnEquity string   `json:"returnOnEquity"`
	Szi            string   `json:"szi"`
	UnrealizedPnl  string   `json:"unrealizedPnl"`
}

// AssetPosition 仓位包装
type AssetPosition struct {
	Position Position `json:"position"`
	Type     string   `json:"type"`
}

// MarginSummary 保证金汇总
type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	TotalNtlPos    string `json:"totalNtlPos"`
	TotalRawUsd    string `json:"totalRawUsd"`
}

// ClearinghouseState 账户清算所状态
type ClearinghouseState struct {
	AssetPositions     []AssetPosition `json:"assetPositions"`
	CrossMarginSummary MarginSummary   `json:"crossMarginSummary"`
	MarginSummary      MarginSummary   `json:"marginSummary"`
	Withdrawable       string          `json:"withdrawable"`
	Time               int64           `json:"time,omitempty"`
}

// AccountValue 当前账户权益
func (s *ClearinghouseState) AccountValue() float64 {
	if s == nil {
		return 0
	}
	return utils.ParseDecimal(s.MarginSummary.AccountValue)
}
