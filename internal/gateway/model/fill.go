package model

import (
	"strings"

	"github.com/bytedance/sonic"

	"github.com/50zero/HL-trade-ledger/pkg/utils"
)

// 上游成交方向
const (
	RawSideBuy  = "B"
	RawSideSell = "A"

	SideBuy  = "buy"
	SideSell = "sell"
)

// BuilderInfo 上游 builder 字段。历史上有字符串和对象两种编码，统一在反序列化时吸收。
type BuilderInfo struct {
	Addr string
	Fee  int
}

type builderObject struct {
	B string `json:"b"`
	F int    `json:"f"`
}

func (b *BuilderInfo) UnmarshalJSON(data []byte) error {
	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		b.Addr = strings.ToLower(s)
		return nil
	}
	var obj builderObject
	if err := sonic.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.Addr = strings.ToLower(obj.B)
	b.Fee = obj.F
	return nil
}

func (b BuilderInfo) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(builderObject{B: b.Addr, F: b.Fee})
}

// RawFill 上游原始成交记录
type RawFill struct {
	Coin          string       `json:"coin"`
	Px            string       `json:"px"`
	Sz            string       `json:"sz"`
	Side          string       `json:"side"`
	Time          int64        `json:"time"`
	StartPosition string       `json:"startPosition,omitempty"`
	Dir           string       `json:"dir,omitempty"`
	ClosedPnl     string       `json:"closedPnl"`
	Hash          string       `json:"hash,omitempty"`
	Oid           int64        `json:"oid,omitempty"`
	Tid           int64        `json:"tid,omitempty"`
	Crossed       bool         `json:"crossed,omitempty"`
	Fee           string       `json:"fee"`
	FeeToken      string       `json:"feeToken,omitempty"`
	Builder       *BuilderInfo `json:"builder,omitempty"`
	BuilderFee    string       `json:"builderFee,omitempty"`
}

func (f *RawFill) IsBuy() bool {
	return f.Side == RawSideBuy
}

func (f *RawFill) Price() float64 {
	return utils.ParseDecimal(f.Px)
}

func (f *RawFill) Size() float64 {
	return utils.ParseDecimal(f.Sz)
}

// SignedSize 买正卖负
func (f *RawFill) SignedSize() float64 {
	if f.IsBuy() {
		return f.Size()
	}
	return -f.Size()
}

func (f *RawFill) FeeAmount() float64 {
	return utils.ParseDecimal(f.Fee)
}

func (f *RawFill) ClosedPnlAmount() float64 {
	return utils.ParseDecimal(f.ClosedPnl)
}

func (f *RawFill) BuilderFeeAmount() float64 {
	return utils.ParseDecimal(f.BuilderFee)
}

// Trade 归一化后的成交
type Trade struct {
	TimeMs       int64   `json:"timeMs"`
	Coin         string  `json:"coin"`
	Side         string  `json:"side"`
	Px           float64 `json:"px"`
	Sz           float64 `json:"sz"`
	Fee          float64 `json:"fee"`
	ClosedPnl    float64 `json:"closedPnl"`
	Builder      string  `json:"builder,omitempty"`
	BuilderLabel string  `json:"builderLabel,omitempty"`
}
