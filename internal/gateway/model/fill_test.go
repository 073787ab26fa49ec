package model

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawFillUnmarshalBuilderObject(t *testing.T) {
	payload := `{"coin":"BTC","px":"100.5","sz":"2","side":"B","time":1000,"closedPnl":"0","fee":"1.5","builder":{"b":"0xABCD","f":10},"builderFee":"0.3","hash":"0xh1","oid":7,"tid":9}`

	var fill RawFill
	require.NoError(t, sonic.Unmarshal([]byte(payload), &fill))

	require.NotNil(t, fill.Builder)
	assert.Equal(t, "0xabcd", fill.Builder.Addr)
	assert.Equal(t, 10, fill.Builder.Fee)
	assert.InDelta(t, 100.5, fill.Price(), 1e-9)
	assert.InDelta(t, 2.0, fill.Size(), 1e-9)
	assert.InDelta(t, 2.0, fill.SignedSize(), 1e-9)
	assert.InDelta(t, 1.5, fill.FeeAmount(), 1e-9)
	assert.InDelta(t, 0.3, fill.BuilderFeeAmount(), 1e-9)
	assert.True(t, fill.IsBuy())
}

func TestRawFillUnmarshalBuilderString(t *testing.T) {
	payload := `{"coin":"ETH","px":"10","sz":"1","side":"A","time":2000,"closedPnl":"-2","fee":"0.1","builder":"0xBEEF"}`

	var fill RawFill
	require.NoError(t, sonic.Unmarshal([]byte(payload), &fill))

	require.NotNil(t, fill.Builder)
	assert.Equal(t, "0xbeef", fill.Builder.Addr)
	assert.InDelta(t, -1.0, fill.SignedSize(), 1e-9)
	assert.InDelta(t, -2.0, fill.ClosedPnlAmount(), 1e-9)
	assert.False(t, fill.IsBuy())
}

func TestRawFillUnmarshalBuilderAbsent(t *testing.T) {
	payload := `{"coin":"ETH","px":"10","sz":"1","side":"B","time":3000,"closedPnl":"0","fee":"0"}`

	var fill RawFill
	require.NoError(t, sonic.Unmarshal([]byte(payload), &fill))
	assert.Nil(t, fill.Builder)
	assert.InDelta(t, 0.0, fill.BuilderFeeAmount(), 1e-9)
}

func TestBuilderInfoMarshalRoundTrip(t *testing.T) {
	original := RawFill{
		Coin: "BTC", Px: "1", Sz: "1", Side: "B", Time: 1,
		ClosedPnl: "0", Fee: "0",
		Builder:   &BuilderInfo{Addr: "0xabc", Fee: 5},
	}

	data, err := sonic.Marshal(original)
	require.NoError(t, err)

	var decoded RawFill
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Builder)
	assert.Equal(t, original.Builder.Addr, decoded.Builder.Addr)
	assert.Equal(t, original.Builder.Fee, decoded.Builder.Fee)
}

func TestClearinghouseAccountValue(t *testing.T) {
	var state *ClearinghouseState
	assert.Equal(t, 0.0, state.AccountValue())

	state = &ClearinghouseState{MarginSummary: MarginSummary{AccountValue: "1234.5"}}
	assert.InDelta(t, 1234.5, state.AccountValue(), 1e-9)
}
