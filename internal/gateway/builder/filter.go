package builder

import (
	"math"
	"sort"
	"strings"

	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

// 浮点累加后的归零判定阈值
const sizeEpsilon = 1e-9

// Filter 按目标 builder 地址对成交做归属判定。target 为空时全部判定失效。
type Filter struct {
	target string
}

// NewFilter 创建过滤器，目标地址统一转小写
func NewFilter(target string) *Filter {
	return &Filter{target: strings.ToLower(target)}
}

// Enabled 是否配置了目标 builder
func (f *Filter) Enabled() bool {
	return f.target != ""
}

// Target 返回小写目标地址
func (f *Filter) Target() string {
	return f.target
}

// BuilderOf 返回成交上报的 builder 地址，缺失返回空串
func BuilderOf(fill *model.RawFill) string {
	if fill.Builder == nil {
		return ""
	}
	return fill.Builder.Addr
}

// IsBuilderFill 地址匹配，或地址缺失但支付了 builder 费用
func (f *Filter) IsBuilderFill(fill *model.RawFill) bool {
	if f.target == "" {
		return false
	}
	addr := BuilderOf(fill)
	if addr != "" {
		return addr == f.target
	}
	return fill.BuilderFeeAmount() > 0
}

// FilterBuilder 仅保留 builder 归属成交；未配置目标时返回空集
func (f *Filter) FilterBuilder(fills []model.RawFill) []model.RawFill {
	if f.target == "" {
		return []model.RawFill{}
	}
	out := make([]model.RawFill, 0, len(fills))
	for i := range fills {
		if f.IsBuilderFill(&fills[i]) {
			out = append(out, fills[i])
		}
	}
	return out
}

// Lifecycle 仓位从离开零到回到零之间的连续成交段
type Lifecycle struct {
	Fills  []model.RawFill
	Closed bool
}

// GroupByLifecycle 按净仓位归零切分某币种的成交序列，末段未平仓也算一个周期
func GroupByLifecycle(fills []model.RawFill, coin string) []Lifecycle {
	matched := make([]model.RawFill, 0, len(fills))
	for _, fill := range fills {
		if strings.EqualFold(fill.Coin, coin) {
			matched = append(matched, fill)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Time < matched[j].Time
	})

	var cycles []Lifecycle
	var current []model.RawFill
	netSize := 0.0

	for _, fill := range matched {
		prev := netSize
		netSize += fill.SignedSize()
		if math.Abs(netSize) < sizeEpsilon {
			netSize = 0
		}

		if prev == 0 && netSize != 0 {
			current = []model.RawFill{fill}
			continue
		}

		current = append(current, fill)
		if netSize == 0 && prev != 0 {
			cycles = append(cycles, Lifecycle{Fills: current, Closed: true})
			current = nil
		}
	}

	if len(current) > 0 {
		cycles = append(cycles, Lifecycle{Fills: current})
	}
	return cycles
}

// DetectTaint 同一批成交里同时出现归属与非归属成交即为污染
func (f *Filter) DetectTaint(fills []model.RawFill) bool {
	hasBuilder := false
	hasNonBuilder := false
	for i := range fills {
		if f.IsBuilderFill(&fills[i]) {
			hasBuilder = true
		} else {
			hasNonBuilder = true
		}
		if hasBuilder && hasNonBuilder {
			return true
		}
	}
	return false
}

// AnyLifecycleTainted 某币种任一仓位周期被污染即为真
func (f *Filter) AnyLifecycleTainted(fills []model.RawFill, coin string) bool {
	for _, cycle := range GroupByLifecycle(fills, coin) {
		if f.DetectTaint(cycle.Fills) {
			return true
		}
	}
	return false
}
