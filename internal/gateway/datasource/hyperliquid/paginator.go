package hyperliquid

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/internal/gateway/model"
)

// FetchAllFills 翻页拉取 [fromMs, toMs] 内的全部成交。
// 游标按上一批最后一条的 time+1 前进；毫秒粒度下与批尾同时间戳的成交可能被跳过，这是上游契约。
func (c *Client) FetchAllFills(ctx context.Context, user, coin string, fromMs, toMs int64) ([]model.RawFill, error) {
	cursor := fromMs
	out := make([]model.RawFill, 0, BatchMax)
	pages := 0

	for {
		batch, err := c.FetchFillsOnce(ctx, user, cursor, toMs)
		if err != nil {
			// 任一页失败则整窗失败，不返回部分结果
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		pages++

		if coin == "" {
			out = append(out, batch...)
		} else {
			for _, fill := range batch {
				if strings.EqualFold(fill.Coin, coin) {
					out = append(out, fill)
				}
			}
		}

		if len(batch) < BatchMax {
			break
		}
		cursor = batch[len(batch)-1].Time + 1
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})

	c.tl.Debug("Fetched fill window",
		zap.String("user", user),
		zap.String("coin", coin),
		zap.Int64("fromMs", fromMs),
		zap.Int64("toMs", toMs),
		zap.Int("pages", pages),
		zap.Int("fills", len(out)))

	return out, nil
}
