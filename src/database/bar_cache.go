package database

import (
	"context"
	"sort"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"
	"breakoutbot/src/timeframes"

	"github.com/xpwu/go-log/log"
)

// BarRepository K线缓存存储
type BarRepository interface {
	LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]bar.Bar, error)
	SaveBars(ctx context.Context, symbol, timeframe string, bars []bar.Bar) error
}

// BarCache 优先读数据库，缺失区间从交易所补齐并回写
type BarCache struct {
	repo   BarRepository
	source cex.HistoricalSource
}

// NewBarCache 创建K线缓存
func NewBarCache(repo BarRepository, source cex.HistoricalSource) *BarCache {
	return &BarCache{repo: repo, source: source}
}

// TimeRange 时间范围 [Start, End)
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// GetBars 实现 cex.HistoricalSource
func (c *BarCache) GetBars(ctx context.Context, symbol, interval string, startTime, endTime time.Time) ([]bar.Bar, error) {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("BarCache")

	tf, err := timeframes.ParseTimeframe(interval)
	if err != nil {
		return nil, err
	}
	step, _ := tf.GetDuration()

	cached, err := c.repo.LoadBars(ctx, symbol, interval, startTime, endTime)
	if err != nil {
		// 数据库失败，直接从网络获取
		logger.Error("从数据库获取K线数据失败", "error", err)
		return c.source.GetBars(ctx, symbol, interval, startTime, endTime)
	}

	missing := findMissingRanges(cached, startTime, endTime, step)
	if len(missing) == 0 {
		logger.Debug("数据库数据完整", "count", len(cached))
		return cached, nil
	}

	logger.Info("发现缺失数据段", "symbol", symbol, "interval", interval, "cached", len(cached), "missing_ranges", len(missing))

	fetched := make([]bar.Bar, 0)
	for _, r := range missing {
		bars, err := c.source.GetBars(ctx, symbol, interval, r.Start, r.End)
		if err != nil {
			return nil, err
		}
		fetched = append(fetched, bars...)
	}

	if len(fetched) > 0 {
		if err := c.repo.SaveBars(ctx, symbol, interval, fetched); err != nil {
			logger.Error("保存K线数据到数据库失败", "error", err)
		} else {
			logger.Info("保存新K线数据到数据库", "count", len(fetched))
		}
	}

	return mergeBars(cached, fetched), nil
}

// findMissingRanges 按周期步长查找缓存中的空洞
func findMissingRanges(bars []bar.Bar, start, end time.Time, step time.Duration) []TimeRange {
	if !end.After(start) {
		return nil
	}
	if len(bars) == 0 {
		return []TimeRange{{Start: start, End: end}}
	}

	var missing []TimeRange
	if bars[0].Timestamp.Sub(start) >= step {
		missing = append(missing, TimeRange{Start: start, End: bars[0].Timestamp})
	}
	for i := 0; i+1 < len(bars); i++ {
		expected := bars[i].Timestamp.Add(step)
		if bars[i+1].Timestamp.After(expected) {
			missing = append(missing, TimeRange{Start: expected, End: bars[i+1].Timestamp})
		}
	}
	if next := bars[len(bars)-1].Timestamp.Add(step); end.Sub(next) >= step {
		missing = append(missing, TimeRange{Start: next, End: end})
	}
	return missing
}

// mergeBars 合并并按时间排序，同一开盘时间以网络数据为准
func mergeBars(cached, fetched []bar.Bar) []bar.Bar {
	byTime := make(map[int64]bar.Bar, len(cached)+len(fetched))
	for _, b := range cached {
		byTime[b.Timestamp.UnixMilli()] = b
	}
	for _, b := range fetched {
		byTime[b.Timestamp.UnixMilli()] = b
	}

	out := make([]bar.Bar, 0, len(byTime))
	for _, b := range byTime {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
