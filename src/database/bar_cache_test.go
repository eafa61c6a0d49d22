package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"breakoutbot/src/bar"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	bars    []bar.Bar
	loadErr error
	saved   []bar.Bar
}

func (m *mockRepo) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]bar.Bar, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var out []bar.Bar
	for _, b := range m.bars {
		if !b.Timestamp.Before(start) && b.Timestamp.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockRepo) SaveBars(ctx context.Context, symbol, timeframe string, bars []bar.Bar) error {
	m.saved = append(m.saved, bars...)
	return nil
}

type mockSource struct {
	bars  []bar.Bar
	calls []TimeRange
	err   error
}

func (m *mockSource) GetBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]bar.Bar, error) {
	m.calls = append(m.calls, TimeRange{Start: start, End: end})
	if m.err != nil {
		return nil, m.err
	}
	var out []bar.Bar
	for _, b := range m.bars {
		if !b.Timestamp.Before(start) && b.Timestamp.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

var cacheStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func minuteBars(idx ...int) []bar.Bar {
	out := make([]bar.Bar, len(idx))
	for i, k := range idx {
		out[i] = bar.Bar{
			Timestamp: cacheStart.Add(time.Duration(k) * time.Minute),
			Open:      decimal.NewFromInt(100),
			High:      decimal.NewFromInt(110),
			Low:       decimal.NewFromInt(99),
			Close:     decimal.NewFromInt(int64(100 + k)),
			Volume:    decimal.NewFromInt(1),
			Complete:  true,
		}
	}
	return out
}

func TestBarCache_GetBars(t *testing.T) {
	end := cacheStart.Add(6 * time.Minute)

	t.Run("complete cache skips network", func(t *testing.T) {
		repo := &mockRepo{bars: minuteBars(0, 1, 2, 3, 4, 5)}
		source := &mockSource{}

		bars, err := NewBarCache(repo, source).GetBars(context.Background(), "BTCUSDT", "1m", cacheStart, end)
		require.NoError(t, err)
		assert.Len(t, bars, 6)
		assert.Empty(t, source.calls)
	})

	t.Run("fills gaps and writes back", func(t *testing.T) {
		repo := &mockRepo{bars: minuteBars(1, 2, 4)}
		source := &mockSource{bars: minuteBars(0, 1, 2, 3, 4, 5)}

		bars, err := NewBarCache(repo, source).GetBars(context.Background(), "BTCUSDT", "1m", cacheStart, end)
		require.NoError(t, err)
		require.Len(t, bars, 6)
		for i, b := range bars {
			assert.Equal(t, cacheStart.Add(time.Duration(i)*time.Minute), b.Timestamp)
		}
		assert.NoError(t, bar.CheckSeries(bars))

		assert.Equal(t, []TimeRange{
			{Start: cacheStart, End: cacheStart.Add(time.Minute)},
			{Start: cacheStart.Add(3 * time.Minute), End: cacheStart.Add(4 * time.Minute)},
			{Start: cacheStart.Add(5 * time.Minute), End: end},
		}, source.calls)
		assert.Len(t, repo.saved, 3)
	})

	t.Run("database failure falls back to network", func(t *testing.T) {
		repo := &mockRepo{loadErr: errors.New("db down")}
		source := &mockSource{bars: minuteBars(0, 1, 2)}

		bars, err := NewBarCache(repo, source).GetBars(context.Background(), "BTCUSDT", "1m", cacheStart, end)
		require.NoError(t, err)
		assert.Len(t, bars, 3)
		assert.Empty(t, repo.saved)
	})

	t.Run("network failure is returned", func(t *testing.T) {
		repo := &mockRepo{}
		source := &mockSource{err: errors.New("timeout")}

		_, err := NewBarCache(repo, source).GetBars(context.Background(), "BTCUSDT", "1m", cacheStart, end)
		assert.Error(t, err)
	})

	t.Run("invalid interval", func(t *testing.T) {
		_, err := NewBarCache(&mockRepo{}, &mockSource{}).GetBars(context.Background(), "BTCUSDT", "7m", cacheStart, end)
		assert.Error(t, err)
	})
}

func TestFindMissingRanges(t *testing.T) {
	end := cacheStart.Add(3 * time.Minute)

	assert.Nil(t, findMissingRanges(nil, end, cacheStart, time.Minute))
	assert.Equal(t, []TimeRange{{Start: cacheStart, End: end}}, findMissingRanges(nil, cacheStart, end, time.Minute))
	assert.Empty(t, findMissingRanges(minuteBars(0, 1, 2), cacheStart, end, time.Minute))

	// 结束时间未对齐时，不足一根的尾部不算缺失
	assert.Empty(t, findMissingRanges(minuteBars(0, 1, 2), cacheStart, end.Add(30*time.Second), time.Minute))
}
