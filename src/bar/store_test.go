package bar

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mkBar(minute int, close int64, complete bool) Bar {
	c := decimal.NewFromInt(close)
	return Bar{
		Timestamp: t0.Add(time.Duration(minute) * time.Minute),
		Open:      c,
		High:      c.Add(decimal.NewFromInt(1)),
		Low:       c.Sub(decimal.NewFromInt(1)),
		Close:     c,
		Volume:    decimal.NewFromInt(10),
		Complete:  complete,
	}
}

func assertClose(t *testing.T, expected int64, b Bar) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(expected).Equal(b.Close), "close %s, want %d", b.Close, expected)
}

func TestNewStore(t *testing.T) {
	_, err := NewStore(0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	s, err := NewStore(3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Capacity())
	assert.Equal(t, 0, s.Len())
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestStore_Upsert(t *testing.T) {
	t.Run("append and evict oldest", func(t *testing.T) {
		s, _ := NewStore(3)
		for i := 0; i < 5; i++ {
			_, err := s.Upsert(mkBar(i, int64(100+i), true))
			require.NoError(t, err)
		}
		assert.Equal(t, 3, s.Len())
		first, _ := s.At(0)
		last, _ := s.Last()
		assertClose(t, 102, first)
		assertClose(t, 104, last)
	})

	t.Run("forming bar is replaced", func(t *testing.T) {
		s, _ := NewStore(3)
		_, err := s.Upsert(mkBar(0, 100, false))
		require.NoError(t, err)

		replaced, err := s.Upsert(mkBar(0, 101, true))
		require.NoError(t, err)
		assert.True(t, replaced)
		assert.Equal(t, 1, s.Len())

		last, _ := s.Last()
		assertClose(t, 101, last)
		assert.True(t, last.Complete)
	})

	t.Run("duplicate of complete bar is rejected", func(t *testing.T) {
		s, _ := NewStore(3)
		_, err := s.Upsert(mkBar(0, 100, true))
		require.NoError(t, err)

		_, err = s.Upsert(mkBar(0, 105, true))
		var malformed *MalformedBarError
		require.True(t, errors.As(err, &malformed))
		assert.Contains(t, malformed.Reason, "duplicate")

		last, _ := s.Last()
		assertClose(t, 100, last)
	})

	t.Run("backwards timestamp is rejected", func(t *testing.T) {
		s, _ := NewStore(3)
		_, err := s.Upsert(mkBar(5, 100, true))
		require.NoError(t, err)

		_, err = s.Upsert(mkBar(4, 100, true))
		var malformed *MalformedBarError
		assert.True(t, errors.As(err, &malformed))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("invalid fields are rejected", func(t *testing.T) {
		s, _ := NewStore(3)
		b := mkBar(0, 100, true)
		b.Volume = decimal.NewFromInt(-1)
		_, err := s.Upsert(b)
		assert.Error(t, err)

		b = mkBar(0, 100, true)
		b.High, b.Low = decimal.NewFromInt(90), decimal.NewFromInt(95)
		_, err = s.Upsert(b)
		assert.Error(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("later bar finalizes lingering forming bar", func(t *testing.T) {
		s, _ := NewStore(3)
		_, _ = s.Upsert(mkBar(0, 100, false))
		_, err := s.Upsert(mkBar(1, 101, false))
		require.NoError(t, err)

		complete := s.Complete()
		require.Len(t, complete, 1)
		assertClose(t, 100, complete[0])
	})
}

func TestStore_Load(t *testing.T) {
	s, _ := NewStore(10)
	bars := []Bar{mkBar(0, 100, false), mkBar(1, 101, false), mkBar(2, 102, false)}

	require.NoError(t, s.Load(bars, true))
	assert.Equal(t, 3, s.Len())
	assert.Len(t, s.Complete(), 2)

	last, _ := s.Last()
	assert.False(t, last.Complete)
	assert.Len(t, s.Bars(), 3)
}

func TestCheckSeries(t *testing.T) {
	good := []Bar{mkBar(0, 100, true), mkBar(1, 101, true)}
	assert.NoError(t, CheckSeries(good))

	bad := []Bar{mkBar(1, 100, true), mkBar(1, 101, true)}
	assert.Error(t, CheckSeries(bad))

	cloned := Clone(good)
	cloned[0].Close = decimal.NewFromInt(1)
	assertClose(t, 100, good[0])
}

func TestParse(t *testing.T) {
	b, err := Parse(t0, "100.1", "100.3", "99.9", "100.2", "12.5")
	require.NoError(t, err)
	assert.Equal(t, "100.1", b.Open.String())
	assert.Equal(t, "99.9", b.Low.String())
	assert.False(t, b.Complete)

	same := b
	same.High = decimal.RequireFromString("100.30")
	assert.True(t, b.Equal(same))
	same.Complete = true
	assert.False(t, b.Equal(same))

	_, err = Parse(t0, "100", "NaN", "99", "100", "1")
	assert.Error(t, err)
}
