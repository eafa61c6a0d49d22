package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"
	"breakoutbot/src/executor"
	"breakoutbot/src/metrics"
	"breakoutbot/src/sweep"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db), mock
}

func TestDatabaseConfig(t *testing.T) {
	cfg := GetDefaultDatabaseConfig("breakout")
	assert.False(t, cfg.Enabled())

	cfg.Host = "db"
	cfg.Password = "secret"
	cfg.SSLMode = ""
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "host=db port=5432 user=breakoutbot password=secret dbname=breakout sslmode=disable", cfg.DSN())
}

func TestPostgresDB_EnsureSchema(t *testing.T) {
	p, mock := newMockDB(t)

	t.Run("creates every table", func(t *testing.T) {
		for range schema {
			mock.ExpectExec("CREATE (TABLE|INDEX) IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
		}
		assert.NoError(t, p.EnsureSchema(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops on error", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS klines").WillReturnError(sql.ErrConnDone)
		err := p.EnsureSchema(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ensure schema")
	})
}

func mustBar(t *testing.T, ts time.Time, open, high, low, close, volume string) bar.Bar {
	b, err := bar.Parse(ts, open, high, low, close, volume)
	require.NoError(t, err)
	b.Complete = true
	return b
}

func TestPostgresDB_SaveBars(t *testing.T) {
	p, mock := newMockDB(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []bar.Bar{
		mustBar(t, ts, "100", "101", "99", "100.5", "10"),
		mustBar(t, ts.Add(time.Minute), "100.5", "102", "100", "101", "12.25"),
	}

	t.Run("successful save", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO klines").
			WithArgs(
				"BTCUSDT", "1m", ts, "100", "101", "99", "100.5", "10",
				"BTCUSDT", "1m", ts.Add(time.Minute), "100.5", "102", "100", "101", "12.25",
			).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		assert.NoError(t, p.SaveBars(context.Background(), "BTCUSDT", "1m", bars))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("batches large inputs", func(t *testing.T) {
		many := make([]bar.Bar, barBatchSize+1)
		for i := range many {
			many[i] = bars[0]
			many[i].Timestamp = ts.Add(time.Duration(i) * time.Minute)
		}
		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO klines").WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
		}

		assert.NoError(t, p.SaveBars(context.Background(), "BTCUSDT", "1m", many))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty bars", func(t *testing.T) {
		assert.NoError(t, p.SaveBars(context.Background(), "BTCUSDT", "1m", nil))
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

		err := p.SaveBars(context.Background(), "BTCUSDT", "1m", bars)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})
}

func TestPostgresDB_LoadBars(t *testing.T) {
	p, mock := newMockDB(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"open_time", "open_price", "high_price", "low_price", "close_price", "volume"}).
		AddRow(start, "100", "101", "99", "100.1", "10")
	mock.ExpectQuery("SELECT (.+) FROM klines").
		WithArgs("BTCUSDT", "1m", start, end).
		WillReturnRows(rows)

	bars, err := p.LoadBars(context.Background(), "BTCUSDT", "1m", start, end)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, start, bars[0].Timestamp)
	assert.Equal(t, "100.1", bars[0].Close.String())
	assert.True(t, bars[0].Complete)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_Record(t *testing.T) {
	p, mock := newMockDB(t)
	rec := executor.TradeRecord{
		Time:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Symbol:   "BTCUSDT",
		Side:     cex.OrderSideBuy,
		Price:    decimal.RequireFromString("42000.12345"),
		Quantity: decimal.RequireFromString("0.005"),
		OrderID:  "1",
		Reason:   "GOING LONG",
	}

	mock.ExpectExec("INSERT INTO order_ack").
		WithArgs(rec.Time, "BTCUSDT", "BUY", rec.Price, rec.Quantity, "1", "GOING LONG").
		WillReturnResult(sqlmock.NewResult(1, 1))
	assert.NoError(t, p.Record(context.Background(), rec))

	mock.ExpectExec("INSERT INTO order_ack").WillReturnError(sql.ErrConnDone)
	assert.ErrorIs(t, p.Record(context.Background(), rec), sql.ErrConnDone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_SaveFill(t *testing.T) {
	p, mock := newMockDB(t)
	report := &cex.ExecutionReport{
		Symbol:          "BTCUSDT",
		Side:            cex.OrderSideSell,
		ExecutionType:   "TRADE",
		Status:          "FILLED",
		FilledQuantity:  decimal.RequireFromString("0.003"),
		FilledQuote:     decimal.RequireFromString("100"),
		TransactionTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO trade_record").
		WithArgs(report.TransactionTime, "BTCUSDT", "SELL", decimal.RequireFromString("33333.33333")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, p.SaveFill(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_SaveAssets(t *testing.T) {
	p, mock := newMockDB(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	balances := []*cex.AccountBalance{
		{Asset: "BTC", Free: decimal.RequireFromString("0.5")},
		{Asset: "USDT", Free: decimal.RequireFromString("1000")},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO asset")
	prep.ExpectExec().WithArgs(at, "BTC", balances[0].Free).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(at, "USDT", balances[1].Free).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	assert.NoError(t, p.SaveAssets(context.Background(), at, balances))
	assert.NoError(t, p.SaveAssets(context.Background(), at, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_GetTradeRecords(t *testing.T) {
	p, mock := newMockDB(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no time bounds", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"transaction_time", "side", "price"}).
			AddRow(t0, "BUY", "100.00000").
			AddRow(t0.Add(time.Hour), "SELL", "110.50000")
		mock.ExpectQuery("SELECT (.+) FROM trade_record").
			WithArgs("BTCUSDT").
			WillReturnRows(rows)

		trades, err := p.GetTradeRecords(context.Background(), "BTCUSDT", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, cex.OrderSideBuy, trades[0].Side)
		assert.Equal(t, 110.5, trades[1].Price)
	})

	t.Run("with time bounds", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM trade_record (.+) transaction_time >= \\$2 AND transaction_time < \\$3").
			WithArgs("BTCUSDT", t0, t0.Add(24*time.Hour)).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_time", "side", "price"}))

		trades, err := p.GetTradeRecords(context.Background(), "BTCUSDT", t0, t0.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, trades)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_SaveSweepResults(t *testing.T) {
	p, mock := newMockDB(t)
	results := []sweep.Result{
		{LookbackWindow: 5, VolumeMultiplier: 1.3, TradeCount: 4, Multiple: 1.02, CAGR: metrics.Defined(0.1)},
		{LookbackWindow: 6, VolumeMultiplier: 1.3, Err: "not enough bars"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO sweep_result")
	prep.ExpectExec().
		WithArgs("run", "BTCUSDT", "15m", 5, 1.3, 4, 1.02, 0.1, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("run", "BTCUSDT", "15m", 6, 1.3, 0, nil, nil, nil, nil, nil, "not enough bars").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, p.SaveSweepResults(context.Background(), "run", "BTCUSDT", "15m", results))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectClose()
	assert.NoError(t, NewFromDB(db).Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
