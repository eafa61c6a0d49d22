package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"breakoutbot/src/bar"
)

const barBatchSize = 100

// SaveBars 批量写入已收盘K线，已存在的按开盘时间覆盖
func (p *PostgresDB) SaveBars(ctx context.Context, symbol, timeframe string, bars []bar.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// 分批处理，避免SQL语句过长
	for i := 0; i < len(bars); i += barBatchSize {
		end := i + barBatchSize
		if end > len(bars) {
			end = len(bars)
		}
		if err := p.saveBarBatch(ctx, symbol, timeframe, bars[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresDB) saveBarBatch(ctx context.Context, symbol, timeframe string, bars []bar.Bar) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const cols = 8
	valueStrings := make([]string, 0, len(bars))
	valueArgs := make([]interface{}, 0, len(bars)*cols)
	for i, b := range bars {
		base := i * cols
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		valueArgs = append(valueArgs,
			symbol, timeframe, b.Timestamp.UTC(),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
	}

	query := `
		INSERT INTO klines (
			symbol, timeframe, open_time,
			open_price, high_price, low_price, close_price, volume
		) VALUES ` + strings.Join(valueStrings, ",") + `
		ON CONFLICT (symbol, timeframe, open_time)
		DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err = tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("failed to batch insert klines: %w", err)
	}

	return tx.Commit()
}

// LoadBars 读取开盘时间在 [start, end) 内的缓存K线
func (p *PostgresDB) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]bar.Bar, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT open_time, open_price, high_price, low_price, close_price, volume
		FROM klines
		WHERE symbol = $1 AND timeframe = $2 AND open_time >= $3 AND open_time < $4
		ORDER BY open_time ASC
	`, symbol, timeframe, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query klines: %w", err)
	}
	defer rows.Close()

	var bars []bar.Bar
	for rows.Next() {
		b := bar.Bar{Complete: true}
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan kline: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, b)
	}

	return bars, rows.Err()
}
