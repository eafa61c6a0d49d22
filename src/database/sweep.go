package database

import (
	"context"
	"database/sql"
	"fmt"

	"breakoutbot/src/metrics"
	"breakoutbot/src/sweep"
)

// SaveSweepResults 写入一次参数扫描的全部结果，无定义指标为 NULL
func (p *PostgresDB) SaveSweepResults(ctx context.Context, runID, symbol, timeframe string, results []sweep.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sweep_result (
			run_id, symbol, timeframe, lookback_window, volume_multiplier,
			trade_count, multiple, cagr, sharpe, max_drawdown, win_ratio, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		multiple := metrics.Defined(r.Multiple)
		errText := sql.NullString{String: r.Err, Valid: r.Failed()}
		if r.Failed() {
			multiple = metrics.Value{}
		}
		_, err = stmt.ExecContext(ctx,
			runID, symbol, timeframe, r.LookbackWindow, r.VolumeMultiplier,
			r.TradeCount, multiple, r.CAGR, r.Sharpe, r.MaxDrawdown, r.WinRatio, errText,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sweep result: %w", err)
		}
	}

	return tx.Commit()
}
