package database

import (
	"context"
	"fmt"
	"time"

	"breakoutbot/src/cex"
	"breakoutbot/src/executor"
	"breakoutbot/src/metrics"

	"github.com/shopspring/decimal"
)

// Record 实现 executor.Recorder，下单回执写入 order_ack
func (p *PostgresDB) Record(ctx context.Context, rec executor.TradeRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO order_ack (transaction_time, symbol, side, price, quantity, order_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Time.UTC(), rec.Symbol, string(rec.Side), rec.Price, rec.Quantity, rec.OrderID, rec.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert order ack: %w", err)
	}
	return nil
}

// SaveFill 完全成交回报写入 trade_record，价格 = 成交额 / 成交量
func (p *PostgresDB) SaveFill(ctx context.Context, report *cex.ExecutionReport) error {
	price := cex.FillPrice(report.FilledQuote, report.FilledQuantity)
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trade_record (transaction_time, symbol, side, price)
		VALUES ($1, $2, $3, $4)
	`, report.TransactionTime.UTC(), report.Symbol, string(report.Side), price)
	if err != nil {
		return fmt.Errorf("failed to insert trade record: %w", err)
	}
	return nil
}

// SaveAssets 余额快照写入 asset，数量取可用余额
func (p *PostgresDB) SaveAssets(ctx context.Context, at time.Time, balances []*cex.AccountBalance) error {
	if len(balances) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO asset (update_time, asset, amount) VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range balances {
		if _, err = stmt.ExecContext(ctx, at.UTC(), b.Asset, b.Free); err != nil {
			return fmt.Errorf("failed to insert asset: %w", err)
		}
	}

	return tx.Commit()
}

// GetTradeRecords 按时间顺序读取成交记录，零值时间表示不限
func (p *PostgresDB) GetTradeRecords(ctx context.Context, symbol string, start, end time.Time) ([]metrics.Trade, error) {
	query := `SELECT transaction_time, side, price FROM trade_record WHERE symbol = $1`
	args := []interface{}{symbol}
	argIndex := 2

	if !start.IsZero() {
		query += fmt.Sprintf(" AND transaction_time >= $%d", argIndex)
		args = append(args, start.UTC())
		argIndex++
	}
	if !end.IsZero() {
		query += fmt.Sprintf(" AND transaction_time < $%d", argIndex)
		args = append(args, end.UTC())
	}
	query += " ORDER BY transaction_time ASC, id ASC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade records: %w", err)
	}
	defer rows.Close()

	var trades []metrics.Trade
	for rows.Next() {
		var (
			tr    metrics.Trade
			side  string
			price decimal.Decimal
		)
		if err := rows.Scan(&tr.Time, &side, &price); err != nil {
			return nil, fmt.Errorf("failed to scan trade record: %w", err)
		}
		tr.Side = cex.OrderSide(side)
		tr.Price = price.InexactFloat64()
		trades = append(trades, tr)
	}

	return trades, rows.Err()
}
