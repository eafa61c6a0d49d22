package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDB PostgreSQL数据库连接
type PostgresDB struct {
	db *sql.DB
}

// schema 建表语句，EnsureSchema 按顺序执行
var schema = []string{
	`CREATE TABLE IF NOT EXISTS klines (
		symbol      VARCHAR(32)      NOT NULL,
		timeframe   VARCHAR(8)       NOT NULL,
		open_time   TIMESTAMPTZ      NOT NULL,
		open_price  NUMERIC(30,10)   NOT NULL,
		high_price  NUMERIC(30,10)   NOT NULL,
		low_price   NUMERIC(30,10)   NOT NULL,
		close_price NUMERIC(30,10)   NOT NULL,
		volume      NUMERIC(30,10)   NOT NULL,
		updated_at  TIMESTAMPTZ      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (symbol, timeframe, open_time)
	)`,
	`CREATE TABLE IF NOT EXISTS trade_record (
		id               BIGSERIAL PRIMARY KEY,
		transaction_time TIMESTAMPTZ    NOT NULL,
		symbol           VARCHAR(32)    NOT NULL,
		side             VARCHAR(8)     NOT NULL,
		price            NUMERIC(30,10) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_record_symbol_time ON trade_record (symbol, transaction_time)`,
	`CREATE TABLE IF NOT EXISTS asset (
		id          BIGSERIAL PRIMARY KEY,
		update_time TIMESTAMPTZ    NOT NULL,
		asset       VARCHAR(16)    NOT NULL,
		amount      NUMERIC(30,10) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_ack (
		id               BIGSERIAL PRIMARY KEY,
		transaction_time TIMESTAMPTZ    NOT NULL,
		symbol           VARCHAR(32)    NOT NULL,
		side             VARCHAR(8)     NOT NULL,
		price            NUMERIC(30,10) NOT NULL,
		quantity         NUMERIC(30,10) NOT NULL,
		order_id         VARCHAR(64)    NOT NULL,
		reason           VARCHAR(32)    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sweep_result (
		run_id            UUID             NOT NULL,
		symbol            VARCHAR(32)      NOT NULL,
		timeframe         VARCHAR(8)       NOT NULL,
		lookback_window   INTEGER          NOT NULL,
		volume_multiplier DOUBLE PRECISION NOT NULL,
		trade_count       INTEGER          NOT NULL,
		multiple          DOUBLE PRECISION,
		cagr              DOUBLE PRECISION,
		sharpe            DOUBLE PRECISION,
		max_drawdown      DOUBLE PRECISION,
		win_ratio         DOUBLE PRECISION,
		error             TEXT,
		created_at        TIMESTAMPTZ      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, lookback_window, volume_multiplier)
	)`,
}

// NewPostgresDB 创建PostgreSQL数据库连接
func NewPostgresDB(ctx context.Context, cfg DatabaseConfig) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresDB{db: db}, nil
}

// NewFromDB 使用已有连接
func NewFromDB(db *sql.DB) *PostgresDB {
	return &PostgresDB{db: db}
}

// EnsureSchema 创建缺失的表
func (p *PostgresDB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库连接
func (p *PostgresDB) Close() error {
	return p.db.Close()
}
