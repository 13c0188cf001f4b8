package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/quantbench/internal/database"
	"github.com/yourusername/quantbench/internal/models"
)

const errScanBar = "failed to scan price bar: %w"

// PostgresBarRepository implements BarRepository for PostgreSQL
type PostgresBarRepository struct {
	db *database.DB
}

// NewPostgresBarRepository creates a new bar repository
func NewPostgresBarRepository(db *database.DB) BarRepository {
	return &PostgresBarRepository{db: db}
}

// InsertBatch inserts bars in a single transaction. Duplicate
// (symbol, timestamp) rows are overwritten with the newest values.
func (r *PostgresBarRepository) InsertBatch(ctx context.Context, bars []*models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO price_bars (symbol, ts, open, high, low, close, volume)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (symbol, ts) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high,
			low = EXCLUDED.low, close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, bar := range bars {
			batch.Queue(query, bar.Symbol, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		}
		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for range bars {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to insert price bar: %w", err)
			}
		}
		return nil
	})
}

// GetBySymbolAndRange retrieves bars for a symbol in ascending timestamp
// order, end exclusive
func (r *PostgresBarRepository) GetBySymbolAndRange(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceBar, error) {
	query := `
		SELECT symbol, ts, open, high, low, close, volume
		FROM price_bars
		WHERE symbol = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts ASC
	`
	rows, err := r.db.GetPool().Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	defer rows.Close()

	var bars []*models.PriceBar
	for rows.Next() {
		bar := &models.PriceBar{}
		if err := rows.Scan(
			&bar.Symbol, &bar.Timestamp,
			&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume,
		); err != nil {
			return nil, fmt.Errorf(errScanBar, err)
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// GetSymbols retrieves the distinct symbols with stored bars
func (r *PostgresBarRepository) GetSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.GetPool().Query(ctx, `SELECT DISTINCT symbol FROM price_bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// DeleteBySymbol removes all stored bars for a symbol
func (r *PostgresBarRepository) DeleteBySymbol(ctx context.Context, symbol string) error {
	if _, err := r.db.GetPool().Exec(ctx, `DELETE FROM price_bars WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("failed to delete price bars: %w", err)
	}
	return nil
}
