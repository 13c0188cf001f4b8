package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/quantbench/internal/database"
	"github.com/yourusername/quantbench/internal/models"
)

const (
	errScanResult = "failed to scan result record: %w"

	resultColumns = `id, run_type, strategy_name, symbol, start_date, end_date,
		initial_capital, final_equity, total_return_pct, sharpe_ratio,
		max_drawdown_pct, total_trades, win_rate, profit_factor,
		params, full_results, created_at`
)

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new result repository
func NewPostgresResultRepository(db *database.DB) ResultRepository {
	return &PostgresResultRepository{db: db}
}

// Save inserts a run result record
func (r *PostgresResultRepository) Save(ctx context.Context, record *models.ResultRecord) error {
	query := `
		INSERT INTO run_results (` + resultColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	_, err := r.db.GetPool().Exec(ctx, query,
		record.ID, record.RunType, record.StrategyName, record.Symbol, record.StartDate, record.EndDate,
		record.InitialCapital, record.FinalEquity, record.TotalReturnPct, record.SharpeRatio,
		record.MaxDrawdownPct, record.TotalTrades, record.WinRate, record.ProfitFactor,
		record.Params, record.FullResults, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run result: %w", err)
	}
	return nil
}

// GetByID retrieves a single result record
func (r *PostgresResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + ` FROM run_results WHERE id = $1`
	record := &models.ResultRecord{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&record.ID, &record.RunType, &record.StrategyName, &record.Symbol, &record.StartDate, &record.EndDate,
		&record.InitialCapital, &record.FinalEquity, &record.TotalReturnPct, &record.SharpeRatio,
		&record.MaxDrawdownPct, &record.TotalTrades, &record.WinRate, &record.ProfitFactor,
		&record.Params, &record.FullResults, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: run result %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf(errScanResult, err)
	}
	return record, nil
}

// GetByStrategy retrieves the most recent results for a strategy
func (r *PostgresResultRepository) GetByStrategy(ctx context.Context, strategyName string, limit int) ([]*models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + ` FROM run_results
		WHERE strategy_name = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryRecords(ctx, query, strategyName, limit)
}

// GetLatest retrieves the most recent results across all strategies
func (r *PostgresResultRepository) GetLatest(ctx context.Context, limit int) ([]*models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + ` FROM run_results ORDER BY created_at DESC LIMIT $1`
	return r.queryRecords(ctx, query, limit)
}

func (r *PostgresResultRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*models.ResultRecord, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run results: %w", err)
	}
	defer rows.Close()

	var records []*models.ResultRecord
	for rows.Next() {
		record := &models.ResultRecord{}
		if err := rows.Scan(
			&record.ID, &record.RunType, &record.StrategyName, &record.Symbol, &record.StartDate, &record.EndDate,
			&record.InitialCapital, &record.FinalEquity, &record.TotalReturnPct, &record.SharpeRatio,
			&record.MaxDrawdownPct, &record.TotalTrades, &record.WinRate, &record.ProfitFactor,
			&record.Params, &record.FullResults, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf(errScanResult, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
