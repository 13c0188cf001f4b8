package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/quantbench/internal/models"
)

// BarRepository defines the interface for price bar data access
type BarRepository interface {
	InsertBatch(ctx context.Context, bars []*models.PriceBar) error
	GetBySymbolAndRange(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceBar, error)
	GetSymbols(ctx context.Context) ([]string, error)
	DeleteBySymbol(ctx context.Context, symbol string) error
}

// ResultRepository defines run result persistence
type ResultRepository interface {
	Save(ctx context.Context, record *models.ResultRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ResultRecord, error)
	GetByStrategy(ctx context.Context, strategyName string, limit int) ([]*models.ResultRecord, error)
	GetLatest(ctx context.Context, limit int) ([]*models.ResultRecord, error)
}
