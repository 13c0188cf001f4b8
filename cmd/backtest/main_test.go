package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quantbench/internal/logger"
	"github.com/yourusername/quantbench/internal/models"
)

type fakeBarRepo struct {
	inserted  []*models.PriceBar
	deleted   []string
	insertErr error
	deleteErr error
}

func (r *fakeBarRepo) InsertBatch(ctx context.Context, bars []*models.PriceBar) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, bars...)
	return nil
}

func (r *fakeBarRepo) GetBySymbolAndRange(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceBar, error) {
	return nil, nil
}

func (r *fakeBarRepo) GetSymbols(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (r *fakeBarRepo) DeleteBySymbol(ctx context.Context, symbol string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, symbol)
	return nil
}

type fakeBarSource struct {
	bars []*models.PriceBar
	err  error
}

func (s *fakeBarSource) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceBar, error) {
	return s.bars, s.err
}

func (s *fakeBarSource) Name() string {
	return "fake"
}

func dailyBar(day int) *models.PriceBar {
	return &models.PriceBar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 1, 1+day, 0, 0, 0, 0, time.UTC),
		Open:      decimal.NewFromInt(100),
		High:      decimal.NewFromInt(105),
		Low:       decimal.NewFromInt(99),
		Close:     decimal.NewFromInt(102),
		Volume:    decimal.NewFromInt(1000),
	}
}

func TestIngestBarsStoresFetchedBars(t *testing.T) {
	repo := &fakeBarRepo{}
	source := &fakeBarSource{bars: []*models.PriceBar{dailyBar(0), dailyBar(1)}}

	count, err := ingestBars(context.Background(), repo, source, "AAPL", time.Time{}, time.Time{}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Len(t, repo.inserted, 2)
	assert.Empty(t, repo.deleted)
}

func TestIngestBarsReplaceDeletesFirst(t *testing.T) {
	repo := &fakeBarRepo{}
	source := &fakeBarSource{bars: []*models.PriceBar{dailyBar(0)}}

	count, err := ingestBars(context.Background(), repo, source, "AAPL", time.Time{}, time.Time{}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"AAPL"}, repo.deleted)
	assert.Len(t, repo.inserted, 1)
}

func TestIngestBarsEmptyFetchFails(t *testing.T) {
	repo := &fakeBarRepo{}
	source := &fakeBarSource{}

	_, err := ingestBars(context.Background(), repo, source, "AAPL", time.Time{}, time.Time{}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Empty(t, repo.inserted)
}

func TestIngestBarsSurfacesRepositoryErrors(t *testing.T) {
	repo := &fakeBarRepo{deleteErr: errors.New("connection lost")}
	source := &fakeBarSource{bars: []*models.PriceBar{dailyBar(0)}}

	_, err := ingestBars(context.Background(), repo, source, "AAPL", time.Time{}, time.Time{}, true)
	require.Error(t, err)
	assert.Empty(t, repo.inserted)
}

func TestRecordBarPersistsToRepository(t *testing.T) {
	repo := &fakeBarRepo{}
	handler := recordBar(context.Background(), repo, logger.NewLogger("error"))

	require.NoError(t, handler(dailyBar(0)))
	require.NoError(t, handler(dailyBar(1)))

	require.Len(t, repo.inserted, 2)
	assert.True(t, repo.inserted[1].Timestamp.After(repo.inserted[0].Timestamp))
}

func TestRecordBarWithoutRepositoryLogsOnly(t *testing.T) {
	handler := recordBar(context.Background(), nil, logger.NewLogger("error"))
	assert.NoError(t, handler(dailyBar(0)))
}

func TestRecordBarSurfacesInsertErrors(t *testing.T) {
	repo := &fakeBarRepo{insertErr: errors.New("connection lost")}
	handler := recordBar(context.Background(), repo, logger.NewLogger("error"))
	assert.Error(t, handler(dailyBar(0)))
}
