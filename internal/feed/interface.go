// Package feed provides market data sources for backtesting.
package feed

import (
	"context"
	"sort"
	"time"

	"github.com/yourusername/quantbench/internal/models"
)

// BarSource defines the interface for loading historical price bars
type BarSource interface {
	// FetchBars retrieves bars for a symbol in ascending timestamp order,
	// end exclusive
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceBar, error)

	// Name returns the name of the data source
	Name() string
}

// normalizeBars sorts bars ascending by timestamp and drops exact
// duplicate timestamps, keeping the first occurrence
func normalizeBars(bars []*models.PriceBar) []*models.PriceBar {
	if len(bars) < 2 {
		return bars
	}

	sorted := make([]*models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:1]
	for _, bar := range sorted[1:] {
		if bar.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
