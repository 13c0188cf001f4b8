package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar represents a single OHLCV bar for one symbol.
// Bars are produced externally and treated as immutable once constructed.
type PriceBar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Validate checks the internal consistency of the bar
func (b *PriceBar) Validate() error {
	if b.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrBadBar)
	}
	if b.High.LessThan(b.Low) {
		return fmt.Errorf("%w: high %s below low %s at %s", ErrBadBar, b.High, b.Low, b.Timestamp.Format(time.RFC3339))
	}
	if b.High.LessThan(b.Open) || b.High.LessThan(b.Close) {
		return fmt.Errorf("%w: high %s below open/close at %s", ErrBadBar, b.High, b.Timestamp.Format(time.RFC3339))
	}
	if b.Low.GreaterThan(b.Open) || b.Low.GreaterThan(b.Close) {
		return fmt.Errorf("%w: low %s above open/close at %s", ErrBadBar, b.Low, b.Timestamp.Format(time.RFC3339))
	}
	if b.Volume.IsNegative() {
		return fmt.Errorf("%w: negative volume %s at %s", ErrBadBar, b.Volume, b.Timestamp.Format(time.RFC3339))
	}
	return nil
}
