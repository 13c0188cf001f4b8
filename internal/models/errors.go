package models

import "errors"

// Error taxonomy for the simulation subsystem. Configuration errors fail
// fast before a run starts; the remaining classes degrade gracefully
// (discarded bar, rejected order, null window) without aborting a run.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrBadBar        = errors.New("invalid price bar")
	ErrOrderRejected = errors.New("order rejected")
	ErrOptimization  = errors.New("optimization failed")
	ErrNotFound      = errors.New("record not found")
)
