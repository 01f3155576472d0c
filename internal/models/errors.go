package models

import "errors"

var (
	// ErrSourceUnavailable marks a network, auth, timeout or decode failure on an external read
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch marks a source table with missing columns or no rows
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrDegenerateDistribution is returned when fewer than two positive weights remain
	ErrDegenerateDistribution = errors.New("degenerate distribution: at least two positive weights required")

	// ErrDuplicateAsset is returned when an asset table binds the same key twice
	ErrDuplicateAsset = errors.New("duplicate asset key")
)
