package hnswdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hnswdb/internal/resource"
)

var (
	// ErrNoVectorStorage is returned by Vector when the index keeps no
	// full-precision copies.
	ErrNoVectorStorage = errors.New("vector storage is disabled")

	// ErrNotFound is returned when an external id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrMetricMismatch is returned when a saved index is loaded with a
	// different metric.
	ErrMetricMismatch = errors.New("metric mismatch")

	// ErrIO wraps every failure to save or load persisted artifacts.
	ErrIO = errors.New("i/o error")

	// ErrInvalidOption is returned for out-of-range construction options.
	ErrInvalidOption = errors.New("invalid option")

	// ErrMemoryLimitExceeded is returned when storing a vector would exceed
	// the memory limit set with WithResourceLimits.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// ioError marks err as a persistence failure of op.
func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

func checkDimension(expected int, v []float32) error {
	if len(v) != expected {
		return &ErrDimensionMismatch{Expected: expected, Actual: len(v)}
	}
	return nil
}
