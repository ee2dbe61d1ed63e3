/*
errors.go - Centralized error types for the analytics engine

PURPOSE:
  All engine-level errors in one place. The error taxonomy is deliberately
  small: data-shape conditions (empty group, zero denominator, unmatched
  row) are encoded in results, not raised as errors. Only requests that are
  malformed before aggregation begins are rejected.

SEE ALSO:
  - dimension.go: Uses ErrUnknownDimension
  - efficiency.go: Uses ErrUnknownMetric
  - ingest/: Structural ingestion errors live with the ingestion contract
*/
package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDimension is returned when a grouping or filter key is not
	// one of the supported categorical dimensions. Rejected before any
	// aggregation work starts.
	ErrUnknownDimension = errors.New("unknown grouping dimension")

	// ErrUnknownMetric is returned for an unsupported efficiency metric.
	ErrUnknownMetric = errors.New("unknown efficiency metric")

	// ErrUnknownYear is returned when a request pins a year outside the
	// covered range.
	ErrUnknownYear = errors.New("year outside known range")
)

// DimensionError carries the offending key alongside ErrUnknownDimension.
type DimensionError struct {
	Key string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("unknown grouping dimension %q", e.Key)
}

func (e *DimensionError) Unwrap() error { return ErrUnknownDimension }
