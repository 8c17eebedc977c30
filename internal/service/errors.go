package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScope empty or malformed scope identifier; fails the request
	ErrInvalidScope = errors.New("invalid scope")

	// ErrAggregationQuery data access failed; no partial result is returned
	ErrAggregationQuery = errors.New("aggregation query failed")

	// ErrUnknownReportType only returned when strict report types are enabled
	ErrUnknownReportType = errors.New("unknown report type")

	// ErrInvalidRequest report request failed validation
	ErrInvalidRequest = errors.New("invalid report request")

	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// WarningCode advisory condition attached to a result. Never an error.
type WarningCode string

const (
	WarnUnmappedHierarchy    WarningCode = "UNMAPPED_HIERARCHY"
	WarnDateRangeSubstituted WarningCode = "DATE_RANGE_SUBSTITUTED"
	WarnUnknownReportType    WarningCode = "UNKNOWN_REPORT_TYPE"
	WarnGnOverrideOutOfScope WarningCode = "GN_OVERRIDE_OUT_OF_SCOPE"
	WarnListingTruncated     WarningCode = "LISTING_TRUNCATED"
)

type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

func newWarning(code WarningCode, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}

// queryFailure wraps a repository error so callers can match ErrAggregationQuery
// while the underlying cause stays reachable through errors.Is / errors.As.
func queryFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAggregationQuery, op, err)
}

func invalidScope(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScope, fmt.Sprintf(format, args...))
}
