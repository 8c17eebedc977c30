package repository

import (
	"context"

	"github.com/it-Barath/fpms-sub006/internal/domain"
)

// ReferenceDirectory the external hierarchy reference table (name based).
// It is a fallback source for GN -> division -> district links that the
// primary offices table does not carry.
type ReferenceDirectory interface {
	// ListGnByDivision rows whose division_name equals divisionName
	ListGnByDivision(ctx context.Context, divisionName string) ([]domain.ReferenceGN, error)

	// ListDivisionsByDistrict distinct division names under districtName
	ListDivisionsByDistrict(ctx context.Context, districtName string) ([]string, error)

	// LookupGn rows for the given GN ids; ids absent from the table are skipped
	LookupGn(ctx context.Context, gnIDs []string) ([]domain.ReferenceGN, error)
}
