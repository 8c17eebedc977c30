package repository

import (
	"context"

	"github.com/it-Barath/fpms-sub006/internal/domain"
)

// OfficesRepository access to the primary offices table.
// Lookups return (nil, nil) when nothing matches; unknown offices are not errors.
type OfficesRepository interface {
	// GetOffice by office_code
	GetOffice(ctx context.Context, officeCode string) (*domain.Office, error)

	// FindOfficeByName exact office_name match within one office type
	FindOfficeByName(ctx context.Context, officeType domain.OfficeType, name string) (*domain.Office, error)

	// ListChildOffices offices of childType whose parent_office_code = parentCode, ordered by office_code
	ListChildOffices(ctx context.Context, childType domain.OfficeType, parentCode string) ([]*domain.Office, error)

	// ListOfficesByCodes batch lookup; missing codes are simply absent from the result
	ListOfficesByCodes(ctx context.Context, codes []string) ([]*domain.Office, error)

	// CountGnMapping total GN offices and how many carry a parent_office_code
	CountGnMapping(ctx context.Context) (total int, mapped int, err error)

	// ListUnmappedGnCodes GN offices without parent_office_code, ordered, at most limit
	ListUnmappedGnCodes(ctx context.Context, limit int) ([]string, error)

	// SetOfficeActive status toggle; returns ErrOfficeNotFound when no row was updated
	SetOfficeActive(ctx context.Context, officeCode string, active bool) error
}
