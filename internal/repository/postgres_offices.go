package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/it-Barath/fpms-sub006/internal/domain"

	"github.com/lib/pq"
)

type PostgresOfficesRepository struct {
	db *sql.DB
}

func NewPostgresOfficesRepository(db *sql.DB) *PostgresOfficesRepository {
	return &PostgresOfficesRepository{db: db}
}

const officeColumns = `office_code, office_name, office_type, parent_office_code, is_active`

func scanOffice(row interface{ Scan(...any) error }) (*domain.Office, error) {
	var o domain.Office
	var officeType string
	if err := row.Scan(&o.OfficeCode, &o.OfficeName, &officeType, &o.ParentOfficeCode, &o.IsActive); err != nil {
		return nil, err
	}
	o.OfficeType = domain.OfficeType(officeType)
	// migrated rows store '' instead of NULL
	if o.ParentOfficeCode.Valid && o.ParentOfficeCode.String == "" {
		o.ParentOfficeCode = sql.NullString{}
	}
	return &o, nil
}

func (r *PostgresOfficesRepository) GetOffice(ctx context.Context, officeCode string) (*domain.Office, error) {
	q := `SELECT ` + officeColumns + ` FROM offices WHERE office_code = $1`
	o, err := scanOffice(r.db.QueryRowContext(ctx, q, officeCode))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get office %s: %w", officeCode, err)
	}
	return o, nil
}

func (r *PostgresOfficesRepository) FindOfficeByName(ctx context.Context, officeType domain.OfficeType, name string) (*domain.Office, error) {
	q := `
		SELECT ` + officeColumns + `
		FROM offices
		WHERE office_type = $1 AND office_name = $2
		ORDER BY office_code
		LIMIT 1
	`
	o, err := scanOffice(r.db.QueryRowContext(ctx, q, string(officeType), name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %s office %q: %w", officeType, name, err)
	}
	return o, nil
}

func (r *PostgresOfficesRepository) ListChildOffices(ctx context.Context, childType domain.OfficeType, parentCode string) ([]*domain.Office, error) {
	q := `
		SELECT ` + officeColumns + `
		FROM offices
		WHERE office_type = $1 AND parent_office_code = $2
		ORDER BY office_code
	`
	return r.queryOffices(ctx, q, string(childType), parentCode)
}

func (r *PostgresOfficesRepository) ListOfficesByCodes(ctx context.Context, codes []string) ([]*domain.Office, error) {
	if len(codes) == 0 {
		return []*domain.Office{}, nil
	}
	q := `
		SELECT ` + officeColumns + `
		FROM offices
		WHERE office_code = ANY($1)
		ORDER BY office_code
	`
	return r.queryOffices(ctx, q, pq.Array(codes))
}

func (r *PostgresOfficesRepository) queryOffices(ctx context.Context, q string, args ...any) ([]*domain.Office, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offices: %w", err)
	}
	defer rows.Close()

	out := []*domain.Office{}
	for rows.Next() {
		o, err := scanOffice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan office: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresOfficesRepository) CountGnMapping(ctx context.Context) (int, int, error) {
	q := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE COALESCE(parent_office_code, '') <> '')
		FROM offices
		WHERE office_type = 'gn'
	`
	var total, mapped int
	if err := r.db.QueryRowContext(ctx, q).Scan(&total, &mapped); err != nil {
		return 0, 0, fmt.Errorf("failed to count gn mapping: %w", err)
	}
	return total, mapped, nil
}

func (r *PostgresOfficesRepository) ListUnmappedGnCodes(ctx context.Context, limit int) ([]string, error) {
	q := `
		SELECT office_code
		FROM offices
		WHERE office_type = 'gn' AND COALESCE(parent_office_code, '') = ''
		ORDER BY office_code
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmapped gn offices: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

func (r *PostgresOfficesRepository) SetOfficeActive(ctx context.Context, officeCode string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE offices SET is_active = $2, updated_at = CURRENT_TIMESTAMP WHERE office_code = $1`,
		officeCode, active,
	)
	if err != nil {
		return fmt.Errorf("failed to update office status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrOfficeNotFound
	}
	return nil
}
