package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/it-Barath/fpms-sub006/internal/domain"

	"github.com/lib/pq"
)

// PostgresReferenceDirectory reads <schema>.gn_divisions, which may live in a
// different database from the offices table.
type PostgresReferenceDirectory struct {
	db    *sql.DB
	table string
}

func NewPostgresReferenceDirectory(db *sql.DB, schema string) *PostgresReferenceDirectory {
	table := pq.QuoteIdentifier("gn_divisions")
	if schema != "" {
		table = pq.QuoteIdentifier(schema) + "." + table
	}
	return &PostgresReferenceDirectory{db: db, table: table}
}

func (r *PostgresReferenceDirectory) ListGnByDivision(ctx context.Context, divisionName string) ([]domain.ReferenceGN, error) {
	q := `
		SELECT gn_id, gn_name, division_name, district_name
		FROM ` + r.table + `
		WHERE division_name = $1
		ORDER BY gn_id
	`
	return r.queryGn(ctx, q, divisionName)
}

func (r *PostgresReferenceDirectory) ListDivisionsByDistrict(ctx context.Context, districtName string) ([]string, error) {
	q := `
		SELECT DISTINCT division_name
		FROM ` + r.table + `
		WHERE district_name = $1 AND COALESCE(division_name, '') <> ''
		ORDER BY division_name
	`
	rows, err := r.db.QueryContext(ctx, q, districtName)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference divisions: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *PostgresReferenceDirectory) LookupGn(ctx context.Context, gnIDs []string) ([]domain.ReferenceGN, error) {
	if len(gnIDs) == 0 {
		return []domain.ReferenceGN{}, nil
	}
	q := `
		SELECT gn_id, gn_name, division_name, district_name
		FROM ` + r.table + `
		WHERE gn_id = ANY($1)
		ORDER BY gn_id
	`
	return r.queryGn(ctx, q, pq.Array(gnIDs))
}

func (r *PostgresReferenceDirectory) queryGn(ctx context.Context, q string, args ...any) ([]domain.ReferenceGN, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference gn divisions: %w", err)
	}
	defer rows.Close()

	out := []domain.ReferenceGN{}
	for rows.Next() {
		var g domain.ReferenceGN
		var gnName, divisionName, districtName sql.NullString
		if err := rows.Scan(&g.GnID, &gnName, &divisionName, &districtName); err != nil {
			return nil, err
		}
		g.GnName = gnName.String
		g.DivisionName = divisionName.String
		g.DistrictName = districtName.String
		out = append(out, g)
	}
	return out, rows.Err()
}
