package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PostgresStatsRepository statistics queries over families / citizens and
// their satellite tables. Every query joins through families so the GN scope
// and registration window are applied in one place (predicateBuilder.families).
type PostgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

// scopedFamiliesCTE per-family linked member counts for the families in scope.
func scopedFamiliesCTE(b *predicateBuilder, f StatsFilter) string {
	b.families("f", f)
	return `
		WITH scoped AS (
			SELECT f.family_id, f.current_gn_office_code, f.total_members_declared, f.transfer_state
			FROM families f` + b.where() + `
		),
		linked AS (
			SELECT
				c.family_id,
				COUNT(*) AS members,
				COUNT(*) FILTER (WHERE LOWER(c.gender) = 'male') AS male,
				COUNT(*) FILTER (WHERE LOWER(c.gender) = 'female') AS female
			FROM citizens c
			JOIN scoped s ON s.family_id = c.family_id
			WHERE c.is_alive = TRUE
			GROUP BY c.family_id
		)`
}

func (r *PostgresStatsRepository) PopulationTotals(ctx context.Context, f StatsFilter) (*PopulationTotals, error) {
	b := newPredicateBuilder()
	q := scopedFamiliesCTE(b, f) + `
		SELECT
			COUNT(*),
			COALESCE(SUM(l.members), 0),
			COALESCE(SUM(l.male), 0),
			COALESCE(SUM(l.female), 0),
			COALESCE(SUM(s.total_members_declared), 0),
			COUNT(*) FILTER (WHERE s.total_members_declared <> COALESCE(l.members, 0)),
			COUNT(*) FILTER (WHERE s.transfer_state = 'pending_transfer')
		FROM scoped s
		LEFT JOIN linked l ON l.family_id = s.family_id
	`
	var t PopulationTotals
	err := r.db.QueryRowContext(ctx, q, b.params()...).Scan(
		&t.Families, &t.Citizens, &t.Male, &t.Female,
		&t.DeclaredMembers, &t.MemberMismatchFamilies, &t.PendingTransfers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count population: %w", err)
	}
	return &t, nil
}

func (r *PostgresStatsRepository) AgeGenderCounts(ctx context.Context, f StatsFilter, asOf time.Time) ([]AgeGenderCount, error) {
	b := newPredicateBuilder()
	asOfArg := b.arg(asOf.Format("2006-01-02"))
	b.raw("c.is_alive = TRUE").families("f", f)
	q := `
		SELECT
			date_part('year', age(` + asOfArg + `::date, c.date_of_birth))::int AS age,
			LOWER(COALESCE(c.gender, '')) AS gender,
			COUNT(*)
		FROM citizens c
		JOIN families f ON f.family_id = c.family_id` + b.where() + `
		GROUP BY 1, 2
		ORDER BY 1, 2
	`
	rows, err := r.db.QueryContext(ctx, q, b.params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to count ages: %w", err)
	}
	defer rows.Close()

	out := []AgeGenderCount{}
	for rows.Next() {
		var a AgeGenderCount
		if err := rows.Scan(&a.Age, &a.Gender, &a.Count); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresStatsRepository) EducationLevelCounts(ctx context.Context, f StatsFilter) ([]LabelCount, int, error) {
	b := newPredicateBuilder()
	b.raw("e.is_current = TRUE").raw("c.is_alive = TRUE").families("f", f)
	from := `
		FROM citizen_education e
		JOIN citizens c ON c.citizen_id = e.citizen_id
		JOIN families f ON f.family_id = c.family_id` + b.where()

	levels, err := r.queryLabelCounts(ctx, `
		SELECT COALESCE(NULLIF(TRIM(e.education_level), ''), 'Unspecified'), COUNT(DISTINCT e.citizen_id)`+from+`
		GROUP BY 1
	`, b.params()...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count education levels: %w", err)
	}

	var recorded int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT e.citizen_id)`+from, b.params()...).Scan(&recorded); err != nil {
		return nil, 0, fmt.Errorf("failed to count citizens with education records: %w", err)
	}
	return levels, recorded, nil
}

func (r *PostgresStatsRepository) EmploymentBreakdown(ctx context.Context, f StatsFilter) ([]EmploymentGroup, error) {
	b := newPredicateBuilder()
	b.raw("emp.is_current_job = TRUE").raw("c.is_alive = TRUE").families("f", f)
	q := `
		SELECT
			COALESCE(NULLIF(TRIM(emp.employment_type), ''), 'Unspecified'),
			COUNT(DISTINCT emp.citizen_id),
			COUNT(DISTINCT emp.citizen_id) FILTER (WHERE emp.monthly_income > 0),
			COALESCE(SUM(emp.monthly_income) FILTER (WHERE emp.monthly_income > 0), 0)
		FROM citizen_employment emp
		JOIN citizens c ON c.citizen_id = emp.citizen_id
		JOIN families f ON f.family_id = c.family_id` + b.where() + `
		GROUP BY 1
	`
	rows, err := r.db.QueryContext(ctx, q, b.params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate employment: %w", err)
	}
	defer rows.Close()

	out := []EmploymentGroup{}
	for rows.Next() {
		var g EmploymentGroup
		if err := rows.Scan(&g.EmploymentType, &g.Employed, &g.Earners, &g.TotalIncome); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresStatsRepository) HealthConditionCounts(ctx context.Context, f StatsFilter) ([]LabelCount, error) {
	b := newPredicateBuilder()
	b.raw("h.is_current = TRUE").raw("c.is_alive = TRUE").families("f", f)
	q := `
		SELECT COALESCE(NULLIF(TRIM(h.condition_name), ''), 'Unspecified'), COUNT(DISTINCT h.citizen_id)
		FROM citizen_health_conditions h
		JOIN citizens c ON c.citizen_id = h.citizen_id
		JOIN families f ON f.family_id = c.family_id` + b.where() + `
		GROUP BY 1
	`
	out, err := r.queryLabelCounts(ctx, q, b.params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to count health conditions: %w", err)
	}
	return out, nil
}

func (r *PostgresStatsRepository) LandBreakdown(ctx context.Context, f StatsFilter) ([]LandGroup, error) {
	b := newPredicateBuilder()
	b.families("f", f)
	q := `
		SELECT
			COALESCE(NULLIF(TRIM(l.land_type), ''), 'Unspecified'),
			COUNT(*),
			COALESCE(SUM(l.area_perches), 0)
		FROM family_land_details l
		JOIN families f ON f.family_id = l.family_id` + b.where() + `
		GROUP BY 1
	`
	rows, err := r.db.QueryContext(ctx, q, b.params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate land: %w", err)
	}
	defer rows.Close()

	out := []LandGroup{}
	for rows.Next() {
		var g LandGroup
		if err := rows.Scan(&g.LandType, &g.Records, &g.TotalArea); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresStatsRepository) FamilyListing(ctx context.Context, f StatsFilter, limit int) ([]FamilyListingRow, error) {
	b := newPredicateBuilder()
	b.families("f", f)
	where := b.where()
	limitArg := b.arg(limit)
	q := `
		SELECT
			f.family_id,
			f.current_gn_office_code,
			COALESCE(o.office_name, f.current_gn_office_code),
			COALESCE(f.address, ''),
			COALESCE(h.full_name, ''),
			f.total_members_declared,
			COALESCE(m.members, 0),
			f.registration_date,
			f.transfer_state
		FROM families f
		LEFT JOIN offices o ON o.office_code = f.current_gn_office_code
		LEFT JOIN LATERAL (
			SELECT full_name FROM citizens
			WHERE family_id = f.family_id AND relation_to_head = 'self'
			ORDER BY citizen_id
			LIMIT 1
		) h ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS members FROM citizens
			WHERE family_id = f.family_id AND is_alive = TRUE
		) m ON TRUE` + where + `
		ORDER BY f.registration_date DESC, f.family_id
		LIMIT ` + limitArg

	rows, err := r.db.QueryContext(ctx, q, b.params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	out := []FamilyListingRow{}
	for rows.Next() {
		var row FamilyListingRow
		if err := rows.Scan(
			&row.FamilyID, &row.GnOfficeCode, &row.GnOfficeName, &row.Address, &row.HeadName,
			&row.TotalMembersDeclared, &row.LinkedMembers, &row.RegistrationDate, &row.TransferState,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresStatsRepository) RegistrationsByDay(ctx context.Context, f StatsFilter) ([]RegistrationGroup, error) {
	b := newPredicateBuilder()
	q := scopedFamiliesCTE(b, f) + `
		SELECT
			fam.registration_date::date,
			s.current_gn_office_code,
			COALESCE(o.office_name, s.current_gn_office_code),
			COUNT(*),
			COALESCE(SUM(l.members), 0)
		FROM scoped s
		JOIN families fam ON fam.family_id = s.family_id
		LEFT JOIN linked l ON l.family_id = s.family_id
		LEFT JOIN offices o ON o.office_code = s.current_gn_office_code
		GROUP BY 1, 2, 3
		HAVING COUNT(*) > 0
		ORDER BY 1, 2
	`
	rows, err := r.db.QueryContext(ctx, q, b.params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate registrations: %w", err)
	}
	defer rows.Close()

	out := []RegistrationGroup{}
	for rows.Next() {
		var g RegistrationGroup
		if err := rows.Scan(&g.Date, &g.GnOfficeCode, &g.GnOfficeName, &g.Families, &g.Citizens); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresStatsRepository) GnRollup(ctx context.Context, f StatsFilter) ([]GnRollupRow, error) {
	b := newPredicateBuilder()
	q := scopedFamiliesCTE(b, f) + `
		SELECT
			s.current_gn_office_code,
			COUNT(*),
			COALESCE(SUM(l.members), 0),
			COALESCE(SUM(l.male), 0),
			COALESCE(SUM(l.female), 0)
		FROM scoped s
		LEFT JOIN linked l ON l.family_id = s.family_id
		GROUP BY s.current_gn_office_code
		ORDER BY s.current_gn_office_code
	`
	rows, err := r.db.QueryContext(ctx, q, b.params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to roll up gn offices: %w", err)
	}
	defer rows.Close()

	out := []GnRollupRow{}
	for rows.Next() {
		var g GnRollupRow
		if err := rows.Scan(&g.GnOfficeCode, &g.Families, &g.Citizens, &g.Male, &g.Female); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresStatsRepository) queryLabelCounts(ctx context.Context, q string, args ...any) ([]LabelCount, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LabelCount{}
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		lc.Label = strings.TrimSpace(lc.Label)
		out = append(out, lc)
	}
	return out, rows.Err()
}
