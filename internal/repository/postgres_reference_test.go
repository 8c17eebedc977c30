package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresReference_ListGnByDivision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresReferenceDirectory(db, "fpms")

	mock.ExpectQuery(`FROM "fpms"\."gn_divisions"\s+WHERE division_name = \$1`).
		WithArgs("Mannar Town").
		WillReturnRows(sqlmock.NewRows([]string{"gn_id", "gn_name", "division_name", "district_name"}).
			AddRow("GN-01", "Pallimunai", "Mannar Town", "Mannar").
			AddRow("GN-02", nil, "Mannar Town", "Mannar"))

	rows, err := repo.ListGnByDivision(context.Background(), "Mannar Town")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pallimunai", rows[0].GnName)
	assert.Equal(t, "", rows[1].GnName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReference_ListDivisionsByDistrict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresReferenceDirectory(db, "")

	mock.ExpectQuery(`SELECT DISTINCT division_name\s+FROM "gn_divisions"`).
		WithArgs("Mannar").
		WillReturnRows(sqlmock.NewRows([]string{"division_name"}).AddRow("Madhu").AddRow("Mannar Town"))

	names, err := repo.ListDivisionsByDistrict(context.Background(), "Mannar")
	require.NoError(t, err)
	assert.Equal(t, []string{"Madhu", "Mannar Town"}, names)
}

func TestPostgresReference_LookupGnEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows, err := NewPostgresReferenceDirectory(db, "fpms").LookupGn(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}
