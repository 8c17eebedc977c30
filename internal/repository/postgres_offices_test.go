package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/it-Barath/fpms-sub006/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockOfficesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresOfficesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresOfficesRepository(db)
}

var officeCols = []string{"office_code", "office_name", "office_type", "parent_office_code", "is_active"}

func TestGetOffice_Success(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM offices WHERE office_code = \$1`).
		WithArgs("DIV-MN-01").
		WillReturnRows(sqlmock.NewRows(officeCols).AddRow("DIV-MN-01", "Mannar Town", "division", "DIST-MN", true))

	o, err := repo.GetOffice(context.Background(), "DIV-MN-01")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, domain.OfficeTypeDivision, o.OfficeType)
	assert.Equal(t, sql.NullString{String: "DIST-MN", Valid: true}, o.ParentOfficeCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOffice_NotFoundIsNil(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM offices`).WithArgs("NOPE").WillReturnError(sql.ErrNoRows)

	o, err := repo.GetOffice(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, o)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOffice_EmptyParentTreatedAsNull(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM offices`).
		WithArgs("GN-77").
		WillReturnRows(sqlmock.NewRows(officeCols).AddRow("GN-77", "Thoddaveli", "gn", "", true))

	o, err := repo.GetOffice(context.Background(), "GN-77")
	require.NoError(t, err)
	assert.False(t, o.ParentOfficeCode.Valid)
}

func TestListChildOffices(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE office_type = \$1 AND parent_office_code = \$2`).
		WithArgs("gn", "DIV-MN-01").
		WillReturnRows(sqlmock.NewRows(officeCols).
			AddRow("GN-01", "Pallimunai", "gn", "DIV-MN-01", true).
			AddRow("GN-02", "Pettah", "gn", "DIV-MN-01", false))

	offices, err := repo.ListChildOffices(context.Background(), domain.OfficeTypeGN, "DIV-MN-01")
	require.NoError(t, err)
	require.Len(t, offices, 2)
	assert.Equal(t, "GN-02", offices[1].OfficeCode)
	assert.False(t, offices[1].IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOfficesByCodes_EmptyInputSkipsQuery(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	offices, err := repo.ListOfficesByCodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, offices)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountGnMapping(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "mapped"}).AddRow(10, 7))

	total, mapped, err := repo.CountGnMapping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, 7, mapped)
}

func TestListUnmappedGnCodes(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	mock.ExpectQuery(`LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"office_code"}).AddRow("GN-77").AddRow("GN-78"))

	codes, err := repo.ListUnmappedGnCodes(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"GN-77", "GN-78"}, codes)
}

func TestSetOfficeActive(t *testing.T) {
	db, mock, repo := setupMockOfficesDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE offices SET is_active`).
		WithArgs("GN-01", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE offices SET is_active`).
		WithArgs("NOPE", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetOfficeActive(context.Background(), "GN-01", false))
	err := repo.SetOfficeActive(context.Background(), "NOPE", true)
	assert.True(t, errors.Is(err, ErrOfficeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
