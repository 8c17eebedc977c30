package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrOfficeNotFound = errors.New("office not found")

// StatsFilter row filter shared by every statistics query.
// AllGn disables the GN predicate; otherwise only families whose
// current_gn_office_code is in GnCodes are counted. From/To bound
// families.registration_date (inclusive); nil means unbounded.
type StatsFilter struct {
	AllGn   bool
	GnCodes []string
	From    *time.Time
	To      *time.Time
}

// Empty a filter that can match nothing (no GN codes and not "all").
func (f StatsFilter) Empty() bool {
	return !f.AllGn && len(f.GnCodes) == 0
}

// PopulationTotals scope-level totals.
type PopulationTotals struct {
	Families               int
	Citizens               int
	Male                   int
	Female                 int
	DeclaredMembers        int
	MemberMismatchFamilies int // families whose declared size differs from linked citizens
	PendingTransfers       int
}

type AgeGenderCount struct {
	Age    int
	Gender string
	Count  int
}

type LabelCount struct {
	Label string
	Count int
}

type EmploymentGroup struct {
	EmploymentType string
	Employed       int // distinct citizens with a current job of this type
	Earners        int // of those, citizens with monthly income > 0
	TotalIncome    decimal.Decimal
}

type LandGroup struct {
	LandType  string
	Records   int
	TotalArea decimal.Decimal
}

type FamilyListingRow struct {
	FamilyID             string
	GnOfficeCode         string
	GnOfficeName         string
	Address              string
	HeadName             string
	TotalMembersDeclared int
	LinkedMembers        int
	RegistrationDate     time.Time
	TransferState        string
}

type RegistrationGroup struct {
	Date         time.Time
	GnOfficeCode string
	GnOfficeName string
	Families     int
	Citizens     int
}

type GnRollupRow struct {
	GnOfficeCode string
	Families     int
	Citizens     int
	Male         int
	Female       int
}

// StatsRepository batched group-by queries over the scoped population
// (alive citizens of families owned by GN offices in the filter). Each method
// issues a fixed query; none loops per office.
type StatsRepository interface {
	PopulationTotals(ctx context.Context, f StatsFilter) (*PopulationTotals, error)
	AgeGenderCounts(ctx context.Context, f StatsFilter, asOf time.Time) ([]AgeGenderCount, error)

	// EducationLevelCounts current education records per level, plus the number of
	// distinct citizens with any current record
	EducationLevelCounts(ctx context.Context, f StatsFilter) (levels []LabelCount, recorded int, err error)

	EmploymentBreakdown(ctx context.Context, f StatsFilter) ([]EmploymentGroup, error)
	HealthConditionCounts(ctx context.Context, f StatsFilter) ([]LabelCount, error)
	LandBreakdown(ctx context.Context, f StatsFilter) ([]LandGroup, error)

	// FamilyListing row-level listing, newest registrations first, at most limit rows
	FamilyListing(ctx context.Context, f StatsFilter, limit int) ([]FamilyListingRow, error)

	RegistrationsByDay(ctx context.Context, f StatsFilter) ([]RegistrationGroup, error)
	GnRollup(ctx context.Context, f StatsFilter) ([]GnRollupRow, error)
}
