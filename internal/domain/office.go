package domain

import (
	"database/sql"
)

// OfficeType 行政层级
type OfficeType string

const (
	OfficeTypeDistrict OfficeType = "district"
	OfficeTypeDivision OfficeType = "division"
	OfficeTypeGN       OfficeType = "gn"
)

// Valid reports whether t is one of the three hierarchy levels.
func (t OfficeType) Valid() bool {
	switch t {
	case OfficeTypeDistrict, OfficeTypeDivision, OfficeTypeGN:
		return true
	}
	return false
}

// Office a node of the district -> division -> GN hierarchy (offices table).
// ParentOfficeCode is populated for offices created in this system; offices
// migrated from the reference system usually have it NULL.
type Office struct {
	OfficeCode       string         `db:"office_code"`
	OfficeName       string         `db:"office_name"`
	OfficeType       OfficeType     `db:"office_type"`
	ParentOfficeCode sql.NullString `db:"parent_office_code"` // nullable
	IsActive         bool           `db:"is_active"`
}

// ReferenceGN one row of the external reference table (fpms.gn_divisions).
// GnID is the same identifier used as office_code for GN offices.
type ReferenceGN struct {
	GnID         string `db:"gn_id" json:"gn_id"`
	GnName       string `db:"gn_name" json:"gn_name"`
	DivisionName string `db:"division_name" json:"division_name"`
	DistrictName string `db:"district_name" json:"district_name"`
}
