package domain

// Employment employment history row (citizen_employment table)
type Employment struct {
	EmploymentID   string  `db:"employment_id"`
	CitizenID      string  `db:"citizen_id"`
	EmploymentType string  `db:"employment_type"`
	MonthlyIncome  float64 `db:"monthly_income"`
	IsCurrentJob   bool    `db:"is_current_job"`
}

// Education education record (citizen_education table)
type Education struct {
	CitizenID      string `db:"citizen_id"`
	EducationLevel string `db:"education_level"`
	IsCurrent      bool   `db:"is_current"`
}

// HealthCondition health record (citizen_health_conditions table)
type HealthCondition struct {
	CitizenID     string `db:"citizen_id"`
	ConditionName string `db:"condition_name"`
	IsCurrent     bool   `db:"is_current"`
}

// LandDetail land parcel held by a family (family_land_details table). Area in perches.
type LandDetail struct {
	LandID      string  `db:"land_id"`
	FamilyID    string  `db:"family_id"`
	LandType    string  `db:"land_type"`
	AreaPerches float64 `db:"area_perches"`
}
