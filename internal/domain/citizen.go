package domain

import (
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type RelationToHead string

const (
	RelationSelf   RelationToHead = "self"
	RelationSpouse RelationToHead = "spouse"
	RelationChild  RelationToHead = "child"
	RelationParent RelationToHead = "parent"
	RelationOther  RelationToHead = "other"
)

// Citizen person record (citizens table). At most one citizen per family has
// RelationToHead == self.
type Citizen struct {
	CitizenID            string         `db:"citizen_id"`
	FamilyID             string         `db:"family_id"`
	FullName             string         `db:"full_name"`
	IdentificationNumber string         `db:"identification_number"`
	DateOfBirth          time.Time      `db:"date_of_birth"`
	Gender               Gender         `db:"gender"`
	RelationToHead       RelationToHead `db:"relation_to_head"`
	IsAlive              bool           `db:"is_alive"`
	Status               string         `db:"status"`
}

// AgeAt completed years at t.
func (c Citizen) AgeAt(t time.Time) int {
	return AgeAt(c.DateOfBirth, t)
}

// AgeAt completed years between dob and t; 0 when t is before dob.
func AgeAt(dob, t time.Time) int {
	if t.Before(dob) {
		return 0
	}
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	return age
}

// NormalizeGender maps free-form stored values onto the enum.
func NormalizeGender(s string) Gender {
	switch s {
	case "male", "Male", "M", "m":
		return GenderMale
	case "female", "Female", "F", "f":
		return GenderFemale
	}
	return GenderOther
}
