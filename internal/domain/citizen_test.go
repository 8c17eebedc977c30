package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeAt(t *testing.T) {
	dob := time.Date(2000, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"day before birthday", time.Date(2018, time.March, 14, 0, 0, 0, 0, time.UTC), 17},
		{"on birthday", time.Date(2018, time.March, 15, 0, 0, 0, 0, time.UTC), 18},
		{"later month", time.Date(2018, time.December, 1, 0, 0, 0, 0, time.UTC), 18},
		{"before birth", time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeAt(dob, tt.at))
		})
	}
}

func TestNormalizeGender(t *testing.T) {
	assert.Equal(t, GenderMale, NormalizeGender("Male"))
	assert.Equal(t, GenderFemale, NormalizeGender("f"))
	assert.Equal(t, GenderOther, NormalizeGender(""))
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDistrict, RoleDivision, RoleGN} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("").Valid())
	assert.False(t, Role("superuser").Valid())
}
