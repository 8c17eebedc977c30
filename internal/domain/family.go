package domain

import (
	"time"
)

// TransferState family ownership state between GN offices
type TransferState string

const (
	TransferStateActive          TransferState = "active"
	TransferStatePendingTransfer TransferState = "pending_transfer"
	TransferStateTransferred     TransferState = "transferred"
)

// Family household unit (families table). Owned by CurrentGnOfficeCode.
type Family struct {
	FamilyID             string        `db:"family_id"`
	CurrentGnOfficeCode  string        `db:"current_gn_office_code"`
	OriginalGnOfficeCode string        `db:"original_gn_office_code"`
	Address              string        `db:"address"`
	TotalMembersDeclared int           `db:"total_members_declared"` // may differ from linked citizens
	RegistrationDate     time.Time     `db:"registration_date"`
	TransferState        TransferState `db:"transfer_state"`
}
