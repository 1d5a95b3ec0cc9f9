package audit_event

import (
	auditModel "fleet-dispatch/models/audit"

	"gorm.io/gorm"
)

// Actor identifies who performed an audited action. Core operations take the
// actor explicitly; they never read ambient session state.
type Actor struct {
	ID   uint
	Role string
	Name string
}

// LogAudit appends one audit row for a request mutation. Callers pass their
// transaction handle so the entry commits or rolls back with the mutation it
// records.
func LogAudit(tx *gorm.DB, requestID uint, action string, actor Actor, notes string) error {
	entry := auditModel.Entry{
		RequestID: requestID,
		Action:    action,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		ActorName: actor.Name,
		Notes:     notes,
	}
	return tx.Create(&entry).Error
}
