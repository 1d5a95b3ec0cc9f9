package audit

import (
	"time"
)

// Entry is an append-only audit record for a request mutation. Entries are
// written inside the same transaction as the mutation they record and are
// never read back for logic decisions, only for display.
type Entry struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	RequestID uint   `gorm:"not null;index" json:"request_id"`
	Action    string `gorm:"type:varchar(50);not null" json:"action"`

	ActorID   uint   `gorm:"not null" json:"actor_id"`
	ActorRole string `gorm:"type:varchar(30);not null" json:"actor_role"`
	ActorName string `gorm:"type:varchar(255);not null" json:"actor_name"`

	Notes string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the audit Entry model
func (Entry) TableName() string {
	return "audit_log"
}
