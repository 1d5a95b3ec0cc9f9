package vehicle

import (
	"time"
)

// Status of a fleet vehicle. "available" and "assigned" are a derived cache
// rebuilt by the status synchronizer from approved requests; "maintenance"
// and "returning" are manual states the synchronizer never touches.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusAssigned    Status = "assigned"
	StatusReturning   Status = "returning"
	StatusMaintenance Status = "maintenance"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusReturning, StatusMaintenance:
		return true
	default:
		return false
	}
}

// ManagedBySync reports whether the synchronizer owns this status value.
func (s Status) ManagedBySync() bool {
	return s == StatusAvailable || s == StatusAssigned
}

// Vehicle represents a fleet asset. PlateNumber is the unique human key.
type Vehicle struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PlateNumber string `gorm:"type:varchar(20);not null;unique" json:"plate_number"`
	Make        string `gorm:"type:varchar(100);not null" json:"make"`
	Model       string `gorm:"type:varchar(100);not null" json:"model"`
	Type        string `gorm:"type:varchar(50)" json:"type"`

	Status Status `gorm:"type:varchar(20);not null;default:'available'" json:"status"`

	// Cached display fields, owned by the status synchronizer and the
	// assignment/cancellation transactions. Never authoritative.
	AssignedTo *string `gorm:"type:varchar(255)" json:"assigned_to,omitempty"`
	DriverName *string `gorm:"type:varchar(255)" json:"driver_name,omitempty"`

	// Return processing (employee hands the vehicle back, dispatch confirms)
	ReturnedBy *string    `gorm:"type:varchar(255)" json:"returned_by,omitempty"`
	ReturnDate *time.Time `json:"return_date,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
