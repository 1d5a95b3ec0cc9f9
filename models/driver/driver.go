package driver

import (
	"time"
)

// Status of a driver. Structurally parallel to vehicle status but drivers
// have no maintenance or returning states.
type Status string

const (
	StatusAvailable Status = "available"
	StatusAssigned  Status = "assigned"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	return s == StatusAvailable || s == StatusAssigned
}

// Driver represents a staff driver that can be assigned to trip requests.
type Driver struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Contact string `gorm:"type:varchar(50)" json:"contact"`

	Status Status `gorm:"type:varchar(20);not null;default:'available'" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
