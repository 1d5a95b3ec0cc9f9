package request

import (
	"time"

	driverModel "fleet-dispatch/models/driver"
	userModel "fleet-dispatch/models/user"
	vehicleModel "fleet-dispatch/models/vehicle"
)

// Request represents one trip request submitted by an employee.
// Requests are never physically deleted; terminal statuses end the lifecycle.
type Request struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// Foreign key for users relationship
	UserID uint           `gorm:"not null;index" json:"user_id"`
	User   userModel.User `gorm:"foreignKey:UserID" json:"user"`

	// Requestor identity cached for display and audit rows
	RequestorName  string `gorm:"type:varchar(255);not null" json:"requestor_name"`
	RequestorEmail string `gorm:"type:varchar(255)" json:"requestor_email"`

	Destination string `gorm:"type:varchar(255);not null" json:"destination"`
	Purpose     string `gorm:"type:text;not null" json:"purpose"`

	// Nullable dates; return may equal departure for single-day trips.
	// The schedule normalizer derives the effective range (falling back to
	// the creation date); do not read these directly for scheduling.
	DepartureDate *time.Time `json:"departure_date,omitempty"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`

	// Passenger names, insertion order meaningful for display only
	Passengers userModel.StringSlice `gorm:"type:json" json:"passengers"`

	Status Status `gorm:"type:varchar(40);not null;index" json:"status"`

	// Non-null only while status is pending_admin_approval or approved
	AssignedVehicleID *uint                 `gorm:"index" json:"assigned_vehicle_id,omitempty"`
	AssignedVehicle   *vehicleModel.Vehicle `gorm:"foreignKey:AssignedVehicleID" json:"assigned_vehicle,omitempty"`
	AssignedDriverID  *uint                 `gorm:"index" json:"assigned_driver_id,omitempty"`
	AssignedDriver    *driverModel.Driver   `gorm:"foreignKey:AssignedDriverID" json:"assigned_driver,omitempty"`

	RejectionReason *RejectionReason `gorm:"type:varchar(40)" json:"rejection_reason,omitempty"`

	CreatedBy string    `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name for the Request model
func (Request) TableName() string {
	return "requests"
}
