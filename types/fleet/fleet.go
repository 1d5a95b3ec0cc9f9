package fleet

import (
	"fmt"
)

// VehicleCreateRequest represents the payload for adding a fleet vehicle
type VehicleCreateRequest struct {
	PlateNumber string `json:"plate_number" validate:"required,min=2,max=20"`
	Make        string `json:"make" validate:"required,min=1,max=100"`
	Model       string `json:"model" validate:"required,min=1,max=100"`
	Type        string `json:"type" validate:"omitempty,max=50"`
}

func (v VehicleCreateRequest) Validate() error {
	if v.PlateNumber == "" {
		return fmt.Errorf("plate_number is required")
	}
	if v.Make == "" {
		return fmt.Errorf("make is required")
	}
	if v.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// VehicleUpdateRequest represents the payload for editing a fleet vehicle
type VehicleUpdateRequest struct {
	VehicleID   uint   `json:"vehicle_id" validate:"required,min=1"`
	PlateNumber string `json:"plate_number" validate:"omitempty,min=2,max=20"`
	Make        string `json:"make" validate:"omitempty,min=1,max=100"`
	Model       string `json:"model" validate:"omitempty,min=1,max=100"`
	Type        string `json:"type" validate:"omitempty,max=50"`
}

func (v VehicleUpdateRequest) Validate() error {
	if v.VehicleID == 0 {
		return fmt.Errorf("vehicle_id is required")
	}
	return nil
}

// MaintenanceRequest toggles the manual maintenance state of a vehicle
type MaintenanceRequest struct {
	VehicleID uint `json:"vehicle_id" validate:"required,min=1"`
	On        bool `json:"on"`
}

func (m MaintenanceRequest) Validate() error {
	if m.VehicleID == 0 {
		return fmt.Errorf("vehicle_id is required")
	}
	return nil
}

// DriverCreateRequest represents the payload for adding a driver
type DriverCreateRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	Contact string `json:"contact" validate:"omitempty,max=50"`
}

func (d DriverCreateRequest) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// DriverUpdateRequest represents the payload for editing a driver
type DriverUpdateRequest struct {
	DriverID uint   `json:"driver_id" validate:"required,min=1"`
	Name     string `json:"name" validate:"omitempty,min=1,max=255"`
	Contact  string `json:"contact" validate:"omitempty,max=50"`
}

func (d DriverUpdateRequest) Validate() error {
	if d.DriverID == 0 {
		return fmt.Errorf("driver_id is required")
	}
	return nil
}
