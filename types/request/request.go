package request

import (
	"fmt"
	"time"
)

// DateLayout used on the wire for trip dates
const DateLayout = "2006-01-02"

// RequestCreateRequest represents the payload for submitting a trip request
type RequestCreateRequest struct {
	Destination   string   `json:"destination" validate:"required,min=1,max=255"`
	Purpose       string   `json:"purpose" validate:"required,min=1"`
	DepartureDate string   `json:"departure_date" validate:"omitempty,datetime=2006-01-02"`
	ReturnDate    string   `json:"return_date" validate:"omitempty,datetime=2006-01-02"`
	Passengers    []string `json:"passengers" validate:"omitempty,dive,min=1,max=255"`
}

func (r RequestCreateRequest) Validate() error {
	if r.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if r.Purpose == "" {
		return fmt.Errorf("purpose is required")
	}
	if _, _, err := r.ParseDates(); err != nil {
		return err
	}
	return nil
}

// ParseDates parses the optional wire dates. Return may equal departure for
// single-day trips but must not precede it.
func (r RequestCreateRequest) ParseDates() (*time.Time, *time.Time, error) {
	var departure, ret *time.Time

	if r.DepartureDate != "" {
		d, err := time.Parse(DateLayout, r.DepartureDate)
		if err != nil {
			return nil, nil, fmt.Errorf("departure_date must be formatted %s", DateLayout)
		}
		departure = &d
	}
	if r.ReturnDate != "" {
		d, err := time.Parse(DateLayout, r.ReturnDate)
		if err != nil {
			return nil, nil, fmt.Errorf("return_date must be formatted %s", DateLayout)
		}
		ret = &d
	}
	if departure != nil && ret != nil && ret.Before(*departure) {
		return nil, nil, fmt.Errorf("return_date must not precede departure_date")
	}
	return departure, ret, nil
}

// AssignRequest represents the dispatch assignment payload
type AssignRequest struct {
	RequestID uint `json:"request_id" validate:"required,min=1"`
	VehicleID uint `json:"vehicle_id" validate:"required,min=1"`
	DriverID  uint `json:"driver_id" validate:"required,min=1"`
}

func (r AssignRequest) Validate() error {
	if r.RequestID == 0 {
		return fmt.Errorf("request_id is required")
	}
	if r.VehicleID == 0 {
		return fmt.Errorf("vehicle_id is required")
	}
	if r.DriverID == 0 {
		return fmt.Errorf("driver_id is required")
	}
	return nil
}

// ApproveRequest represents the admin approval payload
type ApproveRequest struct {
	RequestID uint `json:"request_id" validate:"required,min=1"`
}

func (r ApproveRequest) Validate() error {
	if r.RequestID == 0 {
		return fmt.Errorf("request_id is required")
	}
	return nil
}

// RejectRequest represents the admin rejection payload
type RejectRequest struct {
	RequestID uint   `json:"request_id" validate:"required,min=1"`
	Reason    string `json:"reason" validate:"required,oneof=reassign_vehicle reassign_driver new_request"`
}

func (r RejectRequest) Validate() error {
	if r.RequestID == 0 {
		return fmt.Errorf("request_id is required")
	}
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}

// CancelRequest represents the cancellation payload
type CancelRequest struct {
	RequestID uint   `json:"request_id" validate:"required,min=1"`
	Reason    string `json:"reason" validate:"omitempty,max=1000"`
}

func (r CancelRequest) Validate() error {
	if r.RequestID == 0 {
		return fmt.Errorf("request_id is required")
	}
	return nil
}

// ReturnRequest represents the vehicle return payloads
type ReturnRequest struct {
	RequestID uint `json:"request_id" validate:"required,min=1"`
}

func (r ReturnRequest) Validate() error {
	if r.RequestID == 0 {
		return fmt.Errorf("request_id is required")
	}
	return nil
}
