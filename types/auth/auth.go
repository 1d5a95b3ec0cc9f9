package auth

import (
	"fmt"

	"fleet-dispatch/constants"
)

// RegisterRequest represents the payload for creating a staff account
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=255"`
	LegalName string `json:"legal_name" validate:"required,min=1,max=255"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,oneof=employee dispatch admin"`
}

func (r RegisterRequest) Validate() error {
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.LegalName == "" {
		return fmt.Errorf("legal_name is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if _, ok := constants.RolePermissions[r.Role]; !ok {
		return fmt.Errorf("role must be one of employee, dispatch, admin")
	}
	return nil
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (l LoginRequest) Validate() error {
	if l.Username == "" {
		return fmt.Errorf("username is required")
	}
	if l.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}
