package utils

import (
	"errors"
	"fmt"
	"time"

	"fleet-dispatch/constants"
	"fleet-dispatch/database"
	userModel "fleet-dispatch/models/user"
	"fleet-dispatch/services/audit_event"
	"fleet-dispatch/types"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// GetUserByID retrieves a user by primary key from the database
func GetUserByID(id uint) (*userModel.User, error) {
	if id == 0 {
		return nil, errors.New("user id cannot be zero")
	}

	var u userModel.User
	if err := database.DB.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &u, nil
}

// ActorFromContext builds the explicit actor identity core operations take
// from the authenticated JWT claims. Core services never read ambient
// session state themselves.
func ActorFromContext(c *fiber.Ctx) (audit_event.Actor, error) {
	claims, ok := c.Locals("user").(jwt.MapClaims)
	if !ok {
		return audit_event.Actor{}, errors.New("invalid user claims")
	}

	idClaim, ok := claims["user_id"].(float64)
	if !ok || idClaim <= 0 {
		return audit_event.Actor{}, errors.New("user id not found in token")
	}

	name, _ := claims["legal_name"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		// Older tokens carry only the permission list
		if perms, ok := claims["permissions"].([]interface{}); ok {
			for _, p := range perms {
				if perm, ok := p.(string); ok {
					if r, found := constants.RoleForPermission(perm); found {
						role = r
						break
					}
				}
			}
		}
	}
	if role == "" {
		return audit_event.Actor{}, errors.New("role not found in token")
	}

	return audit_event.Actor{
		ID:   uint(idClaim),
		Role: role,
		Name: name,
	}, nil
}

// CreateSanitizedLogEntry creates a deep copied log entry for async logging
func CreateSanitizedLogEntry(c *fiber.Ctx) types.LogEntry {
	method := string([]byte(c.Method()))
	url := string([]byte(c.OriginalURL()))
	requestBody := string(append([]byte(nil), c.Body()...))
	responseBody := string(append([]byte(nil), c.Response().Body()...))

	requestHeaders := make([]byte, len(c.Request().Header.Header()))
	copy(requestHeaders, c.Request().Header.Header())

	responseHeaders := make([]byte, len(c.Response().Header.Header()))
	copy(responseHeaders, c.Response().Header.Header())

	return types.LogEntry{
		Method:          method,
		URL:             url,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		RequestHeaders:  string(requestHeaders),
		ResponseHeaders: string(responseHeaders),
		StatusCode:      c.Response().StatusCode(),
		CreatedAt:       time.Now(),
	}
}
