package cancellation

import (
	"errors"
	"fmt"
	"time"

	driverModel "fleet-dispatch/models/driver"
	requestModel "fleet-dispatch/models/request"
	vehicleModel "fleet-dispatch/models/vehicle"
	"fleet-dispatch/services/apperrors"
	"fleet-dispatch/services/audit_event"
	"fleet-dispatch/services/schedule"
	"fleet-dispatch/services/statussync"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// Service atomically reverses an assignment: frees the vehicle and driver,
// marks the request cancelled, and writes the audit trail.
type Service struct {
	DB   *gorm.DB
	Sync *statussync.Service
}

// NewService creates a new cancellation service
func NewService(db *gorm.DB) *Service {
	return &Service{
		DB:   db,
		Sync: statussync.NewService(db),
	}
}

// Options scope a cancellation to the caller's role.
type Options struct {
	// AllowedStatuses a request must currently be in. Employees pass their
	// own set, dispatch and admin pass theirs.
	AllowedStatuses []requestModel.Status

	// OwnerUserID, when set, constrains the request to belong to this user
	// (employees may only cancel their own).
	OwnerUserID *uint

	// ApprovedGuard decides whether an approved request is still
	// cancellable. Nil means the default policy: only before the trip's
	// start day.
	ApprovedGuard func(r *requestModel.Request, today time.Time) bool

	// Reason free text stored in the audit notes.
	Reason string
}

// DefaultApprovedGuard permits cancelling an approved request only while
// today precedes its normalized start. Unschedulable requests stay
// cancellable.
func DefaultApprovedGuard(r *requestModel.Request, today time.Time) bool {
	start, _ := schedule.NormalizeRange(r)
	if start == nil {
		return true
	}
	return today.Before(*start)
}

// Cancel reverses the request's assignment in one transaction and triggers a
// reconciliation afterwards so freed resources are re-evaluated immediately.
func (s *Service) Cancel(requestID uint, actor audit_event.Actor, opts Options) (*requestModel.Request, error) {
	guard := opts.ApprovedGuard
	if guard == nil {
		guard = DefaultApprovedGuard
	}
	today := now.With(s.Sync.Now()).BeginningOfDay()

	var req requestModel.Request

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", requestID)
		if opts.OwnerUserID != nil {
			q = q.Where("user_id = ?", *opts.OwnerUserID)
		}
		if err := q.First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.KindNotFound, "request %d not found", requestID)
			}
			return apperrors.Store("failed to load request", err)
		}

		allowed := false
		for _, st := range opts.AllowedStatuses {
			if req.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d is %s and cannot be cancelled by this role", req.ID, req.Status)
		}
		if req.Status == requestModel.StatusApproved && !guard(&req, today) {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d has already started and cannot be cancelled", req.ID)
		}
		priorStatus := req.Status

		if req.AssignedVehicleID != nil {
			// Clear the display cache, then flip the status only when the
			// synchronizer owns it. Maintenance and returning are manual
			// states cancellation must not overwrite.
			if err := tx.Model(&vehicleModel.Vehicle{}).
				Where("id = ?", *req.AssignedVehicleID).
				Updates(map[string]interface{}{
					"assigned_to": nil,
					"driver_name": nil,
				}).Error; err != nil {
				return apperrors.Store("failed to release vehicle", err)
			}
			if err := tx.Model(&vehicleModel.Vehicle{}).
				Where("id = ? AND status = ?", *req.AssignedVehicleID, vehicleModel.StatusAssigned).
				Update("status", vehicleModel.StatusAvailable).Error; err != nil {
				return apperrors.Store("failed to release vehicle", err)
			}
		}
		if req.AssignedDriverID != nil {
			if err := tx.Model(&driverModel.Driver{}).
				Where("id = ? AND status = ?", *req.AssignedDriverID, driverModel.StatusAssigned).
				Update("status", driverModel.StatusAvailable).Error; err != nil {
				return apperrors.Store("failed to release driver", err)
			}
		}

		res := tx.Model(&requestModel.Request{}).
			Where("id = ? AND status = ?", req.ID, priorStatus).
			Updates(map[string]interface{}{
				"status":              requestModel.StatusCancelled,
				"assigned_vehicle_id": nil,
				"assigned_driver_id":  nil,
				"rejection_reason":    nil,
			})
		if res.Error != nil {
			return apperrors.Store("failed to cancel request", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Newf(apperrors.KindStaleAssignment,
				"request %d was modified concurrently", req.ID)
		}

		action := fmt.Sprintf("%s_cancelled", actor.Role)
		if err := audit_event.LogAudit(tx, req.ID, action, actor, opts.Reason); err != nil {
			return apperrors.Store("failed to write audit entry", err)
		}

		req.Status = requestModel.StatusCancelled
		req.AssignedVehicleID = nil
		req.AssignedDriverID = nil
		req.RejectionReason = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A cancellation may free a resource another active request should claim
	if err := s.Sync.SyncActiveAssignments(); err != nil {
		return nil, err
	}
	return &req, nil
}
