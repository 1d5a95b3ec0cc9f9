package returns

import (
	"errors"
	"fmt"
	"time"

	driverModel "fleet-dispatch/models/driver"
	requestModel "fleet-dispatch/models/request"
	vehicleModel "fleet-dispatch/models/vehicle"
	"fleet-dispatch/services/apperrors"
	"fleet-dispatch/services/audit_event"
	"fleet-dispatch/services/statussync"

	"gorm.io/gorm"
)

// Service handles the two-step vehicle return flow: the employee hands the
// vehicle back (vehicle enters the manual "returning" state) and dispatch
// confirms it, concluding the trip.
type Service struct {
	DB   *gorm.DB
	Sync *statussync.Service
}

// NewService creates a new returns service
func NewService(db *gorm.DB) *Service {
	return &Service{
		DB:   db,
		Sync: statussync.NewService(db),
	}
}

// InitiateReturn marks the request's vehicle as returning. Only the request
// owner may initiate, and only for an approved trip. The synchronizer leaves
// the returning state alone until dispatch processes it.
func (s *Service) InitiateReturn(requestID uint, ownerUserID uint, actor audit_event.Actor) (*requestModel.Request, error) {
	var req requestModel.Request

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", requestID, ownerUserID).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.KindNotFound, "request %d not found", requestID)
			}
			return apperrors.Store("failed to load request", err)
		}

		if req.Status != requestModel.StatusApproved {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d is %s, only approved trips can be returned", req.ID, req.Status)
		}
		if req.AssignedVehicleID == nil {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d has no assigned vehicle", req.ID)
		}

		returnedAt := time.Now()
		res := tx.Model(&vehicleModel.Vehicle{}).
			Where("id = ? AND status <> ?", *req.AssignedVehicleID, vehicleModel.StatusReturning).
			Updates(map[string]interface{}{
				"status":      vehicleModel.StatusReturning,
				"returned_by": actor.Name,
				"return_date": returnedAt,
			})
		if res.Error != nil {
			return apperrors.Store("failed to mark vehicle returning", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Newf(apperrors.KindInvalidState,
				"vehicle for request %d is already being returned", req.ID)
		}

		if err := audit_event.LogAudit(tx, req.ID, "return_initiated", actor, ""); err != nil {
			return apperrors.Store("failed to write audit entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ProcessReturn concludes an approved trip: the request becomes concluded and
// the vehicle and driver go back to the pool.
func (s *Service) ProcessReturn(requestID uint, actor audit_event.Actor) (*requestModel.Request, error) {
	var req requestModel.Request

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.KindNotFound, "request %d not found", requestID)
			}
			return apperrors.Store("failed to load request", err)
		}

		if req.Status != requestModel.StatusApproved {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d is %s, not an active approved trip", req.ID, req.Status)
		}

		res := tx.Model(&requestModel.Request{}).
			Where("id = ? AND status = ?", req.ID, requestModel.StatusApproved).
			Update("status", requestModel.StatusConcluded)
		if res.Error != nil {
			return apperrors.Store("failed to conclude request", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Newf(apperrors.KindStaleAssignment,
				"request %d was modified concurrently", req.ID)
		}

		if req.AssignedVehicleID != nil {
			if err := tx.Model(&vehicleModel.Vehicle{}).
				Where("id = ?", *req.AssignedVehicleID).
				Updates(map[string]interface{}{
					"status":      vehicleModel.StatusAvailable,
					"assigned_to": nil,
					"driver_name": nil,
				}).Error; err != nil {
				return apperrors.Store("failed to release vehicle", err)
			}
		}
		if req.AssignedDriverID != nil {
			if err := tx.Model(&driverModel.Driver{}).
				Where("id = ?", *req.AssignedDriverID).
				Update("status", driverModel.StatusAvailable).Error; err != nil {
				return apperrors.Store("failed to release driver", err)
			}
		}

		notes := fmt.Sprintf("processed by %s", actor.Name)
		if err := audit_event.LogAudit(tx, req.ID, "return_processed", actor, notes); err != nil {
			return apperrors.Store("failed to write audit entry", err)
		}

		req.Status = requestModel.StatusConcluded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.Sync.SyncActiveAssignments(); err != nil {
		return nil, err
	}
	return &req, nil
}
