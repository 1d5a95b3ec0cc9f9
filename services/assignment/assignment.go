package assignment

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

	"gorm.io/gorm"
)

// Service runs the assignment transactions: dispatch assigns a vehicle and
// driver to a queued request, an admin approves or rejects the assignment.
// Every operation is a single database transaction; failure rolls back all
// writes.
type Service struct {
	DB   *gorm.DB
	Sync *statussync.Service
}

// NewService creates a new assignment service
func NewService(db *gorm.DB) *Service {
	return &Service{
		DB:   db,
		Sync: statussync.NewService(db),
	}
}

// AssignVehicleAndDriver moves a request from the dispatch queue to
// pending_admin_approval, enforcing that neither the vehicle nor the driver
// is double-booked over the request's normalized date range (strict regime).
func (s *Service) AssignVehicleAndDriver(requestID, vehicleID, driverID uint, actor audit_event.Actor) (*requestModel.Request, error) {
	var req requestModel.Request

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.KindNotFound, "request %d not found", requestID)
			}
			return apperrors.Store("failed to load request", err)
		}

		if req.Status != requestModel.StatusPendingDispatchAssignment &&
			req.Status != requestModel.StatusRejectedReassignDispatch {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d is %s, not awaiting dispatch assignment", req.ID, req.Status)
		}
		priorStatus := req.Status

		start, end := schedule.NormalizeRange(&req)
		if start == nil {
			return apperrors.Newf(apperrors.KindMissingDateRange,
				"request %d has no usable date range", req.ID)
		}

		veh, err := lockVehicle(tx, vehicleID)
		if err != nil {
			return err
		}
		if veh.Status == vehicleModel.StatusMaintenance {
			return apperrors.Newf(apperrors.KindInvalidState,
				"vehicle %s is under maintenance", veh.PlateNumber)
		}
		drv, err := lockDriver(tx, driverID)
		if err != nil {
			return err
		}

		// Conflict reads run inside this transaction, after the resource
		// rows are locked, so two dispatchers racing to book the same
		// vehicle serialize instead of both passing their checks.
		if info, err := schedule.FindConflict(tx, schedule.ResourceVehicle, vehicleID, *start, *end, &req.ID, schedule.StrictStatuses); err != nil {
			return err
		} else if info != nil {
			return apperrors.Newf(apperrors.KindVehicleConflict,
				"vehicle %s is reserved %s to %s for %s",
				veh.PlateNumber, info.Start.Format("2006-01-02"), info.End.Format("2006-01-02"), info.RequestorName)
		}
		if info, err := schedule.FindConflict(tx, schedule.ResourceDriver, driverID, *start, *end, &req.ID, schedule.StrictStatuses); err != nil {
			return err
		} else if info != nil {
			return apperrors.Newf(apperrors.KindDriverConflict,
				"driver %s is reserved %s to %s for %s",
				drv.Name, info.Start.Format("2006-01-02"), info.End.Format("2006-01-02"), info.RequestorName)
		}

		// Compare-and-swap on the prior status: zero rows affected means a
		// concurrent mutation won, not a silent no-op.
		res := tx.Model(&requestModel.Request{}).
			Where("id = ? AND status = ?", req.ID, priorStatus).
			Updates(map[string]interface{}{
				"assigned_vehicle_id": vehicleID,
				"assigned_driver_id":  driverID,
				"status":              requestModel.StatusPendingAdminApproval,
			})
		if res.Error != nil {
			return apperrors.Store("failed to update request assignment", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Newf(apperrors.KindStaleAssignment,
				"request %d was modified concurrently", req.ID)
		}

		notes := fmt.Sprintf("vehicle %s, driver %s", veh.PlateNumber, drv.Name)
		if err := audit_event.LogAudit(tx, req.ID, "dispatch_assigned", actor, notes); err != nil {
			return apperrors.Store("failed to write audit entry", err)
		}

		req.AssignedVehicleID = &vehicleID
		req.AssignedDriverID = &driverID
		req.Status = requestModel.StatusPendingAdminApproval
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The assignment may make the resources active today
	if err := s.Sync.SyncActiveAssignments(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Approve moves a pending_admin_approval request to approved. The same two
// strict conflict checks rerun at approval time: another request may have
// been approved for an overlapping window since dispatch assigned this one.
// On conflict nothing is mutated; the admin must reject instead.
func (s *Service) Approve(requestID uint, actor audit_event.Actor) (*requestModel.Request, error) {
	var req requestModel.Request

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.KindNotFound, "request %d not found", requestID)
			}
			return apperrors.Store("failed to load request", err)
		}

		if req.Status != requestModel.StatusPendingAdminApproval {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d is %s, not pending admin approval", req.ID, req.Status)
		}
		if req.AssignedVehicleID == nil || req.AssignedDriverID == nil {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d has no assignment to approve", req.ID)
		}

		start, end := schedule.NormalizeRange(&req)
		if start == nil {
			return apperrors.Newf(apperrors.KindMissingDateRange,
				"request %d has no usable date range", req.ID)
		}

		veh, err := lockVehicle(tx, *req.AssignedVehicleID)
		if err != nil {
			return err
		}
		drv, err := lockDriver(tx, *req.AssignedDriverID)
		if err != nil {
			return err
		}

		if info, err := schedule.FindConflict(tx, schedule.ResourceVehicle, veh.ID, *start, *end, &req.ID, schedule.StrictStatuses); err != nil {
			return err
		} else if info != nil {
			return apperrors.Newf(apperrors.KindVehicleConflict,
				"vehicle %s is reserved %s to %s for %s",
				veh.PlateNumber, info.Start.Format("2006-01-02"), info.End.Format("2006-01-02"), info.RequestorName)
		}
		if info, err := schedule.FindConflict(tx, schedule.ResourceDriver, drv.ID, *start, *end, &req.ID, schedule.StrictStatuses); err != nil {
			return err
		} else if info != nil {
			return apperrors.Newf(apperrors.KindDriverConflict,
				"driver %s is reserved %s to %s for %s",
				drv.Name, info.Start.Format("2006-01-02"), info.End.Format("2006-01-02"), info.RequestorName)
		}

		res := tx.Model(&requestModel.Request{}).
			Where("id = ? AND status = ?", req.ID, requestModel.StatusPendingAdminApproval).
			Updates(map[string]interface{}{
				"status":           requestModel.StatusApproved,
				"rejection_reason": nil,
			})
		if res.Error != nil {
			return apperrors.Store("failed to approve request", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Newf(apperrors.KindStaleAssignment,
				"request %d was modified concurrently", req.ID)
		}

		if err := audit_event.LogAudit(tx, req.ID, "admin_approved", actor, ""); err != nil {
			return apperrors.Store("failed to write audit entry", err)
		}

		req.Status = requestModel.StatusApproved
		req.RejectionReason = nil
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

// Reject sends a pending_admin_approval request back to dispatch (reassign
// reasons) or terminates it (new_request). The vehicle and driver assignment
// is cleared unconditionally regardless of reason.
func (s *Service) Reject(requestID uint, reason requestModel.RejectionReason, actor audit_event.Actor) (*requestModel.Request, error) {
	if !reason.IsValid() {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "unknown rejection reason %q", reason)
	}

	var req requestModel.Request

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.KindNotFound, "request %d not found", requestID)
			}
			return apperrors.Store("failed to load request", err)
		}

		if req.Status != requestModel.StatusPendingAdminApproval {
			return apperrors.Newf(apperrors.KindInvalidState,
				"request %d is %s, not pending admin approval", req.ID, req.Status)
		}

		target := reason.TargetStatus()
		res := tx.Model(&requestModel.Request{}).
			Where("id = ? AND status = ?", req.ID, requestModel.StatusPendingAdminApproval).
			Updates(map[string]interface{}{
				"status":              target,
				"assigned_vehicle_id": nil,
				"assigned_driver_id":  nil,
				"rejection_reason":    reason,
			})
		if res.Error != nil {
			return apperrors.Store("failed to reject request", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Newf(apperrors.KindStaleAssignment,
				"request %d was modified concurrently", req.ID)
		}

		if err := audit_event.LogAudit(tx, req.ID, "admin_rejected", actor, string(reason)); err != nil {
			return apperrors.Store("failed to write audit entry", err)
		}

		req.Status = target
		req.AssignedVehicleID = nil
		req.AssignedDriverID = nil
		req.RejectionReason = &reason
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

// lockVehicle takes a row lock on the vehicle for the remainder of the
// transaction by touching updated_at. Compare-and-swap on the request row
// alone cannot stop two different requests from both passing their conflict
// checks against the same vehicle; the touch update serializes them.
func lockVehicle(tx *gorm.DB, id uint) (*vehicleModel.Vehicle, error) {
	res := tx.Model(&vehicleModel.Vehicle{}).Where("id = ?", id).Update("updated_at", time.Now())
	if res.Error != nil {
		return nil, apperrors.Store("failed to lock vehicle row", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Newf(apperrors.KindNotFound, "vehicle %d not found", id)
	}
	var veh vehicleModel.Vehicle
	if err := tx.First(&veh, id).Error; err != nil {
		return nil, apperrors.Store("failed to load vehicle", err)
	}
	return &veh, nil
}

// lockDriver is the driver counterpart of lockVehicle.
func lockDriver(tx *gorm.DB, id uint) (*driverModel.Driver, error) {
	res := tx.Model(&driverModel.Driver{}).Where("id = ?", id).Update("updated_at", time.Now())
	if res.Error != nil {
		return nil, apperrors.Store("failed to lock driver row", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Newf(apperrors.KindNotFound, "driver %d not found", id)
	}
	var drv driverModel.Driver
	if err := tx.First(&drv, id).Error; err != nil {
		return nil, apperrors.Store("failed to load driver", err)
	}
	return &drv, nil
}
