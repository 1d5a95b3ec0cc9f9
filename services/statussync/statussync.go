package statussync

import (
	"time"

	driverModel "fleet-dispatch/models/driver"
	requestModel "fleet-dispatch/models/request"
	vehicleModel "fleet-dispatch/models/vehicle"
	"fleet-dispatch/services/apperrors"
	"fleet-dispatch/services/schedule"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// Service reconciles the derived vehicle/driver status caches with the set of
// approved requests whose date range covers today. It is invoked on every
// dashboard read and after every state-mutating operation; there is no
// background scheduler.
type Service struct {
	DB *gorm.DB

	// Now supplies the clock; tests override it to pin "today".
	Now func() time.Time
}

// NewService creates a new status synchronizer
func NewService(db *gorm.DB) *Service {
	return &Service{
		DB:  db,
		Now: time.Now,
	}
}

// SyncActiveAssignments recomputes every vehicle's and driver's
// available/assigned status from approved requests active today. The pass is
// a full reconciliation and is idempotent: calling it twice leaves the fleet
// in the same state as calling it once. Vehicles in maintenance or returning
// are manually-controlled and are never touched.
func (s *Service) SyncActiveAssignments() error {
	today := now.With(s.Now()).BeginningOfDay()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var approved []requestModel.Request
		if err := tx.Preload("AssignedDriver").
			Where("status = ?", requestModel.StatusApproved).
			Where("assigned_vehicle_id IS NOT NULL").
			Find(&approved).Error; err != nil {
			return err
		}

		activeVehicles := make(map[uint]bool)
		activeDrivers := make(map[uint]bool)

		for i := range approved {
			r := &approved[i]
			start, end := schedule.NormalizeRange(r)
			if start == nil {
				// Unschedulable request, skip
				continue
			}
			if !schedule.Covers(*start, *end, today) {
				continue
			}

			vehicleUpdates := map[string]interface{}{
				"status":      vehicleModel.StatusAssigned,
				"assigned_to": r.RequestorName,
			}
			if r.AssignedDriver != nil {
				vehicleUpdates["driver_name"] = r.AssignedDriver.Name
			}
			if err := tx.Model(&vehicleModel.Vehicle{}).
				Where("id = ?", *r.AssignedVehicleID).
				Where("status IN ?", []vehicleModel.Status{vehicleModel.StatusAvailable, vehicleModel.StatusAssigned}).
				Updates(vehicleUpdates).Error; err != nil {
				return err
			}
			activeVehicles[*r.AssignedVehicleID] = true

			if r.AssignedDriverID != nil {
				if err := tx.Model(&driverModel.Driver{}).
					Where("id = ?", *r.AssignedDriverID).
					Update("status", driverModel.StatusAssigned).Error; err != nil {
					return err
				}
				activeDrivers[*r.AssignedDriverID] = true
			}
		}

		// Release every vehicle still marked assigned that no active request
		// claims. A trip that ended yesterday frees its vehicle here even if
		// nothing new claims it.
		releaseVehicles := tx.Model(&vehicleModel.Vehicle{}).
			Where("status = ?", vehicleModel.StatusAssigned)
		if len(activeVehicles) > 0 {
			releaseVehicles = releaseVehicles.Where("id NOT IN ?", keys(activeVehicles))
		}
		if err := releaseVehicles.Updates(map[string]interface{}{
			"status":      vehicleModel.StatusAvailable,
			"assigned_to": nil,
			"driver_name": nil,
		}).Error; err != nil {
			return err
		}

		releaseDrivers := tx.Model(&driverModel.Driver{}).
			Where("status = ?", driverModel.StatusAssigned)
		if len(activeDrivers) > 0 {
			releaseDrivers = releaseDrivers.Where("id NOT IN ?", keys(activeDrivers))
		}
		if err := releaseDrivers.Update("status", driverModel.StatusAvailable).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return apperrors.Store("status synchronization failed", err)
	}
	return nil
}

func keys(m map[uint]bool) []uint {
	out := make([]uint, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
