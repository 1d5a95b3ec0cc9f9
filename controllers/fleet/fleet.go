package fleet

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"fleet-dispatch/logger"
	driverModel "fleet-dispatch/models/driver"
	requestModel "fleet-dispatch/models/request"
	vehicleModel "fleet-dispatch/models/vehicle"
	"fleet-dispatch/services"
	"fleet-dispatch/services/audit_event"
	"fleet-dispatch/services/statussync"
	"fleet-dispatch/types"
	fleetTypes "fleet-dispatch/types/fleet"
	"fleet-dispatch/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// activeRequestStatuses are statuses that keep a vehicle or driver referenced.
// Fleet records cannot be removed while a request in one of these statuses
// points at them.
var activeRequestStatuses = []requestModel.Status{
	requestModel.StatusPendingAdminApproval,
	requestModel.StatusApproved,
}

// FleetController handles vehicle and driver registry endpoints
type FleetController struct {
	DB          *gorm.DB
	Logger      *logger.AsyncLogger
	Sync        *statussync.Service
	Permissions *services.PermissionService
}

// NewFleetController creates a new fleet controller
func NewFleetController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *FleetController {
	return &FleetController{
		DB:          db,
		Logger:      asyncLogger,
		Sync:        statussync.NewService(db),
		Permissions: services.NewPermissionService(),
	}
}

func (fc *FleetController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	fc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// ListVehicles lists the fleet, freshly synchronized, with an optional
// status filter.
func (fc *FleetController) ListVehicles(c *fiber.Ctx) error {
	if err := fc.Sync.SyncActiveAssignments(); err != nil {
		logger.Error("Status synchronization failed", err)
	}

	query := fc.DB.Model(&vehicleModel.Vehicle{})
	if status := c.Query("status"); status != "" {
		if !vehicleModel.Status(status).IsValid() {
			return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
				Status:  fiber.StatusBadRequest,
				Message: fmt.Sprintf("Unknown status filter: %s", status),
				Data:    nil,
			})
		}
		query = query.Where("status = ?", status)
	}

	var vehicles []vehicleModel.Vehicle
	if err := query.Order("plate_number ASC").Find(&vehicles).Error; err != nil {
		logger.Error("Failed to list vehicles", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return fc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Vehicles retrieved successfully",
		Data:    vehicles,
	})
}

// StoreVehicle adds a vehicle to the fleet
func (fc *FleetController) StoreVehicle(c *fiber.Ctx) error {
	var req fleetTypes.VehicleCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	var existing vehicleModel.Vehicle
	err := fc.DB.Where("plate_number = ?", req.PlateNumber).First(&existing).Error
	if err == nil {
		return fc.sendResponseWithLog(c, fiber.StatusConflict, types.ApiResponse{
			Status:  fiber.StatusConflict,
			Message: "A vehicle with this plate number already exists",
			Data:    nil,
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Database error while checking plate number", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	v := vehicleModel.Vehicle{
		PlateNumber: req.PlateNumber,
		Make:        req.Make,
		Model:       req.Model,
		Type:        req.Type,
		Status:      vehicleModel.StatusAvailable,
	}
	if err := fc.DB.Create(&v).Error; err != nil {
		logger.Error("Failed to create vehicle", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to save vehicle",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Vehicle %s added to fleet", v.PlateNumber))

	return fc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Vehicle created successfully",
		Data:    v,
	})
}

// UpdateVehicle edits the descriptive fields of a vehicle. Status is owned
// by the synchronizer and the maintenance toggle, never set here.
func (fc *FleetController) UpdateVehicle(c *fiber.Ctx) error {
	var req fleetTypes.VehicleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	var v vehicleModel.Vehicle
	if err := fc.DB.First(&v, req.VehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Vehicle not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load vehicle", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	updates := map[string]interface{}{}
	if req.PlateNumber != "" {
		updates["plate_number"] = req.PlateNumber
	}
	if req.Make != "" {
		updates["make"] = req.Make
	}
	if req.Model != "" {
		updates["model"] = req.Model
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}
	if len(updates) > 0 {
		if err := fc.DB.Model(&v).Updates(updates).Error; err != nil {
			logger.Error("Failed to update vehicle", err)
			return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Failed to update vehicle",
				Data:    nil,
			})
		}
	}

	return fc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Vehicle updated successfully",
		Data:    v,
	})
}

// DeleteVehicle removes a vehicle that no active request references
func (fc *FleetController) DeleteVehicle(c *fiber.Ctx) error {
	vehicleID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || vehicleID == 0 {
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid vehicle id",
			Data:    nil,
		})
	}

	var referencing int64
	if err := fc.DB.Model(&requestModel.Request{}).
		Where("assigned_vehicle_id = ? AND status IN ?", uint(vehicleID), activeRequestStatuses).
		Count(&referencing).Error; err != nil {
		logger.Error("Failed to check vehicle references", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}
	if referencing > 0 {
		return fc.sendResponseWithLog(c, fiber.StatusConflict, types.ApiResponse{
			Status:  fiber.StatusConflict,
			Message: "Vehicle is referenced by an active request and cannot be removed",
			Data:    nil,
		})
	}

	result := fc.DB.Delete(&vehicleModel.Vehicle{}, uint(vehicleID))
	if result.Error != nil {
		logger.Error("Failed to delete vehicle", result.Error)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to delete vehicle",
			Data:    nil,
		})
	}
	if result.RowsAffected == 0 {
		return fc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Status:  fiber.StatusNotFound,
			Message: "Vehicle not found",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Vehicle %d removed from fleet", vehicleID))

	return fc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Vehicle deleted successfully",
		Data:    nil,
	})
}

// SetMaintenance toggles the manual maintenance state of a vehicle. A vehicle
// in maintenance is invisible to assignment and ignored by the synchronizer
// until it is toggled back.
func (fc *FleetController) SetMaintenance(c *fiber.Ctx) error {
	var req fleetTypes.MaintenanceRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return fc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	// Dispatch may pull a vehicle out of service; putting it back requires
	// an administrator.
	if !req.On && !fc.Permissions.IsAdmin(c) {
		return fc.sendResponseWithLog(c, fiber.StatusForbidden, types.ApiResponse{
			Status:  fiber.StatusForbidden,
			Message: "Only an administrator can release a vehicle from maintenance",
			Data:    nil,
		})
	}

	var v vehicleModel.Vehicle
	txErr := fc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&v, req.VehicleID).Error; err != nil {
			return err
		}

		target := vehicleModel.StatusMaintenance
		if !req.On {
			target = vehicleModel.StatusAvailable
		}

		updates := map[string]interface{}{
			"status":     target,
			"updated_at": time.Now(),
		}
		if req.On {
			// Dropping into maintenance clears the assignment cache
			updates["assigned_to"] = nil
			updates["driver_name"] = nil
		}
		if err := tx.Model(&v).Updates(updates).Error; err != nil {
			return err
		}

		// When the vehicle is held by an approved trip, leave a trace on
		// that request's audit trail so the override is explainable later.
		var holder requestModel.Request
		err := tx.Where("assigned_vehicle_id = ? AND status = ?", v.ID, requestModel.StatusApproved).
			First(&holder).Error
		if err == nil {
			notes := fmt.Sprintf("vehicle %s maintenance=%t", v.PlateNumber, req.On)
			return audit_event.LogAudit(tx, holder.ID, "maintenance_set", actor, notes)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return fc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Vehicle not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to toggle maintenance", txErr)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to toggle maintenance",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Vehicle %s maintenance set to %t", v.PlateNumber, req.On))

	return fc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Vehicle maintenance state updated",
		Data:    v,
	})
}

// ListDrivers lists registered drivers
func (fc *FleetController) ListDrivers(c *fiber.Ctx) error {
	if err := fc.Sync.SyncActiveAssignments(); err != nil {
		logger.Error("Status synchronization failed", err)
	}

	var drivers []driverModel.Driver
	if err := fc.DB.Order("name ASC").Find(&drivers).Error; err != nil {
		logger.Error("Failed to list drivers", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return fc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Drivers retrieved successfully",
		Data:    drivers,
	})
}

// StoreDriver registers a driver
func (fc *FleetController) StoreDriver(c *fiber.Ctx) error {
	var req fleetTypes.DriverCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	d := driverModel.Driver{
		Name:    req.Name,
		Contact: req.Contact,
		Status:  driverModel.StatusAvailable,
	}
	if err := fc.DB.Create(&d).Error; err != nil {
		logger.Error("Failed to create driver", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to save driver",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Driver %s registered", d.Name))

	return fc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Driver created successfully",
		Data:    d,
	})
}

// UpdateDriver edits a driver's descriptive fields
func (fc *FleetController) UpdateDriver(c *fiber.Ctx) error {
	var req fleetTypes.DriverUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	var d driverModel.Driver
	if err := fc.DB.First(&d, req.DriverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Driver not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load driver", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Contact != "" {
		updates["contact"] = req.Contact
	}
	if len(updates) > 0 {
		if err := fc.DB.Model(&d).Updates(updates).Error; err != nil {
			logger.Error("Failed to update driver", err)
			return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Failed to update driver",
				Data:    nil,
			})
		}
	}

	return fc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Driver updated successfully",
		Data:    d,
	})
}

// DeleteDriver removes a driver that no active request references
func (fc *FleetController) DeleteDriver(c *fiber.Ctx) error {
	driverID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || driverID == 0 {
		return fc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid driver id",
			Data:    nil,
		})
	}

	var referencing int64
	if err := fc.DB.Model(&requestModel.Request{}).
		Where("assigned_driver_id = ? AND status IN ?", uint(driverID), activeRequestStatuses).
		Count(&referencing).Error; err != nil {
		logger.Error("Failed to check driver references", err)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}
	if referencing > 0 {
		return fc.sendResponseWithLog(c, fiber.StatusConflict, types.ApiResponse{
			Status:  fiber.StatusConflict,
			Message: "Driver is referenced by an active request and cannot be removed",
			Data:    nil,
		})
	}

	result := fc.DB.Delete(&driverModel.Driver{}, uint(driverID))
	if result.Error != nil {
		logger.Error("Failed to delete driver", result.Error)
		return fc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to delete driver",
			Data:    nil,
		})
	}
	if result.RowsAffected == 0 {
		return fc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Status:  fiber.StatusNotFound,
			Message: "Driver not found",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Driver %d removed", driverID))

	return fc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Driver deleted successfully",
		Data:    nil,
	})
}
