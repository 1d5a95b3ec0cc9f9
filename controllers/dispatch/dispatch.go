package dispatch

import (
	"fmt"

	"fleet-dispatch/logger"
	requestModel "fleet-dispatch/models/request"
	"fleet-dispatch/services/apperrors"
	"fleet-dispatch/services/assignment"
	"fleet-dispatch/services/cancellation"
	"fleet-dispatch/services/returns"
	"fleet-dispatch/services/statussync"
	"fleet-dispatch/types"
	requestTypes "fleet-dispatch/types/request"
	"fleet-dispatch/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DispatchCancellableStatuses is the allowed-status set for dispatch staff.
// Dispatch may cancel any request still in flight, including approved trips
// that have not started yet.
var DispatchCancellableStatuses = []requestModel.Status{
	requestModel.StatusPendingDispatchAssignment,
	requestModel.StatusPendingAdminApproval,
	requestModel.StatusRejectedReassignDispatch,
	requestModel.StatusApproved,
}

// DispatchController handles the dispatch console endpoints
type DispatchController struct {
	DB      *gorm.DB
	Logger  *logger.AsyncLogger
	Sync    *statussync.Service
	Assign  *assignment.Service
	Cancel  *cancellation.Service
	Returns *returns.Service
}

// NewDispatchController creates a new dispatch controller
func NewDispatchController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *DispatchController {
	return &DispatchController{
		DB:      db,
		Logger:  asyncLogger,
		Sync:    statussync.NewService(db),
		Assign:  assignment.NewService(db),
		Cancel:  cancellation.NewService(db),
		Returns: returns.NewService(db),
	}
}

func (dc *DispatchController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	dc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Queue lists requests awaiting a vehicle and driver. Requests bounced back
// by an admin with reassign_vehicle or reassign_driver land here too.
func (dc *DispatchController) Queue(c *fiber.Ctx) error {
	if err := dc.Sync.SyncActiveAssignments(); err != nil {
		logger.Error("Status synchronization failed", err)
	}

	var requests []requestModel.Request
	if err := dc.DB.Preload("AssignedVehicle").Preload("AssignedDriver").
		Where("status IN ?", []requestModel.Status{
			requestModel.StatusPendingDispatchAssignment,
			requestModel.StatusRejectedReassignDispatch,
		}).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		logger.Error("Failed to list dispatch queue", err)
		return dc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return dc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Dispatch queue retrieved successfully",
		Data:    requests,
	})
}

// Index lists all requests with their assignments, newest first
func (dc *DispatchController) Index(c *fiber.Ctx) error {
	if err := dc.Sync.SyncActiveAssignments(); err != nil {
		logger.Error("Status synchronization failed", err)
	}

	query := dc.DB.Preload("AssignedVehicle").Preload("AssignedDriver")
	if status := c.Query("status"); status != "" {
		if !requestModel.Status(status).IsValid() {
			return dc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
				Status:  fiber.StatusBadRequest,
				Message: fmt.Sprintf("Unknown status filter: %s", status),
				Data:    nil,
			})
		}
		query = query.Where("status = ?", status)
	}

	var requests []requestModel.Request
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		logger.Error("Failed to list requests", err)
		return dc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return dc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Requests retrieved successfully",
		Data:    requests,
	})
}

// AssignResources binds a vehicle and driver to a pending request and moves
// it to admin review. Conflicting assignments are rejected with 409.
func (dc *DispatchController) AssignResources(c *fiber.Ctx) error {
	var req requestTypes.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return dc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return dc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return dc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	trip, err := dc.Assign.AssignVehicleAndDriver(req.RequestID, req.VehicleID, req.DriverID, actor)
	if err != nil {
		logger.Error("Failed to assign resources", err)
		return dc.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Request %d assigned vehicle %d and driver %d", trip.ID, req.VehicleID, req.DriverID))

	return dc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Resources assigned, request sent for approval",
		Data:    trip,
	})
}

// ProcessReturn concludes an approved trip and frees its vehicle and driver
func (dc *DispatchController) ProcessReturn(c *fiber.Ctx) error {
	var req requestTypes.ReturnRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return dc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return dc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return dc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	trip, err := dc.Returns.ProcessReturn(req.RequestID, actor)
	if err != nil {
		logger.Error("Failed to process return", err)
		return dc.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Return processed for request %d", trip.ID))

	return dc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Vehicle return processed",
		Data:    trip,
	})
}

// CancelRequest cancels a request on behalf of dispatch
func (dc *DispatchController) CancelRequest(c *fiber.Ctx) error {
	var req requestTypes.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return dc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return dc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return dc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	cancelled, err := dc.Cancel.Cancel(req.RequestID, actor, cancellation.Options{
		AllowedStatuses: DispatchCancellableStatuses,
		Reason:          req.Reason,
	})
	if err != nil {
		logger.Error("Failed to cancel request", err)
		return dc.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Request %d cancelled by dispatch", cancelled.ID))

	return dc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Request cancelled successfully",
		Data:    cancelled,
	})
}
