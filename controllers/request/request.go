package request

import (
	"fmt"
	"strconv"

	"fleet-dispatch/logger"
	requestModel "fleet-dispatch/models/request"
	userModel "fleet-dispatch/models/user"
	"fleet-dispatch/services/apperrors"
	"fleet-dispatch/services/cancellation"
	"fleet-dispatch/services/returns"
	"fleet-dispatch/services/schedule"
	"fleet-dispatch/services/statussync"
	"fleet-dispatch/types"
	requestTypes "fleet-dispatch/types/request"
	"fleet-dispatch/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// EmployeeCancellableStatuses is the allowed-status set for employees
// cancelling their own requests. Approved requests stay cancellable only
// before the trip starts (default guard).
var EmployeeCancellableStatuses = []requestModel.Status{
	requestModel.StatusPendingDispatchAssignment,
	requestModel.StatusPendingAdminApproval,
	requestModel.StatusRejectedReassignDispatch,
	requestModel.StatusApproved,
}

// RequestController handles employee trip-request HTTP endpoints
type RequestController struct {
	DB      *gorm.DB
	Logger  *logger.AsyncLogger
	Sync    *statussync.Service
	Cancel  *cancellation.Service
	Returns *returns.Service
}

// NewRequestController creates a new request controller
func NewRequestController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *RequestController {
	return &RequestController{
		DB:      db,
		Logger:  asyncLogger,
		Sync:    statussync.NewService(db),
		Cancel:  cancellation.NewService(db),
		Returns: returns.NewService(db),
	}
}

func (rc *RequestController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	rc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Store creates a new trip request for the authenticated employee
func (rc *RequestController) Store(c *fiber.Ctx) error {
	var req requestTypes.RequestCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return rc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if err := req.Validate(); err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	userInfo, err := utils.GetUserByID(actor.ID)
	if err != nil {
		logger.Error("Error finding user", err)
		status := fiber.StatusInternalServerError
		msg := "Database error"
		if err.Error() == "user not found" {
			status = fiber.StatusUnauthorized
			msg = "User not found"
		}
		return rc.sendResponseWithLog(c, status, types.ApiResponse{
			Status:  status,
			Message: msg,
			Data:    nil,
		})
	}

	departure, ret, err := req.ParseDates()
	if err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	email := ""
	if userInfo.Email != nil {
		email = *userInfo.Email
	}

	trip := requestModel.Request{
		UserID:         userInfo.ID,
		RequestorName:  userInfo.LegalName,
		RequestorEmail: email,
		Destination:    req.Destination,
		Purpose:        req.Purpose,
		DepartureDate:  departure,
		ReturnDate:     ret,
		Passengers:     userModel.StringSlice(req.Passengers),
		Status:         requestModel.StatusPendingDispatchAssignment,
		CreatedBy:      strconv.FormatUint(uint64(userInfo.ID), 10),
	}

	if err := rc.DB.Create(&trip).Error; err != nil {
		logger.Error("Failed to create request", err)
		return rc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to save request",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Trip request created successfully with ID: %d", trip.ID))

	return rc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Request created successfully",
		Data:    trip,
	})
}

// Index lists the authenticated employee's requests. The status synchronizer
// runs first so derived fleet state is fresh on every read.
func (rc *RequestController) Index(c *fiber.Ctx) error {
	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	if err := rc.Sync.SyncActiveAssignments(); err != nil {
		logger.Error("Status synchronization failed", err)
	}

	var requests []requestModel.Request
	if err := rc.DB.Preload("AssignedVehicle").Preload("AssignedDriver").
		Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		logger.Error("Failed to list requests", err)
		return rc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return rc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Requests retrieved successfully",
		Data:    requests,
	})
}

// Schedule returns the normalized date range for each of the employee's
// schedulable requests, for calendar-style displays.
func (rc *RequestController) Schedule(c *fiber.Ctx) error {
	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	var requests []requestModel.Request
	if err := rc.DB.Where("user_id = ? AND status IN ?", actor.ID, []requestModel.Status{
		requestModel.StatusPendingDispatchAssignment,
		requestModel.StatusPendingAdminApproval,
		requestModel.StatusApproved,
	}).Find(&requests).Error; err != nil {
		logger.Error("Failed to list requests", err)
		return rc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	type entry struct {
		RequestID   uint   `json:"request_id"`
		Destination string `json:"destination"`
		Status      string `json:"status"`
		Start       string `json:"start"`
		End         string `json:"end"`
	}
	entries := make([]entry, 0, len(requests))
	for i := range requests {
		start, end := schedule.NormalizeRange(&requests[i])
		if start == nil {
			// Unschedulable requests are skipped in calendars
			continue
		}
		entries = append(entries, entry{
			RequestID:   requests[i].ID,
			Destination: requests[i].Destination,
			Status:      string(requests[i].Status),
			Start:       start.Format(requestTypes.DateLayout),
			End:         end.Format(requestTypes.DateLayout),
		})
	}

	return rc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Schedule retrieved successfully",
		Data:    entries,
	})
}

// CancelOwn cancels one of the employee's own requests
func (rc *RequestController) CancelOwn(c *fiber.Ctx) error {
	var req requestTypes.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return rc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	ownerID := actor.ID
	cancelled, err := rc.Cancel.Cancel(req.RequestID, actor, cancellation.Options{
		AllowedStatuses: EmployeeCancellableStatuses,
		OwnerUserID:     &ownerID,
		Reason:          req.Reason,
	})
	if err != nil {
		logger.Error("Failed to cancel request", err)
		return rc.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Request %d cancelled by its requestor", cancelled.ID))

	return rc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Request cancelled successfully",
		Data:    cancelled,
	})
}

// InitiateReturn marks the vehicle of the employee's approved trip as
// returning, for dispatch to process.
func (rc *RequestController) InitiateReturn(c *fiber.Ctx) error {
	var req requestTypes.ReturnRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return rc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return rc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	trip, err := rc.Returns.InitiateReturn(req.RequestID, actor.ID, actor)
	if err != nil {
		logger.Error("Failed to initiate return", err)
		return rc.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Return initiated for request %d", trip.ID))

	return rc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Vehicle return initiated",
		Data:    trip,
	})
}
