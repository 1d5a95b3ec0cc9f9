package admin

import (
	"fmt"
	"strconv"

	"fleet-dispatch/logger"
	auditModel "fleet-dispatch/models/audit"
	driverModel "fleet-dispatch/models/driver"
	requestModel "fleet-dispatch/models/request"
	userModel "fleet-dispatch/models/user"
	vehicleModel "fleet-dispatch/models/vehicle"
	"fleet-dispatch/services/apperrors"
	"fleet-dispatch/services/assignment"
	"fleet-dispatch/services/cancellation"
	"fleet-dispatch/services/schedule"
	"fleet-dispatch/services/statussync"
	"fleet-dispatch/types"
	requestTypes "fleet-dispatch/types/request"
	"fleet-dispatch/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminCancellableStatuses is the allowed-status set for administrators.
// Admins can pull the plug on any request still in flight.
var AdminCancellableStatuses = []requestModel.Status{
	requestModel.StatusPendingDispatchAssignment,
	requestModel.StatusPendingAdminApproval,
	requestModel.StatusRejectedReassignDispatch,
	requestModel.StatusApproved,
}

// ConflictAdvisory flags a soft overlap with another request that is not yet
// locked in. Advisories inform the approval decision but never block it.
type ConflictAdvisory struct {
	Resource  string                `json:"resource"`
	Conflict  schedule.ConflictInfo `json:"conflict"`
	Severity  string                `json:"severity"`
	RequestID uint                  `json:"request_id"`
}

// PendingReview pairs a request with its advisory conflicts
type PendingReview struct {
	Request    requestModel.Request `json:"request"`
	Advisories []ConflictAdvisory   `json:"advisories"`
}

// AdminController handles the admin console endpoints
type AdminController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
	Sync   *statussync.Service
	Assign *assignment.Service
	Cancel *cancellation.Service
}

// NewAdminController creates a new admin controller
func NewAdminController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *AdminController {
	return &AdminController{
		DB:     db,
		Logger: asyncLogger,
		Sync:   statussync.NewService(db),
		Assign: assignment.NewService(db),
		Cancel: cancellation.NewService(db),
	}
}

func (ac *AdminController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ac.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Pending lists requests awaiting approval, each annotated with advisory
// conflicts against other in-flight requests on the same vehicle or driver.
func (ac *AdminController) Pending(c *fiber.Ctx) error {
	if err := ac.Sync.SyncActiveAssignments(); err != nil {
		logger.Error("Status synchronization failed", err)
	}

	var requests []requestModel.Request
	if err := ac.DB.Preload("AssignedVehicle").Preload("AssignedDriver").
		Where("status = ?", requestModel.StatusPendingAdminApproval).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		logger.Error("Failed to list pending requests", err)
		return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	reviews := make([]PendingReview, 0, len(requests))
	for i := range requests {
		r := &requests[i]
		review := PendingReview{Request: *r, Advisories: []ConflictAdvisory{}}

		start, end := schedule.NormalizeRange(r)
		if start != nil {
			excludeID := r.ID
			if r.AssignedVehicleID != nil {
				info, err := schedule.FindConflict(ac.DB, schedule.ResourceVehicle, *r.AssignedVehicleID,
					*start, *end, &excludeID, schedule.AdvisoryStatuses)
				if err != nil {
					logger.Error("Advisory conflict check failed", err)
				} else if info != nil {
					review.Advisories = append(review.Advisories, ConflictAdvisory{
						Resource:  "vehicle",
						Conflict:  *info,
						Severity:  "advisory",
						RequestID: r.ID,
					})
				}
			}
			if r.AssignedDriverID != nil {
				info, err := schedule.FindConflict(ac.DB, schedule.ResourceDriver, *r.AssignedDriverID,
					*start, *end, &excludeID, schedule.AdvisoryStatuses)
				if err != nil {
					logger.Error("Advisory conflict check failed", err)
				} else if info != nil {
					review.Advisories = append(review.Advisories, ConflictAdvisory{
						Resource:  "driver",
						Conflict:  *info,
						Severity:  "advisory",
						RequestID: r.ID,
					})
				}
			}
		}

		reviews = append(reviews, review)
	}

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Pending requests retrieved successfully",
		Data:    reviews,
	})
}

// Approve confirms a dispatch assignment after re-validating conflicts
func (ac *AdminController) Approve(c *fiber.Ctx) error {
	var req requestTypes.ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	trip, err := ac.Assign.Approve(req.RequestID, actor)
	if err != nil {
		logger.Error("Failed to approve request", err)
		return ac.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Request %d approved", trip.ID))

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Request approved",
		Data:    trip,
	})
}

// Reject declines a pending assignment. The reason decides whether the
// request goes back to dispatch or back to the requestor.
func (ac *AdminController) Reject(c *fiber.Ctx) error {
	var req requestTypes.RejectRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	trip, err := ac.Assign.Reject(req.RequestID, requestModel.RejectionReason(req.Reason), actor)
	if err != nil {
		logger.Error("Failed to reject request", err)
		return ac.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Request %d rejected with reason %s", trip.ID, req.Reason))

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Request rejected",
		Data:    trip,
	})
}

// CancelRequest cancels any in-flight request on behalf of an administrator
func (ac *AdminController) CancelRequest(c *fiber.Ctx) error {
	var req requestTypes.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid user claims",
			Data:    nil,
		})
	}

	cancelled, err := ac.Cancel.Cancel(req.RequestID, actor, cancellation.Options{
		AllowedStatuses: AdminCancellableStatuses,
		Reason:          req.Reason,
	})
	if err != nil {
		logger.Error("Failed to cancel request", err)
		return ac.sendResponseWithLog(c, apperrors.HTTPStatus(err), types.ApiResponse{
			Status:  apperrors.HTTPStatus(err),
			Message: apperrors.MessageOf(err),
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Request %d cancelled by admin", cancelled.ID))

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Request cancelled successfully",
		Data:    cancelled,
	})
}

// AuditTrail lists the audit log for one request, oldest entry first
func (ac *AdminController) AuditTrail(c *fiber.Ctx) error {
	requestID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || requestID == 0 {
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request id",
			Data:    nil,
		})
	}

	var entries []auditModel.Entry
	if err := ac.DB.Where("request_id = ?", uint(requestID)).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		logger.Error("Failed to load audit trail", err)
		return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Audit trail retrieved successfully",
		Data:    entries,
	})
}

// Dashboard returns request and fleet counts grouped by status
func (ac *AdminController) Dashboard(c *fiber.Ctx) error {
	if err := ac.Sync.SyncActiveAssignments(); err != nil {
		logger.Error("Status synchronization failed", err)
	}

	requestCounts := make(map[string]int64)
	for _, status := range requestModel.GetAllStatuses() {
		var count int64
		if err := ac.DB.Model(&requestModel.Request{}).Where("status = ?", status).Count(&count).Error; err != nil {
			logger.Error("Failed to count requests", err)
			return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Database error",
				Data:    nil,
			})
		}
		requestCounts[string(status)] = count
	}

	vehicleCounts := make(map[string]int64)
	for _, status := range []vehicleModel.Status{
		vehicleModel.StatusAvailable,
		vehicleModel.StatusAssigned,
		vehicleModel.StatusReturning,
		vehicleModel.StatusMaintenance,
	} {
		var count int64
		if err := ac.DB.Model(&vehicleModel.Vehicle{}).Where("status = ?", status).Count(&count).Error; err != nil {
			logger.Error("Failed to count vehicles", err)
			return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Database error",
				Data:    nil,
			})
		}
		vehicleCounts[string(status)] = count
	}

	var driverAvailable, driverAssigned, userCount int64
	ac.DB.Model(&driverModel.Driver{}).Where("status = ?", driverModel.StatusAvailable).Count(&driverAvailable)
	ac.DB.Model(&driverModel.Driver{}).Where("status = ?", driverModel.StatusAssigned).Count(&driverAssigned)
	ac.DB.Model(&userModel.User{}).Count(&userCount)

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Dashboard retrieved successfully",
		Data: fiber.Map{
			"requests": requestCounts,
			"vehicles": vehicleCounts,
			"drivers": fiber.Map{
				"available": driverAvailable,
				"assigned":  driverAssigned,
			},
			"users": userCount,
		},
	})
}
