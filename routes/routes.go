package routes

import (
	"fleet-dispatch/constants"
	adminController "fleet-dispatch/controllers/admin"
	authController "fleet-dispatch/controllers/auth"
	dispatchController "fleet-dispatch/controllers/dispatch"
	fleetController "fleet-dispatch/controllers/fleet"
	requestController "fleet-dispatch/controllers/request"
	"fleet-dispatch/logger"
	"fleet-dispatch/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	asyncLogger := logger.NewAsyncLogger(db)
	auth := authController.NewAuthController(db, asyncLogger)
	requests := requestController.NewRequestController(db, asyncLogger)
	dispatch := dispatchController.NewDispatchController(db, asyncLogger)
	admin := adminController.NewAdminController(db, asyncLogger)
	fleet := fleetController.NewFleetController(db, asyncLogger)

	// Start the async logger processing goroutine
	go asyncLogger.ProcessLog()

	// Index route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "fleet-dispatch",
			"status":  "ok",
		})
	})

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Post("/login", auth.Login)
	api.Post("/register", auth.Register)

	/*=============================================================================
	| Employee Routes
	===============================================================================*/
	requestGroup := api.Group("/requests")

	requestGroup.Post("/create", middleware.RequirePermissions(
		constants.PermEmployeeFull,
	), requests.Store)

	requestGroup.Get("/", middleware.RequirePermissions(
		constants.PermEmployeeFull,
	), requests.Index)

	requestGroup.Get("/schedule", middleware.RequirePermissions(
		constants.PermEmployeeFull,
	), requests.Schedule)

	requestGroup.Post("/cancel", middleware.RequirePermissions(
		constants.PermEmployeeFull,
	), requests.CancelOwn)

	requestGroup.Post("/initiate-return", middleware.RequirePermissions(
		constants.PermEmployeeFull,
	), requests.InitiateReturn)

	/*=============================================================================
	| Dispatch Routes
	===============================================================================*/
	dispatchGroup := api.Group("/dispatch")

	dispatchGroup.Get("/queue", middleware.RequirePermissions(
		constants.PermDispatchFull,
	), dispatch.Queue)

	dispatchGroup.Get("/requests", middleware.RequirePermissions(
		constants.PermDispatchFull,
	), dispatch.Index)

	dispatchGroup.Post("/assign", middleware.RequirePermissions(
		constants.PermDispatchFull,
	), dispatch.AssignResources)

	dispatchGroup.Post("/process-return", middleware.RequirePermissions(
		constants.PermDispatchFull,
	), dispatch.ProcessReturn)

	dispatchGroup.Post("/cancel", middleware.RequirePermissions(
		constants.PermDispatchFull,
	), dispatch.CancelRequest)

	/*=============================================================================
	| Admin Routes
	===============================================================================*/
	adminGroup := api.Group("/admin")

	adminGroup.Get("/pending", middleware.RequirePermissions(
		constants.PermAdminFull,
	), admin.Pending)

	adminGroup.Post("/approve", middleware.RequirePermissions(
		constants.PermAdminFull,
	), admin.Approve)

	adminGroup.Post("/reject", middleware.RequirePermissions(
		constants.PermAdminFull,
	), admin.Reject)

	adminGroup.Post("/cancel", middleware.RequirePermissions(
		constants.PermAdminFull,
	), admin.CancelRequest)

	adminGroup.Get("/audit/:id", middleware.RequirePermissions(
		constants.PermAdminFull,
	), admin.AuditTrail)

	adminGroup.Get("/dashboard", middleware.RequirePermissions(
		constants.PermAdminFull,
	), admin.Dashboard)

	/*=============================================================================
	| Fleet Registry Routes
	===============================================================================*/
	fleetGroup := api.Group("/fleet")

	fleetGroup.Get("/vehicles", middleware.RequireAnyPermission(
		constants.PermDispatchFull,
		constants.PermAdminFull,
	), fleet.ListVehicles)

	fleetGroup.Post("/vehicles", middleware.RequirePermissions(
		constants.PermAdminFull,
	), fleet.StoreVehicle)

	fleetGroup.Put("/vehicles", middleware.RequirePermissions(
		constants.PermAdminFull,
	), fleet.UpdateVehicle)

	fleetGroup.Delete("/vehicles/:id", middleware.RequirePermissions(
		constants.PermAdminFull,
	), fleet.DeleteVehicle)

	fleetGroup.Post("/vehicles/maintenance", middleware.RequireAnyPermission(
		constants.PermDispatchFull,
		constants.PermAdminFull,
	), fleet.SetMaintenance)

	fleetGroup.Get("/drivers", middleware.RequireAnyPermission(
		constants.PermDispatchFull,
		constants.PermAdminFull,
	), fleet.ListDrivers)

	fleetGroup.Post("/drivers", middleware.RequirePermissions(
		constants.PermAdminFull,
	), fleet.StoreDriver)

	fleetGroup.Put("/drivers", middleware.RequirePermissions(
		constants.PermAdminFull,
	), fleet.UpdateDriver)

	fleetGroup.Delete("/drivers/:id", middleware.RequirePermissions(
		constants.PermAdminFull,
	), fleet.DeleteDriver)
}
