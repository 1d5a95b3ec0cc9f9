package assignment

import (
	"fmt"
	"strings"
	"testing"
	"time"

	auditModel "fleet-dispatch/models/audit"
	driverModel "fleet-dispatch/models/driver"
	requestModel "fleet-dispatch/models/request"
	userModel "fleet-dispatch/models/user"
	vehicleModel "fleet-dispatch/models/vehicle"
	"fleet-dispatch/services/apperrors"
	"fleet-dispatch/services/audit_event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dispatcher = audit_event.Actor{ID: 10, Role: "dispatch", Name: "Dana Ops"}
var admin = audit_event.Actor{ID: 11, Role: "admin", Name: "Avery Boss"}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userModel.User{},
		&vehicleModel.Vehicle{},
		&driverModel.Driver{},
		&requestModel.Request{},
		&auditModel.Entry{},
	))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func seedFleet(t *testing.T, db *gorm.DB) ([]vehicleModel.Vehicle, []driverModel.Driver) {
	t.Helper()
	vehicles := []vehicleModel.Vehicle{
		{PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace", Status: vehicleModel.StatusAvailable},
		{PlateNumber: "FLT-1002", Make: "Ford", Model: "Transit", Status: vehicleModel.StatusAvailable},
	}
	drivers := []driverModel.Driver{
		{Name: "Sam Wheeler", Status: driverModel.StatusAvailable},
		{Name: "Riley Park", Status: driverModel.StatusAvailable},
	}
	require.NoError(t, db.Create(&vehicles).Error)
	require.NoError(t, db.Create(&drivers).Error)
	return vehicles, drivers
}

func seedRequest(t *testing.T, db *gorm.DB, status requestModel.Status, from, to time.Time) requestModel.Request {
	t.Helper()
	r := requestModel.Request{
		UserID:        1,
		RequestorName: "Jordan Reyes",
		Destination:   "Regional depot",
		Purpose:       "Site visit",
		DepartureDate: datePtr(from),
		ReturnDate:    datePtr(to),
		Status:        status,
		CreatedBy:     "1",
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func TestAssignVehicleAndDriver(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	vehicles, drivers := seedFleet(t, db)

	r1 := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 1), day(2025, 6, 3))
	r2 := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 3), day(2025, 6, 5))
	r3 := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 4), day(2025, 6, 5))

	got, err := svc.AssignVehicleAndDriver(r1.ID, vehicles[0].ID, drivers[0].ID, dispatcher)
	require.NoError(t, err)
	assert.Equal(t, requestModel.StatusPendingAdminApproval, got.Status)
	require.NotNil(t, got.AssignedVehicleID)
	assert.Equal(t, vehicles[0].ID, *got.AssignedVehicleID)

	// The second request touches the first one's return day, which counts as
	// an overlap on the shared vehicle.
	_, err = svc.AssignVehicleAndDriver(r2.ID, vehicles[0].ID, drivers[1].ID, dispatcher)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindVehicleConflict, apperrors.KindOf(err))

	var unchanged requestModel.Request
	require.NoError(t, db.First(&unchanged, r2.ID).Error)
	assert.Equal(t, requestModel.StatusPendingDispatchAssignment, unchanged.Status)
	assert.Nil(t, unchanged.AssignedVehicleID)

	// Same driver on a disjoint range is a driver conflict even with a
	// different vehicle.
	_, err = svc.AssignVehicleAndDriver(r2.ID, vehicles[1].ID, drivers[0].ID, dispatcher)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDriverConflict, apperrors.KindOf(err))

	// Starting the day after the reservation ends is fine
	_, err = svc.AssignVehicleAndDriver(r3.ID, vehicles[0].ID, drivers[0].ID, dispatcher)
	require.NoError(t, err)

	var entries []auditModel.Entry
	require.NoError(t, db.Where("action = ?", "dispatch_assigned").Find(&entries).Error)
	assert.Len(t, entries, 2)
	assert.Equal(t, dispatcher.ID, entries[0].ActorID)
}

func TestAssignRejectsWrongStatus(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	vehicles, drivers := seedFleet(t, db)

	r := seedRequest(t, db, requestModel.StatusApproved, day(2025, 6, 1), day(2025, 6, 3))

	_, err := svc.AssignVehicleAndDriver(r.ID, vehicles[0].ID, drivers[0].ID, dispatcher)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestAssignRejectsMaintenanceVehicle(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	vehicles, drivers := seedFleet(t, db)

	require.NoError(t, db.Model(&vehicles[0]).Update("status", vehicleModel.StatusMaintenance).Error)

	r := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 1), day(2025, 6, 3))

	_, err := svc.AssignVehicleAndDriver(r.ID, vehicles[0].ID, drivers[0].ID, dispatcher)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestAssignUnknownResources(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	_, drivers := seedFleet(t, db)

	r := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 1), day(2025, 6, 3))

	_, err := svc.AssignVehicleAndDriver(r.ID, 999, drivers[0].ID, dispatcher)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.AssignVehicleAndDriver(999, 1, drivers[0].ID, dispatcher)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestApproveRevalidatesConflicts(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	vehicles, drivers := seedFleet(t, db)

	r1 := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 1), day(2025, 6, 3))
	_, err := svc.AssignVehicleAndDriver(r1.ID, vehicles[0].ID, drivers[0].ID, dispatcher)
	require.NoError(t, err)

	// An overlapping request slipped through to approved on the same vehicle
	// between assignment and this approval. Simulated directly since the
	// strict check would normally block it.
	rival := seedRequest(t, db, requestModel.StatusApproved, day(2025, 6, 2), day(2025, 6, 4))
	require.NoError(t, db.Model(&requestModel.Request{}).Where("id = ?", rival.ID).
		Updates(map[string]interface{}{
			"assigned_vehicle_id": vehicles[0].ID,
			"assigned_driver_id":  drivers[1].ID,
		}).Error)

	_, err = svc.Approve(r1.ID, admin)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindVehicleConflict, apperrors.KindOf(err))

	// Nothing was mutated on the failed approval
	var still requestModel.Request
	require.NoError(t, db.First(&still, r1.ID).Error)
	assert.Equal(t, requestModel.StatusPendingAdminApproval, still.Status)

	// Once the rival trip concludes, approval goes through
	require.NoError(t, db.Model(&requestModel.Request{}).Where("id = ?", rival.ID).
		Update("status", requestModel.StatusConcluded).Error)

	approved, err := svc.Approve(r1.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, requestModel.StatusApproved, approved.Status)

	var entries []auditModel.Entry
	require.NoError(t, db.Where("request_id = ? AND action = ?", r1.ID, "admin_approved").Find(&entries).Error)
	assert.Len(t, entries, 1)
}

func TestApproveRequiresPendingApproval(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	seedFleet(t, db)

	r := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 1), day(2025, 6, 3))

	_, err := svc.Approve(r.ID, admin)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = svc.Approve(999, admin)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRejectClearsAssignmentAndRoutesByReason(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	vehicles, drivers := seedFleet(t, db)

	r := seedRequest(t, db, requestModel.StatusPendingDispatchAssignment, day(2025, 6, 1), day(2025, 6, 3))
	_, err := svc.AssignVehicleAndDriver(r.ID, vehicles[0].ID, drivers[0].ID, dispatcher)
	require.NoError(t, err)

	rejected, err := svc.Reject(r.ID, requestModel.RejectionReassignVehicle, admin)
	require.NoError(t, err)
	assert.Equal(t, requestModel.StatusRejectedReassignDispatch, rejected.Status)
	assert.Nil(t, rejected.AssignedVehicleID)
	assert.Nil(t, rejected.AssignedDriverID)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, requestModel.RejectionReassignVehicle, *rejected.RejectionReason)

	// The freed vehicle is immediately assignable to the same slot again
	reassigned, err := svc.AssignVehicleAndDriver(r.ID, vehicles[1].ID, drivers[0].ID, dispatcher)
	require.NoError(t, err)
	assert.Equal(t, requestModel.StatusPendingAdminApproval, reassigned.Status)

	// new_request is terminal
	terminal, err := svc.Reject(r.ID, requestModel.RejectionNewRequest, admin)
	require.NoError(t, err)
	assert.Equal(t, requestModel.StatusRejectedNewRequest, terminal.Status)
	assert.True(t, terminal.Status.IsTerminal())

	_, err = svc.Reject(r.ID, requestModel.RejectionNewRequest, admin)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestRejectUnknownReason(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	_, err := svc.Reject(1, requestModel.RejectionReason("because"), admin)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}
