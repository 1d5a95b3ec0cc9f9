package returns

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

var owner = audit_event.Actor{ID: 1, Role: "employee", Name: "Jordan Reyes"}
var dispatcher = audit_event.Actor{ID: 10, Role: "dispatch", Name: "Dana Ops"}

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

func seedTrip(t *testing.T, db *gorm.DB, status requestModel.Status) (requestModel.Request, vehicleModel.Vehicle, driverModel.Driver) {
	t.Helper()

	assignedTo := "Jordan Reyes"
	v := vehicleModel.Vehicle{
		PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace",
		Status:     vehicleModel.StatusAssigned,
		AssignedTo: &assignedTo,
	}
	d := driverModel.Driver{Name: "Sam Wheeler", Status: driverModel.StatusAssigned}
	require.NoError(t, db.Create(&v).Error)
	require.NoError(t, db.Create(&d).Error)

	r := requestModel.Request{
		UserID:            owner.ID,
		RequestorName:     "Jordan Reyes",
		Destination:       "Regional depot",
		Purpose:           "Site visit",
		DepartureDate:     datePtr(day(2025, 6, 1)),
		ReturnDate:        datePtr(day(2025, 6, 3)),
		Status:            status,
		AssignedVehicleID: &v.ID,
		AssignedDriverID:  &d.ID,
		CreatedBy:         "1",
	}
	require.NoError(t, db.Create(&r).Error)
	return r, v, d
}

func TestInitiateReturn(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	r, v, _ := seedTrip(t, db, requestModel.StatusApproved)

	_, err := svc.InitiateReturn(r.ID, owner.ID, owner)
	require.NoError(t, err)

	var vehicle vehicleModel.Vehicle
	require.NoError(t, db.First(&vehicle, v.ID).Error)
	assert.Equal(t, vehicleModel.StatusReturning, vehicle.Status)
	require.NotNil(t, vehicle.ReturnedBy)
	assert.Equal(t, owner.Name, *vehicle.ReturnedBy)
	assert.NotNil(t, vehicle.ReturnDate)

	// Double initiation is rejected
	_, err = svc.InitiateReturn(r.ID, owner.ID, owner)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	var entries []auditModel.Entry
	require.NoError(t, db.Where("request_id = ? AND action = ?", r.ID, "return_initiated").Find(&entries).Error)
	assert.Len(t, entries, 1)
}

func TestInitiateReturnRequiresOwner(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	r, _, _ := seedTrip(t, db, requestModel.StatusApproved)

	_, err := svc.InitiateReturn(r.ID, 42, owner)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestInitiateReturnRequiresApproved(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	r, _, _ := seedTrip(t, db, requestModel.StatusPendingAdminApproval)

	_, err := svc.InitiateReturn(r.ID, owner.ID, owner)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestProcessReturnConcludesTrip(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	r, v, d := seedTrip(t, db, requestModel.StatusApproved)

	concluded, err := svc.ProcessReturn(r.ID, dispatcher)
	require.NoError(t, err)
	assert.Equal(t, requestModel.StatusConcluded, concluded.Status)

	var vehicle vehicleModel.Vehicle
	require.NoError(t, db.First(&vehicle, v.ID).Error)
	assert.Equal(t, vehicleModel.StatusAvailable, vehicle.Status)
	assert.Nil(t, vehicle.AssignedTo)

	var driver driverModel.Driver
	require.NoError(t, db.First(&driver, d.ID).Error)
	assert.Equal(t, driverModel.StatusAvailable, driver.Status)

	var entries []auditModel.Entry
	require.NoError(t, db.Where("request_id = ? AND action = ?", r.ID, "return_processed").Find(&entries).Error)
	assert.Len(t, entries, 1)

	// Concluded is terminal; processing again fails
	_, err = svc.ProcessReturn(r.ID, dispatcher)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}
