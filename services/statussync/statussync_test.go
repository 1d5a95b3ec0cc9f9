package statussync

import (
	"fmt"
	"strings"
	"testing"
	"time"

	driverModel "fleet-dispatch/models/driver"
	requestModel "fleet-dispatch/models/request"
	userModel "fleet-dispatch/models/user"
	vehicleModel "fleet-dispatch/models/vehicle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time {
	return &t
}

// newFixedService pins the synchronizer's clock to 2025-06-10.
func newFixedService(db *gorm.DB) *Service {
	svc := NewService(db)
	svc.Now = func() time.Time {
		return time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	}
	return svc
}

func seedApproved(t *testing.T, db *gorm.DB, vehicleID, driverID uint, from, to time.Time) requestModel.Request {
	t.Helper()
	r := requestModel.Request{
		UserID:            1,
		RequestorName:     "Jordan Reyes",
		Destination:       "Regional depot",
		Purpose:           "Site visit",
		DepartureDate:     datePtr(from),
		ReturnDate:        datePtr(to),
		Status:            requestModel.StatusApproved,
		AssignedVehicleID: &vehicleID,
		AssignedDriverID:  &driverID,
		CreatedBy:         "1",
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func TestSyncMarksActiveAssignments(t *testing.T) {
	db := openTestDB(t)
	svc := newFixedService(db)

	v := vehicleModel.Vehicle{PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace", Status: vehicleModel.StatusAvailable}
	d := driverModel.Driver{Name: "Sam Wheeler", Status: driverModel.StatusAvailable}
	require.NoError(t, db.Create(&v).Error)
	require.NoError(t, db.Create(&d).Error)

	seedApproved(t, db, v.ID, d.ID, day(2025, 6, 9), day(2025, 6, 12))

	require.NoError(t, svc.SyncActiveAssignments())

	var vehicle vehicleModel.Vehicle
	require.NoError(t, db.First(&vehicle, v.ID).Error)
	assert.Equal(t, vehicleModel.StatusAssigned, vehicle.Status)
	require.NotNil(t, vehicle.AssignedTo)
	assert.Equal(t, "Jordan Reyes", *vehicle.AssignedTo)
	require.NotNil(t, vehicle.DriverName)
	assert.Equal(t, "Sam Wheeler", *vehicle.DriverName)

	var driver driverModel.Driver
	require.NoError(t, db.First(&driver, d.ID).Error)
	assert.Equal(t, driverModel.StatusAssigned, driver.Status)
}

func TestSyncIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	svc := newFixedService(db)

	v := vehicleModel.Vehicle{PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace", Status: vehicleModel.StatusAvailable}
	d := driverModel.Driver{Name: "Sam Wheeler", Status: driverModel.StatusAvailable}
	require.NoError(t, db.Create(&v).Error)
	require.NoError(t, db.Create(&d).Error)
	seedApproved(t, db, v.ID, d.ID, day(2025, 6, 10), day(2025, 6, 10))

	require.NoError(t, svc.SyncActiveAssignments())

	var first vehicleModel.Vehicle
	require.NoError(t, db.First(&first, v.ID).Error)

	require.NoError(t, svc.SyncActiveAssignments())

	var second vehicleModel.Vehicle
	require.NoError(t, db.First(&second, v.ID).Error)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.AssignedTo, second.AssignedTo)
	assert.Equal(t, first.DriverName, second.DriverName)
}

func TestSyncInclusiveEndDate(t *testing.T) {
	db := openTestDB(t)
	svc := newFixedService(db)

	v := vehicleModel.Vehicle{PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace", Status: vehicleModel.StatusAvailable}
	d := driverModel.Driver{Name: "Sam Wheeler", Status: driverModel.StatusAvailable}
	require.NoError(t, db.Create(&v).Error)
	require.NoError(t, db.Create(&d).Error)

	// Trip ends today; the vehicle stays out until end of day
	seedApproved(t, db, v.ID, d.ID, day(2025, 6, 8), day(2025, 6, 10))

	require.NoError(t, svc.SyncActiveAssignments())

	var vehicle vehicleModel.Vehicle
	require.NoError(t, db.First(&vehicle, v.ID).Error)
	assert.Equal(t, vehicleModel.StatusAssigned, vehicle.Status)
}

func TestSyncReleasesExpiredAssignments(t *testing.T) {
	db := openTestDB(t)
	svc := newFixedService(db)

	assignedTo := "Jordan Reyes"
	driverName := "Sam Wheeler"
	v := vehicleModel.Vehicle{
		PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace",
		Status:     vehicleModel.StatusAssigned,
		AssignedTo: &assignedTo,
		DriverName: &driverName,
	}
	d := driverModel.Driver{Name: "Sam Wheeler", Status: driverModel.StatusAssigned}
	require.NoError(t, db.Create(&v).Error)
	require.NoError(t, db.Create(&d).Error)

	// Trip ended yesterday
	seedApproved(t, db, v.ID, d.ID, day(2025, 6, 7), day(2025, 6, 9))

	require.NoError(t, svc.SyncActiveAssignments())

	var vehicle vehicleModel.Vehicle
	require.NoError(t, db.First(&vehicle, v.ID).Error)
	assert.Equal(t, vehicleModel.StatusAvailable, vehicle.Status)
	assert.Nil(t, vehicle.AssignedTo)
	assert.Nil(t, vehicle.DriverName)

	var driver driverModel.Driver
	require.NoError(t, db.First(&driver, d.ID).Error)
	assert.Equal(t, driverModel.StatusAvailable, driver.Status)
}

func TestSyncSelfHealsStaleVehicle(t *testing.T) {
	db := openTestDB(t)
	svc := newFixedService(db)

	// Marked assigned by hand, no request claims it
	stale := "Ghost"
	v := vehicleModel.Vehicle{
		PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace",
		Status:     vehicleModel.StatusAssigned,
		AssignedTo: &stale,
	}
	require.NoError(t, db.Create(&v).Error)

	require.NoError(t, svc.SyncActiveAssignments())

	var vehicle vehicleModel.Vehicle
	require.NoError(t, db.First(&vehicle, v.ID).Error)
	assert.Equal(t, vehicleModel.StatusAvailable, vehicle.Status)
	assert.Nil(t, vehicle.AssignedTo)
}

func TestSyncNeverTouchesManualStates(t *testing.T) {
	db := openTestDB(t)
	svc := newFixedService(db)

	maint := vehicleModel.Vehicle{PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace", Status: vehicleModel.StatusMaintenance}
	returning := vehicleModel.Vehicle{PlateNumber: "FLT-1002", Make: "Ford", Model: "Transit", Status: vehicleModel.StatusReturning}
	d := driverModel.Driver{Name: "Sam Wheeler", Status: driverModel.StatusAvailable}
	require.NoError(t, db.Create(&maint).Error)
	require.NoError(t, db.Create(&returning).Error)
	require.NoError(t, db.Create(&d).Error)

	// Even an active approved request cannot drag a maintenance vehicle out
	seedApproved(t, db, maint.ID, d.ID, day(2025, 6, 9), day(2025, 6, 12))

	require.NoError(t, svc.SyncActiveAssignments())

	var m, r vehicleModel.Vehicle
	require.NoError(t, db.First(&m, maint.ID).Error)
	require.NoError(t, db.First(&r, returning.ID).Error)
	assert.Equal(t, vehicleModel.StatusMaintenance, m.Status)
	assert.Equal(t, vehicleModel.StatusReturning, r.Status)
}

func TestSyncSkipsFutureTrips(t *testing.T) {
	db := openTestDB(t)
	svc := newFixedService(db)

	v := vehicleModel.Vehicle{PlateNumber: "FLT-1001", Make: "Toyota", Model: "Hiace", Status: vehicleModel.StatusAvailable}
	d := driverModel.Driver{Name: "Sam Wheeler", Status: driverModel.StatusAvailable}
	require.NoError(t, db.Create(&v).Error)
	require.NoError(t, db.Create(&d).Error)

	seedApproved(t, db, v.ID, d.ID, day(2025, 6, 20), day(2025, 6, 22))

	require.NoError(t, svc.SyncActiveAssignments())

	var vehicle vehicleModel.Vehicle
	require.NoError(t, db.First(&vehicle, v.ID).Error)
	assert.Equal(t, vehicleModel.StatusAvailable, vehicle.Status)
}
