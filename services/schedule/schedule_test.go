package schedule

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

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{
			name:   "disjoint ranges",
			aStart: day(2025, 6, 1), aEnd: day(2025, 6, 5),
			bStart: day(2025, 6, 6), bEnd: day(2025, 6, 10),
			want: false,
		},
		{
			name:   "touching boundary day conflicts",
			aStart: day(2025, 6, 1), aEnd: day(2025, 6, 5),
			bStart: day(2025, 6, 5), bEnd: day(2025, 6, 10),
			want: true,
		},
		{
			name:   "contained range",
			aStart: day(2025, 6, 1), aEnd: day(2025, 6, 10),
			bStart: day(2025, 6, 3), bEnd: day(2025, 6, 4),
			want: true,
		},
		{
			name:   "identical single-day ranges",
			aStart: day(2025, 6, 1), aEnd: day(2025, 6, 1),
			bStart: day(2025, 6, 1), bEnd: day(2025, 6, 1),
			want: true,
		},
		{
			name:   "partial overlap",
			aStart: day(2025, 6, 1), aEnd: day(2025, 6, 7),
			bStart: day(2025, 6, 5), bEnd: day(2025, 6, 12),
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			// Overlap is symmetric
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
		})
	}
}

func TestCovers(t *testing.T) {
	start, end := day(2025, 6, 1), day(2025, 6, 5)

	assert.True(t, Covers(start, end, day(2025, 6, 1)))
	assert.True(t, Covers(start, end, day(2025, 6, 3)))
	// A range ending today still covers today
	assert.True(t, Covers(start, end, day(2025, 6, 5)))
	assert.False(t, Covers(start, end, day(2025, 6, 6)))
	assert.False(t, Covers(start, end, day(2025, 5, 31)))
}

func TestNormalizeRange(t *testing.T) {
	t.Run("departure and return dates", func(t *testing.T) {
		r := &requestModel.Request{
			DepartureDate: datePtr(time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)),
			ReturnDate:    datePtr(time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)),
		}
		start, end := NormalizeRange(r)
		require.NotNil(t, start)
		assert.Equal(t, day(2025, 6, 1), *start)
		assert.Equal(t, day(2025, 6, 3), *end)
	})

	t.Run("missing return falls back to start", func(t *testing.T) {
		r := &requestModel.Request{
			DepartureDate: datePtr(day(2025, 6, 1)),
		}
		start, end := NormalizeRange(r)
		require.NotNil(t, start)
		assert.Equal(t, *start, *end)
	})

	t.Run("missing departure falls back to creation date", func(t *testing.T) {
		r := &requestModel.Request{
			CreatedAt:  time.Date(2025, 5, 20, 8, 15, 0, 0, time.UTC),
			ReturnDate: datePtr(day(2025, 5, 22)),
		}
		start, end := NormalizeRange(r)
		require.NotNil(t, start)
		assert.Equal(t, day(2025, 5, 20), *start)
		assert.Equal(t, day(2025, 5, 22), *end)
	})

	t.Run("return before departure clamps to start", func(t *testing.T) {
		r := &requestModel.Request{
			DepartureDate: datePtr(day(2025, 6, 10)),
			ReturnDate:    datePtr(day(2025, 6, 2)),
		}
		start, end := NormalizeRange(r)
		require.NotNil(t, start)
		assert.Equal(t, day(2025, 6, 10), *start)
		assert.Equal(t, day(2025, 6, 10), *end)
	})

	t.Run("no usable start yields nil", func(t *testing.T) {
		start, end := NormalizeRange(&requestModel.Request{})
		assert.Nil(t, start)
		assert.Nil(t, end)
	})
}

func TestFindConflict(t *testing.T) {
	db := openTestDB(t)

	vehicleID := uint(1)
	driverID := uint(1)

	seed := func(status requestModel.Status, from, to time.Time, withDriver bool) requestModel.Request {
		r := requestModel.Request{
			UserID:            1,
			RequestorName:     "Jordan Reyes",
			Destination:       "Regional depot",
			Purpose:           "Site visit",
			DepartureDate:     datePtr(from),
			ReturnDate:        datePtr(to),
			Status:            status,
			AssignedVehicleID: &vehicleID,
			CreatedBy:         "1",
		}
		if withDriver {
			r.AssignedDriverID = &driverID
		}
		require.NoError(t, db.Create(&r).Error)
		return r
	}

	reserved := seed(requestModel.StatusApproved, day(2025, 6, 1), day(2025, 6, 3), true)
	queued := seed(requestModel.StatusPendingDispatchAssignment, day(2025, 6, 10), day(2025, 6, 12), false)

	t.Run("overlapping strict reservation is found", func(t *testing.T) {
		info, err := FindConflict(db, ResourceVehicle, vehicleID, day(2025, 6, 3), day(2025, 6, 5), nil, StrictStatuses)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, reserved.ID, info.RequestID)
		assert.Equal(t, "Jordan Reyes", info.RequestorName)
		assert.Equal(t, day(2025, 6, 1), info.Start)
		assert.Equal(t, day(2025, 6, 3), info.End)
	})

	t.Run("adjacent non-overlapping range is free", func(t *testing.T) {
		info, err := FindConflict(db, ResourceVehicle, vehicleID, day(2025, 6, 4), day(2025, 6, 5), nil, StrictStatuses)
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("queued requests do not count in the strict regime", func(t *testing.T) {
		info, err := FindConflict(db, ResourceVehicle, vehicleID, day(2025, 6, 10), day(2025, 6, 11), nil, StrictStatuses)
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("queued requests count in the advisory regime", func(t *testing.T) {
		info, err := FindConflict(db, ResourceVehicle, vehicleID, day(2025, 6, 10), day(2025, 6, 11), nil, AdvisoryStatuses)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, queued.ID, info.RequestID)
	})

	t.Run("excluded request is not its own conflict", func(t *testing.T) {
		info, err := FindConflict(db, ResourceVehicle, vehicleID, day(2025, 6, 1), day(2025, 6, 3), &reserved.ID, StrictStatuses)
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("driver column is checked independently", func(t *testing.T) {
		info, err := FindConflict(db, ResourceDriver, driverID, day(2025, 6, 2), day(2025, 6, 2), nil, StrictStatuses)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, reserved.ID, info.RequestID)

		// The queued request holds no driver, so the driver slot is free there
		info, err = FindConflict(db, ResourceDriver, driverID, day(2025, 6, 10), day(2025, 6, 12), nil, AdvisoryStatuses)
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("other resource ids never conflict", func(t *testing.T) {
		has, err := HasConflict(db, ResourceVehicle, 99, day(2025, 6, 1), day(2025, 6, 3), nil, StrictStatuses)
		require.NoError(t, err)
		assert.False(t, has)
	})
}
