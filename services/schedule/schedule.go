package schedule

import (
	"time"

	requestModel "fleet-dispatch/models/request"
	"fleet-dispatch/services/apperrors"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// ResourceType selects which assignment column a conflict check runs against.
type ResourceType string

const (
	ResourceVehicle ResourceType = "vehicle"
	ResourceDriver  ResourceType = "driver"
)

// StrictStatuses are the statuses that count as a real reservation: anything
// already past dispatch assignment. Used when dispatch assigns a slot and
// when an admin approves.
var StrictStatuses = []requestModel.Status{
	requestModel.StatusPendingAdminApproval,
	requestModel.StatusApproved,
}

// AdvisoryStatuses feed the soft-conflict warnings shown to admins for
// requests still queued behind dispatch. Advisory hits never block.
var AdvisoryStatuses = []requestModel.Status{
	requestModel.StatusPendingDispatchAssignment,
	requestModel.StatusPendingAdminApproval,
	requestModel.StatusRejectedReassignDispatch,
}

// ConflictInfo describes one overlapping reservation in enough detail to
// build a human warning message.
type ConflictInfo struct {
	RequestID     uint      `json:"request_id"`
	RequestorName string    `json:"requestor_name"`
	Destination   string    `json:"destination"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

// NormalizeRange derives the canonical inclusive [start, end] calendar-day
// interval for a request. Start falls back to the creation date when no
// departure date is set; end falls back to start. Returns (nil, nil) when no
// usable start exists; callers must treat such a request as unschedulable.
func NormalizeRange(r *requestModel.Request) (*time.Time, *time.Time) {
	var start time.Time
	switch {
	case r.DepartureDate != nil:
		start = now.With(*r.DepartureDate).BeginningOfDay()
	case !r.CreatedAt.IsZero():
		start = now.With(r.CreatedAt).BeginningOfDay()
	default:
		return nil, nil
	}

	end := start
	if r.ReturnDate != nil {
		end = now.With(*r.ReturnDate).BeginningOfDay()
		if end.Before(start) {
			// Defensive clamp, not a validation error
			end = start
		}
	}
	return &start, &end
}

// Overlaps tests two inclusive date ranges. Ranges that touch on a boundary
// day conflict: [a0,a1] and [b0,b1] overlap iff a0 <= b1 and b0 <= a1.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// Covers reports whether day falls inside the inclusive range. A range ending
// exactly on day still covers it.
func Covers(start, end, day time.Time) bool {
	return !start.After(day) && !end.Before(day)
}

// FindConflict returns the first reservation of one of the given statuses
// that holds the resource over a range overlapping [start, end], or nil when
// the slot is free. excludeRequestID removes a request from consideration so
// it can be re-checked against other reservations only. The overlap predicate
// runs per candidate row on its normalized range; unschedulable rows are
// skipped. Runs against whatever db handle the caller passes, so callers that
// need transactional reads pass their tx.
func FindConflict(db *gorm.DB, resource ResourceType, resourceID uint, start, end time.Time, excludeRequestID *uint, statuses []requestModel.Status) (*ConflictInfo, error) {
	column := "assigned_vehicle_id"
	if resource == ResourceDriver {
		column = "assigned_driver_id"
	}

	q := db.Model(&requestModel.Request{}).
		Where(column+" = ?", resourceID).
		Where("status IN ?", statuses)
	if excludeRequestID != nil {
		q = q.Where("id <> ?", *excludeRequestID)
	}

	var reservations []requestModel.Request
	if err := q.Find(&reservations).Error; err != nil {
		return nil, apperrors.Store("failed to load reservations for conflict check", err)
	}

	for i := range reservations {
		resStart, resEnd := NormalizeRange(&reservations[i])
		if resStart == nil {
			continue
		}
		if Overlaps(start, end, *resStart, *resEnd) {
			return &ConflictInfo{
				RequestID:     reservations[i].ID,
				RequestorName: reservations[i].RequestorName,
				Destination:   reservations[i].Destination,
				Start:         *resStart,
				End:           *resEnd,
			}, nil
		}
	}
	return nil, nil
}

// HasConflict is the boolean form of FindConflict used by the strict regime,
// where only existence matters.
func HasConflict(db *gorm.DB, resource ResourceType, resourceID uint, start, end time.Time, excludeRequestID *uint, statuses []requestModel.Status) (bool, error) {
	info, err := FindConflict(db, resource, resourceID, start, end, excludeRequestID, statuses)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}
