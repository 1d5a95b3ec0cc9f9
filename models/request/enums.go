package request

// Status of a trip request.
type Status string

const (
	StatusPendingDispatchAssignment Status = "pending_dispatch_assignment"
	StatusPendingAdminApproval      Status = "pending_admin_approval"
	StatusApproved                  Status = "approved"
	StatusConcluded                 Status = "concluded"
	StatusRejectedReassignDispatch  Status = "rejected_reassign_dispatch"
	StatusRejectedNewRequest        Status = "rejected_new_request"
	StatusCancelled                 Status = "cancelled"
)

// Helper methods for Status
func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingDispatchAssignment, StatusPendingAdminApproval, StatusApproved,
		StatusConcluded, StatusRejectedReassignDispatch, StatusRejectedNewRequest, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transition leaves this status.
// rejected_new_request is terminal: the request must be resubmitted as a
// brand-new entity.
func (s Status) IsTerminal() bool {
	return s == StatusConcluded || s == StatusCancelled || s == StatusRejectedNewRequest
}

// HoldsAssignment returns true for statuses in which assigned_vehicle_id and
// assigned_driver_id may be non-null.
func (s Status) HoldsAssignment() bool {
	return s == StatusPendingAdminApproval || s == StatusApproved
}

// AllowTransition defines the request status machine as an adjacency list.
// Cancellation is modelled separately: which source statuses may cancel is a
// per-role policy supplied by the caller, not a property of the machine.
var AllowTransition = map[Status][]Status{
	StatusPendingDispatchAssignment: {StatusPendingAdminApproval, StatusCancelled},
	StatusRejectedReassignDispatch:  {StatusPendingAdminApproval, StatusCancelled},
	StatusPendingAdminApproval:      {StatusApproved, StatusRejectedReassignDispatch, StatusRejectedNewRequest, StatusCancelled},
	StatusApproved:                  {StatusConcluded, StatusCancelled},
	StatusConcluded:                 {},
	StatusRejectedNewRequest:        {},
	StatusCancelled:                 {},
}

// CanTransition reports whether from -> to is an allowed status transition.
func CanTransition(from, to Status) bool {
	for _, s := range AllowTransition[from] {
		if s == to {
			return true
		}
	}
	return false
}

// GetAllStatuses returns all valid request statuses
func GetAllStatuses() []Status {
	return []Status{
		StatusPendingDispatchAssignment,
		StatusPendingAdminApproval,
		StatusApproved,
		StatusConcluded,
		StatusRejectedReassignDispatch,
		StatusRejectedNewRequest,
		StatusCancelled,
	}
}

// RejectionReason given by an admin when sending a request back.
type RejectionReason string

const (
	RejectionReassignVehicle RejectionReason = "reassign_vehicle"
	RejectionReassignDriver  RejectionReason = "reassign_driver"
	RejectionNewRequest      RejectionReason = "new_request"
)

func (r RejectionReason) IsValid() bool {
	switch r {
	case RejectionReassignVehicle, RejectionReassignDriver, RejectionNewRequest:
		return true
	default:
		return false
	}
}

// TargetStatus returns the status a rejection with this reason moves the
// request to. Reassign reasons send it back to dispatch; new_request is
// terminal.
func (r RejectionReason) TargetStatus() Status {
	if r == RejectionNewRequest {
		return StatusRejectedNewRequest
	}
	return StatusRejectedReassignDispatch
}
