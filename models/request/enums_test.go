package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusHelpers(t *testing.T) {
	for _, s := range GetAllStatuses() {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, Status("on_hold").IsValid())

	assert.True(t, StatusConcluded.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRejectedNewRequest.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())

	assert.True(t, StatusPendingAdminApproval.HoldsAssignment())
	assert.True(t, StatusApproved.HoldsAssignment())
	assert.False(t, StatusPendingDispatchAssignment.HoldsAssignment())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPendingDispatchAssignment, StatusPendingAdminApproval))
	assert.True(t, CanTransition(StatusPendingAdminApproval, StatusApproved))
	assert.True(t, CanTransition(StatusPendingAdminApproval, StatusRejectedReassignDispatch))
	assert.True(t, CanTransition(StatusRejectedReassignDispatch, StatusPendingAdminApproval))
	assert.True(t, CanTransition(StatusApproved, StatusConcluded))

	// No skipping admin review, no resurrecting terminal requests
	assert.False(t, CanTransition(StatusPendingDispatchAssignment, StatusApproved))
	assert.False(t, CanTransition(StatusConcluded, StatusApproved))
	assert.False(t, CanTransition(StatusCancelled, StatusPendingDispatchAssignment))
	assert.False(t, CanTransition(StatusRejectedNewRequest, StatusPendingAdminApproval))
}

func TestRejectionReasonTargets(t *testing.T) {
	assert.Equal(t, StatusRejectedReassignDispatch, RejectionReassignVehicle.TargetStatus())
	assert.Equal(t, StatusRejectedReassignDispatch, RejectionReassignDriver.TargetStatus())
	assert.Equal(t, StatusRejectedNewRequest, RejectionNewRequest.TargetStatus())

	assert.True(t, RejectionReassignVehicle.IsValid())
	assert.False(t, RejectionReason("disliked").IsValid())
}
