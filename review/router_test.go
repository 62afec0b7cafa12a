package review_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/review"
	"github.com/warp/hr-engine/staff"
	"github.com/warp/hr-engine/store/memory"
)

func seed(t *testing.T, store *memory.Store, id, email string, supervisor staff.ID, groups ...string) {
	t.Helper()
	p := staff.NewProfile(id, "")
	p.ID = staff.ID(id)
	p.Email = email
	p.SupervisorID = supervisor
	p.Groups = groups
	require.NoError(t, store.SaveStaff(context.Background(), p))
}

func emails(rs []leave.Recipient) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Email)
	}
	return out
}

func TestAssignReviewers_SupervisorThenAdminsThenAddresses(t *testing.T) {
	// GIVEN: dev reports to lead; lead and hr are in hr-admins
	// WHEN: Routing a request from dev
	// THEN: lead once, then hr, then the configured address
	store := memory.New()
	seed(t, store, "lead", "lead@example.com", "", "hr-admins")
	seed(t, store, "hr", "hr@example.com", "", "hr-admins")
	seed(t, store, "dev", "dev@example.com", "lead")

	router := review.NewSupervisorRouter(store, "hr-admins", []string{"HR@example.com", "desk@example.com", " "})
	got, err := router.AssignReviewers(context.Background(), leave.Subject{Kind: leave.KindLeave, ID: "r1", StaffID: "dev"})
	require.NoError(t, err)

	assert.Equal(t, []string{"lead@example.com", "hr@example.com", "desk@example.com"}, emails(got))
	assert.Equal(t, staff.ID("lead"), got[0].StaffID)
}

func TestAssignReviewers_NoSupervisorNoGroup(t *testing.T) {
	store := memory.New()
	seed(t, store, "solo", "solo@example.com", "")

	router := review.NewSupervisorRouter(store, "", nil)
	got, err := router.AssignReviewers(context.Background(), leave.Subject{StaffID: "solo"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssignReviewers_UnknownApplicant(t *testing.T) {
	router := review.NewSupervisorRouter(memory.New(), "hr-admins", nil)

	_, err := router.AssignReviewers(context.Background(), leave.Subject{StaffID: "ghost"})
	require.ErrorIs(t, err, staff.ErrNotFound)
}

func TestAssignReviewers_AddressOnlyReviewerHasNoName(t *testing.T) {
	// GIVEN: A configured HR desk address that is not a staff profile
	store := memory.New()
	seed(t, store, "dev", "dev@example.com", "")

	// WHEN: Routing a request from dev
	router := review.NewSupervisorRouter(store, "", []string{"desk@example.com"})
	got, err := router.AssignReviewers(context.Background(), leave.Subject{Kind: leave.KindLeave, ID: "r1", StaffID: "dev"})

	// THEN: The desk is addressed without borrowing the applicant's name
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, leave.Recipient{Email: "desk@example.com"}, got[0])
}
