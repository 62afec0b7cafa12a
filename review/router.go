// Package review picks who is asked to approve a leave or overtime request.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
)

// SupervisorRouter assigns the applicant's supervisor, every member of the
// admin group and each configured HR address. A reviewer reached through
// more than one path is listed once, in that order.
type SupervisorRouter struct {
	Staff       staff.Reader
	AdminGroup  string
	AdminEmails []string
}

// NewSupervisorRouter builds a router over the staff directory.
func NewSupervisorRouter(directory staff.Reader, adminGroup string, adminEmails []string) *SupervisorRouter {
	return &SupervisorRouter{Staff: directory, AdminGroup: adminGroup, AdminEmails: adminEmails}
}

// AssignReviewers implements leave.Router.
func (r *SupervisorRouter) AssignReviewers(ctx context.Context, s leave.Subject) ([]leave.Recipient, error) {
	applicant, err := r.Staff.GetStaff(ctx, s.StaffID)
	if err != nil {
		return nil, fmt.Errorf("load applicant %s: %w", s.StaffID, err)
	}

	var out []leave.Recipient
	seen := make(map[string]bool)
	add := func(rc leave.Recipient) {
		key := reviewerKey(rc)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, rc)
	}

	if applicant.SupervisorID != "" {
		sup, err := r.Staff.GetStaff(ctx, applicant.SupervisorID)
		switch {
		case err == nil:
			add(recipientOf(*sup))
		case !errors.Is(err, staff.ErrNotFound):
			return nil, fmt.Errorf("load supervisor %s: %w", applicant.SupervisorID, err)
		}
	}

	if r.AdminGroup != "" {
		admins, err := r.Staff.ListStaffInGroup(ctx, r.AdminGroup)
		if err != nil {
			return nil, fmt.Errorf("list group %s: %w", r.AdminGroup, err)
		}
		for _, p := range admins {
			add(recipientOf(p))
		}
	}

	for _, email := range r.AdminEmails {
		if email = strings.TrimSpace(email); email != "" {
			add(leave.Recipient{Email: email})
		}
	}
	return out, nil
}

func recipientOf(p staff.Profile) leave.Recipient {
	return leave.Recipient{StaffID: p.ID, Name: p.Name(), Email: p.Email}
}

func reviewerKey(rc leave.Recipient) string {
	if rc.Email != "" {
		return strings.ToLower(rc.Email)
	}
	return string(rc.StaffID)
}

var _ leave.Router = (*SupervisorRouter)(nil)
