package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/hr-engine/calendar"
)

// =============================================================================
// REQUEST SERVICE - submit, review and year rollover
// =============================================================================

// RequestService runs the request lifecycle on top of an Engine.
//
// Router, Notifier and Recorder are optional; NewRequestService fills no-op
// implementations. Their failures are logged and never fail a call.
type RequestService struct {
	Engine   *Engine
	Store    Store
	Router   Router
	Notifier Notifier
	Recorder Recorder
	Log      *zap.Logger
	Now      func() time.Time
}

// NewRequestService wires a service with no-op collaborators.
func NewRequestService(engine *Engine, store Store) *RequestService {
	return &RequestService{
		Engine:   engine,
		Store:    store,
		Router:   nopRouter{},
		Notifier: nopNotifier{},
		Recorder: nopRecorder{},
		Log:      zap.NewNop(),
		Now:      time.Now,
	}
}

// =============================================================================
// LEAVE
// =============================================================================

// SubmitLeave validates and saves a new or edited leave request. An empty
// status means PENDING. On validation failure nothing is written and the
// returned error is a *ValidationError.
func (s *RequestService) SubmitLeave(ctx context.Context, r LeaveRequest) (*LeaveRequest, error) {
	if r.Status == "" {
		r.Status = Pending
	}

	var previous *LeaveRequest
	if r.ID == "" {
		r.ID = uuid.NewString()
	} else {
		prev, err := s.Store.GetLeaveRequest(ctx, r.ID)
		switch {
		case err == nil:
			previous = prev
		case !errors.Is(err, ErrRequestNotFound):
			return nil, err
		}
	}

	if err := s.Engine.ValidateLeave(ctx, r); err != nil {
		s.rejected(KindLeave, err)
		return nil, err
	}

	now := s.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	if previous != nil {
		r.CreatedAt = previous.CreatedAt
		r.ReviewRequestedAt = previous.ReviewRequestedAt
	}
	if err := s.Store.SaveLeaveRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("save leave request %s: %w", r.ID, err)
	}
	s.Recorder.RequestSubmitted(KindLeave, "accepted")

	year := r.Start.In(s.Engine.Rules().Location()).Year()
	if _, err := s.Engine.GetOrCreateLedger(ctx, r.StaffID, year, r.Category); err != nil && !errors.Is(err, ErrDuplicateLedger) {
		s.Log.Warn("ledger bootstrap failed",
			zap.String("staff_id", string(r.StaffID)),
			zap.Int("year", year),
			zap.Error(err))
	}

	subject := Subject{Kind: KindLeave, ID: r.ID, StaffID: r.StaffID, Status: r.Status}
	if r.Status == Pending && r.ReviewRequestedAt == nil {
		if s.requestReview(ctx, subject) {
			stamp := s.Now()
			r.ReviewRequestedAt = &stamp
			if err := s.Store.SaveLeaveRequest(ctx, r); err != nil {
				return nil, fmt.Errorf("save leave request %s: %w", r.ID, err)
			}
		}
	}
	if previous != nil && previous.Status != r.Status && r.Status != Pending {
		s.notifyProcessed(ctx, subject)
	}
	return &r, nil
}

// ReviewLeave moves a PENDING leave request to APPROVED or REJECTED.
// Approval runs the submission checks again; rejection never fails them.
func (s *RequestService) ReviewLeave(ctx context.Context, id string, decision Status, comments string) (*LeaveRequest, error) {
	r, err := s.Store.GetLeaveRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(r.Status, decision); err != nil {
		return nil, err
	}

	r.Status = decision
	if comments != "" {
		r.Comments = comments
	}
	if decision == Approved {
		if err := s.Engine.ValidateLeave(ctx, *r); err != nil {
			s.rejected(KindLeave, err)
			return nil, err
		}
	}

	r.UpdatedAt = s.Now()
	if err := s.Store.SaveLeaveRequest(ctx, *r); err != nil {
		return nil, fmt.Errorf("save leave request %s: %w", r.ID, err)
	}
	s.Log.Info("leave request reviewed",
		zap.String("request_id", r.ID),
		zap.String("staff_id", string(r.StaffID)),
		zap.String("status", string(decision)))

	s.notifyProcessed(ctx, Subject{Kind: KindLeave, ID: r.ID, StaffID: r.StaffID, Status: r.Status})
	return r, nil
}

// =============================================================================
// OVERTIME
// =============================================================================

// SubmitOverTime validates and saves a new or edited overtime request.
func (s *RequestService) SubmitOverTime(ctx context.Context, r OverTimeRequest) (*OverTimeRequest, error) {
	if r.Status == "" {
		r.Status = Pending
	}

	var previous *OverTimeRequest
	if r.ID == "" {
		r.ID = uuid.NewString()
	} else {
		prev, err := s.Store.GetOverTimeRequest(ctx, r.ID)
		switch {
		case err == nil:
			previous = prev
		case !errors.Is(err, ErrRequestNotFound):
			return nil, err
		}
	}

	if err := s.Engine.ValidateOverTime(ctx, r); err != nil {
		s.rejected(KindOvertime, err)
		return nil, err
	}

	now := s.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	if previous != nil {
		r.CreatedAt = previous.CreatedAt
		r.ReviewRequestedAt = previous.ReviewRequestedAt
	}
	if err := s.Store.SaveOverTimeRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("save overtime request %s: %w", r.ID, err)
	}
	s.Recorder.RequestSubmitted(KindOvertime, "accepted")

	subject := Subject{Kind: KindOvertime, ID: r.ID, StaffID: r.StaffID, Status: r.Status}
	if r.Status == Pending && r.ReviewRequestedAt == nil {
		if s.requestReview(ctx, subject) {
			stamp := s.Now()
			r.ReviewRequestedAt = &stamp
			if err := s.Store.SaveOverTimeRequest(ctx, r); err != nil {
				return nil, fmt.Errorf("save overtime request %s: %w", r.ID, err)
			}
		}
	}
	if previous != nil && previous.Status != r.Status && r.Status != Pending {
		s.notifyProcessed(ctx, subject)
	}
	return &r, nil
}

// ReviewOverTime moves a PENDING overtime request to APPROVED or REJECTED.
func (s *RequestService) ReviewOverTime(ctx context.Context, id string, decision Status, comments string) (*OverTimeRequest, error) {
	r, err := s.Store.GetOverTimeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(r.Status, decision); err != nil {
		return nil, err
	}

	r.Status = decision
	if comments != "" {
		r.Comments = comments
	}
	if decision == Approved {
		if err := s.Engine.ValidateOverTime(ctx, *r); err != nil {
			s.rejected(KindOvertime, err)
			return nil, err
		}
	}

	r.UpdatedAt = s.Now()
	if err := s.Store.SaveOverTimeRequest(ctx, *r); err != nil {
		return nil, fmt.Errorf("save overtime request %s: %w", r.ID, err)
	}

	s.notifyProcessed(ctx, Subject{Kind: KindOvertime, ID: r.ID, StaffID: r.StaffID, Status: r.Status})
	return r, nil
}

// =============================================================================
// YEAR ROLLOVER AND FREE DAYS
// =============================================================================

// OpenYear creates the missing ledgers of year for every staff member
// employed that year. It returns how many ledgers were created.
func (s *RequestService) OpenYear(ctx context.Context, year int) (int, error) {
	profiles, err := s.Store.ListStaff(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range profiles {
		if !p.ActiveIn(year) {
			continue
		}
		for _, c := range Categories() {
			_, isNew, err := s.Engine.getOrCreateLedger(ctx, p.ID, year, c)
			if errors.Is(err, ErrDuplicateLedger) {
				// Lost a race; the row exists now.
				_, err = s.Store.GetLedger(ctx, p.ID, year, c)
			}
			if err != nil {
				return created, fmt.Errorf("open %d for %s: %w", year, p.ID, err)
			}
			if isNew {
				created++
			}
		}
	}
	return created, nil
}

// CreateFreeDays materializes the template for years starting at startYear
// and stores every day. A date that already exists stops the run with
// calendar.ErrDuplicateFreeDay.
func (s *RequestService) CreateFreeDays(ctx context.Context, template []calendar.RecurringDay, startYear, years int) ([]calendar.FreeDay, error) {
	days := calendar.Materialize(template, startYear, years)
	for i := range days {
		days[i].ID = uuid.NewString()
		if err := s.Store.CreateFreeDay(ctx, days[i]); err != nil {
			return days[:i], fmt.Errorf("create free day %s: %w", days[i].Date, err)
		}
	}
	return days, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func checkTransition(from, to Status) error {
	if from != Pending || (to != Approved && to != Rejected) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (s *RequestService) rejected(kind string, err error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return
	}
	s.Recorder.RequestSubmitted(kind, "rejected")
	for field := range verr.Fields {
		s.Recorder.ValidationFailed(kind, field)
	}
}

// requestReview asks the router for reviewers and notifies each of them.
// It reports whether routing succeeded.
func (s *RequestService) requestReview(ctx context.Context, subject Subject) bool {
	reviewers, err := s.Router.AssignReviewers(ctx, subject)
	if err != nil {
		s.Log.Warn("review routing failed",
			zap.String("kind", subject.Kind),
			zap.String("request_id", subject.ID),
			zap.Error(err))
		return false
	}
	for _, reviewer := range reviewers {
		s.notify(ctx, applicationNotification(subject.Kind, reviewer, subject))
	}
	return true
}

func (s *RequestService) notifyProcessed(ctx context.Context, subject Subject) {
	p, err := s.Store.GetStaff(ctx, subject.StaffID)
	if err != nil {
		s.Log.Warn("processed notification skipped",
			zap.String("request_id", subject.ID),
			zap.Error(err))
		return
	}
	if p.Email == "" {
		return
	}
	to := Recipient{StaffID: p.ID, Name: p.Name(), Email: p.Email}
	s.notify(ctx, processedNotification(subject.Kind, to, subject))
}

func (s *RequestService) notify(ctx context.Context, n Notification) {
	if err := s.Notifier.Notify(ctx, n); err != nil {
		s.Recorder.NotificationFailed()
		s.Log.Warn("notification failed",
			zap.String("recipient", n.Recipient.Email),
			zap.String("subject", n.Subject),
			zap.String("request_id", n.Related.ID),
			zap.Error(err))
	}
}
