package staff

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidProfile wraps structural validation failures.
var ErrInvalidProfile = errors.New("invalid staff profile")

// NewProfile returns a profile carrying the default allowances.
func NewProfile(firstName, lastName string) Profile {
	return Profile{
		FirstName: firstName,
		LastName:  lastName,
		Sex:       SexNotKnown,
		LeaveDays: DefaultLeaveDays,
		SickDays:  DefaultSickDays,
	}
}

// Service manages profiles and keeps the supervisor tree acyclic on write.
// Writes that touch a supervisor link are serialized so the tree check and
// the save see the same tree.
type Service struct {
	store    Store
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time

	treeMu sync.Mutex
}

// NewService builds a Service. nil validate and log fall back to defaults.
func NewService(store Store, validate *validator.Validate, log *zap.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, validate: validate, log: log, now: time.Now}
}

// Get returns a profile or ErrNotFound.
func (s *Service) Get(ctx context.Context, id ID) (*Profile, error) {
	return s.store.GetStaff(ctx, id)
}

// List returns all profiles.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.store.ListStaff(ctx)
}

// Create stores a new profile, assigning an id when missing.
func (s *Service) Create(ctx context.Context, p Profile) (*Profile, error) {
	if p.ID == "" {
		p.ID = ID(uuid.NewString())
	}
	if p.Sex == "" {
		p.Sex = SexNotKnown
	}
	if err := s.check(ctx, p); err != nil {
		return nil, err
	}

	s.treeMu.Lock()
	defer s.treeMu.Unlock()
	if p.SupervisorID != "" {
		if _, err := s.checkedTree(ctx, p.ID, p.SupervisorID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.store.SaveStaff(ctx, p); err != nil {
		return nil, fmt.Errorf("save staff %s: %w", p.ID, err)
	}
	s.log.Info("staff created", zap.String("staff_id", string(p.ID)))
	return &p, nil
}

// Update replaces a stored profile. Supervisor changes go through the tree check.
func (s *Service) Update(ctx context.Context, p Profile) (*Profile, error) {
	if err := s.check(ctx, p); err != nil {
		return nil, err
	}

	s.treeMu.Lock()
	defer s.treeMu.Unlock()
	existing, err := s.store.GetStaff(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if p.SupervisorID != "" && p.SupervisorID != existing.SupervisorID {
		if _, err := s.checkedTree(ctx, p.ID, p.SupervisorID); err != nil {
			return nil, err
		}
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	if err := s.store.SaveStaff(ctx, p); err != nil {
		return nil, fmt.Errorf("save staff %s: %w", p.ID, err)
	}
	return &p, nil
}

// AssignSupervisor sets or clears (empty supervisor) the supervisor of id.
// Clearing never loads the tree, so a loop written around the Service can
// still be broken here.
func (s *Service) AssignSupervisor(ctx context.Context, id, supervisor ID) (*Profile, error) {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()

	p, err := s.store.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	if supervisor == "" {
		p.SupervisorID = ""
		p.UpdatedAt = s.now()
		if err := s.store.SaveStaff(ctx, *p); err != nil {
			return nil, fmt.Errorf("save staff %s: %w", id, err)
		}
		return p, nil
	}
	if _, err := s.checkedTree(ctx, id, supervisor); err != nil {
		s.log.Warn("supervisor assignment refused",
			zap.String("staff_id", string(id)),
			zap.String("supervisor_id", string(supervisor)),
			zap.Error(err))
		return nil, err
	}

	p.SupervisorID = supervisor
	p.UpdatedAt = s.now()
	if err := s.store.SaveStaff(ctx, *p); err != nil {
		return nil, fmt.Errorf("save staff %s: %w", id, err)
	}
	return p, nil
}

// Hierarchy loads the current supervisor tree.
func (s *Service) Hierarchy(ctx context.Context) (*Hierarchy, error) {
	all, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	return NewHierarchy(all)
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// CreateRole stores a role, assigning an id when missing.
func (s *Service) CreateRole(ctx context.Context, r Role) (*Role, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := s.validate.StructCtx(ctx, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := s.store.SaveRole(ctx, r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) check(ctx context.Context, p Profile) error {
	if err := s.validate.StructCtx(ctx, p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidProfile)
	}
	if p.RoleID != "" {
		if _, err := s.store.GetRole(ctx, p.RoleID); err != nil {
			return err
		}
	}
	return nil
}

// checkedTree must be called with treeMu held.
func (s *Service) checkedTree(ctx context.Context, id, supervisor ID) (*Hierarchy, error) {
	if _, err := s.store.GetStaff(ctx, supervisor); err != nil {
		return nil, fmt.Errorf("supervisor %s: %w", supervisor, err)
	}
	h, err := s.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.SetSupervisor(id, supervisor); err != nil {
		return nil, err
	}
	return h, nil
}
