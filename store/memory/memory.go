// Package memory provides an in-memory implementation of every store interface.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	staff     map[staff.ID]staff.Profile
	roles     map[string]staff.Role
	freeDays  map[calendar.Date]calendar.FreeDay
	ledgers   map[ledgerKey]leave.AnnualLeave
	leaves    map[string]leave.LeaveRequest
	overtimes map[string]leave.OverTimeRequest
}

type ledgerKey struct {
	StaffID  staff.ID
	Year     int
	Category leave.Category
}

func New() *Store {
	return &Store{
		staff:     make(map[staff.ID]staff.Profile),
		roles:     make(map[string]staff.Role),
		freeDays:  make(map[calendar.Date]calendar.FreeDay),
		ledgers:   make(map[ledgerKey]leave.AnnualLeave),
		leaves:    make(map[string]leave.LeaveRequest),
		overtimes: make(map[string]leave.OverTimeRequest),
	}
}

// =============================================================================
// STAFF
// =============================================================================

func (m *Store) SaveStaff(_ context.Context, p staff.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff[p.ID] = cloneProfile(p)
	return nil
}

func (m *Store) GetStaff(_ context.Context, id staff.ID) (*staff.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.staff[id]
	if !ok {
		return nil, staff.ErrNotFound
	}
	p = cloneProfile(p)
	return &p, nil
}

func (m *Store) ListStaff(_ context.Context) ([]staff.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]staff.Profile, 0, len(m.staff))
	for _, p := range m.staff {
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) ListStaffInGroup(ctx context.Context, group string) ([]staff.Profile, error) {
	all, _ := m.ListStaff(ctx)
	var out []staff.Profile
	for _, p := range all {
		if p.InGroup(group) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Store) SaveRole(_ context.Context, r staff.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.roles {
		if id != r.ID && existing.Name == r.Name {
			return staff.ErrDuplicateRole
		}
	}
	m.roles[r.ID] = r
	return nil
}

func (m *Store) GetRole(_ context.Context, id string) (*staff.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, staff.ErrRoleNotFound
	}
	return &r, nil
}

func (m *Store) ListRoles(_ context.Context) ([]staff.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]staff.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// FREE DAYS
// =============================================================================

func (m *Store) CreateFreeDay(_ context.Context, fd calendar.FreeDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.freeDays[fd.Date]; ok {
		return calendar.ErrDuplicateFreeDay
	}
	m.freeDays[fd.Date] = fd
	return nil
}

func (m *Store) FreeDays(_ context.Context, fromYear, toYear int) ([]calendar.FreeDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []calendar.FreeDay
	for d, fd := range m.freeDays {
		if d.Year >= fromYear && d.Year <= toYear {
			out = append(out, fd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// LEDGERS
// =============================================================================

func (m *Store) GetLedger(_ context.Context, staffID staff.ID, year int, category leave.Category) (*leave.AnnualLeave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[ledgerKey{staffID, year, category}]
	if !ok {
		return nil, leave.ErrLedgerNotFound
	}
	return &l, nil
}

func (m *Store) CreateLedger(_ context.Context, l leave.AnnualLeave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{l.StaffID, l.Year, l.Category}
	if _, ok := m.ledgers[k]; ok {
		return leave.ErrDuplicateLedger
	}
	m.ledgers[k] = l
	return nil
}

func (m *Store) UpdateLedger(_ context.Context, l leave.AnnualLeave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{l.StaffID, l.Year, l.Category}
	if _, ok := m.ledgers[k]; !ok {
		return leave.ErrLedgerNotFound
	}
	m.ledgers[k] = l
	return nil
}

func (m *Store) ListLedgers(_ context.Context, staffID staff.ID) ([]leave.AnnualLeave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.AnnualLeave
	for k, l := range m.ledgers {
		if k.StaffID == staffID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Store) SaveLeaveRequest(_ context.Context, r leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves[r.ID] = r
	return nil
}

func (m *Store) GetLeaveRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.leaves[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return &r, nil
}

func (m *Store) LeaveRequests(_ context.Context, f leave.LeaveFilter) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range m.leaves {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Store) SaveOverTimeRequest(_ context.Context, r leave.OverTimeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overtimes[r.ID] = r
	return nil
}

func (m *Store) GetOverTimeRequest(_ context.Context, id string) (*leave.OverTimeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.overtimes[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return &r, nil
}

func (m *Store) OverTimeRequests(_ context.Context, f leave.OverTimeFilter) ([]leave.OverTimeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.OverTimeRequest
	for _, r := range m.overtimes {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func cloneProfile(p staff.Profile) staff.Profile {
	if p.Groups != nil {
		p.Groups = append([]string(nil), p.Groups...)
	}
	if p.Data != nil {
		data := make(map[string]string, len(p.Data))
		for k, v := range p.Data {
			data[k] = v
		}
		p.Data = data
	}
	return p
}

var (
	_ leave.Store = (*Store)(nil)
	_ staff.Store = (*Store)(nil)
)
