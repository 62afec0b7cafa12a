/*
Package sqlstore provides a SQL-backed implementation of the storage interfaces.

PURPOSE:
  Implements leave.Store and staff.Store over sqlx. SQLite (mattn/go-sqlite3)
  is the default; PostgreSQL (lib/pq) runs the same schema and queries, with
  placeholders rebound per driver.

INTERFACES IMPLEMENTED:
  staff.Store:  profiles and roles
  leave.Store:  free days, annual leave ledgers, leave and overtime requests

KEY TABLES:
  staff:             profiles, groups and free-form data as JSON text
  roles:             unique name
  free_days:         unique day
  annual_leave:      unique (staff_id, year, leave_type)
  leave_requests:    start/end as fixed-width UTC text so range filters sort
  overtime_requests: day + wall clock start/end

UNIQUENESS:
  Unique constraints are the backstop for concurrent ledger bootstrap and
  free-day creation. Driver errors are translated:
  - sqlite3.ErrConstraintUnique / ErrConstraintPrimaryKey
  - postgres 23505 unique_violation
  into leave.ErrDuplicateLedger, calendar.ErrDuplicateFreeDay and
  staff.ErrDuplicateRole.

CONCURRENCY:
  SQLite is opened with WAL and a single connection; a RWMutex serializes
  writers. PostgreSQL relies on the database.

USAGE:
  store, err := sqlstore.Open("sqlite3", "./data/hr.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - leave/store.go, staff/staff.go: interface definitions
  - store/memory: in-memory implementation for tests
*/
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// timeLayout is fixed width so UTC values compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces over SQL.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

// Open connects with driver and migrates the schema.
// Use ":memory:" with sqlite3 for an in-memory database.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_journal_mode=WAL"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(30 * time.Minute)
	}

	store := New(db)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// New wraps an open connection without touching the schema.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema when missing.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
	CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role_id TEXT NOT NULL DEFAULT '',
		sex TEXT NOT NULL DEFAULT 'not-known',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		birthday TEXT,
		leave_days INTEGER NOT NULL DEFAULT 21,
		sick_days INTEGER NOT NULL DEFAULT 10,
		overtime_allowed BOOLEAN NOT NULL DEFAULT FALSE,
		start_date TEXT,
		end_date TEXT,
		supervisor_id TEXT NOT NULL DEFAULT '',
		groups_json TEXT NOT NULL DEFAULT '[]',
		data_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_staff_supervisor ON staff(supervisor_id);

	CREATE TABLE IF NOT EXISTS free_days (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		day TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_free_days_year ON free_days(year);

	CREATE TABLE IF NOT EXISTS annual_leave (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		allowed_days TEXT NOT NULL,
		carried_over_days TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One ledger per staff, year and category; guards concurrent bootstrap.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_annual_leave_key
		ON annual_leave(staff_id, year, leave_type);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		comments TEXT NOT NULL DEFAULT '',
		review_requested_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_lookup
		ON leave_requests(staff_id, leave_type, status, start_at);

	CREATE TABLE IF NOT EXISTS overtime_requests (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		day TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		comments TEXT NOT NULL DEFAULT '',
		review_requested_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overtime_requests_lookup
		ON overtime_requests(staff_id, day, status);
`

// =============================================================================
// STAFF
// =============================================================================

type staffRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	FirstName       string         `db:"first_name"`
	LastName        string         `db:"last_name"`
	Email           string         `db:"email"`
	RoleID          string         `db:"role_id"`
	Sex             string         `db:"sex"`
	Phone           string         `db:"phone"`
	Address         string         `db:"address"`
	Birthday        sql.NullString `db:"birthday"`
	LeaveDays       int            `db:"leave_days"`
	SickDays        int            `db:"sick_days"`
	OvertimeAllowed bool           `db:"overtime_allowed"`
	StartDate       sql.NullString `db:"start_date"`
	EndDate         sql.NullString `db:"end_date"`
	SupervisorID    string         `db:"supervisor_id"`
	GroupsJSON      string         `db:"groups_json"`
	DataJSON        string         `db:"data_json"`
	CreatedAt       string         `db:"created_at"`
	UpdatedAt       string         `db:"updated_at"`
}

const staffColumns = `id, user_id, first_name, last_name, email, role_id, sex, phone, address,
	birthday, leave_days, sick_days, overtime_allowed, start_date, end_date, supervisor_id,
	groups_json, data_json, created_at, updated_at`

// SaveStaff inserts or replaces a profile.
func (s *Store) SaveStaff(ctx context.Context, p staff.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := json.Marshal(nonNilStrings(p.Groups))
	if err != nil {
		return err
	}
	data, err := json.Marshal(nonNilMap(p.Data))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO staff (` + staffColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			role_id = excluded.role_id,
			sex = excluded.sex,
			phone = excluded.phone,
			address = excluded.address,
			birthday = excluded.birthday,
			leave_days = excluded.leave_days,
			sick_days = excluded.sick_days,
			overtime_allowed = excluded.overtime_allowed,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			supervisor_id = excluded.supervisor_id,
			groups_json = excluded.groups_json,
			data_json = excluded.data_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query),
		string(p.ID), p.UserID, p.FirstName, p.LastName, p.Email, p.RoleID, string(p.Sex),
		p.Phone, p.Address, nullDate(p.Birthday), p.LeaveDays, p.SickDays, p.OvertimeAllowed,
		nullDate(p.StartDate), nullDate(p.EndDate), string(p.SupervisorID),
		string(groups), string(data), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return err
}

// GetStaff returns staff.ErrNotFound on a miss.
func (s *Store) GetStaff(ctx context.Context, id staff.ID) (*staff.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row staffRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+staffColumns+` FROM staff WHERE id = ?`), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, staff.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.profile()
}

// ListStaff returns every profile ordered by id.
func (s *Store) ListStaff(ctx context.Context) ([]staff.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []staffRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+staffColumns+` FROM staff ORDER BY id`); err != nil {
		return nil, err
	}
	out := make([]staff.Profile, 0, len(rows))
	for _, row := range rows {
		p, err := row.profile()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// ListStaffInGroup filters ListStaff by group membership.
func (s *Store) ListStaffInGroup(ctx context.Context, group string) ([]staff.Profile, error) {
	all, err := s.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	var out []staff.Profile
	for _, p := range all {
		if p.InGroup(group) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r staffRow) profile() (*staff.Profile, error) {
	p := &staff.Profile{
		ID:              staff.ID(r.ID),
		UserID:          r.UserID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		RoleID:          r.RoleID,
		Sex:             staff.Sex(r.Sex),
		Phone:           r.Phone,
		Address:         r.Address,
		LeaveDays:       r.LeaveDays,
		SickDays:        r.SickDays,
		OvertimeAllowed: r.OvertimeAllowed,
		SupervisorID:    staff.ID(r.SupervisorID),
		CreatedAt:       parseTime(r.CreatedAt),
		UpdatedAt:       parseTime(r.UpdatedAt),
	}
	var err error
	if p.Birthday, err = parseNullDate(r.Birthday); err != nil {
		return nil, err
	}
	if p.StartDate, err = parseNullDate(r.StartDate); err != nil {
		return nil, err
	}
	if p.EndDate, err = parseNullDate(r.EndDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.GroupsJSON), &p.Groups); err != nil {
		return nil, fmt.Errorf("staff %s groups: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.DataJSON), &p.Data); err != nil {
		return nil, fmt.Errorf("staff %s data: %w", r.ID, err)
	}
	if len(p.Groups) == 0 {
		p.Groups = nil
	}
	if len(p.Data) == 0 {
		p.Data = nil
	}
	return p, nil
}

// =============================================================================
// ROLES
// =============================================================================

// SaveRole inserts or replaces a role. A name clash returns staff.ErrDuplicateRole.
func (s *Store) SaveRole(ctx context.Context, r staff.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO roles (id, name, description) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description
	`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), r.ID, r.Name, r.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("role %q: %w", r.Name, staff.ErrDuplicateRole)
	}
	return err
}

// GetRole returns staff.ErrRoleNotFound on a miss.
func (s *Store) GetRole(ctx context.Context, id string) (*staff.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r staff.Role
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT id, name, description FROM roles WHERE id = ?`), id).
		Scan(&r.ID, &r.Name, &r.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, staff.ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoles returns roles ordered by name.
func (s *Store) ListRoles(ctx context.Context) ([]staff.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryxContext(ctx, `SELECT id, name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []staff.Role
	for rows.Next() {
		var r staff.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// FREE DAYS
// =============================================================================

type freeDayRow struct {
	ID   string        `db:"id"`
	Name string        `db:"name"`
	Day  calendar.Date `db:"day"`
}

// CreateFreeDay returns calendar.ErrDuplicateFreeDay when the date exists.
func (s *Store) CreateFreeDay(ctx context.Context, fd calendar.FreeDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO free_days (id, name, day, year) VALUES (?, ?, ?, ?)`),
		fd.ID, fd.Name, fd.Date, fd.Date.Year,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", fd.Date, calendar.ErrDuplicateFreeDay)
	}
	return err
}

// FreeDays returns free days of [fromYear, toYear] ordered by date.
func (s *Store) FreeDays(ctx context.Context, fromYear, toYear int) ([]calendar.FreeDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []freeDayRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT id, name, day FROM free_days WHERE year >= ? AND year <= ? ORDER BY day`),
		fromYear, toYear,
	)
	if err != nil {
		return nil, err
	}
	out := make([]calendar.FreeDay, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendar.FreeDay{ID: r.ID, Name: r.Name, Date: r.Day})
	}
	return out, nil
}

// =============================================================================
// ANNUAL LEAVE LEDGERS
// =============================================================================

type ledgerRow struct {
	ID              string          `db:"id"`
	StaffID         string          `db:"staff_id"`
	Year            int             `db:"year"`
	LeaveType       string          `db:"leave_type"`
	AllowedDays     decimal.Decimal `db:"allowed_days"`
	CarriedOverDays decimal.Decimal `db:"carried_over_days"`
	CreatedAt       string          `db:"created_at"`
	UpdatedAt       string          `db:"updated_at"`
}

const ledgerColumns = `id, staff_id, year, leave_type, allowed_days, carried_over_days, created_at, updated_at`

func (r ledgerRow) ledger() *leave.AnnualLeave {
	return &leave.AnnualLeave{
		ID:              r.ID,
		StaffID:         staff.ID(r.StaffID),
		Year:            r.Year,
		Category:        leave.Category(r.LeaveType),
		AllowedDays:     r.AllowedDays,
		CarriedOverDays: r.CarriedOverDays,
		CreatedAt:       parseTime(r.CreatedAt),
		UpdatedAt:       parseTime(r.UpdatedAt),
	}
}

// GetLedger returns leave.ErrLedgerNotFound on a miss.
func (s *Store) GetLedger(ctx context.Context, staffID staff.ID, year int, category leave.Category) (*leave.AnnualLeave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row ledgerRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT `+ledgerColumns+` FROM annual_leave WHERE staff_id = ? AND year = ? AND leave_type = ?`),
		string(staffID), year, string(category),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.ledger(), nil
}

// CreateLedger returns leave.ErrDuplicateLedger when the key exists.
func (s *Store) CreateLedger(ctx context.Context, l leave.AnnualLeave) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO annual_leave (`+ledgerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		l.ID, string(l.StaffID), l.Year, string(l.Category), l.AllowedDays, l.CarriedOverDays,
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s/%d/%s: %w", l.StaffID, l.Year, l.Category, leave.ErrDuplicateLedger)
	}
	return err
}

// UpdateLedger rewrites allowed and carried days of an existing key.
func (s *Store) UpdateLedger(ctx context.Context, l leave.AnnualLeave) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE annual_leave SET allowed_days = ?, carried_over_days = ?, updated_at = ?
			WHERE staff_id = ? AND year = ? AND leave_type = ?`),
		l.AllowedDays, l.CarriedOverDays, formatTime(l.UpdatedAt),
		string(l.StaffID), l.Year, string(l.Category),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leave.ErrLedgerNotFound
	}
	return nil
}

// ListLedgers returns every ledger of a staff member by year.
func (s *Store) ListLedgers(ctx context.Context, staffID staff.ID) ([]leave.AnnualLeave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []ledgerRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+ledgerColumns+` FROM annual_leave WHERE staff_id = ? ORDER BY year, leave_type`),
		string(staffID),
	)
	if err != nil {
		return nil, err
	}
	out := make([]leave.AnnualLeave, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.ledger())
	}
	return out, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

type leaveRow struct {
	ID                string         `db:"id"`
	StaffID           string         `db:"staff_id"`
	LeaveType         string         `db:"leave_type"`
	StartAt           string         `db:"start_at"`
	EndAt             string         `db:"end_at"`
	Status            string         `db:"status"`
	Reason            string         `db:"reason"`
	Comments          string         `db:"comments"`
	ReviewRequestedAt sql.NullString `db:"review_requested_at"`
	CreatedAt         string         `db:"created_at"`
	UpdatedAt         string         `db:"updated_at"`
}

const leaveColumns = `id, staff_id, leave_type, start_at, end_at, status, reason, comments,
	review_requested_at, created_at, updated_at`

func (r leaveRow) request() leave.LeaveRequest {
	return leave.LeaveRequest{
		ID:                r.ID,
		StaffID:           staff.ID(r.StaffID),
		Category:          leave.Category(r.LeaveType),
		Start:             parseTime(r.StartAt),
		End:               parseTime(r.EndAt),
		Status:            leave.Status(r.Status),
		Reason:            r.Reason,
		Comments:          r.Comments,
		ReviewRequestedAt: parseNullTime(r.ReviewRequestedAt),
		CreatedAt:         parseTime(r.CreatedAt),
		UpdatedAt:         parseTime(r.UpdatedAt),
	}
}

// SaveLeaveRequest inserts or replaces a leave request.
func (s *Store) SaveLeaveRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_requests (` + leaveColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			leave_type = excluded.leave_type,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			status = excluded.status,
			reason = excluded.reason,
			comments = excluded.comments,
			review_requested_at = excluded.review_requested_at,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		r.ID, string(r.StaffID), string(r.Category), formatTime(r.Start), formatTime(r.End),
		string(r.Status), r.Reason, r.Comments, nullTime(r.ReviewRequestedAt),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	return err
}

// GetLeaveRequest returns leave.ErrRequestNotFound on a miss.
func (s *Store) GetLeaveRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row leaveRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+leaveColumns+` FROM leave_requests WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	r := row.request()
	return &r, nil
}

// LeaveRequests applies the filter in SQL, ordered by start.
func (s *Store) LeaveRequests(ctx context.Context, f leave.LeaveFilter) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE 1 = 1`
	var args []any
	if f.StaffID != "" {
		query += ` AND staff_id = ?`
		args = append(args, string(f.StaffID))
	}
	if f.Category != "" {
		query += ` AND leave_type = ?`
		args = append(args, string(f.Category))
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.To.IsZero() {
		query += ` AND start_at < ?`
		args = append(args, formatTime(f.To))
	}
	if !f.From.IsZero() {
		query += ` AND end_at >= ?`
		args = append(args, formatTime(f.From))
	}
	query += ` ORDER BY start_at`

	var rows []leaveRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]leave.LeaveRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.request())
	}
	return out, nil
}

// =============================================================================
// OVERTIME REQUESTS
// =============================================================================

type overtimeRow struct {
	ID                string             `db:"id"`
	StaffID           string             `db:"staff_id"`
	Day               calendar.Date      `db:"day"`
	StartTime         calendar.TimeOfDay `db:"start_time"`
	EndTime           calendar.TimeOfDay `db:"end_time"`
	Status            string             `db:"status"`
	Reason            string             `db:"reason"`
	Comments          string             `db:"comments"`
	ReviewRequestedAt sql.NullString     `db:"review_requested_at"`
	CreatedAt         string             `db:"created_at"`
	UpdatedAt         string             `db:"updated_at"`
}

const overtimeColumns = `id, staff_id, day, start_time, end_time, status, reason, comments,
	review_requested_at, created_at, updated_at`

func (r overtimeRow) request() leave.OverTimeRequest {
	return leave.OverTimeRequest{
		ID:                r.ID,
		StaffID:           staff.ID(r.StaffID),
		Date:              r.Day,
		Start:             r.StartTime,
		End:               r.EndTime,
		Status:            leave.Status(r.Status),
		Reason:            r.Reason,
		Comments:          r.Comments,
		ReviewRequestedAt: parseNullTime(r.ReviewRequestedAt),
		CreatedAt:         parseTime(r.CreatedAt),
		UpdatedAt:         parseTime(r.UpdatedAt),
	}
}

// SaveOverTimeRequest inserts or replaces an overtime request.
func (s *Store) SaveOverTimeRequest(ctx context.Context, r leave.OverTimeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO overtime_requests (` + overtimeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day = excluded.day,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status,
			reason = excluded.reason,
			comments = excluded.comments,
			review_requested_at = excluded.review_requested_at,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		r.ID, string(r.StaffID), r.Date, r.Start, r.End, string(r.Status), r.Reason, r.Comments,
		nullTime(r.ReviewRequestedAt), formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	return err
}

// GetOverTimeRequest returns leave.ErrRequestNotFound on a miss.
func (s *Store) GetOverTimeRequest(ctx context.Context, id string) (*leave.OverTimeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row overtimeRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+overtimeColumns+` FROM overtime_requests WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	r := row.request()
	return &r, nil
}

// OverTimeRequests applies the filter in SQL, ordered by day and start.
func (s *Store) OverTimeRequests(ctx context.Context, f leave.OverTimeFilter) ([]leave.OverTimeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + overtimeColumns + ` FROM overtime_requests WHERE 1 = 1`
	var args []any
	if f.StaffID != "" {
		query += ` AND staff_id = ?`
		args = append(args, string(f.StaffID))
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.Date.IsZero() {
		query += ` AND day = ?`
		args = append(args, f.Date.String())
	}
	if f.Year != 0 {
		query += ` AND day >= ? AND day <= ?`
		args = append(args,
			calendar.NewDate(f.Year, time.January, 1).String(),
			calendar.NewDate(f.Year, time.December, 31).String())
	}
	query += ` ORDER BY day, start_time`

	var rows []overtimeRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]leave.OverTimeRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.request())
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint &&
			(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullDate(d *calendar.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (*calendar.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilMap(v map[string]string) map[string]string {
	if v == nil {
		return map[string]string{}
	}
	return v
}

var (
	_ leave.Store = (*Store)(nil)
	_ staff.Store = (*Store)(nil)
)
