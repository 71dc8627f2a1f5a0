package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `
	id, employee_id, date, check_in, check_out, shift, status, is_remote,
	check_in_location, check_out_location, check_in_reason, check_out_reason, notes,
	breaks, namaz, tasks_completed, total_break_minutes, total_namaz_minutes, total_hours,
	anomalous, auto_closed, version, created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

func scanEntry(row pgx.Row) (attendance.Entry, error) {
	var e attendance.Entry
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.Date, &e.CheckIn, &e.CheckOut, &e.Shift, &e.Status, &e.IsRemote,
		&e.CheckInLocation, &e.CheckOutLocation, &e.CheckInReason, &e.CheckOutReason, &e.Notes,
		&e.Breaks, &e.Namaz, &e.TasksCompleted, &e.TotalBreakMinutes, &e.TotalNamazMinutes, &e.TotalHours,
		&e.Anomalous, &e.AutoClosed, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectEntries(rows pgx.Rows) ([]attendance.Entry, error) {
	defer rows.Close()

	entries := []attendance.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// nonNil keeps JSONB list columns as '[]' rather than 'null'.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Create implements attendance.EntryRepository.
func (a *attendanceRepository) Create(ctx context.Context, entry attendance.Entry) (attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Entry{}, fmt.Errorf("generate attendance entry id: %w", err)
	}

	query := `
		INSERT INTO attendance_entries (
			id, employee_id, date, check_in, check_out, shift, status, is_remote,
			check_in_location, check_out_location, check_in_reason, check_out_reason, notes,
			breaks, namaz, tasks_completed, total_break_minutes, total_namaz_minutes, total_hours,
			anomalous, auto_closed, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, 1, $22, $23
		) RETURNING ` + entryColumns

	created, err := scanEntry(q.QueryRow(ctx, query,
		id.String(),
		entry.EmployeeID,
		entry.Date,
		entry.CheckIn,
		entry.CheckOut,
		entry.Shift,
		entry.Status,
		entry.IsRemote,
		entry.CheckInLocation,
		entry.CheckOutLocation,
		entry.CheckInReason,
		entry.CheckOutReason,
		entry.Notes,
		nonNil(entry.Breaks),
		nonNil(entry.Namaz),
		nonNil(entry.TasksCompleted),
		entry.TotalBreakMinutes,
		entry.TotalNamazMinutes,
		entry.TotalHours,
		entry.Anomalous,
		entry.AutoClosed,
		entry.CreatedAt,
		entry.UpdatedAt,
	))
	if err != nil {
		return attendance.Entry{}, fmt.Errorf("failed to create attendance entry: %w", err)
	}

	return created, nil
}

// CreateUnlessOpen implements attendance.EntryRepository. A transaction-scoped
// advisory lock on employee and date serializes concurrent check-ins.
func (a *attendanceRepository) CreateUnlessOpen(ctx context.Context, entry attendance.Entry, onOpen func(open attendance.Entry) error) (attendance.Entry, error) {
	var created attendance.Entry
	err := WithTransaction(ctx, a.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, a.db)

		lockKey := entry.EmployeeID + ":" + entry.Date.Format(time.DateOnly)
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("failed to lock attendance day: %w", err)
		}

		open, err := a.GetOpenByEmployeeAndDate(ctx, entry.EmployeeID, entry.Date)
		switch {
		case err == nil:
			if err := onOpen(open); err != nil {
				return err
			}
		case !errors.Is(err, attendance.ErrNotCheckedIn):
			return err
		}

		created, err = a.Create(ctx, entry)
		return err
	})
	if err != nil {
		return attendance.Entry{}, err
	}
	return created, nil
}

// GetByID implements attendance.EntryRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)

	if _, err := uuid.Parse(id); err != nil {
		return attendance.Entry{}, attendance.ErrEntryNotFound
	}

	e, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM attendance_entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Entry{}, attendance.ErrEntryNotFound
		}
		return attendance.Entry{}, fmt.Errorf("failed to get attendance entry by ID: %w", err)
	}

	return e, nil
}

// GetOpenByEmployeeAndDate implements attendance.EntryRepository.
func (a *attendanceRepository) GetOpenByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + entryColumns + `
		FROM attendance_entries
		WHERE employee_id = $1
		  AND date = $2
		  AND check_out IS NULL
		ORDER BY check_in DESC
		LIMIT 1
	`

	e, err := scanEntry(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Entry{}, attendance.ErrNotCheckedIn
		}
		return attendance.Entry{}, fmt.Errorf("failed to get open attendance entry: %w", err)
	}

	return e, nil
}

// GetLatestOpen implements attendance.EntryRepository.
func (a *attendanceRepository) GetLatestOpen(ctx context.Context, employeeID string) (attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + entryColumns + `
		FROM attendance_entries
		WHERE employee_id = $1
		  AND check_out IS NULL
		ORDER BY check_in DESC
		LIMIT 1
	`

	e, err := scanEntry(q.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Entry{}, attendance.ErrNotCheckedIn
		}
		return attendance.Entry{}, fmt.Errorf("failed to get latest open attendance entry: %w", err)
	}

	return e, nil
}

// Update implements attendance.EntryRepository.
func (a *attendanceRepository) Update(ctx context.Context, entry attendance.Entry) (attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_entries SET
			check_out = $3,
			status = $4,
			is_remote = $5,
			check_out_location = $6,
			check_in_reason = $7,
			check_out_reason = $8,
			notes = $9,
			breaks = $10,
			namaz = $11,
			tasks_completed = $12,
			total_break_minutes = $13,
			total_namaz_minutes = $14,
			total_hours = $15,
			anomalous = $16,
			auto_closed = $17,
			updated_at = $18,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + entryColumns

	updated, err := scanEntry(q.QueryRow(ctx, query,
		entry.ID,
		entry.Version,
		entry.CheckOut,
		entry.Status,
		entry.IsRemote,
		entry.CheckOutLocation,
		entry.CheckInReason,
		entry.CheckOutReason,
		entry.Notes,
		nonNil(entry.Breaks),
		nonNil(entry.Namaz),
		nonNil(entry.TasksCompleted),
		entry.TotalBreakMinutes,
		entry.TotalNamazMinutes,
		entry.TotalHours,
		entry.Anomalous,
		entry.AutoClosed,
		entry.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := a.GetByID(ctx, entry.ID); getErr != nil {
				return attendance.Entry{}, getErr
			}
			return attendance.Entry{}, attendance.ErrConcurrentUpdate
		}
		return attendance.Entry{}, fmt.Errorf("failed to update attendance entry: %w", err)
	}

	return updated, nil
}

// Delete implements attendance.EntryRepository.
func (a *attendanceRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, a.db)

	tag, err := q.Exec(ctx, `DELETE FROM attendance_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrEntryNotFound
	}
	return nil
}

// entryWhere builds the WHERE clause for filter starting at placeholder $1.
func entryWhere(filter attendance.EntryFilter) (string, []interface{}) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		add("employee_id = $%d", *filter.EmployeeID)
	}
	if filter.Date != nil && *filter.Date != "" {
		add("date = $%d::date", *filter.Date)
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		add("date >= $%d::date", *filter.StartDate)
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		add("date <= $%d::date", *filter.EndDate)
	}
	if filter.Status != nil && *filter.Status != "" {
		add("status = $%d", *filter.Status)
	}
	if filter.Shift != nil && *filter.Shift != "" {
		add("shift = $%d", *filter.Shift)
	}
	if filter.IsRemote != nil {
		add("is_remote = $%d", *filter.IsRemote)
	}

	return strings.Join(conditions, " AND "), args
}

func entryOrderBy(filter attendance.EntryFilter) string {
	orderByField := "date"
	switch filter.SortBy {
	case "check_in":
		orderByField = "check_in"
	case "check_out":
		orderByField = "check_out"
	case "status":
		orderByField = "status"
	case "total_hours":
		orderByField = "total_hours"
	}
	sortOrder := "DESC NULLS LAST"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC NULLS LAST"
	}
	return fmt.Sprintf("%s %s, check_in DESC, id", orderByField, sortOrder)
}

// List implements attendance.EntryRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.EntryFilter) ([]attendance.Entry, int64, error) {
	q := GetQuerier(ctx, a.db)
	where, args := entryWhere(filter)

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_entries WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance entries: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := max(filter.Page, 1)

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_entries
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, entryColumns, where, entryOrderBy(filter), len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendance entries: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListAll implements attendance.EntryRepository.
func (a *attendanceRepository) ListAll(ctx context.Context, filter attendance.EntryFilter) ([]attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)
	where, args := entryWhere(filter)

	rows, err := q.Query(ctx, "SELECT "+entryColumns+" FROM attendance_entries WHERE "+where+" ORDER BY "+entryOrderBy(filter), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance entries: %w", err)
	}
	return collectEntries(rows)
}

// ListOpenBefore implements attendance.EntryRepository.
func (a *attendanceRepository) ListOpenBefore(ctx context.Context, t time.Time) ([]attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + entryColumns + `
		FROM attendance_entries
		WHERE check_out IS NULL
		  AND check_in < $1
		ORDER BY check_in
	`

	rows, err := q.Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("failed to query open attendance entries: %w", err)
	}
	return collectEntries(rows)
}

func NewAttendanceRepository(db *database.DB) attendance.EntryRepository {
	return &attendanceRepository{db: db}
}
