package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/attendance"
)

var eventOrderings = map[string]string{
	"starts_at":  "starts_at",
	"title":      "title",
	"created_at": "created_at",
}

type eventRow struct {
	ID                 string      `db:"id"`
	Title              string      `db:"title"`
	EventType          string      `db:"event_type"`
	Location           null.String `db:"location"`
	StartsAt           time.Time   `db:"starts_at"`
	EndsAt             time.Time   `db:"ends_at"`
	AttendanceRequired bool        `db:"attendance_required"`
	CreatedBy          null.String `db:"created_by"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func toEventRow(e attendance.Event) eventRow {
	return eventRow{
		ID:                 e.ID,
		Title:              e.Title,
		EventType:          e.EventType,
		Location:           null.NewString(e.Location, e.Location != ""),
		StartsAt:           e.StartsAt.UTC(),
		EndsAt:             e.EndsAt.UTC(),
		AttendanceRequired: e.AttendanceRequired,
		CreatedBy:          null.NewString(e.CreatedBy, e.CreatedBy != ""),
		CreatedAt:          e.CreatedAt.UTC(),
		UpdatedAt:          e.UpdatedAt.UTC(),
	}
}

func (r eventRow) toEvent() attendance.Event {
	return attendance.Event{
		ID:                 r.ID,
		Title:              r.Title,
		EventType:          r.EventType,
		Location:           r.Location.String,
		StartsAt:           r.StartsAt,
		EndsAt:             r.EndsAt,
		AttendanceRequired: r.AttendanceRequired,
		CreatedBy:          r.CreatedBy.String,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type recordRow struct {
	ID         string      `db:"id"`
	EventID    string      `db:"event_id"`
	MemberID   string      `db:"member_id"`
	Status     string      `db:"status"`
	Notes      null.String `db:"notes"`
	RecordedBy null.String `db:"recorded_by"`
	RecordedAt time.Time   `db:"recorded_at"`
}

func (r recordRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:         r.ID,
		EventID:    r.EventID,
		MemberID:   r.MemberID,
		Status:     r.Status,
		Notes:      r.Notes.String,
		RecordedBy: r.RecordedBy.String,
		RecordedAt: r.RecordedAt,
	}
}

func toRecords(rows []recordRow) []attendance.Record {
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateEvent(ctx context.Context, e attendance.Event) (attendance.Event, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO events
		(id, title, event_type, location, starts_at, ends_at, attendance_required, created_by, created_at, updated_at)
		VALUES (:id, :title, :event_type, :location, :starts_at, :ends_at, :attendance_required, :created_by, :created_at, :updated_at)`,
		toEventRow(e))
	if err != nil {
		return attendance.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo *attendanceRepository) GetEventByID(ctx context.Context, id string) (attendance.Event, error) {
	var row eventRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM events WHERE id::text = $1", id); err != nil {
		return attendance.Event{}, trapNoRowsErr(err, attendance.ErrEventNotFound, "finding event by ID")
	}
	return row.toEvent(), nil
}

func (repo *attendanceRepository) QueryEvents(ctx context.Context, filter *attendance.EventFilter, ordering []core.DBOrdering) ([]attendance.Event, error) {
	w := &where{}
	if filter != nil {
		if filter.EventType != "" {
			w.add("event_type = ?", filter.EventType)
		}
		if !filter.From.IsZero() {
			w.add("starts_at >= ?", filter.From.UTC())
		}
		if !filter.To.IsZero() {
			w.add("starts_at <= ?", filter.To.UTC())
		}
	}
	var rows []eventRow
	order := core.OrderByClause(ordering, eventOrderings, "starts_at DESC")
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM events", w, order); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]attendance.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}

func (repo *attendanceRepository) UpdateEvent(ctx context.Context, e attendance.Event) (attendance.Event, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE events SET title = :title, event_type = :event_type,
		location = :location, starts_at = :starts_at, ends_at = :ends_at, attendance_required = :attendance_required,
		updated_at = :updated_at WHERE id = :id`, toEventRow(e))
	if err != nil {
		return attendance.Event{}, errors.Wrap(err, "updating event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.Event{}, attendance.ErrEventNotFound
	}
	return e, nil
}

func (repo *attendanceRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM events WHERE id::text = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrEventNotFound
	}
	return nil
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	var row recordRow
	err := repo.db.GetContext(ctx, &row, `INSERT INTO attendance_records
		(id, event_id, member_id, status, notes, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, member_id) DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes,
			recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at
		RETURNING *`,
		r.ID, r.EventID, r.MemberID, r.Status,
		null.NewString(r.Notes, r.Notes != ""), null.NewString(r.RecordedBy, r.RecordedBy != ""), r.RecordedAt.UTC())
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) QueryEventRecords(ctx context.Context, eventID string) ([]attendance.Record, error) {
	var rows []recordRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM attendance_records WHERE event_id::text = $1 ORDER BY member_id", eventID)
	if err != nil {
		return nil, errors.Wrap(err, "querying event records")
	}
	return toRecords(rows), nil
}

func (repo *attendanceRepository) QueryMemberRecords(ctx context.Context, memberID string, from, to time.Time) ([]attendance.Record, error) {
	w := &where{}
	w.add("r.member_id::text = ?", memberID)
	if !from.IsZero() {
		w.add("e.starts_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		w.add("e.starts_at <= ?", to.UTC())
	}
	var rows []recordRow
	base := "SELECT r.* FROM attendance_records r JOIN events e ON e.id = r.event_id"
	if err := selectWhere(ctx, repo.db, &rows, base, w, " ORDER BY e.starts_at"); err != nil {
		return nil, errors.Wrap(err, "querying member records")
	}
	return toRecords(rows), nil
}
