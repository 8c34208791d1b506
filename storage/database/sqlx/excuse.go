package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/excuse"
)

var excuseOrderings = map[string]string{
	"created_at": "created_at",
	"event_date": "event_date",
	"status":     "status",
}

type excuseRow struct {
	ID                     string      `db:"id"`
	MemberID               string      `db:"member_id"`
	EventID                null.String `db:"event_id"`
	EventTitle             null.String `db:"event_title"`
	EventDate              time.Time   `db:"event_date"`
	Reason                 string      `db:"reason"`
	Status                 string      `db:"status"`
	SecretaryMessage       null.String `db:"secretary_message"`
	SecretaryMessageSentAt null.Time   `db:"secretary_message_sent_at"`
	SecretaryMessageSentBy null.String `db:"secretary_message_sent_by"`
	ForwardedBy            null.String `db:"forwarded_by"`
	ForwardedAt            null.Time   `db:"forwarded_at"`
	ReviewedBy             null.String `db:"reviewed_by"`
	ReviewedAt             null.Time   `db:"reviewed_at"`
	AdminNotes             null.String `db:"admin_notes"`
	CreatedAt              time.Time   `db:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at"`
}

func nullStr(s string) null.String { return null.NewString(s, s != "") }

func toExcuseRow(r excuse.Request) excuseRow {
	return excuseRow{
		ID:                     r.ID,
		MemberID:               r.MemberID,
		EventID:                nullStr(r.EventID),
		EventTitle:             nullStr(r.EventTitle),
		EventDate:              r.EventDate.UTC(),
		Reason:                 r.Reason,
		Status:                 r.Status,
		SecretaryMessage:       nullStr(r.SecretaryMessage),
		SecretaryMessageSentAt: null.TimeFromPtr(r.SecretaryMessageSentAt),
		SecretaryMessageSentBy: nullStr(r.SecretaryMessageSentBy),
		ForwardedBy:            nullStr(r.ForwardedBy),
		ForwardedAt:            null.TimeFromPtr(r.ForwardedAt),
		ReviewedBy:             nullStr(r.ReviewedBy),
		ReviewedAt:             null.TimeFromPtr(r.ReviewedAt),
		AdminNotes:             nullStr(r.AdminNotes),
		CreatedAt:              r.CreatedAt.UTC(),
		UpdatedAt:              r.UpdatedAt.UTC(),
	}
}

func (r excuseRow) toRequest() excuse.Request {
	return excuse.Request{
		ID:                     r.ID,
		MemberID:               r.MemberID,
		EventID:                r.EventID.String,
		EventTitle:             r.EventTitle.String,
		EventDate:              r.EventDate,
		Reason:                 r.Reason,
		Status:                 r.Status,
		SecretaryMessage:       r.SecretaryMessage.String,
		SecretaryMessageSentAt: r.SecretaryMessageSentAt.Ptr(),
		SecretaryMessageSentBy: r.SecretaryMessageSentBy.String,
		ForwardedBy:            r.ForwardedBy.String,
		ForwardedAt:            r.ForwardedAt.Ptr(),
		ReviewedBy:             r.ReviewedBy.String,
		ReviewedAt:             r.ReviewedAt.Ptr(),
		AdminNotes:             r.AdminNotes.String,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

type excuseRepository struct {
	db *sqlx.DB
}

var _ excuse.Repository = (*excuseRepository)(nil) // interface compliance check

func NewExcuseRepository(db *sqlx.DB) *excuseRepository {
	return &excuseRepository{db: db}
}

func (repo *excuseRepository) CreateRequest(ctx context.Context, r excuse.Request) (excuse.Request, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO excuse_requests (id, member_id, event_id, event_title, event_date,
		reason, status, created_at, updated_at)
		VALUES (:id, :member_id, :event_id, :event_title, :event_date, :reason, :status, :created_at, :updated_at)`,
		toExcuseRow(r))
	if err != nil {
		return excuse.Request{}, errors.Wrap(err, "inserting excuse request")
	}
	return r, nil
}

func (repo *excuseRepository) GetRequestByID(ctx context.Context, id string) (excuse.Request, error) {
	var row excuseRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM excuse_requests WHERE id::text = $1", id); err != nil {
		return excuse.Request{}, trapNoRowsErr(err, excuse.ErrNotFound, "finding excuse request by ID")
	}
	return row.toRequest(), nil
}

func (repo *excuseRepository) QueryRequests(ctx context.Context, filter *excuse.QueryFilter, ordering []core.DBOrdering) ([]excuse.Request, error) {
	w := &where{}
	if filter != nil {
		if filter.MemberID != "" {
			w.add("member_id::text = ?", filter.MemberID)
		}
		if len(filter.Statuses) > 0 {
			w.add("status = ANY(?)", pq.Array(filter.Statuses))
		}
	}
	var rows []excuseRow
	order := core.OrderByClause(ordering, excuseOrderings, "created_at DESC")
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM excuse_requests", w, order); err != nil {
		return nil, errors.Wrap(err, "querying excuse requests")
	}
	requests := make([]excuse.Request, 0, len(rows))
	for _, r := range rows {
		requests = append(requests, r.toRequest())
	}
	return requests, nil
}

func (repo *excuseRepository) UpdateRequest(ctx context.Context, r excuse.Request) (excuse.Request, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE excuse_requests SET
		reason = :reason, status = :status,
		secretary_message = :secretary_message, secretary_message_sent_at = :secretary_message_sent_at,
		secretary_message_sent_by = :secretary_message_sent_by,
		forwarded_by = :forwarded_by, forwarded_at = :forwarded_at,
		reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, admin_notes = :admin_notes,
		updated_at = :updated_at
		WHERE id = :id`, toExcuseRow(r))
	if err != nil {
		return excuse.Request{}, errors.Wrap(err, "updating excuse request")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return excuse.Request{}, excuse.ErrNotFound
	}
	return r, nil
}

func (repo *excuseRepository) DeleteRequest(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM excuse_requests WHERE id::text = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting excuse request")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return excuse.ErrNotFound
	}
	return nil
}
