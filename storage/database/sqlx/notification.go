package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core/notification"
)

type notificationRow struct {
	ID        string      `db:"id"`
	MemberID  string      `db:"member_id"`
	Title     string      `db:"title"`
	Message   string      `db:"message"`
	Category  string      `db:"category"`
	Link      null.String `db:"link"`
	IsRead    bool        `db:"is_read"`
	CreatedAt time.Time   `db:"created_at"`
}

type campaignRow struct {
	ID             string        `db:"id"`
	Subject        string        `db:"subject"`
	Message        string        `db:"message"`
	ClassYears     pq.Int64Array `db:"class_years"`
	RecipientCount int           `db:"recipient_count"`
	SentBy         string        `db:"sent_by"`
	SentAt         time.Time     `db:"sent_at"`
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, ns ...notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	rows := make([]notificationRow, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, notificationRow{
			ID:        n.ID,
			MemberID:  n.MemberID,
			Title:     n.Title,
			Message:   n.Message,
			Category:  n.Category,
			Link:      nullStr(n.Link),
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.UTC(),
		})
	}
	// batch insert
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO notifications
		(id, member_id, title, message, category, link, is_read, created_at)
		VALUES (:id, :member_id, :title, :message, :category, :link, :is_read, :created_at)`, rows)
	return errors.Wrap(err, "inserting notifications")
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, memberID string, unreadOnly bool) ([]notification.Notification, error) {
	q := "SELECT * FROM notifications WHERE member_id::text = $1"
	if unreadOnly {
		q += " AND NOT is_read"
	}
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, q+" ORDER BY created_at DESC", memberID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ns := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		ns = append(ns, notification.Notification{
			ID:        r.ID,
			MemberID:  r.MemberID,
			Title:     r.Title,
			Message:   r.Message,
			Category:  r.Category,
			Link:      r.Link.String,
			IsRead:    r.IsRead,
			CreatedAt: r.CreatedAt,
		})
	}
	return ns, nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, memberID, id string) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = true WHERE id::text = $1 AND member_id::text = $2", id, memberID)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, memberID string) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = true WHERE member_id::text = $1 AND NOT is_read", memberID)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (repo *notificationRepository) CountUnread(ctx context.Context, memberID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE member_id::text = $1 AND NOT is_read", memberID)
	return count, errors.Wrap(err, "counting unread notifications")
}

func (repo *notificationRepository) CreateCampaign(ctx context.Context, c notification.Campaign) (notification.Campaign, error) {
	years := make(pq.Int64Array, 0, len(c.ClassYears))
	for _, y := range c.ClassYears {
		years = append(years, int64(y))
	}
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO alumnae_campaigns
		(id, subject, message, class_years, recipient_count, sent_by, sent_at)
		VALUES (:id, :subject, :message, :class_years, :recipient_count, :sent_by, :sent_at)`, campaignRow{
		ID:             c.ID,
		Subject:        c.Subject,
		Message:        c.Message,
		ClassYears:     years,
		RecipientCount: c.RecipientCount,
		SentBy:         c.SentBy,
		SentAt:         c.SentAt.UTC(),
	})
	if err != nil {
		return notification.Campaign{}, errors.Wrap(err, "inserting campaign")
	}
	return c, nil
}

func (repo *notificationRepository) QueryCampaigns(ctx context.Context) ([]notification.Campaign, error) {
	var rows []campaignRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM alumnae_campaigns ORDER BY sent_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying campaigns")
	}
	cs := make([]notification.Campaign, 0, len(rows))
	for _, r := range rows {
		years := make([]int, 0, len(r.ClassYears))
		for _, y := range r.ClassYears {
			years = append(years, int(y))
		}
		cs = append(cs, notification.Campaign{
			ID:             r.ID,
			Subject:        r.Subject,
			Message:        r.Message,
			ClassYears:     years,
			RecipientCount: r.RecipientCount,
			SentBy:         r.SentBy,
			SentAt:         r.SentAt,
		})
	}
	return cs, nil
}
