package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core/audit"
)

type auditRow struct {
	ID         string         `db:"id"`
	ActorID    string         `db:"actor_id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   null.String    `db:"entity_id"`
	Details    types.JSONText `db:"details"`
	CreatedAt  time.Time      `db:"created_at"`
}

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	details, err := jsonText(e.Details)
	if err != nil {
		return audit.Entry{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES (:id, :actor_id, :action, :entity_type, :entity_id, :details, :created_at)`, auditRow{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   null.NewString(e.EntityID, e.EntityID != ""),
		Details:    details,
		CreatedAt:  e.CreatedAt.UTC(),
	})
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return e, nil
}

func (repo *auditRepository) QueryEntries(ctx context.Context, filter *audit.QueryFilter) ([]audit.Entry, error) {
	w := &where{}
	if filter != nil {
		if filter.ActorID != "" {
			w.add("actor_id = ?", filter.ActorID)
		}
		if filter.Action != "" {
			w.add("action = ?", filter.Action)
		}
		if !filter.Since.IsZero() {
			w.add("created_at >= ?", filter.Since.UTC())
		}
	}
	var rows []auditRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM audit_logs", w, " ORDER BY created_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		e := audit.Entry{
			ID:         r.ID,
			ActorID:    r.ActorID,
			Action:     r.Action,
			EntityType: r.EntityType,
			EntityID:   r.EntityID.String,
			CreatedAt:  r.CreatedAt,
		}
		if err := unmarshalJSON(r.Details, &e.Details); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
