// Package audit records who did what to which records.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

// Actions
const (
	ActionBulkExecBoardAssignment = "bulk_executive_board_assignment"
	ActionAdminPasswordReset      = "admin_password_reset"
	ActionMemberDeleted           = "member_deleted"
	ActionExcuseReviewed          = "excuse_request_reviewed"
	ActionSheetMusicMigration     = "sheet_music_migration"
	ActionAlumnaeCampaign         = "alumnae_email_campaign"
)

type Entry struct {
	ID         string                 `json:"id"`
	ActorID    string                 `json:"actor_id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Details    map[string]interface{} `json:"details"`
	CreatedAt  time.Time              `json:"created_at"`
}

type QueryFilter struct {
	ActorID string    `query:"actor_id"`
	Action  string    `query:"action"`
	Since   time.Time `query:"since"`
}

func (qf *QueryFilter) Match(e Entry) bool {
	if qf == nil {
		return true
	}
	if qf.ActorID != "" && e.ActorID != qf.ActorID {
		return false
	}
	if qf.Action != "" && e.Action != qf.Action {
		return false
	}
	if !qf.Since.IsZero() && e.CreatedAt.Before(qf.Since) {
		return false
	}
	return true
}

type Repository interface {
	CreateEntry(ctx context.Context, e Entry) (Entry, error)
	QueryEntries(ctx context.Context, filter *QueryFilter) ([]Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Log(ctx context.Context, actorID, action, entityType, entityID string, details map[string]interface{}) error {
	e := Entry{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  core.NowFunc(),
	}
	if _, err := svc.repo.CreateEntry(ctx, e); err != nil {
		return errors.Wrap(err, "creating audit entry")
	}
	return nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}
