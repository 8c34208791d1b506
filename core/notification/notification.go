// Package notification delivers in-app notifications and email campaigns to members.
package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
)

// Categories
const (
	CategoryExcuse  = "excuse"
	CategoryFinance = "finance"
	CategoryGrading = "grading"
	CategoryGeneral = "general"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is the content fanned out to recipients by Notify.
type Message struct {
	Title     string
	Message   string
	Category  string
	Link      string
	SendEmail bool
}

type Repository interface {
	CreateNotifications(ctx context.Context, ns ...Notification) error
	QueryNotifications(ctx context.Context, memberID string, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, memberID, id string) error
	MarkAllRead(ctx context.Context, memberID string) (int, error)
	CountUnread(ctx context.Context, memberID string) (int, error)

	CreateCampaign(ctx context.Context, c Campaign) (Campaign, error)
	QueryCampaigns(ctx context.Context) ([]Campaign, error)
}

// Directory resolves notification recipients.
type Directory interface {
	QueryMembers(ctx context.Context, filter *member.QueryFilter, ordering []core.DBOrdering) ([]member.Member, error)
	GetMemberByID(ctx context.Context, id string) (member.Member, error)
}

type Auditor interface {
	Log(ctx context.Context, actorID, action, entityType, entityID string, details map[string]interface{}) error
}

type Service struct {
	repo     Repository
	dir      Directory
	mailSvc  core.EmailService
	auditSvc Auditor
	logger   core.Logger
}

func NewService(repo Repository, dir Directory, mailSvc core.EmailService, auditSvc Auditor, logger core.Logger) *Service {
	return &Service{repo: repo, dir: dir, mailSvc: mailSvc, auditSvc: auditSvc, logger: logger}
}

// Notify stores one notification per member and optionally emails them.
func (svc *Service) Notify(ctx context.Context, memberIDs []string, msg Message) error {
	if len(memberIDs) == 0 {
		return nil
	}
	now := core.NowFunc()
	ns := make([]Notification, 0, len(memberIDs))
	for _, id := range memberIDs {
		ns = append(ns, Notification{
			ID:        uuid.New().String(),
			MemberID:  id,
			Title:     msg.Title,
			Message:   msg.Message,
			Category:  msg.Category,
			Link:      msg.Link,
			CreatedAt: now,
		})
	}
	if err := svc.repo.CreateNotifications(ctx, ns...); err != nil {
		return errors.Wrap(err, "creating notifications")
	}
	if !msg.SendEmail {
		return nil
	}

	messages := make([]*core.EmailMessage, 0, len(memberIDs))
	for _, id := range memberIDs {
		m, err := svc.dir.GetMemberByID(ctx, id)
		if err != nil {
			svc.logger.Warn("notification recipient not found", err, map[string]interface{}{"member_id": id})
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: m.FullName, Address: m.Email}},
			Subject:      msg.Title,
			TemplateName: "notification",
			TemplateData: map[string]interface{}{
				"Name":    m.FullName,
				"Title":   msg.Title,
				"Message": msg.Message,
				"Link":    msg.Link,
			},
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return nil
}

// NotifyManagers notifies every active exec-board member and admin.
func (svc *Service) NotifyManagers(ctx context.Context, msg Message) error {
	managers, err := svc.dir.QueryMembers(ctx, &member.QueryFilter{
		Roles:    []string{member.RoleExecBoard, member.RoleAdmin},
		IsActive: core.BoolPtr(true),
	}, nil)
	if err != nil {
		return errors.Wrap(err, "querying managers")
	}
	ids := make([]string, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	return svc.Notify(ctx, ids, msg)
}

func (svc *Service) List(ctx context.Context, memberID string, unreadOnly bool) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, memberID, unreadOnly)
}

func (svc *Service) MarkRead(ctx context.Context, memberID, id string) error {
	return svc.repo.MarkRead(ctx, memberID, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, memberID string) (int, error) {
	return svc.repo.MarkAllRead(ctx, memberID)
}

func (svc *Service) UnreadCount(ctx context.Context, memberID string) (int, error) {
	return svc.repo.CountUnread(ctx, memberID)
}
