package excuse

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/audit"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
)

var (
	ErrNotFound          = errors.New("excuse request not found")
	ErrInvalidTransition = errors.New("excuse request cannot change to this status")
	ErrForbidden         = errors.New("not allowed to act on this excuse request")
)

type Repository interface {
	CreateRequest(ctx context.Context, r Request) (Request, error)
	GetRequestByID(ctx context.Context, id string) (Request, error)
	QueryRequests(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Request, error)
	UpdateRequest(ctx context.Context, r Request) (Request, error)
	DeleteRequest(ctx context.Context, id string) error
}

type (
	Notifier interface {
		Notify(ctx context.Context, memberIDs []string, msg notification.Message) error
		NotifyManagers(ctx context.Context, msg notification.Message) error
	}

	AttendanceMarker interface {
		MarkExcused(ctx context.Context, eventID, memberID, by, note string) error
	}

	Auditor interface {
		Log(ctx context.Context, actorID, action, entityType, entityID string, details map[string]interface{}) error
	}
)

type Service struct {
	repo       Repository
	notifier   Notifier
	attendance AttendanceMarker
	auditSvc   Auditor
	validate   *validator.Validate
	logger     core.Logger
}

func NewService(
	repo Repository,
	notifier Notifier,
	attendance AttendanceMarker,
	auditSvc Auditor,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		notifier:   notifier,
		attendance: attendance,
		auditSvc:   auditSvc,
		validate:   validate,
		logger:     logger,
	}
}

func (svc *Service) Get(ctx context.Context, actor member.Member, id string) (Request, error) {
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.MemberID != actor.ID && !actor.CanManage() {
		return Request{}, ErrNotFound
	}
	return r, nil
}

// Mine lists the actor's own requests, newest first.
func (svc *Service) Mine(ctx context.Context, actor member.Member) ([]Request, error) {
	return svc.repo.QueryRequests(ctx, &QueryFilter{MemberID: actor.ID}, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Request, error) {
	return svc.repo.QueryRequests(ctx, filter, ordering)
}

func (svc *Service) Submit(ctx context.Context, actor member.Member, nr NewRequest) (Request, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Request{}, err
	}
	now := core.NowFunc()
	r, err := svc.repo.CreateRequest(ctx, Request{
		ID:         uuid.New().String(),
		MemberID:   actor.ID,
		EventID:    nr.EventID,
		EventTitle: nr.EventTitle,
		EventDate:  nr.EventDate.UTC(),
		Reason:     nr.Reason,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Request{}, errors.Wrap(err, "creating excuse request")
	}
	svc.notifyManagers(ctx, r, fmt.Sprintf("%s submitted an excuse request for %s.", actor.FullName, r.label()))
	return r, nil
}

// Forward hands a pending request over to the reviewers.
func (svc *Service) Forward(ctx context.Context, actor member.Member, id string) (Request, error) {
	if !actor.CanManage() {
		return Request{}, ErrForbidden
	}
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.Status != StatusPending {
		return Request{}, ErrInvalidTransition
	}
	now := core.NowFunc()
	r.Status = StatusForwarded
	r.ForwardedBy = actor.ID
	r.ForwardedAt = &now
	r.UpdatedAt = now
	return svc.save(ctx, r, fmt.Sprintf("Your excuse request for %s was forwarded for review.", r.label()))
}

// Return sends an open request back to its owner with a message from the secretary.
func (svc *Service) Return(ctx context.Context, actor member.Member, id string, rr ReturnRequest) (Request, error) {
	if !actor.CanManage() {
		return Request{}, ErrForbidden
	}
	rr.Message = core.CleanString(rr.Message)
	if err := svc.validate.Struct(rr); err != nil {
		return Request{}, err
	}
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !r.IsOpen() {
		return Request{}, ErrInvalidTransition
	}
	now := core.NowFunc()
	r.Status = StatusReturned
	r.SecretaryMessage = rr.Message
	r.SecretaryMessageSentAt = &now
	r.SecretaryMessageSentBy = actor.ID
	r.UpdatedAt = now
	return svc.save(ctx, r, fmt.Sprintf("Your excuse request for %s was returned: %s", r.label(), rr.Message))
}

// Resubmit lets the owner answer a returned request.
func (svc *Service) Resubmit(ctx context.Context, actor member.Member, id string, rs ResubmitRequest) (Request, error) {
	rs.Reason = core.CleanString(rs.Reason)
	if err := svc.validate.Struct(rs); err != nil {
		return Request{}, err
	}
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.MemberID != actor.ID {
		return Request{}, ErrNotFound
	}
	if r.Status != StatusReturned {
		return Request{}, ErrInvalidTransition
	}
	r.Status = StatusPending
	r.Reason = rs.Reason
	r.UpdatedAt = core.NowFunc()
	if r, err = svc.repo.UpdateRequest(ctx, r); err != nil {
		return Request{}, errors.Wrap(err, "updating excuse request")
	}
	svc.notifyManagers(ctx, r, fmt.Sprintf("%s resubmitted an excuse request for %s.", actor.FullName, r.label()))
	return r, nil
}

// Review approves or denies an open request. Approval excuses the member from the linked event.
func (svc *Service) Review(ctx context.Context, actor member.Member, id string, rv ReviewRequest) (Request, error) {
	if !actor.IsAdmin() {
		return Request{}, ErrForbidden
	}
	rv.Decision = core.CleanString(rv.Decision, true /* lower */)
	rv.Notes = core.CleanString(rv.Notes)
	if err := svc.validate.Struct(rv); err != nil {
		return Request{}, err
	}
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !r.IsOpen() {
		return Request{}, ErrInvalidTransition
	}

	now := core.NowFunc()
	r.Status = rv.Decision
	r.ReviewedBy = actor.ID
	r.ReviewedAt = &now
	r.AdminNotes = rv.Notes
	r.UpdatedAt = now
	if r.Status == StatusApproved && r.EventID != "" {
		if err = svc.attendance.MarkExcused(ctx, r.EventID, r.MemberID, actor.ID, "excuse request "+r.ID); err != nil {
			return Request{}, err
		}
	}

	details := map[string]interface{}{"decision": r.Status}
	if err = svc.auditSvc.Log(ctx, actor.ID, audit.ActionExcuseReviewed, "excuse_request", r.ID, details); err != nil {
		svc.logger.Error("auditing excuse review", err, actor)
	}
	return svc.save(ctx, r, fmt.Sprintf("Your excuse request for %s was %s.", r.label(), r.Status))
}

// Delete removes a request. Owners may only delete requests that are pending or returned.
func (svc *Service) Delete(ctx context.Context, actor member.Member, id string) error {
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if r.MemberID != actor.ID {
			return ErrNotFound
		}
		if !(r.Status == StatusPending || r.Status == StatusReturned) {
			return ErrInvalidTransition
		}
	}
	return svc.repo.DeleteRequest(ctx, id)
}

func (svc *Service) save(ctx context.Context, r Request, text string) (Request, error) {
	r, err := svc.repo.UpdateRequest(ctx, r)
	if err != nil {
		return Request{}, errors.Wrap(err, "updating excuse request")
	}
	msg := notification.Message{
		Title:     "Excuse request " + r.Status,
		Message:   text,
		Category:  notification.CategoryExcuse,
		Link:      "/excuses/" + r.ID,
		SendEmail: true,
	}
	if err := svc.notifier.Notify(ctx, []string{r.MemberID}, msg); err != nil {
		svc.logger.Error("notifying excuse request owner", err)
	}
	return r, nil
}

func (svc *Service) notifyManagers(ctx context.Context, r Request, text string) {
	msg := notification.Message{
		Title:    "Excuse request " + r.Status,
		Message:  text,
		Category: notification.CategoryExcuse,
		Link:     "/excuses/" + r.ID,
	}
	if err := svc.notifier.NotifyManagers(ctx, msg); err != nil {
		svc.logger.Error("notifying managers of excuse request", err)
	}
}

func (r Request) label() string {
	title := r.EventTitle
	if title == "" {
		title = "event"
	}
	return fmt.Sprintf("%s on %s", title, r.EventDate.Format("Jan 2, 2006"))
}
