package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

var ErrEventNotFound = errors.New("event not found")

type Repository interface {
	CreateEvent(ctx context.Context, e Event) (Event, error)
	GetEventByID(ctx context.Context, id string) (Event, error)
	QueryEvents(ctx context.Context, filter *EventFilter, ordering []core.DBOrdering) ([]Event, error)
	UpdateEvent(ctx context.Context, e Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// UpsertRecord inserts or replaces the record of (EventID, MemberID).
	UpsertRecord(ctx context.Context, r Record) (Record, error)
	QueryEventRecords(ctx context.Context, eventID string) ([]Record, error)
	QueryMemberRecords(ctx context.Context, memberID string, from, to time.Time) ([]Record, error)
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) CreateEvent(ctx context.Context, createdBy string, in EventInput) (Event, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Event{}, err
	}
	now := core.NowFunc()
	e := Event{
		ID:                 uuid.New().String(),
		Title:              in.Title,
		EventType:          in.EventType,
		Location:           in.Location,
		StartsAt:           in.StartsAt.UTC(),
		EndsAt:             in.EndsAt.UTC(),
		AttendanceRequired: in.AttendanceRequired == nil || *in.AttendanceRequired,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return svc.repo.CreateEvent(ctx, e)
}

func (svc *Service) GetEvent(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *Service) QueryEvents(ctx context.Context, filter *EventFilter, ordering []core.DBOrdering) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func (svc *Service) UpdateEvent(ctx context.Context, id string, in EventInput) (Event, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Event{}, err
	}
	e, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	e.Title = in.Title
	e.EventType = in.EventType
	e.Location = in.Location
	e.StartsAt = in.StartsAt.UTC()
	e.EndsAt = in.EndsAt.UTC()
	if in.AttendanceRequired != nil {
		e.AttendanceRequired = *in.AttendanceRequired
	}
	e.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateEvent(ctx, e)
}

func (svc *Service) DeleteEvent(ctx context.Context, id string) error {
	return svc.repo.DeleteEvent(ctx, id)
}

// TakeAttendance records the given marks for the event, replacing earlier marks of the same members.
func (svc *Service) TakeAttendance(ctx context.Context, eventID, recordedBy string, ta TakeAttendance) ([]Record, error) {
	if err := svc.validate.Struct(ta); err != nil {
		return nil, err
	}
	if _, err := svc.repo.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}

	now := core.NowFunc()
	records := make([]Record, 0, len(ta.Records))
	for _, mark := range ta.Records {
		r, err := svc.repo.UpsertRecord(ctx, Record{
			ID:         uuid.New().String(),
			EventID:    eventID,
			MemberID:   mark.MemberID,
			Status:     mark.Status,
			Notes:      core.CleanString(mark.Notes),
			RecordedBy: recordedBy,
			RecordedAt: now,
		})
		if err != nil {
			return nil, errors.Wrap(err, "saving attendance record")
		}
		records = append(records, r)
	}
	return records, nil
}

// MarkExcused sets the member's attendance for the event to excused.
func (svc *Service) MarkExcused(ctx context.Context, eventID, memberID, by, note string) error {
	_, err := svc.repo.UpsertRecord(ctx, Record{
		ID:         uuid.New().String(),
		EventID:    eventID,
		MemberID:   memberID,
		Status:     StatusExcused,
		Notes:      note,
		RecordedBy: by,
		RecordedAt: core.NowFunc(),
	})
	return errors.Wrap(err, "marking attendance excused")
}

func (svc *Service) EventRecords(ctx context.Context, eventID string) ([]Record, error) {
	if _, err := svc.repo.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEventRecords(ctx, eventID)
}

func (svc *Service) MemberSummary(ctx context.Context, memberID string, from, to time.Time) (Summary, error) {
	records, err := svc.repo.QueryMemberRecords(ctx, memberID, from, to)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying member records")
	}
	return Summarize(memberID, records), nil
}
