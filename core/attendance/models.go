package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gleeworld/gleeworld/core"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// Event types
const (
	EventRehearsal   = "rehearsal"
	EventPerformance = "performance"
	EventSectional   = "sectional"
	EventMeeting     = "meeting"
	EventOther       = "other"
)

type Event struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	EventType          string    `json:"event_type"`
	Location           string    `json:"location"`
	StartsAt           time.Time `json:"starts_at"`
	EndsAt             time.Time `json:"ends_at"`
	AttendanceRequired bool      `json:"attendance_required"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Record struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	MemberID   string    `json:"member_id"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes"`
	RecordedBy string    `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"`
}

type EventInput struct {
	Title              string    `json:"title" validate:"required"`
	EventType          string    `json:"event_type" validate:"required,oneof=rehearsal performance sectional meeting other"`
	Location           string    `json:"location"`
	StartsAt           time.Time `json:"starts_at" validate:"required"`
	EndsAt             time.Time `json:"ends_at" validate:"required,gtefield=StartsAt"`
	AttendanceRequired *bool     `json:"attendance_required"`
}

func (in *EventInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.EventType = core.CleanString(in.EventType, true /* lower */)
	in.Location = core.CleanString(in.Location)
	return validate.Struct(in)
}

type (
	Mark struct {
		MemberID string `json:"member_id" validate:"required"`
		Status   string `json:"status" validate:"required,oneof=present absent late excused"`
		Notes    string `json:"notes"`
	}

	TakeAttendance struct {
		Records []Mark `json:"records" validate:"required,min=1,dive"`
	}
)

type EventFilter struct {
	EventType string    `query:"event_type"`
	From      time.Time `query:"from"`
	To        time.Time `query:"to"`
}

func (f *EventFilter) Match(e Event) bool {
	if f == nil {
		return true
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if !f.From.IsZero() && e.StartsAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.StartsAt.After(f.To) {
		return false
	}
	return true
}

type Summary struct {
	MemberID string  `json:"member_id"`
	Total    int     `json:"total"`
	Present  int     `json:"present"`
	Late     int     `json:"late"`
	Absent   int     `json:"absent"`
	Excused  int     `json:"excused"`
	Rate     float64 `json:"rate"`
}

// Summarize counts records per status. Excused records do not count against the rate.
func Summarize(memberID string, records []Record) Summary {
	s := Summary{MemberID: memberID, Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusLate:
			s.Late++
		case StatusAbsent:
			s.Absent++
		case StatusExcused:
			s.Excused++
		}
	}
	s.Rate = 100
	if denom := s.Total - s.Excused; denom > 0 {
		s.Rate = core.Round(float64(s.Present+s.Late)/float64(denom)*100, 1)
	}
	return s
}
