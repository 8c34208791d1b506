package excuse

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gleeworld/gleeworld/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusReturned  = "returned"
	StatusForwarded = "forwarded"
	StatusApproved  = "approved"
	StatusDenied    = "denied"
)

var Statuses = []string{StatusPending, StatusReturned, StatusForwarded, StatusApproved, StatusDenied}

type Request struct {
	ID                     string     `json:"id"`
	MemberID               string     `json:"member_id"`
	EventID                string     `json:"event_id"`
	EventTitle             string     `json:"event_title"`
	EventDate              time.Time  `json:"event_date"`
	Reason                 string     `json:"reason"`
	Status                 string     `json:"status"`
	SecretaryMessage       string     `json:"secretary_message"`
	SecretaryMessageSentAt *time.Time `json:"secretary_message_sent_at"`
	SecretaryMessageSentBy string     `json:"secretary_message_sent_by"`
	ForwardedBy            string     `json:"forwarded_by"`
	ForwardedAt            *time.Time `json:"forwarded_at"`
	ReviewedBy             string     `json:"reviewed_by"`
	ReviewedAt             *time.Time `json:"reviewed_at"`
	AdminNotes             string     `json:"admin_notes"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// IsOpen reports whether the request still awaits a decision.
func (r Request) IsOpen() bool {
	return r.Status == StatusPending || r.Status == StatusForwarded
}

type NewRequest struct {
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title" validate:"required_without=EventID"`
	EventDate  time.Time `json:"event_date" validate:"required"`
	Reason     string    `json:"reason" validate:"required,min=10"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.EventID = core.CleanString(nr.EventID)
	nr.EventTitle = core.CleanString(nr.EventTitle)
	nr.Reason = core.CleanString(nr.Reason)
	return validate.Struct(nr)
}

type (
	ReturnRequest struct {
		Message string `json:"message" validate:"required"`
	}

	ResubmitRequest struct {
		Reason string `json:"reason" validate:"required,min=10"`
	}

	ReviewRequest struct {
		Decision string `json:"decision" validate:"required,oneof=approved denied"`
		Notes    string `json:"notes" validate:"required_if=Decision denied"`
	}
)

type QueryFilter struct {
	MemberID string   `query:"member_id"`
	Statuses []string `query:"status"`
}

func (qf *QueryFilter) Match(r Request) bool {
	if qf == nil {
		return true
	}
	if qf.MemberID != "" && r.MemberID != qf.MemberID {
		return false
	}
	if len(qf.Statuses) > 0 && !core.StringInSlice(r.Status, qf.Statuses) {
		return false
	}
	return true
}
