package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/audit"
	"github.com/gleeworld/gleeworld/core/member"
)

var errNoRecipients = errors.New("one of recipients or class_years is required")

type Campaign struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	Message        string    `json:"message"`
	ClassYears     []int     `json:"class_years"`
	RecipientCount int       `json:"recipient_count"`
	SentBy         string    `json:"sent_by"`
	SentAt         time.Time `json:"sent_at"`
}

type (
	Recipient struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name"`
	}

	AlumnaeEmail struct {
		Recipients []Recipient `json:"recipients" validate:"omitempty,dive"`
		ClassYears []int       `json:"class_years" validate:"omitempty,dive,min=1900,max=2100"`
		Subject    string      `json:"subject" validate:"required,max=200"`
		Message    string      `json:"message" validate:"required"`
	}

	AlumnaeEmailResult struct {
		Success    bool   `json:"success"`
		Sent       int    `json:"sent"`
		CampaignID string `json:"campaign_id"`
	}
)

func (ae *AlumnaeEmail) Validate(validate *validator.Validate) error {
	ae.Subject = core.CleanString(ae.Subject)
	ae.Message = core.CleanString(ae.Message)
	for i := range ae.Recipients {
		ae.Recipients[i].Email = core.CleanString(ae.Recipients[i].Email, true /* lower */)
		ae.Recipients[i].Name = core.CleanString(ae.Recipients[i].Name)
	}
	if err := validate.Struct(ae); err != nil {
		return err
	}
	if len(ae.Recipients) == 0 && len(ae.ClassYears) == 0 {
		return core.NewValidationError(errNoRecipients, core.FieldError{Field: "recipients", Error: errNoRecipients.Error()})
	}
	return nil
}

// resolveRecipients returns the explicit recipients, or the active alumnae of the requested class years.
// Duplicate addresses are sent to once.
func (svc *Service) resolveRecipients(ctx context.Context, ae AlumnaeEmail) ([]mail.Address, error) {
	seen := make(map[string]bool)
	addrs := make([]mail.Address, 0, len(ae.Recipients))
	add := func(name, email string) {
		if seen[email] {
			return
		}
		seen[email] = true
		if name == "" {
			name = email
		}
		addrs = append(addrs, mail.Address{Name: name, Address: email})
	}

	if len(ae.Recipients) > 0 {
		for _, r := range ae.Recipients {
			add(r.Name, r.Email)
		}
		return addrs, nil
	}

	alumnae, err := svc.dir.QueryMembers(ctx, &member.QueryFilter{
		Status:     member.StatusAlumna,
		ClassYears: ae.ClassYears,
	}, []core.DBOrdering{{Field: "full_name", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying alumnae")
	}
	for _, a := range alumnae {
		add(a.FullName, a.Email)
	}
	return addrs, nil
}

// SendAlumnaeEmail emails the campaign to each recipient individually and records it.
func (svc *Service) SendAlumnaeEmail(ctx context.Context, actor member.Member, ae AlumnaeEmail) (AlumnaeEmailResult, error) {
	recipients, err := svc.resolveRecipients(ctx, ae)
	if err != nil {
		return AlumnaeEmailResult{}, err
	}
	if len(recipients) == 0 {
		return AlumnaeEmailResult{}, core.NewValidationError(
			errors.New("no alumnae match the requested class years"),
			core.FieldError{Field: "class_years", Error: "no alumnae match the requested class years"},
		)
	}

	messages := make([]*core.EmailMessage, 0, len(recipients))
	for _, to := range recipients {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{to},
			Subject:      ae.Subject,
			TemplateName: "alumnae_campaign",
			TemplateData: map[string]interface{}{
				"Name":    to.Name,
				"Message": ae.Message,
				"Sender":  actor.FullName,
			},
		})
	}
	svc.mailSvc.SendMessages(messages...)

	c, err := svc.repo.CreateCampaign(ctx, Campaign{
		ID:             uuid.New().String(),
		Subject:        ae.Subject,
		Message:        ae.Message,
		ClassYears:     ae.ClassYears,
		RecipientCount: len(recipients),
		SentBy:         actor.ID,
		SentAt:         core.NowFunc(),
	})
	if err != nil {
		return AlumnaeEmailResult{}, errors.Wrap(err, "recording campaign")
	}

	details := map[string]interface{}{"subject": c.Subject, "recipients": c.RecipientCount}
	if err = svc.auditSvc.Log(ctx, actor.ID, audit.ActionAlumnaeCampaign, "campaign", c.ID, details); err != nil {
		svc.logger.Error("auditing alumnae campaign", err, actor)
	}
	return AlumnaeEmailResult{Success: true, Sent: len(recipients), CampaignID: c.ID}, nil
}

func (svc *Service) Campaigns(ctx context.Context) ([]Campaign, error) {
	return svc.repo.QueryCampaigns(ctx)
}
