package notification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/audit"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
	inmemdb "github.com/gleeworld/gleeworld/storage/database/inmem"
	"github.com/gleeworld/gleeworld/testutil"
)

type mailbox struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (mb *mailbox) SendMessages(messages ...*core.EmailMessage) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.sent = append(mb.sent, messages...)
}

type env struct {
	svc      *notification.Service
	members  member.Repository
	auditSvc *audit.Service
	mail     *mailbox
	validate *validator.Validate
}

func setup(t *testing.T) env {
	conf := testutil.NewConfig()
	db := inmemdb.Open()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	e := env{
		members:  inmemdb.NewMemberRepository(db),
		auditSvc: audit.NewService(inmemdb.NewAuditRepository(db)),
		mail:     new(mailbox),
		validate: validate,
	}
	e.svc = notification.NewService(inmemdb.NewNotificationRepository(db), e.members, e.mail, e.auditSvc, testutil.NewLogger(conf))
	return e
}

func (e env) alumna(t *testing.T, name, email string, classYear int) member.Member {
	m := testutil.CreateMember(t, e.members, name, email, "", []string{member.RoleAlumna}, true)
	m.Status = member.StatusAlumna
	m.ClassYear = classYear
	m, err := e.members.UpdateMember(context.Background(), m)
	require.NoError(t, err)
	return m
}

func TestAlumnaeEmail_Validate(t *testing.T) {
	e := setup(t)

	ae := notification.AlumnaeEmail{Subject: " Homecoming ", Message: "Join us!"}
	err := ae.Validate(e.validate)
	require.Error(t, err)
	ve, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "recipients", ve.Fields[0].Field)

	ae.Recipients = []notification.Recipient{{Email: " ADA@Spelman.test "}}
	require.NoError(t, ae.Validate(e.validate))
	assert.Equal(t, "Homecoming", ae.Subject)
	assert.Equal(t, "ada@spelman.test", ae.Recipients[0].Email)
}

func TestService_SendAlumnaeEmail(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	sender := testutil.CreateMember(t, e.members, "Ann Admin", "ann@spelman.test", "", []string{member.RoleAdmin}, true)
	e.alumna(t, "Zora Neale", "zora@spelman.test", 1996)
	e.alumna(t, "Bernice Reagon", "bernice@spelman.test", 1996)
	e.alumna(t, "Cora Class", "cora@spelman.test", 2001)
	testutil.CreateMember(t, e.members, "Ada Soprano", "ada@spelman.test", "", nil, true)

	t.Run("by class year", func(t *testing.T) {
		res, err := e.svc.SendAlumnaeEmail(ctx, sender, notification.AlumnaeEmail{
			ClassYears: []int{1996},
			Subject:    "Reunion",
			Message:    "The 30th reunion is on.",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 2, res.Sent)

		require.Len(t, e.mail.sent, 2)
		// one email per recipient, in name order
		assert.Equal(t, "bernice@spelman.test", e.mail.sent[0].To[0].Address)
		assert.Equal(t, "zora@spelman.test", e.mail.sent[1].To[0].Address)
		assert.Equal(t, "alumnae_campaign", e.mail.sent[0].TemplateName)
	})

	t.Run("explicit recipients win over class years", func(t *testing.T) {
		e.mail.sent = nil
		res, err := e.svc.SendAlumnaeEmail(ctx, sender, notification.AlumnaeEmail{
			Recipients: []notification.Recipient{
				{Email: "friend@example.com"},
				{Email: "friend@example.com", Name: "Dup"},
			},
			ClassYears: []int{2001},
			Subject:    "Gala",
			Message:    "Tickets are out.",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Sent)
		require.Len(t, e.mail.sent, 1)
		assert.Equal(t, "friend@example.com", e.mail.sent[0].To[0].Name)
	})

	t.Run("no matching alumnae", func(t *testing.T) {
		_, err := e.svc.SendAlumnaeEmail(ctx, sender, notification.AlumnaeEmail{ClassYears: []int{1950}, Subject: "Hi", Message: "Hello"})
		require.Error(t, err)
		ve, ok := err.(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "class_years", ve.Fields[0].Field)
	})

	campaigns, err := e.svc.Campaigns(ctx)
	require.NoError(t, err)
	assert.Len(t, campaigns, 2)

	entries, err := e.auditSvc.Query(ctx, &audit.QueryFilter{Action: audit.ActionAlumnaeCampaign})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestService_Notify(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	ada := testutil.CreateMember(t, e.members, "Ada Soprano", "ada@spelman.test", "", nil, true)
	exec := testutil.CreateMember(t, e.members, "Pat President", "pat@spelman.test", "", []string{member.RoleExecBoard}, true)
	testutil.CreateMember(t, e.members, "Gone Exec", "gone@spelman.test", "", []string{member.RoleExecBoard}, false)

	require.NoError(t, e.svc.NotifyManagers(ctx, notification.Message{Title: "New excuse", Category: notification.CategoryExcuse}))
	n, err := e.svc.UnreadCount(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, e.mail.sent)

	require.NoError(t, e.svc.Notify(ctx, []string{ada.ID, "ghost"}, notification.Message{Title: "Dues", Message: "Dues are due.", SendEmail: true}))
	require.Len(t, e.mail.sent, 1)
	assert.Equal(t, "ada@spelman.test", e.mail.sent[0].To[0].Address)

	list, err := e.svc.List(ctx, ada.ID, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, e.svc.MarkRead(ctx, ada.ID, list[0].ID))
	n, err = e.svc.UnreadCount(ctx, ada.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
