package member

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/audit"
)

var (
	// errors
	ErrNotFound      = errors.New("member not found")
	ErrEmailExists   = errors.New("a member with this email already exists")
	errUserIDOrEmail = errors.New("one of user_id or email is required")
	errWrongPassword = errors.New("old password is incorrect")

	tempPasswordLength = 12
)

type Repository interface {
	CheckEmailUniqueness(ctx context.Context, email string, excluded ...Member) error
	CreateMember(ctx context.Context, m Member) (Member, error)
	// QueryMembers applies AND operation on available QueryFilter fields (see QueryFilter.Match).
	QueryMembers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error)
	GetMemberByID(ctx context.Context, id string) (Member, error)
	GetMemberByEmail(ctx context.Context, email string) (Member, error)
	UpdateMember(ctx context.Context, m Member) (Member, error)
	DeleteMembersByID(ctx context.Context, ids ...string) error

	UpsertExecBoardMember(ctx context.Context, ebm ExecBoardMember) (ExecBoardMember, error)
	QueryExecBoardMembers(ctx context.Context, academicYear string) ([]ExecBoardMember, error)
}

type Service struct {
	repo     Repository
	auditSvc *audit.Service
	mailSvc  core.EmailService
	validate *validator.Validate
	conf     *core.Config
	logger   core.Logger

	// runs fn in the background; overridden by the mock to run synchronously
	goFunc func(fn func())
}

func NewService(
	repo Repository,
	auditSvc *audit.Service,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		auditSvc: auditSvc,
		mailSvc:  mailSvc,
		validate: validate,
		conf:     conf,
		logger:   logger,
		goFunc:   func(fn func()) { go fn() },
	}
}

// NewServiceMock returns a Service that sends its emails synchronously.
func NewServiceMock(
	repo Repository,
	auditSvc *audit.Service,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	svc := NewService(repo, auditSvc, mailSvc, validate, conf, logger)
	svc.goFunc = func(fn func()) { fn() }
	return svc
}

func (svc *Service) checkUniqueness(email string, excluded ...Member) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excluded...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nm NewMember) (Member, error) {
	now := core.NowFunc()
	m := Member{
		ID:        uuid.New().String(),
		FullName:  nm.FullName,
		Email:     nm.Email,
		Phone:     nm.Phone,
		VoicePart: nm.VoicePart,
		ClassYear: nm.ClassYear,
		Status:    nm.Status,
		Roles:     nm.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.Roles == nil {
		m.Roles = []string{RoleMember}
	}
	m.SetActive(true)
	if err := m.SetPassword(nm.Password); err != nil {
		return Member{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateMember(ctx, m)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMemberByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Member, error) {
	return svc.repo.GetMemberByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, orig Member, um UpdateMember) (Member, error) {
	m := orig
	m.FullName = um.FullName
	m.Email = um.Email
	m.Status = um.Status
	if um.Phone != nil {
		m.Phone = core.CleanString(*um.Phone)
	}
	if um.VoicePart != nil {
		m.VoicePart = *um.VoicePart
	}
	if um.ClassYear != nil {
		m.ClassYear = *um.ClassYear
	}
	if um.IsActive != nil {
		m.SetActive(*um.IsActive)
	}
	if um.Roles != nil {
		m.Roles = um.Roles
	}
	if um.Password != "" {
		if err := m.SetPassword(um.Password); err != nil {
			return Member{}, errors.Wrap(err, "setting password")
		}
	}
	m.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, actor Member, ids ...string) error {
	if err := svc.repo.DeleteMembersByID(ctx, ids...); err != nil {
		return errors.Wrap(err, "deleting members")
	}
	for _, id := range ids {
		if err := svc.auditSvc.Log(ctx, actor.ID, audit.ActionMemberDeleted, "member", id, nil); err != nil {
			svc.logger.Error("auditing member deletion", err, actor)
		}
	}
	return nil
}

func (svc *Service) SetLastLogin(ctx context.Context, m Member) (Member, error) {
	m.LastLogin = core.NowFunc()
	return svc.repo.UpdateMember(ctx, m)
}

// ChangePassword sets a new password for m after checking the old one, and clears ForcePasswordChange.
func (svc *Service) ChangePassword(ctx context.Context, m Member, cp ChangePassword) (Member, error) {
	cp.fullName, cp.email = m.FullName, m.Email
	if err := svc.validate.Struct(cp); err != nil {
		return Member{}, err
	}
	if err := m.CheckPassword(cp.OldPassword); err != nil {
		return Member{}, core.NewValidationError(errWrongPassword, core.FieldError{Field: "old_password", Error: errWrongPassword.Error()})
	}
	if err := m.SetPassword(cp.Password); err != nil {
		return Member{}, errors.Wrap(err, "setting password")
	}
	m.ForcePasswordChange = false
	m.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateMember(ctx, m)
}

// RequestPasswordReset emails a password reset link to the active member owning `email`.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	m, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !m.Active() {
		return ErrNotFound
	}
	svc.goFunc(func() { svc.sendPasswordResetMail(m) })
	return nil
}

func (svc *Service) sendPasswordResetMail(m Member) {
	token, err := svc.makeToken(m)
	if err != nil {
		svc.logger.Error("making password reset token", err, m)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: m.FullName, Address: m.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  m.FullName,
			"UID":   EncodeUID(m),
			"Token": token,
		},
	})
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken, core.FieldError{Field: "uid", Error: "invalid value"})
	}
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken, core.FieldError{Field: "uid", Error: "invalid value"})
		}
		return errors.Wrap(err, "finding member by ID")
	}
	if err := svc.verifyToken(m, rp.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	if tag := checkPasswordPolicy(rp.Password, m.FullName, m.Email); tag != "" {
		return core.NewValidationError(errors.New(policyTexts[tag]), core.FieldError{Field: "password", Error: policyTexts[tag]})
	}
	if err := m.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	m.ForcePasswordChange = false
	m.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateMember(ctx, m)
	return err
}

// AdminResetPassword sets a new (or generated) password on the target member and forces a change at next login.
func (svc *Service) AdminResetPassword(ctx context.Context, actor Member, ar AdminResetPassword) (AdminResetResult, error) {
	var (
		m   Member
		err error
	)
	if ar.UserID != "" {
		m, err = svc.repo.GetMemberByID(ctx, ar.UserID)
	} else {
		m, err = svc.GetByEmail(ctx, ar.Email)
	}
	if err != nil {
		return AdminResetResult{}, err
	}

	res := AdminResetResult{Success: true, UserID: m.ID}
	pwd := ar.NewPassword
	if pwd != "" {
		if tag := checkPasswordPolicy(pwd, m.FullName, m.Email); tag != "" {
			return AdminResetResult{}, core.NewValidationError(errors.New(policyTexts[tag]), core.FieldError{Field: "new_password", Error: policyTexts[tag]})
		}
	} else {
		if pwd, err = core.RandomPassword(tempPasswordLength); err != nil {
			return AdminResetResult{}, errors.Wrap(err, "generating temporary password")
		}
		res.TemporaryPassword = pwd
	}
	if err = m.SetPassword(pwd); err != nil {
		return AdminResetResult{}, errors.Wrap(err, "setting password")
	}
	m.ForcePasswordChange = true
	m.UpdatedAt = core.NowFunc()
	if _, err = svc.repo.UpdateMember(ctx, m); err != nil {
		return AdminResetResult{}, errors.Wrap(err, "updating member")
	}

	details := map[string]interface{}{"target_email": m.Email, "generated": res.TemporaryPassword != ""}
	if err = svc.auditSvc.Log(ctx, actor.ID, audit.ActionAdminPasswordReset, "member", m.ID, details); err != nil {
		svc.logger.Error("auditing admin password reset", err, actor)
	}
	return res, nil
}
