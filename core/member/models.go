package member

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/gleeworld/gleeworld/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminSuper = "admin:super"

	// Executive board
	RoleExecBoard = "exec:"

	// Course staff
	RoleInstructor = "instructor:"

	// Members
	RoleMember  = "member:"
	RoleStudent = "student:"
	RoleAlumna  = "alumna:"
)

// Statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusAlumna   = "alumna"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminSuper}
	AllRoles   = []string{RoleAdmin, RoleAdminSuper, RoleExecBoard, RoleInstructor, RoleMember, RoleStudent, RoleAlumna}
	VoiceParts = []string{"S1", "S2", "A1", "A2"}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminSuper: 30,
		RoleAdmin:      21,

		// Exec board & staff: 20 - 11
		RoleExecBoard:  15,
		RoleInstructor: 11,

		// Members: 10 - 1
		RoleMember:  5,
		RoleStudent: 3,
		RoleAlumna:  1,
	}

	Roles = []Role{
		{Name: "Alumna", Value: RoleAlumna},
		{Name: "Student", Value: RoleStudent},
		{Name: "Member", Value: RoleMember},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Executive Board", Value: RoleExecBoard},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Super Admin", Value: RoleAdminSuper},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Member struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	FullName            string    `json:"full_name"`
	Phone               string    `json:"phone"`
	VoicePart           string    `json:"voice_part"`
	ClassYear           int       `json:"class_year"`
	Status              string    `json:"status"`
	Roles               []string  `json:"roles"`
	IsExecBoard         bool      `json:"is_exec_board"`
	ExecBoardRole       string    `json:"exec_board_role"`
	ForcePasswordChange bool      `json:"force_password_change"`
	IsActive            *bool     `json:"is_active"`
	PasswordHash        []byte    `json:"-"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
	LastLogin           time.Time `json:"last_login"` // UTC
}

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

func (m *Member) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(pwd))
}

func (m *Member) SetActive(active bool) {
	m.IsActive = &active
}

func (m *Member) Active() bool {
	return m.IsActive == nil || *m.IsActive
}

func (m *Member) RoleStartsWith(prefix string) bool {
	for _, role := range m.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (m *Member) AddRole(role string) {
	if !core.StringInSlice(role, m.Roles) {
		m.Roles = append(m.Roles, role)
	}
}

func (m *Member) IsAdmin() bool      { return m.RoleStartsWith(RoleAdmin) }
func (m *Member) IsExec() bool       { return m.IsExecBoard || m.RoleStartsWith(RoleExecBoard) }
func (m *Member) IsInstructor() bool { return m.RoleStartsWith(RoleInstructor) }
func (m *Member) IsAlumna() bool     { return m.Status == StatusAlumna || m.RoleStartsWith(RoleAlumna) }

// CanManage reports whether the member may act on club-wide records (exec board or admin).
func (m *Member) CanManage() bool { return m.IsAdmin() || m.IsExec() }

func (m Member) Person() core.Person {
	return core.Person{ID: m.ID, Name: m.FullName, Email: m.Email}
}

// NewMember contains information needed to create a new Member.
type NewMember struct {
	FullName        string   `json:"full_name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone"`
	VoicePart       string   `json:"voice_part" validate:"omitempty,oneof=S1 S2 A1 A2"`
	ClassYear       int      `json:"class_year" validate:"omitempty,min=1900,max=2100"`
	Status          string   `json:"status" validate:"omitempty,oneof=active inactive alumna"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nm *NewMember) Validate(validate *validator.Validate, svc *Service) error {
	nm.FullName = core.CleanString(nm.FullName)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.VoicePart = strings.ToUpper(core.CleanString(nm.VoicePart))
	if nm.Status == "" {
		nm.Status = StatusActive
	}

	if err := validate.Struct(nm); err != nil {
		return err
	}
	return svc.checkUniqueness(nm.Email)
}

// UpdateMember defines what information may be provided to modify an existing Member.
type UpdateMember struct {
	FullName        string   `json:"full_name"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Phone           *string  `json:"phone"`
	VoicePart       *string  `json:"voice_part" validate:"omitempty,oneof=S1 S2 A1 A2"`
	ClassYear       *int     `json:"class_year" validate:"omitempty,min=1900,max=2100"`
	Status          string   `json:"status" validate:"omitempty,oneof=active inactive alumna"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (um *UpdateMember) Validate(orig Member, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(um.FullName); name != "" {
		um.FullName = name
	} else {
		um.FullName = orig.FullName
	}
	if email := core.CleanString(um.Email, true /* lower */); email != "" {
		um.Email = email
	} else {
		um.Email = orig.Email
	}
	if um.Status == "" {
		um.Status = orig.Status
	}

	if err := validate.Struct(um); err != nil {
		return err
	}
	return svc.checkUniqueness(um.Email, orig)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// set by the service for the similarity check
	fullName, email string
}

type ResetPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// AdminResetPassword is the payload of the admin-reset-password edge function.
type AdminResetPassword struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email" validate:"omitempty,email"`
	NewPassword string `json:"new_password"`
}

func (ar *AdminResetPassword) Validate(validate *validator.Validate) error {
	ar.UserID = core.CleanString(ar.UserID)
	ar.Email = core.CleanString(ar.Email, true /* lower */)
	if ar.UserID == "" && ar.Email == "" {
		return core.NewValidationError(
			errUserIDOrEmail,
			core.FieldError{Field: "user_id", Error: errUserIDOrEmail.Error()},
			core.FieldError{Field: "email", Error: errUserIDOrEmail.Error()},
		)
	}
	return validate.Struct(ar)
}

type AdminResetResult struct {
	Success           bool   `json:"success"`
	UserID            string `json:"user_id"`
	TemporaryPassword string `json:"temporary_password,omitempty"`
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	Status      string    `query:"status"`
	VoicePart   string    `query:"voice_part"`
	ClassYears  []int     `query:"class_year"`
	IsActive    *bool     `query:"is_active"`
	IsExecBoard *bool     `query:"is_exec_board"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.VoicePart = strings.ToUpper(core.CleanString(qf.VoicePart))
}

// Match reports whether m satisfies every set field of the filter.
// Search does a case-insensitive match on one of FullName or Email.
// Roles matches members having any role that starts with one of the provided roles.
func (qf *QueryFilter) Match(m Member) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(m.FullName), s) || strings.Contains(strings.ToLower(m.Email), s)) {
			return false
		}
	}
	if len(qf.Roles) > 0 {
		var found bool
		for _, r := range qf.Roles {
			if m.RoleStartsWith(r) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.Status != "" && m.Status != qf.Status {
		return false
	}
	if qf.VoicePart != "" && m.VoicePart != qf.VoicePart {
		return false
	}
	if len(qf.ClassYears) > 0 {
		var found bool
		for _, y := range qf.ClassYears {
			if m.ClassYear == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.IsActive != nil && m.Active() != *qf.IsActive {
		return false
	}
	if qf.IsExecBoard != nil && m.IsExecBoard != *qf.IsExecBoard {
		return false
	}
	if !qf.CreatedFrom.IsZero() && m.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && m.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}
