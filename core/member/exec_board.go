package member

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/audit"
)

const PositionPresident = "president"

var ExecPositions = []string{
	PositionPresident,
	"secretary",
	"treasurer",
	"tour_manager",
	"wardrobe_manager",
	"librarian",
	"historian",
	"pr_coordinator",
	"chaplain",
	"data_analyst",
	"assistant_chaplain",
	"student_conductor",
	"section_leader_s1",
	"section_leader_s2",
	"section_leader_a1",
	"section_leader_a2",
}

// NormalizePosition lowers the position and maps dashes and spaces to underscores.
func NormalizePosition(pos string) string {
	pos = core.CleanString(pos, true /* lower */)
	return strings.NewReplacer("-", "_", " ", "_").Replace(pos)
}

func IsExecPosition(pos string) bool {
	return core.StringInSlice(NormalizePosition(pos), ExecPositions)
}

type ExecBoardMember struct {
	ID           string `json:"id"`
	MemberID     string `json:"member_id"`
	Position     string `json:"position"`
	AcademicYear string `json:"academic_year"`
	IsActive     bool   `json:"is_active"`
}

type (
	ExecAssignment struct {
		Email    string `json:"email" validate:"required,email"`
		FullName string `json:"full_name" validate:"required"`
		Role     string `json:"role" validate:"required"`
	}

	BulkExecAssignment struct {
		Assignments  []ExecAssignment `json:"assignments" validate:"required,min=1,dive"`
		AcademicYear string           `json:"academic_year"`
	}

	ExecAssignmentResult struct {
		Email    string `json:"email"`
		Role     string `json:"role"`
		Success  bool   `json:"success"`
		MemberID string `json:"member_id,omitempty"`
		Created  bool   `json:"created"`
		Error    string `json:"error,omitempty"`
	}

	Summary struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	}

	BulkExecAssignmentResult struct {
		Success bool                   `json:"success"`
		Results []ExecAssignmentResult `json:"results"`
		Summary Summary                `json:"summary"`
	}
)

func (ba *BulkExecAssignment) Clean() {
	ba.AcademicYear = core.CleanString(ba.AcademicYear)
	for i := range ba.Assignments {
		a := &ba.Assignments[i]
		a.Email = core.CleanString(a.Email, true /* lower */)
		a.FullName = core.CleanString(a.FullName)
		a.Role = NormalizePosition(a.Role)
	}
}

func (svc *Service) QueryExecBoard(ctx context.Context, academicYear string) ([]ExecBoardMember, error) {
	if academicYear == "" {
		academicYear = svc.conf.Club.CurrentAcademicYear
	}
	return svc.repo.QueryExecBoardMembers(ctx, academicYear)
}

// AssignExecBoard processes every assignment sequentially. A failed item does not stop the others.
func (svc *Service) AssignExecBoard(ctx context.Context, actor Member, ba BulkExecAssignment) (BulkExecAssignmentResult, error) {
	ba.Clean()
	if err := svc.validate.Struct(ba); err != nil {
		return BulkExecAssignmentResult{}, err
	}
	if ba.AcademicYear == "" {
		ba.AcademicYear = svc.conf.Club.CurrentAcademicYear
	}

	res := BulkExecAssignmentResult{Results: make([]ExecAssignmentResult, 0, len(ba.Assignments))}
	for _, a := range ba.Assignments {
		r := svc.assignExecPosition(ctx, a, ba.AcademicYear)
		if r.Success {
			res.Summary.Successful++
		} else {
			res.Summary.Failed++
		}
		res.Results = append(res.Results, r)
	}
	res.Summary.Total = len(ba.Assignments)
	res.Success = res.Summary.Failed == 0

	details := map[string]interface{}{
		"academic_year": ba.AcademicYear,
		"total":         res.Summary.Total,
		"successful":    res.Summary.Successful,
		"failed":        res.Summary.Failed,
	}
	if err := svc.auditSvc.Log(ctx, actor.ID, audit.ActionBulkExecBoardAssignment, "exec_board", "", details); err != nil {
		svc.logger.Error("auditing exec board assignment", err, actor)
	}
	return res, nil
}

func (svc *Service) assignExecPosition(ctx context.Context, a ExecAssignment, academicYear string) ExecAssignmentResult {
	r := ExecAssignmentResult{Email: a.Email, Role: a.Role}
	fail := func(err error) ExecAssignmentResult {
		r.Error = err.Error()
		return r
	}

	if !IsExecPosition(a.Role) {
		return fail(errors.Errorf("invalid executive board position: %s", a.Role))
	}

	m, err := svc.repo.GetMemberByEmail(ctx, a.Email)
	switch {
	case err == nil:
	case errors.Cause(err) == ErrNotFound:
		now := core.NowFunc()
		m = Member{
			ID:                  uuid.New().String(),
			Email:               a.Email,
			FullName:            a.FullName,
			Status:              StatusActive,
			Roles:               []string{RoleMember},
			ForcePasswordChange: true,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		m.SetActive(true)
		pwd, err := core.RandomPassword(tempPasswordLength)
		if err != nil {
			return fail(errors.Wrap(err, "generating temporary password"))
		}
		if err = m.SetPassword(pwd); err != nil {
			return fail(errors.Wrap(err, "setting password"))
		}
		if m, err = svc.repo.CreateMember(ctx, m); err != nil {
			return fail(errors.Wrap(err, "creating member"))
		}
		r.Created = true
	default:
		return fail(errors.Wrap(err, "finding member by email"))
	}
	r.MemberID = m.ID

	if m.FullName == "" {
		m.FullName = a.FullName
	}
	m.IsExecBoard = true
	m.ExecBoardRole = a.Role
	m.AddRole(RoleExecBoard)
	if a.Role == PositionPresident {
		m.AddRole(RoleAdmin)
	}
	m.UpdatedAt = core.NowFunc()
	if _, err = svc.repo.UpdateMember(ctx, m); err != nil {
		return fail(errors.Wrap(err, "updating member"))
	}

	ebm := ExecBoardMember{
		ID:           uuid.New().String(),
		MemberID:     m.ID,
		Position:     a.Role,
		AcademicYear: academicYear,
		IsActive:     true,
	}
	if _, err = svc.repo.UpsertExecBoardMember(ctx, ebm); err != nil {
		return fail(errors.Wrap(err, "saving exec board member"))
	}

	r.Success = true
	return r
}
