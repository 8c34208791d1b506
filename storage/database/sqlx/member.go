package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
)

const memberColumns = `id, email, full_name, phone, voice_part, class_year, status, roles, is_exec_board,
	exec_board_role, force_password_change, is_active, password_hash, created_at, updated_at, last_login`

var memberOrderings = map[string]string{
	"full_name":  "full_name",
	"email":      "email",
	"class_year": "class_year",
	"created_at": "created_at",
	"last_login": "last_login",
}

type memberRow struct {
	ID                  string         `db:"id"`
	Email               string         `db:"email"`
	FullName            string         `db:"full_name"`
	Phone               null.String    `db:"phone"`
	VoicePart           null.String    `db:"voice_part"`
	ClassYear           null.Int       `db:"class_year"`
	Status              string         `db:"status"`
	Roles               pq.StringArray `db:"roles"`
	IsExecBoard         bool           `db:"is_exec_board"`
	ExecBoardRole       null.String    `db:"exec_board_role"`
	ForcePasswordChange bool           `db:"force_password_change"`
	IsActive            null.Bool      `db:"is_active"`
	PasswordHash        null.Bytes     `db:"password_hash"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	LastLogin           null.Time      `db:"last_login"`
}

func toMemberRow(m member.Member) memberRow {
	return memberRow{
		ID:                  m.ID,
		Email:               m.Email,
		FullName:            m.FullName,
		Phone:               null.NewString(m.Phone, m.Phone != ""),
		VoicePart:           null.NewString(m.VoicePart, m.VoicePart != ""),
		ClassYear:           null.NewInt(m.ClassYear, m.ClassYear != 0),
		Status:              m.Status,
		Roles:               pq.StringArray(m.Roles),
		IsExecBoard:         m.IsExecBoard,
		ExecBoardRole:       null.NewString(m.ExecBoardRole, m.ExecBoardRole != ""),
		ForcePasswordChange: m.ForcePasswordChange,
		IsActive:            null.BoolFromPtr(m.IsActive),
		PasswordHash:        null.NewBytes(m.PasswordHash, m.PasswordHash != nil),
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
		LastLogin:           null.NewTime(m.LastLogin.UTC(), !m.LastLogin.IsZero()),
	}
}

func (r memberRow) toMember() member.Member {
	roles := []string(r.Roles)
	if roles == nil {
		roles = []string{}
	}
	return member.Member{
		ID:                  r.ID,
		Email:               r.Email,
		FullName:            r.FullName,
		Phone:               r.Phone.String,
		VoicePart:           r.VoicePart.String,
		ClassYear:           r.ClassYear.Int,
		Status:              r.Status,
		Roles:               roles,
		IsExecBoard:         r.IsExecBoard,
		ExecBoardRole:       r.ExecBoardRole.String,
		ForcePasswordChange: r.ForcePasswordChange,
		IsActive:            r.IsActive.Ptr(),
		PasswordHash:        r.PasswordHash.Bytes,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		LastLogin:           r.LastLogin.Time,
	}
}

type memberRepository struct {
	db *sqlx.DB
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) *memberRepository {
	return &memberRepository{db: db}
}

func (repo *memberRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...member.Member) error {
	w := &where{}
	w.add("email = ?", email)
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, m := range excluded {
			ids = append(ids, m.ID)
		}
		w.add("NOT (id::text = ANY(?))", pq.Array(ids))
	}
	var found bool
	q := repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM members" + w.String() + ")")
	if err := repo.db.GetContext(ctx, &found, q, w.args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if found {
		return member.ErrEmailExists
	}
	return nil
}

func (repo *memberRepository) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	row := toMemberRow(m)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO members (`+memberColumns+`) VALUES (
		:id, :email, :full_name, :phone, :voice_part, :class_year, :status, :roles, :is_exec_board,
		:exec_board_role, :force_password_change, :is_active, :password_hash, :created_at, :updated_at, :last_login)`, row)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return member.Member{}, member.ErrEmailExists
		}
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return row.toMember(), nil
}

func (repo *memberRepository) QueryMembers(ctx context.Context, filter *member.QueryFilter, ordering []core.DBOrdering) ([]member.Member, error) {
	w := &where{}
	if filter != nil {
		// members with FullName or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(full_name ILIKE ? OR email ILIKE ?)", val, val)
		}
		// members with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, role+"%")
			}
			w.add("EXISTS (SELECT 1 FROM unnest(roles) member_role WHERE member_role LIKE ANY(?))", pq.Array(patterns))
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.VoicePart != "" {
			w.add("voice_part = ?", filter.VoicePart)
		}
		if len(filter.ClassYears) > 0 {
			years := make([]int64, 0, len(filter.ClassYears))
			for _, y := range filter.ClassYears {
				years = append(years, int64(y))
			}
			w.add("class_year = ANY(?)", pq.Int64Array(years))
		}
		if filter.IsActive != nil {
			w.add("COALESCE(is_active, true) = ?", *filter.IsActive)
		}
		if filter.IsExecBoard != nil {
			w.add("is_exec_board = ?", *filter.IsExecBoard)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []memberRow
	order := core.OrderByClause(ordering, memberOrderings, "full_name ASC")
	if err := selectWhere(ctx, repo.db, &rows, "SELECT "+memberColumns+" FROM members", w, order); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	members := make([]member.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.toMember())
	}
	return members, nil
}

func (repo *memberRepository) getMember(ctx context.Context, column, value string) (member.Member, error) {
	var row memberRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+memberColumns+" FROM members WHERE "+column+" = $1", value)
	if err != nil {
		return member.Member{}, trapNoRowsErr(err, member.ErrNotFound, "finding member by "+column)
	}
	return row.toMember(), nil
}

func (repo *memberRepository) GetMemberByID(ctx context.Context, id string) (member.Member, error) {
	return repo.getMember(ctx, "id::text", id)
}

func (repo *memberRepository) GetMemberByEmail(ctx context.Context, email string) (member.Member, error) {
	return repo.getMember(ctx, "email", email)
}

func (repo *memberRepository) UpdateMember(ctx context.Context, m member.Member) (member.Member, error) {
	row := toMemberRow(m)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE members SET
		email = :email, full_name = :full_name, phone = :phone, voice_part = :voice_part, class_year = :class_year,
		status = :status, roles = :roles, is_exec_board = :is_exec_board, exec_board_role = :exec_board_role,
		force_password_change = :force_password_change, is_active = :is_active, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, row)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return row.toMember(), nil
}

func (repo *memberRepository) DeleteMembersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, "DELETE FROM members WHERE id::text = ANY($1)", pq.Array(ids))
	return errors.Wrap(err, "deleting members")
}

func (repo *memberRepository) UpsertExecBoardMember(ctx context.Context, ebm member.ExecBoardMember) (member.ExecBoardMember, error) {
	err := repo.db.GetContext(ctx, &ebm.ID, `INSERT INTO exec_board_members (id, member_id, position, academic_year, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (member_id, academic_year) DO UPDATE SET position = EXCLUDED.position, is_active = EXCLUDED.is_active
		RETURNING id`, ebm.ID, ebm.MemberID, ebm.Position, ebm.AcademicYear, ebm.IsActive)
	if err != nil {
		return member.ExecBoardMember{}, errors.Wrap(err, "upserting exec board member")
	}
	return ebm, nil
}

type execBoardRow struct {
	ID           string `db:"id"`
	MemberID     string `db:"member_id"`
	Position     string `db:"position"`
	AcademicYear string `db:"academic_year"`
	IsActive     bool   `db:"is_active"`
}

func (repo *memberRepository) QueryExecBoardMembers(ctx context.Context, academicYear string) ([]member.ExecBoardMember, error) {
	var rows []execBoardRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT id, member_id, position, academic_year, is_active
		FROM exec_board_members WHERE academic_year = $1 ORDER BY position`, academicYear)
	if err != nil {
		return nil, errors.Wrap(err, "querying exec board members")
	}
	ebms := make([]member.ExecBoardMember, 0, len(rows))
	for _, r := range rows {
		ebms = append(ebms, member.ExecBoardMember(r))
	}
	return ebms, nil
}
