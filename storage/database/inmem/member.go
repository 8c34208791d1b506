package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
)

type memberRepository struct {
	db *memberTable
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *DB) *memberRepository {
	return &memberRepository{db: db.member}
}

func copyMember(m member.Member) member.Member {
	m.Roles = append([]string(nil), m.Roles...)
	return m
}

func (repo *memberRepository) query() []member.Member {
	members := make([]member.Member, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		members = append(members, copyMember(*m))
	}
	return members
}

func (repo *memberRepository) CheckEmailUniqueness(_ context.Context, email string, excluded ...member.Member) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, m := range repo.db.table {
		if m.Email == email && !isExcluded(m.ID, excluded) {
			return member.ErrEmailExists
		}
	}
	return nil
}

func (repo *memberRepository) CreateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.table {
		if other.Email == m.Email {
			return member.Member{}, member.ErrEmailExists
		}
	}
	m = copyMember(m)
	repo.db.table[m.ID] = &m
	return copyMember(m), nil
}

func (repo *memberRepository) QueryMembers(_ context.Context, filter *member.QueryFilter, ordering []core.DBOrdering) ([]member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]member.Member, 0)
	for _, m := range repo.query() {
		if filter.Match(m) {
			members = append(members, m)
		}
	}
	sortMembers(members, ordering)
	return members, nil
}

func (repo *memberRepository) GetMemberByID(_ context.Context, id string) (member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return copyMember(*m), nil
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) GetMemberByEmail(_ context.Context, email string) (member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, m := range repo.db.table {
		if m.Email == email {
			return copyMember(*m), nil
		}
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) UpdateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[m.ID]; !ok {
		return member.Member{}, member.ErrNotFound
	}
	m = copyMember(m)
	repo.db.table[m.ID] = &m
	return copyMember(m), nil
}

func (repo *memberRepository) DeleteMembersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *memberRepository) UpsertExecBoardMember(_ context.Context, ebm member.ExecBoardMember) (member.ExecBoardMember, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := ebm.MemberID + "/" + ebm.AcademicYear
	if existing, ok := repo.db.execBoard[key]; ok {
		ebm.ID = existing.ID
	}
	repo.db.execBoard[key] = &ebm
	return ebm, nil
}

func (repo *memberRepository) QueryExecBoardMembers(_ context.Context, academicYear string) ([]member.ExecBoardMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ebms := make([]member.ExecBoardMember, 0)
	for _, ebm := range repo.db.execBoard {
		if ebm.AcademicYear == academicYear {
			ebms = append(ebms, *ebm)
		}
	}
	sort.Slice(ebms, func(i, j int) bool { return ebms[i].Position < ebms[j].Position })
	return ebms, nil
}

func isExcluded(id string, excluded []member.Member) bool {
	for _, m := range excluded {
		if m.ID == id {
			return true
		}
	}
	return false
}

// sortMembers applies the first known ordering; members are sorted by name otherwise.
func sortMembers(members []member.Member, ordering []core.DBOrdering) {
	ord := core.DBOrdering{Field: "full_name", Ascending: true}
	for _, o := range ordering {
		if o.Field == "full_name" || o.Field == "email" || o.Field == "created_at" || o.Field == "class_year" {
			ord = o
			break
		}
	}
	less := func(a, b member.Member) bool {
		switch ord.Field {
		case "email":
			return a.Email < b.Email
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "class_year":
			return a.ClassYear < b.ClassYear
		default:
			return strings.ToLower(a.FullName) < strings.ToLower(b.FullName)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		if ord.Ascending {
			return less(members[i], members[j])
		}
		return less(members[j], members[i])
	})
}
