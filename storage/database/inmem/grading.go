package inmemdb

import (
	"context"
	"sort"

	"github.com/gleeworld/gleeworld/core/grading"
)

type gradingRepository struct {
	db *gradingTable
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) *gradingRepository {
	return &gradingRepository{db: db.grading}
}

func (repo *gradingRepository) CreateAssignment(_ context.Context, a grading.Assignment) (grading.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *gradingRepository) GetAssignmentByID(_ context.Context, id string) (grading.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return grading.Assignment{}, grading.ErrAssignmentNotFound
}

func (repo *gradingRepository) QueryAssignments(_ context.Context) ([]grading.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	as := make([]grading.Assignment, 0, len(repo.db.assignments))
	for _, a := range repo.db.assignments {
		as = append(as, *a)
	}
	sort.Slice(as, func(i, j int) bool { return as[i].CreatedAt.Before(as[j].CreatedAt) })
	return as, nil
}

func (repo *gradingRepository) UpdateAssignment(_ context.Context, a grading.Assignment) (grading.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.assignments[a.ID]; !ok {
		return grading.Assignment{}, grading.ErrAssignmentNotFound
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *gradingRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.assignments[id]; !ok {
		return grading.ErrAssignmentNotFound
	}
	delete(repo.db.assignments, id)
	for sid, s := range repo.db.submissions {
		if s.AssignmentID == id {
			delete(repo.db.submissions, sid)
			delete(repo.db.grades, sid)
		}
	}
	return nil
}

func (repo *gradingRepository) CreateSubmission(_ context.Context, s grading.Submission) (grading.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *gradingRepository) GetSubmissionByID(_ context.Context, id string) (grading.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return grading.Submission{}, grading.ErrSubmissionNotFound
}

func (repo *gradingRepository) QuerySubmissions(_ context.Context, filter *grading.SubmissionFilter) ([]grading.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ss := make([]grading.Submission, 0)
	for _, s := range repo.db.submissions {
		if filter.Match(*s) {
			ss = append(ss, *s)
		}
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].SubmittedAt.After(ss[j].SubmittedAt) })
	return ss, nil
}

func (repo *gradingRepository) UpdateSubmission(_ context.Context, s grading.Submission) (grading.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.submissions[s.ID]; !ok {
		return grading.Submission{}, grading.ErrSubmissionNotFound
	}
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *gradingRepository) UpsertGrade(_ context.Context, g grading.Grade) (grading.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if existing, ok := repo.db.grades[g.SubmissionID]; ok {
		g.ID = existing.ID
	}
	repo.db.grades[g.SubmissionID] = &g
	return g, nil
}

func (repo *gradingRepository) GetGradeBySubmission(_ context.Context, submissionID string) (grading.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if g, ok := repo.db.grades[submissionID]; ok {
		return *g, nil
	}
	return grading.Grade{}, grading.ErrGradeNotFound
}

func (repo *gradingRepository) QueryGrades(_ context.Context, filter *grading.GradeFilter) ([]grading.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	gs := make([]grading.Grade, 0)
	for _, g := range repo.db.grades {
		if filter.Match(*g) {
			gs = append(gs, *g)
		}
	}
	sort.Slice(gs, func(i, j int) bool { return gs[i].GradedAt.After(gs[j].GradedAt) })
	return gs, nil
}
