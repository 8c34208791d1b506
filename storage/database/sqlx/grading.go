package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core/grading"
)

type (
	assignmentRow struct {
		ID        string         `db:"id"`
		Title     string         `db:"title"`
		Prompt    string         `db:"prompt"`
		Kind      string         `db:"kind"`
		Points    int            `db:"points"`
		Rubric    types.JSONText `db:"rubric"`
		DueAt     null.Time      `db:"due_at"`
		CreatedBy null.String    `db:"created_by"`
		CreatedAt time.Time      `db:"created_at"`
		UpdatedAt time.Time      `db:"updated_at"`
	}

	submissionRow struct {
		ID                    string         `db:"id"`
		AssignmentID          string         `db:"assignment_id"`
		StudentID             string         `db:"student_id"`
		Content               string         `db:"content"`
		Answers               types.JSONText `db:"answers"`
		WordCount             int            `db:"word_count"`
		Status                string         `db:"status"`
		Grade                 null.Float64   `db:"grade"`
		QuestionGrades        types.JSONText `db:"question_grades"`
		ComprehensiveFeedback null.String    `db:"comprehensive_feedback"`
		SubmittedAt           time.Time      `db:"submitted_at"`
		GradedAt              null.Time      `db:"graded_at"`
		GradedBy              null.String    `db:"graded_by"`
	}

	gradeRow struct {
		ID              string         `db:"id"`
		SubmissionID    string         `db:"submission_id"`
		AssignmentID    string         `db:"assignment_id"`
		StudentID       string         `db:"student_id"`
		TotalScore      float64        `db:"total_score"`
		MaxPoints       int            `db:"max_points"`
		Percentage      float64        `db:"percentage"`
		LetterGrade     string         `db:"letter_grade"`
		CriterionScores types.JSONText `db:"criterion_scores"`
		OverallFeedback null.String    `db:"overall_feedback"`
		Strengths       null.String    `db:"strengths"`
		Improvements    null.String    `db:"improvements"`
		AIDetection     types.JSONText `db:"ai_detection"`
		GradedBy        null.String    `db:"graded_by"`
		GradedAt        time.Time      `db:"graded_at"`
	}
)

func toAssignmentRow(a grading.Assignment) (assignmentRow, error) {
	rubric := a.Rubric
	if rubric == nil {
		rubric = []grading.Criterion{}
	}
	txt, err := jsonText(rubric)
	if err != nil {
		return assignmentRow{}, err
	}
	return assignmentRow{
		ID:        a.ID,
		Title:     a.Title,
		Prompt:    a.Prompt,
		Kind:      a.Kind,
		Points:    a.Points,
		Rubric:    txt,
		DueAt:     null.TimeFromPtr(a.DueAt),
		CreatedBy: nullStr(a.CreatedBy),
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}, nil
}

func (r assignmentRow) toAssignment() (grading.Assignment, error) {
	a := grading.Assignment{
		ID:        r.ID,
		Title:     r.Title,
		Prompt:    r.Prompt,
		Kind:      r.Kind,
		Points:    r.Points,
		DueAt:     r.DueAt.Ptr(),
		CreatedBy: r.CreatedBy.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	return a, unmarshalJSON(r.Rubric, &a.Rubric)
}

func toSubmissionRow(s grading.Submission) (submissionRow, error) {
	row := submissionRow{
		ID:                    s.ID,
		AssignmentID:          s.AssignmentID,
		StudentID:             s.StudentID,
		Content:               s.Content,
		WordCount:             s.WordCount,
		Status:                s.Status,
		Grade:                 null.Float64FromPtr(s.Grade),
		ComprehensiveFeedback: nullStr(s.ComprehensiveFeedback),
		SubmittedAt:           s.SubmittedAt.UTC(),
		GradedAt:              null.TimeFromPtr(s.GradedAt),
		GradedBy:              nullStr(s.GradedBy),
	}
	var err error
	if row.Answers, err = jsonText(s.Answers); err != nil {
		return submissionRow{}, err
	}
	if row.QuestionGrades, err = jsonText(s.QuestionGrades); err != nil {
		return submissionRow{}, err
	}
	return row, nil
}

func (r submissionRow) toSubmission() (grading.Submission, error) {
	s := grading.Submission{
		ID:                    r.ID,
		AssignmentID:          r.AssignmentID,
		StudentID:             r.StudentID,
		Content:               r.Content,
		WordCount:             r.WordCount,
		Status:                r.Status,
		Grade:                 r.Grade.Ptr(),
		ComprehensiveFeedback: r.ComprehensiveFeedback.String,
		SubmittedAt:           r.SubmittedAt,
		GradedAt:              r.GradedAt.Ptr(),
		GradedBy:              r.GradedBy.String,
	}
	if err := unmarshalJSON(r.Answers, &s.Answers); err != nil {
		return grading.Submission{}, err
	}
	if err := unmarshalJSON(r.QuestionGrades, &s.QuestionGrades); err != nil {
		return grading.Submission{}, err
	}
	return s, nil
}

func (r gradeRow) toGrade() (grading.Grade, error) {
	g := grading.Grade{
		ID:              r.ID,
		SubmissionID:    r.SubmissionID,
		AssignmentID:    r.AssignmentID,
		StudentID:       r.StudentID,
		TotalScore:      r.TotalScore,
		MaxPoints:       r.MaxPoints,
		Percentage:      r.Percentage,
		LetterGrade:     r.LetterGrade,
		OverallFeedback: r.OverallFeedback.String,
		Strengths:       r.Strengths.String,
		Improvements:    r.Improvements.String,
		GradedBy:        r.GradedBy.String,
		GradedAt:        r.GradedAt,
	}
	if err := unmarshalJSON(r.CriterionScores, &g.CriterionScores); err != nil {
		return grading.Grade{}, err
	}
	if err := unmarshalJSON(r.AIDetection, &g.AIDetection); err != nil {
		return grading.Grade{}, err
	}
	return g, nil
}

type gradingRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *sqlx.DB) *gradingRepository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) CreateAssignment(ctx context.Context, a grading.Assignment) (grading.Assignment, error) {
	row, err := toAssignmentRow(a)
	if err != nil {
		return grading.Assignment{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `INSERT INTO assignments
		(id, title, prompt, kind, points, rubric, due_at, created_by, created_at, updated_at)
		VALUES (:id, :title, :prompt, :kind, :points, :rubric, :due_at, :created_by, :created_at, :updated_at)`, row)
	if err != nil {
		return grading.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *gradingRepository) GetAssignmentByID(ctx context.Context, id string) (grading.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM assignments WHERE id::text = $1", id); err != nil {
		return grading.Assignment{}, trapNoRowsErr(err, grading.ErrAssignmentNotFound, "finding assignment by ID")
	}
	return row.toAssignment()
}

func (repo *gradingRepository) QueryAssignments(ctx context.Context) ([]grading.Assignment, error) {
	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM assignments ORDER BY created_at"); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	as := make([]grading.Assignment, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAssignment()
		if err != nil {
			return nil, err
		}
		as = append(as, a)
	}
	return as, nil
}

func (repo *gradingRepository) UpdateAssignment(ctx context.Context, a grading.Assignment) (grading.Assignment, error) {
	row, err := toAssignmentRow(a)
	if err != nil {
		return grading.Assignment{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE assignments SET title = :title, prompt = :prompt, kind = :kind,
		points = :points, rubric = :rubric, due_at = :due_at, updated_at = :updated_at WHERE id = :id`, row)
	if err != nil {
		return grading.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grading.Assignment{}, grading.ErrAssignmentNotFound
	}
	return a, nil
}

func (repo *gradingRepository) DeleteAssignment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM assignments WHERE id::text = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grading.ErrAssignmentNotFound
	}
	return nil
}

func (repo *gradingRepository) CreateSubmission(ctx context.Context, s grading.Submission) (grading.Submission, error) {
	row, err := toSubmissionRow(s)
	if err != nil {
		return grading.Submission{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `INSERT INTO submissions
		(id, assignment_id, student_id, content, answers, word_count, status, grade, question_grades,
		 comprehensive_feedback, submitted_at, graded_at, graded_by)
		VALUES (:id, :assignment_id, :student_id, :content, :answers, :word_count, :status, :grade, :question_grades,
		 :comprehensive_feedback, :submitted_at, :graded_at, :graded_by)`, row)
	if err != nil {
		return grading.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo *gradingRepository) GetSubmissionByID(ctx context.Context, id string) (grading.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM submissions WHERE id::text = $1", id); err != nil {
		return grading.Submission{}, trapNoRowsErr(err, grading.ErrSubmissionNotFound, "finding submission by ID")
	}
	return row.toSubmission()
}

func (repo *gradingRepository) QuerySubmissions(ctx context.Context, filter *grading.SubmissionFilter) ([]grading.Submission, error) {
	w := &where{}
	if filter != nil {
		if filter.AssignmentID != "" {
			w.add("assignment_id::text = ?", filter.AssignmentID)
		}
		if filter.StudentID != "" {
			w.add("student_id::text = ?", filter.StudentID)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}
	var rows []submissionRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM submissions", w, " ORDER BY submitted_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	ss := make([]grading.Submission, 0, len(rows))
	for _, r := range rows {
		s, err := r.toSubmission()
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, nil
}

func (repo *gradingRepository) UpdateSubmission(ctx context.Context, s grading.Submission) (grading.Submission, error) {
	row, err := toSubmissionRow(s)
	if err != nil {
		return grading.Submission{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE submissions SET content = :content, answers = :answers,
		word_count = :word_count, status = :status, grade = :grade, question_grades = :question_grades,
		comprehensive_feedback = :comprehensive_feedback, submitted_at = :submitted_at, graded_at = :graded_at,
		graded_by = :graded_by
		WHERE id = :id`, row)
	if err != nil {
		return grading.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grading.Submission{}, grading.ErrSubmissionNotFound
	}
	return s, nil
}

func (repo *gradingRepository) UpsertGrade(ctx context.Context, g grading.Grade) (grading.Grade, error) {
	scores, err := jsonText(g.CriterionScores)
	if err != nil {
		return grading.Grade{}, err
	}
	if g.CriterionScores == nil {
		scores = types.JSONText("[]")
	}
	detection, err := jsonText(g.AIDetection)
	if err != nil {
		return grading.Grade{}, err
	}
	row := gradeRow{
		ID:              g.ID,
		SubmissionID:    g.SubmissionID,
		AssignmentID:    g.AssignmentID,
		StudentID:       g.StudentID,
		TotalScore:      g.TotalScore,
		MaxPoints:       g.MaxPoints,
		Percentage:      g.Percentage,
		LetterGrade:     g.LetterGrade,
		CriterionScores: scores,
		OverallFeedback: nullStr(g.OverallFeedback),
		Strengths:       nullStr(g.Strengths),
		Improvements:    nullStr(g.Improvements),
		AIDetection:     detection,
		GradedBy:        nullStr(g.GradedBy),
		GradedAt:        g.GradedAt.UTC(),
	}
	q, args, err := repo.db.BindNamed(`INSERT INTO grades
		(id, submission_id, assignment_id, student_id, total_score, max_points, percentage, letter_grade,
		 criterion_scores, overall_feedback, strengths, improvements, ai_detection, graded_by, graded_at)
		VALUES (:id, :submission_id, :assignment_id, :student_id, :total_score, :max_points, :percentage, :letter_grade,
		 :criterion_scores, :overall_feedback, :strengths, :improvements, :ai_detection, :graded_by, :graded_at)
		ON CONFLICT (submission_id) DO UPDATE SET total_score = EXCLUDED.total_score, max_points = EXCLUDED.max_points,
			percentage = EXCLUDED.percentage, letter_grade = EXCLUDED.letter_grade,
			criterion_scores = EXCLUDED.criterion_scores, overall_feedback = EXCLUDED.overall_feedback,
			strengths = EXCLUDED.strengths, improvements = EXCLUDED.improvements,
			ai_detection = EXCLUDED.ai_detection, graded_by = EXCLUDED.graded_by, graded_at = EXCLUDED.graded_at
		RETURNING id`, row)
	if err != nil {
		return grading.Grade{}, errors.Wrap(err, "binding grade")
	}
	if err = repo.db.GetContext(ctx, &g.ID, q, args...); err != nil {
		return grading.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return g, nil
}

func (repo *gradingRepository) GetGradeBySubmission(ctx context.Context, submissionID string) (grading.Grade, error) {
	var row gradeRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM grades WHERE submission_id::text = $1", submissionID); err != nil {
		return grading.Grade{}, trapNoRowsErr(err, grading.ErrGradeNotFound, "finding grade by submission")
	}
	return row.toGrade()
}

func (repo *gradingRepository) QueryGrades(ctx context.Context, filter *grading.GradeFilter) ([]grading.Grade, error) {
	w := &where{}
	if filter != nil {
		if filter.AssignmentID != "" {
			w.add("assignment_id::text = ?", filter.AssignmentID)
		}
		if filter.StudentID != "" {
			w.add("student_id::text = ?", filter.StudentID)
		}
	}
	var rows []gradeRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM grades", w, " ORDER BY graded_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	gs := make([]grading.Grade, 0, len(rows))
	for _, r := range rows {
		g, err := r.toGrade()
		if err != nil {
			return nil, err
		}
		gs = append(gs, g)
	}
	return gs, nil
}
