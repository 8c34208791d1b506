package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/notification"
)

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrGradeNotFound      = errors.New("grade not found")
	ErrAlreadyGraded      = errors.New("submission has already been graded")

	errEmptySubmission = errors.New("submission has no content")
	errNotMidterm      = errors.New("submission is not a midterm")
)

type Repository interface {
	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
	QueryAssignments(ctx context.Context) ([]Assignment, error)
	UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error

	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmissionByID(ctx context.Context, id string) (Submission, error)
	QuerySubmissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error)
	UpdateSubmission(ctx context.Context, s Submission) (Submission, error)

	// UpsertGrade stores the grade of a submission, replacing any earlier one.
	UpsertGrade(ctx context.Context, g Grade) (Grade, error)
	GetGradeBySubmission(ctx context.Context, submissionID string) (Grade, error)
	QueryGrades(ctx context.Context, filter *GradeFilter) ([]Grade, error)
}

type Notifier interface {
	Notify(ctx context.Context, memberIDs []string, msg notification.Message) error
}

type Service struct {
	repo     Repository
	llm      core.Completer
	notifier Notifier
	validate *validator.Validate
	logger   core.Logger
}

func NewService(repo Repository, llm core.Completer, notifier Notifier, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, llm: llm, notifier: notifier, validate: validate, logger: logger}
}

func (svc *Service) CreateAssignment(ctx context.Context, by string, na NewAssignment) (Assignment, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}
	now := core.NowFunc()
	return svc.repo.CreateAssignment(ctx, Assignment{
		ID:        uuid.New().String(),
		Title:     na.Title,
		Prompt:    na.Prompt,
		Kind:      na.Kind,
		Points:    na.Points,
		Rubric:    na.Rubric,
		DueAt:     na.DueAt,
		CreatedBy: by,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) UpdateAssignment(ctx context.Context, id string, na NewAssignment) (Assignment, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	a.Title, a.Prompt, a.Kind, a.Points, a.Rubric, a.DueAt = na.Title, na.Prompt, na.Kind, na.Points, na.Rubric, na.DueAt
	a.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateAssignment(ctx, a)
}

func (svc *Service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) Assignments(ctx context.Context) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx)
}

func (svc *Service) DeleteAssignment(ctx context.Context, id string) error {
	return svc.repo.DeleteAssignment(ctx, id)
}

// Submit stores the student's work for an assignment. Ungraded submissions may be replaced.
func (svc *Service) Submit(ctx context.Context, studentID, assignmentID string, ns NewSubmission) (Submission, error) {
	ns.Clean()
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	if a.Kind == KindMidterm {
		if len(ns.Answers) == 0 {
			return Submission{}, core.NewFieldError("answers", errEmptySubmission.Error())
		}
	} else if ns.Content == "" {
		return Submission{}, core.NewFieldError("content", errEmptySubmission.Error())
	}

	words := len(strings.Fields(ns.Content))
	for _, answer := range ns.Answers {
		words += len(strings.Fields(answer))
	}

	existing, err := svc.repo.QuerySubmissions(ctx, &SubmissionFilter{AssignmentID: a.ID, StudentID: studentID})
	if err != nil {
		return Submission{}, errors.Wrap(err, "querying submissions")
	}
	if len(existing) > 0 {
		s := existing[0]
		if s.Status == StatusGraded {
			return Submission{}, ErrAlreadyGraded
		}
		s.Content, s.Answers, s.WordCount = ns.Content, ns.Answers, words
		s.SubmittedAt = core.NowFunc()
		return svc.repo.UpdateSubmission(ctx, s)
	}

	return svc.repo.CreateSubmission(ctx, Submission{
		ID:           uuid.New().String(),
		AssignmentID: a.ID,
		StudentID:    studentID,
		Content:      ns.Content,
		Answers:      ns.Answers,
		WordCount:    words,
		Status:       StatusSubmitted,
		SubmittedAt:  core.NowFunc(),
	})
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

func (svc *Service) Submissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

func (svc *Service) Grades(ctx context.Context, filter *GradeFilter) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter)
}

func (svc *Service) GradeOf(ctx context.Context, submissionID string) (Grade, error) {
	return svc.repo.GetGradeBySubmission(ctx, submissionID)
}

const graderSystemPrompt = `You are an expert music educator grading MUS 240 (African American Music) work for undergraduate non-music majors.
Your evaluation must be evidence-based, balanced, constructive and supportive.
Only flag a submission as AI-generated when several red flags appear together; give students the benefit of the doubt.`

var submitGradeTool = core.Tool{
	Name:        "submit_grade",
	Description: "Submit the final grade and feedback for the submission",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"criteria_scores": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"criterion_name": map[string]interface{}{"type": "string"},
						"score":          map[string]interface{}{"type": "number"},
						"max_points":     map[string]interface{}{"type": "number"},
						"feedback":       map[string]interface{}{"type": "string"},
					},
					"required": []string{"criterion_name", "score", "max_points", "feedback"},
				},
			},
			"overall_strengths":     map[string]interface{}{"type": "string"},
			"areas_for_improvement": map[string]interface{}{"type": "string"},
			"overall_feedback":      map[string]interface{}{"type": "string"},
			"ai_detection": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"is_flagged": map[string]interface{}{"type": "boolean"},
					"confidence": map[string]interface{}{"type": "string", "enum": []string{"low", "medium", "high"}},
					"reasoning":  map[string]interface{}{"type": "string"},
				},
				"required": []string{"is_flagged", "confidence", "reasoning"},
			},
		},
		"required": []string{"criteria_scores", "overall_strengths", "areas_for_improvement", "overall_feedback", "ai_detection"},
	},
}

type submitGradeArgs struct {
	CriteriaScores      []CriterionScore `json:"criteria_scores"`
	OverallStrengths    string           `json:"overall_strengths"`
	AreasForImprovement string           `json:"areas_for_improvement"`
	OverallFeedback     string           `json:"overall_feedback"`
	AIDetection         AIDetection      `json:"ai_detection"`
}

func gradePrompt(a Assignment, s Submission, rubric []Criterion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grade this submission using the rubric below and analyze whether it was AI-generated.\n\n")
	fmt.Fprintf(&b, "ASSIGNMENT: %s\nPROMPT: %s\n\n", a.Title, a.Prompt)
	fmt.Fprintf(&b, "STUDENT SUBMISSION:\n%s\n\nWord Count: %d\n\n", s.Content, s.WordCount)
	fmt.Fprintf(&b, "RUBRIC CRITERIA (total %d points):\n", RubricPoints(rubric))
	for i, c := range rubric {
		fmt.Fprintf(&b, "%d. %s (%d points max)", i+1, c.Name, c.MaxPoints)
		if c.Description != "" {
			fmt.Fprintf(&b, "\n   %s", c.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// GradeSubmission grades a journal or essay submission against its rubric with the LLM.
func (svc *Service) GradeSubmission(ctx context.Context, actorID, submissionID string) (GradeResult, error) {
	s, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return GradeResult{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, s.AssignmentID)
	if err != nil {
		return GradeResult{}, err
	}
	if s.Content == "" {
		return GradeResult{}, core.NewFieldError("submission_id", errEmptySubmission.Error())
	}

	rubric := rubricFor(a)
	raw, err := svc.llm.CallTool(ctx, graderSystemPrompt, gradePrompt(a, s, rubric), submitGradeTool)
	if err != nil {
		return GradeResult{}, err
	}
	var args submitGradeArgs
	if err = json.Unmarshal(raw, &args); err != nil {
		return GradeResult{}, errors.Wrap(err, "parsing grade")
	}

	scores := scoreCriteria(rubric, args.CriteriaScores)
	var total float64
	for _, cs := range scores {
		total += cs.Score
	}
	maxPoints := RubricPoints(rubric)
	var pct float64
	if maxPoints > 0 {
		pct = total / float64(maxPoints) * 100
	}

	now := core.NowFunc()
	g, err := svc.repo.UpsertGrade(ctx, Grade{
		ID:              uuid.New().String(),
		SubmissionID:    s.ID,
		AssignmentID:    a.ID,
		StudentID:       s.StudentID,
		TotalScore:      total,
		MaxPoints:       maxPoints,
		Percentage:      core.Round(pct, 2),
		LetterGrade:     LetterGrade(pct),
		CriterionScores: scores,
		OverallFeedback: args.OverallFeedback,
		Strengths:       args.OverallStrengths,
		Improvements:    args.AreasForImprovement,
		AIDetection:     args.AIDetection,
		GradedBy:        actorID,
		GradedAt:        now,
	})
	if err != nil {
		return GradeResult{}, errors.Wrap(err, "saving grade")
	}

	pctRounded := math.Round(pct)
	s.Status = StatusGraded
	s.Grade = &pctRounded
	s.GradedAt = &now
	s.GradedBy = actorID
	if _, err = svc.repo.UpdateSubmission(ctx, s); err != nil {
		return GradeResult{}, errors.Wrap(err, "updating submission")
	}
	svc.notifyGraded(ctx, s, a)

	return GradeResult{
		Success:      true,
		SubmissionID: s.ID,
		AssignmentID: a.ID,
		TotalScore:   g.TotalScore,
		Percentage:   pctRounded,
		LetterGrade:  g.LetterGrade,
		MaxPoints:    g.MaxPoints,
		AIFlagged:    g.AIDetection.IsFlagged,
	}, nil
}

var submitMidtermTool = core.Tool{
	Name:        "submit_midterm_grades",
	Description: "Submit the score and feedback of every midterm question",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"grades": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question_id": map[string]interface{}{"type": "string"},
						"score":       map[string]interface{}{"type": "number"},
						"feedback":    map[string]interface{}{"type": "string"},
					},
					"required": []string{"question_id", "score", "feedback"},
				},
			},
		},
		"required": []string{"grades"},
	},
}

// GenerateMidtermFeedback grades each midterm answer with the LLM and stores the overall grade.
func (svc *Service) GenerateMidtermFeedback(ctx context.Context, actorID, submissionID string) (MidtermResult, error) {
	s, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return MidtermResult{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, s.AssignmentID)
	if err != nil {
		return MidtermResult{}, err
	}
	if a.Kind != KindMidterm {
		return MidtermResult{}, core.NewFieldError("submission_id", errNotMidterm.Error())
	}

	raw, err := svc.llm.CallTool(ctx, graderSystemPrompt, midtermPrompt(s), submitMidtermTool)
	if err != nil {
		return MidtermResult{}, err
	}
	var args struct {
		Grades []QuestionGrade `json:"grades"`
	}
	if err = json.Unmarshal(raw, &args); err != nil {
		return MidtermResult{}, errors.Wrap(err, "parsing midterm grades")
	}

	grades, achieved := scoreMidterm(args.Grades)
	grade := math.Round(achieved / float64(midtermPossible()) * 100)

	now := core.NowFunc()
	s.QuestionGrades = grades
	s.Grade = &grade
	s.Status = StatusGraded
	s.GradedAt = &now
	s.GradedBy = actorID
	if _, err = svc.repo.UpdateSubmission(ctx, s); err != nil {
		return MidtermResult{}, errors.Wrap(err, "updating submission")
	}
	svc.notifyGraded(ctx, s, a)

	return MidtermResult{Success: true, Grades: grades, Grade: grade, LetterGrade: LetterGrade(grade)}, nil
}

const feedbackSystemPrompt = `You are an encouraging music professor writing end-of-term feedback for a MUS 240 student.
Respond with a JSON object {"feedback": string, "grade": number} where grade is a percentage between 0 and 100.`

// GenerateComprehensiveFeedback writes overall feedback for a submission and suggests a grade
// that is kept only when the submission has none yet.
func (svc *Service) GenerateComprehensiveFeedback(ctx context.Context, submissionID string) (FeedbackResult, error) {
	s, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return FeedbackResult{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, s.AssignmentID)
	if err != nil {
		return FeedbackResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ASSIGNMENT: %s\nPROMPT: %s\n\n", a.Title, a.Prompt)
	if s.Content != "" {
		fmt.Fprintf(&b, "SUBMISSION:\n%s\n\n", s.Content)
	}
	for _, q := range MidtermQuestions {
		if answer, ok := s.Answers[q.ID]; ok {
			fmt.Fprintf(&b, "%s:\n%s\n\n", q.Label, answer)
		}
	}
	for _, g := range s.QuestionGrades {
		fmt.Fprintf(&b, "Score on %s: %.1f/%d (%s)\n", g.QuestionID, g.Score, g.TotalPoints, g.Feedback)
	}

	raw, err := svc.llm.CompleteJSON(ctx, feedbackSystemPrompt, b.String())
	if err != nil {
		return FeedbackResult{}, err
	}
	var out struct {
		Feedback string  `json:"feedback"`
		Grade    float64 `json:"grade"`
	}
	if err = json.Unmarshal(raw, &out); err != nil {
		return FeedbackResult{}, errors.Wrap(err, "parsing feedback")
	}
	out.Grade = clamp(out.Grade, 0, 100)

	s.ComprehensiveFeedback = out.Feedback
	if s.Grade == nil {
		grade := out.Grade
		s.Grade = &grade
	}
	if _, err = svc.repo.UpdateSubmission(ctx, s); err != nil {
		return FeedbackResult{}, errors.Wrap(err, "updating submission")
	}
	return FeedbackResult{Success: true, Feedback: out.Feedback, Grade: out.Grade}, nil
}

func (svc *Service) notifyGraded(ctx context.Context, s Submission, a Assignment) {
	msg := notification.Message{
		Title:    "Graded: " + a.Title,
		Message:  fmt.Sprintf("Your submission for %s has been graded.", a.Title),
		Category: notification.CategoryGrading,
		Link:     "/grading/submissions/" + s.ID,
	}
	if err := svc.notifier.Notify(ctx, []string{s.StudentID}, msg); err != nil {
		svc.logger.Error("notifying graded student", err)
	}
}
