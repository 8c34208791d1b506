// Package grading handles MUS 240 assignments, submissions and AI-assisted grading.
package grading

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gleeworld/gleeworld/core"
)

// Assignment kinds
const (
	KindJournal = "journal"
	KindEssay   = "essay"
	KindMidterm = "midterm"
)

// Submission statuses
const (
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

type Criterion struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxPoints   int    `json:"max_points"`
}

type Assignment struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Prompt    string      `json:"prompt"`
	Kind      string      `json:"kind"`
	Points    int         `json:"points"`
	Rubric    []Criterion `json:"rubric"`
	DueAt     *time.Time  `json:"due_at"`
	CreatedBy string      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type NewAssignment struct {
	Title  string      `json:"title" validate:"required,max=200"`
	Prompt string      `json:"prompt" validate:"required"`
	Kind   string      `json:"kind" validate:"required,oneof=journal essay midterm"`
	Points int         `json:"points" validate:"required,gt=0,lte=1000"`
	Rubric []Criterion `json:"rubric" validate:"omitempty,dive"`
	DueAt  *time.Time  `json:"due_at"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Prompt = core.CleanString(na.Prompt)
	na.Kind = core.CleanString(na.Kind, true /* lower */)
	for i := range na.Rubric {
		na.Rubric[i].Name = core.CleanString(na.Rubric[i].Name)
		na.Rubric[i].Description = core.CleanString(na.Rubric[i].Description)
		if na.Rubric[i].Name == "" || na.Rubric[i].MaxPoints <= 0 {
			return core.NewFieldError("rubric", "every criterion needs a name and positive max_points")
		}
	}
	return validate.Struct(na)
}

// QuestionGrade is the score of one midterm question.
type QuestionGrade struct {
	QuestionID  string  `json:"question_id"`
	Score       float64 `json:"score"`
	TotalPoints int     `json:"total_points"`
	Feedback    string  `json:"feedback"`
}

type Submission struct {
	ID           string            `json:"id"`
	AssignmentID string            `json:"assignment_id"`
	StudentID    string            `json:"student_id"`
	Content      string            `json:"content"`
	Answers      map[string]string `json:"answers,omitempty"`
	WordCount    int               `json:"word_count"`
	Status       string            `json:"status"`
	// Grade is the percentage grade once known.
	Grade                 *float64        `json:"grade"`
	QuestionGrades        []QuestionGrade `json:"question_grades,omitempty"`
	ComprehensiveFeedback string          `json:"comprehensive_feedback"`
	SubmittedAt           time.Time       `json:"submitted_at"`
	GradedAt              *time.Time      `json:"graded_at"`
	GradedBy              string          `json:"graded_by"`
}

type NewSubmission struct {
	Content string            `json:"content"`
	Answers map[string]string `json:"answers"`
}

func (ns *NewSubmission) Clean() {
	ns.Content = core.CleanString(ns.Content)
	for k, v := range ns.Answers {
		ns.Answers[k] = core.CleanString(v)
	}
}

type SubmissionFilter struct {
	AssignmentID string `query:"assignment_id"`
	StudentID    string `query:"student_id"`
	Status       string `query:"status"`
}

func (sf *SubmissionFilter) Match(s Submission) bool {
	if sf == nil {
		return true
	}
	if sf.AssignmentID != "" && s.AssignmentID != sf.AssignmentID {
		return false
	}
	if sf.StudentID != "" && s.StudentID != sf.StudentID {
		return false
	}
	if sf.Status != "" && s.Status != sf.Status {
		return false
	}
	return true
}

type (
	CriterionScore struct {
		CriterionName string  `json:"criterion_name"`
		Score         float64 `json:"score"`
		MaxPoints     int     `json:"max_points"`
		Feedback      string  `json:"feedback"`
	}

	AIDetection struct {
		IsFlagged  bool   `json:"is_flagged"`
		Confidence string `json:"confidence"`
		Reasoning  string `json:"reasoning"`
	}

	Grade struct {
		ID              string           `json:"id"`
		SubmissionID    string           `json:"submission_id"`
		AssignmentID    string           `json:"assignment_id"`
		StudentID       string           `json:"student_id"`
		TotalScore      float64          `json:"total_score"`
		MaxPoints       int              `json:"max_points"`
		Percentage      float64          `json:"percentage"`
		LetterGrade     string           `json:"letter_grade"`
		CriterionScores []CriterionScore `json:"criterion_scores"`
		OverallFeedback string           `json:"overall_feedback"`
		Strengths       string           `json:"strengths"`
		Improvements    string           `json:"improvements"`
		AIDetection     AIDetection      `json:"ai_detection"`
		GradedBy        string           `json:"graded_by"`
		GradedAt        time.Time        `json:"graded_at"`
	}

	GradeFilter struct {
		AssignmentID string `query:"assignment_id"`
		StudentID    string `query:"student_id"`
	}
)

func (gf *GradeFilter) Match(g Grade) bool {
	if gf == nil {
		return true
	}
	if gf.AssignmentID != "" && g.AssignmentID != gf.AssignmentID {
		return false
	}
	if gf.StudentID != "" && g.StudentID != gf.StudentID {
		return false
	}
	return true
}

type (
	GradeResult struct {
		Success      bool    `json:"success"`
		SubmissionID string  `json:"submission_id"`
		AssignmentID string  `json:"assignment_id"`
		TotalScore   float64 `json:"total_score"`
		Percentage   float64 `json:"percentage"`
		LetterGrade  string  `json:"letter_grade"`
		MaxPoints    int     `json:"max_points"`
		AIFlagged    bool    `json:"ai_flagged"`
	}

	MidtermResult struct {
		Success     bool            `json:"success"`
		Grades      []QuestionGrade `json:"grades"`
		Grade       float64         `json:"grade"`
		LetterGrade string          `json:"letter_grade"`
	}

	FeedbackResult struct {
		Success  bool    `json:"success"`
		Feedback string  `json:"feedback"`
		Grade    float64 `json:"grade"`
	}
)
