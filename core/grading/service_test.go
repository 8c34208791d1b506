package grading_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/notification"
	inmemdb "github.com/gleeworld/gleeworld/storage/database/inmem"
	"github.com/gleeworld/gleeworld/testutil"
)

type notifierMock struct {
	sent map[string][]notification.Message
}

func (n *notifierMock) Notify(_ context.Context, memberIDs []string, msg notification.Message) error {
	for _, id := range memberIDs {
		n.sent[id] = append(n.sent[id], msg)
	}
	return nil
}

type env struct {
	svc      *grading.Service
	llm      *testutil.FakeCompleter
	notifier *notifierMock
}

func setup(t *testing.T) env {
	conf := testutil.NewConfig()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	llm := new(testutil.FakeCompleter)
	notifier := &notifierMock{sent: make(map[string][]notification.Message)}
	repo := inmemdb.NewGradingRepository(inmemdb.Open())
	return env{
		svc:      grading.NewService(repo, llm, notifier, validate, testutil.NewLogger(conf)),
		llm:      llm,
		notifier: notifier,
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestService_GradeSubmission(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	a, err := e.svc.CreateAssignment(ctx, "prof", grading.NewAssignment{
		Title:  "Journal 3: Ring Shout",
		Prompt: "Reflect on the ring shout as a form of worship.",
		Kind:   " Journal ",
		Points: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, grading.KindJournal, a.Kind)

	_, err = e.svc.Submit(ctx, "stu", a.ID, grading.NewSubmission{})
	require.Error(t, err)

	s, err := e.svc.Submit(ctx, "stu", a.ID, grading.NewSubmission{Content: "The ring shout moves in a counterclockwise circle."})
	require.NoError(t, err)
	assert.Equal(t, grading.StatusSubmitted, s.Status)
	assert.Equal(t, 8, s.WordCount)

	e.llm.ToolArgs = mustJSON(t, map[string]interface{}{
		"criteria_scores": []map[string]interface{}{
			{"criterion_name": "Content Quality", "score": 7, "max_points": 7, "feedback": "Clear."},
			{"criterion_name": "Critical Analysis", "score": 5, "max_points": 6, "feedback": "Go deeper."},
			{"criterion_name": "Musical Understanding", "score": 4, "max_points": 5, "feedback": "Good terms."},
			{"criterion_name": "Writing Quality", "score": 2, "max_points": 2, "feedback": "Clean."},
		},
		"overall_strengths":     "Vivid description.",
		"areas_for_improvement": "Cite the readings.",
		"overall_feedback":      "Solid work.",
		"ai_detection":          map[string]interface{}{"is_flagged": false, "confidence": "low", "reasoning": "Personal voice."},
	})

	res, err := e.svc.GradeSubmission(ctx, "prof", s.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 18.0, res.TotalScore)
	assert.Equal(t, 20, res.MaxPoints)
	assert.Equal(t, 90.0, res.Percentage)
	assert.Equal(t, "A-", res.LetterGrade)
	assert.False(t, res.AIFlagged)
	assert.Equal(t, "submit_grade", e.llm.LastTool)
	assert.Contains(t, e.llm.LastUser, "counterclockwise")

	g, err := e.svc.GradeOf(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cite the readings.", g.Improvements)
	assert.Len(t, g.CriterionScores, 4)

	graded, err := e.svc.GetSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, grading.StatusGraded, graded.Status)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 90.0, *graded.Grade)

	if assert.Len(t, e.notifier.sent["stu"], 1) {
		assert.Equal(t, notification.CategoryGrading, e.notifier.sent["stu"][0].Category)
	}

	_, err = e.svc.Submit(ctx, "stu", a.ID, grading.NewSubmission{Content: "A second try."})
	assert.Equal(t, grading.ErrAlreadyGraded, err)

	_, err = e.svc.GradeSubmission(ctx, "prof", "nope")
	assert.Equal(t, grading.ErrSubmissionNotFound, err)
}

func TestService_GradeSubmission_llmError(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	a, err := e.svc.CreateAssignment(ctx, "prof", grading.NewAssignment{Title: "Essay", Prompt: "Blues origins", Kind: grading.KindEssay, Points: 100})
	require.NoError(t, err)
	s, err := e.svc.Submit(ctx, "stu", a.ID, grading.NewSubmission{Content: "The blues grew out of field hollers."})
	require.NoError(t, err)

	e.llm.Err = core.ErrCreditsExhausted
	_, err = e.svc.GradeSubmission(ctx, "prof", s.ID)
	assert.Equal(t, core.ErrCreditsExhausted, err)

	got, err := e.svc.GetSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, grading.StatusSubmitted, got.Status)
	assert.Empty(t, e.notifier.sent)
}

func TestService_GenerateMidtermFeedback(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	journal, err := e.svc.CreateAssignment(ctx, "prof", grading.NewAssignment{Title: "Journal", Prompt: "Reflect", Kind: grading.KindJournal, Points: 10})
	require.NoError(t, err)
	js, err := e.svc.Submit(ctx, "stu", journal.ID, grading.NewSubmission{Content: "Some reflection."})
	require.NoError(t, err)
	_, err = e.svc.GenerateMidtermFeedback(ctx, "prof", js.ID)
	require.Error(t, err)
	assert.Zero(t, e.llm.CallCount())

	midterm, err := e.svc.CreateAssignment(ctx, "prof", grading.NewAssignment{Title: "Midterm", Prompt: "MUS 240 midterm", Kind: grading.KindMidterm, Points: 100})
	require.NoError(t, err)
	_, err = e.svc.Submit(ctx, "stu", midterm.ID, grading.NewSubmission{Content: "no answers"})
	require.Error(t, err)

	s, err := e.svc.Submit(ctx, "stu", midterm.ID, grading.NewSubmission{Answers: map[string]string{
		"blues": "A secular form built on a twelve bar structure.",
		"essay": "Spirituals carried coded messages.",
	}})
	require.NoError(t, err)

	e.llm.ToolArgs = mustJSON(t, map[string]interface{}{"grades": []map[string]interface{}{
		{"question_id": "blues", "score": 9, "feedback": "Accurate."},
		{"question_id": "essay", "score": 16, "feedback": "Well argued."},
	}})
	res, err := e.svc.GenerateMidtermFeedback(ctx, "prof", s.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 28.0, res.Grade) // round(25/90*100)
	assert.Equal(t, "F", res.LetterGrade)
	assert.Len(t, res.Grades, len(grading.MidtermQuestions))
	assert.Contains(t, e.llm.LastUser, "twelve bar")

	got, err := e.svc.GetSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, grading.StatusGraded, got.Status)
	assert.Len(t, got.QuestionGrades, len(grading.MidtermQuestions))
}

func TestService_GenerateComprehensiveFeedback(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	a, err := e.svc.CreateAssignment(ctx, "prof", grading.NewAssignment{Title: "Essay", Prompt: "Gospel choirs", Kind: grading.KindEssay, Points: 100})
	require.NoError(t, err)
	s, err := e.svc.Submit(ctx, "stu", a.ID, grading.NewSubmission{Content: "Gospel choirs blend spirituals and blues."})
	require.NoError(t, err)

	e.llm.JSON = []byte(`{"feedback": "Strong synthesis.", "grade": 140}`)
	res, err := e.svc.GenerateComprehensiveFeedback(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Strong synthesis.", res.Feedback)
	assert.Equal(t, 100.0, res.Grade)

	got, err := e.svc.GetSubmission(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Grade)
	assert.Equal(t, 100.0, *got.Grade)

	// an existing grade is kept
	e.llm.JSON = []byte(`{"feedback": "Revised.", "grade": 80}`)
	_, err = e.svc.GenerateComprehensiveFeedback(ctx, s.ID)
	require.NoError(t, err)
	got, err = e.svc.GetSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revised.", got.ComprehensiveFeedback)
	assert.Equal(t, 100.0, *got.Grade)
}
