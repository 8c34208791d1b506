package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultJournalRubric(t *testing.T) {
	tests := []struct {
		points int
		want   []int
	}{
		{points: 100, want: []int{35, 30, 25, 10}},
		{points: 20, want: []int{7, 6, 5, 2}},
		{points: 7, want: []int{4, 2, 1, 0}},
	}
	for _, tt := range tests {
		rubric := DefaultJournalRubric(tt.points)
		got := make([]int, len(rubric))
		for i, c := range rubric {
			got[i] = c.MaxPoints
		}
		assert.Equal(t, tt.want, got, "points=%d", tt.points)
		assert.Equal(t, tt.points, RubricPoints(rubric))
		assert.Equal(t, "Content Quality", rubric[0].Name)
	}
}

func TestScaleRubric(t *testing.T) {
	rubric := []Criterion{{Name: "Tone", MaxPoints: 5}, {Name: "Rhythm", MaxPoints: 3}, {Name: "Diction", MaxPoints: 2}}
	quarters := []Criterion{{Name: "a", MaxPoints: 1}, {Name: "b", MaxPoints: 1}, {Name: "c", MaxPoints: 1}, {Name: "d", MaxPoints: 1}}

	tests := []struct {
		name   string
		rubric []Criterion
		points int
		want   []int
	}{
		{name: "exact multiple", rubric: rubric, points: 50, want: []int{25, 15, 10}},
		{name: "remainder to first", rubric: rubric, points: 11, want: []int{6, 3, 2}},
		{name: "unchanged", rubric: rubric, points: 10, want: []int{5, 3, 2}},
		{name: "halves never overshoot", rubric: quarters, points: 2, want: []int{2, 0, 0, 0}},
		{name: "shrink", rubric: quarters, points: 6, want: []int{3, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaled := ScaleRubric(tt.rubric, tt.points)
			got := make([]int, len(scaled))
			for i, c := range scaled {
				got[i] = c.MaxPoints
				assert.GreaterOrEqual(t, c.MaxPoints, 0)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.points, RubricPoints(scaled))
		})
	}

	ScaleRubric(rubric, 50)
	assert.Equal(t, 5, rubric[0].MaxPoints, "input must not be modified")
	assert.Empty(t, ScaleRubric(nil, 10))
}

func Test_rubricFor(t *testing.T) {
	a := Assignment{Points: 40}
	assert.Equal(t, DefaultJournalRubric(40), rubricFor(a))

	a.Rubric = []Criterion{{Name: "Listening", MaxPoints: 1}, {Name: "Context", MaxPoints: 1}}
	got := rubricFor(a)
	assert.Equal(t, 20, got[0].MaxPoints)
	assert.Equal(t, 20, got[1].MaxPoints)
}

func Test_findCriterion(t *testing.T) {
	rubric := DefaultJournalRubric(100)
	tests := []struct {
		name   string
		want   string
		wantOk bool
	}{
		{name: "Critical Analysis", want: "Critical Analysis", wantOk: true},
		{name: "  critical   ANALYSIS ", want: "Critical Analysis", wantOk: true},
		{name: "Writing", want: "Writing Quality", wantOk: true},
		{name: "Musical Understanding and Terminology", want: "Musical Understanding", wantOk: true},
		{name: "Creativity"},
		{name: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := findCriterion(rubric, tt.name)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, c.Name)
		})
	}
}

func Test_scoreCriteria(t *testing.T) {
	rubric := DefaultJournalRubric(100)
	got := scoreCriteria(rubric, []CriterionScore{
		{CriterionName: "content quality", Score: 50, Feedback: "Thorough."},
		{CriterionName: "Critical Analysis", Score: -3, Feedback: "Missing."},
		{CriterionName: "Critical Analysis", Score: 30, Feedback: "duplicate"},
		{CriterionName: "Writing Quality", Score: math.NaN()},
		{CriterionName: "Vibes", Score: 10},
	})

	if assert.Len(t, got, 4) {
		assert.Equal(t, CriterionScore{CriterionName: "Content Quality", Score: 35, MaxPoints: 35, Feedback: "Thorough."}, got[0])
		assert.Equal(t, 0.0, got[1].Score)
		assert.Equal(t, "Missing.", got[1].Feedback)
		assert.Equal(t, CriterionScore{CriterionName: "Musical Understanding", MaxPoints: 25, Feedback: "Not assessed."}, got[2])
		assert.Equal(t, 0.0, got[3].Score)
		assert.Equal(t, 10, got[3].MaxPoints)
	}
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"}, {93, "A"}, {92.99, "A-"}, {90, "A-"}, {88, "B+"}, {85, "B"},
		{80, "B-"}, {78, "C+"}, {75, "C"}, {70, "C-"}, {68, "D+"}, {65, "D"},
		{60, "D-"}, {59.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := LetterGrade(tt.pct); got != tt.want {
			t.Errorf("LetterGrade(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func Test_scoreMidterm(t *testing.T) {
	assert.Equal(t, 90, midtermPossible())

	grades, achieved := scoreMidterm([]QuestionGrade{
		{QuestionID: "Negro_Spiritual", Score: 9, Feedback: "Good."},
		{QuestionID: "blues", Score: 12},
		{QuestionID: "excerpt_1", Score: -1},
		{QuestionID: "essay", Score: 18},
		{QuestionID: "essay", Score: 2},
	})

	if assert.Len(t, grades, len(MidtermQuestions)) {
		assert.Equal(t, QuestionGrade{QuestionID: "negro_spiritual", Score: 9, TotalPoints: 10, Feedback: "Good."}, grades[0])
		assert.Equal(t, "Not assessed.", grades[1].Feedback)
		assert.Equal(t, 10.0, grades[3].Score)
		assert.Equal(t, 0.0, grades[4].Score)
		assert.Equal(t, 18.0, grades[6].Score)
	}
	assert.Equal(t, 37.0, achieved)
}
