package grading

import (
	"fmt"
	"strings"
)

type MidtermQuestion struct {
	ID     string
	Label  string
	Points int
}

// MidtermQuestions lists the MUS 240 midterm: four terms, two listening excerpts and an essay.
var MidtermQuestions = []MidtermQuestion{
	{ID: "negro_spiritual", Label: "Term definition: Negro Spiritual", Points: 10},
	{ID: "field_holler", Label: "Term definition: Field Holler", Points: 10},
	{ID: "ring_shout", Label: "Term definition: Ring Shout", Points: 10},
	{ID: "blues", Label: "Term definition: Blues", Points: 10},
	{ID: "excerpt_1", Label: "Listening excerpt 1", Points: 15},
	{ID: "excerpt_2", Label: "Listening excerpt 2", Points: 15},
	{ID: "essay", Label: "Essay", Points: 20},
}

func midtermPossible() int {
	total := 0
	for _, q := range MidtermQuestions {
		total += q.Points
	}
	return total
}

func midtermPrompt(s Submission) string {
	var b strings.Builder
	b.WriteString("Grade each answer of this MUS 240 (African American Music) midterm.\n\n")
	for _, q := range MidtermQuestions {
		answer := s.Answers[q.ID]
		if answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "QUESTION %s - %s (%d points)\nANSWER: %s\n\n", q.ID, q.Label, q.Points, answer)
	}
	b.WriteString("Score every question between 0 and its points and give brief, constructive feedback.")
	return b.String()
}

// scoreMidterm clamps the model's scores per question. Unanswered questions score 0.
func scoreMidterm(scored []QuestionGrade) (grades []QuestionGrade, achieved float64) {
	byID := make(map[string]QuestionGrade, len(scored))
	for _, g := range scored {
		id := normalizeName(g.QuestionID)
		if _, dup := byID[id]; !dup {
			byID[id] = g
		}
	}
	grades = make([]QuestionGrade, 0, len(MidtermQuestions))
	for _, q := range MidtermQuestions {
		g, ok := byID[q.ID]
		if !ok {
			g = QuestionGrade{Feedback: "Not assessed."}
		}
		g.QuestionID = q.ID
		g.TotalPoints = q.Points
		g.Score = clamp(g.Score, 0, float64(q.Points))
		achieved += g.Score
		grades = append(grades, g)
	}
	return grades, achieved
}
