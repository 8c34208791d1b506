package grading

import (
	"math"
	"strings"
)

var defaultJournalCriteria = []struct {
	name   string
	weight float64
}{
	{"Content Quality", 0.35},
	{"Critical Analysis", 0.30},
	{"Musical Understanding", 0.25},
	{"Writing Quality", 0.10},
}

// DefaultJournalRubric splits `points` across the standard journal criteria.
// Each criterion gets floor(points*weight); the remainder goes to the first one.
func DefaultJournalRubric(points int) []Criterion {
	rubric := make([]Criterion, len(defaultJournalCriteria))
	total := 0
	for i, c := range defaultJournalCriteria {
		max := int(math.Floor(float64(points) * c.weight))
		rubric[i] = Criterion{Name: c.name, MaxPoints: max}
		total += max
	}
	rubric[0].MaxPoints += points - total
	return rubric
}

// ScaleRubric rescales the criteria so they add up to `points`, flooring each criterion and
// giving the remainder to the first one.
func ScaleRubric(rubric []Criterion, points int) []Criterion {
	scaled := make([]Criterion, len(rubric))
	copy(scaled, rubric)
	sum := RubricPoints(rubric)
	if sum == points || sum == 0 || len(scaled) == 0 {
		return scaled
	}
	ratio := float64(points) / float64(sum)
	total := 0
	for i := range scaled {
		scaled[i].MaxPoints = int(math.Floor(float64(scaled[i].MaxPoints) * ratio))
		total += scaled[i].MaxPoints
	}
	scaled[0].MaxPoints += points - total
	return scaled
}

func RubricPoints(rubric []Criterion) int {
	sum := 0
	for _, c := range rubric {
		sum += c.MaxPoints
	}
	return sum
}

// rubricFor returns the rubric used to grade submissions of `a`.
func rubricFor(a Assignment) []Criterion {
	if len(a.Rubric) > 0 {
		return ScaleRubric(a.Rubric, a.Points)
	}
	return DefaultJournalRubric(a.Points)
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// findCriterion matches a model-provided criterion name to the rubric: exact normalized match first,
// then containment either way.
func findCriterion(rubric []Criterion, name string) (Criterion, bool) {
	key := normalizeName(name)
	if key == "" {
		return Criterion{}, false
	}
	for _, c := range rubric {
		if normalizeName(c.Name) == key {
			return c, true
		}
	}
	for _, c := range rubric {
		n := normalizeName(c.Name)
		if strings.Contains(n, key) || strings.Contains(key, n) {
			return c, true
		}
	}
	return Criterion{}, false
}

// scoreCriteria lines the model's scores up with the rubric. Scores are clamped to [0, max];
// rubric criteria the model skipped score 0.
func scoreCriteria(rubric []Criterion, scored []CriterionScore) []CriterionScore {
	byName := make(map[string]CriterionScore, len(rubric))
	for _, s := range scored {
		c, ok := findCriterion(rubric, s.CriterionName)
		if !ok {
			continue
		}
		if _, dup := byName[c.Name]; dup {
			continue
		}
		s.CriterionName = c.Name
		s.MaxPoints = c.MaxPoints
		s.Score = clamp(s.Score, 0, float64(c.MaxPoints))
		byName[c.Name] = s
	}

	out := make([]CriterionScore, 0, len(rubric))
	for _, c := range rubric {
		s, ok := byName[c.Name]
		if !ok {
			s = CriterionScore{CriterionName: c.Name, MaxPoints: c.MaxPoints, Feedback: "Not assessed."}
		}
		out = append(out, s)
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}

var letterThresholds = []struct {
	min    float64
	letter string
}{
	{93, "A"}, {90, "A-"}, {87, "B+"}, {83, "B"}, {80, "B-"}, {77, "C+"},
	{73, "C"}, {70, "C-"}, {67, "D+"}, {63, "D"}, {60, "D-"},
}

// LetterGrade converts a percentage to a letter grade.
func LetterGrade(percentage float64) string {
	for _, t := range letterThresholds {
		if percentage >= t.min {
			return t.letter
		}
	}
	return "F"
}
