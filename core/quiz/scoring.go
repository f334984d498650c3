package quiz

import (
	"math"
	"strings"
)

// Grade sums the points of the questions answered correctly.
//
// A multiple question is correct when the chosen option is one of its correct options.
// A text question is correct when the answer equals its canonical answer, ignoring case
// and surrounding whitespace. Unanswered questions, and questions without a correct
// option, score nothing.
func Grade(questions []Question, answers []Answer) int {
	score := 0
	for _, q := range questions {
		ans, ok := findAnswer(answers, q.ID)
		if !ok {
			continue
		}
		for _, opt := range q.Options {
			if !opt.IsCorrect {
				continue
			}
			if q.Kind == KindText {
				if normalize(ans.TextValue) == normalize(opt.Text) {
					score += q.Points
				}
				break // only the canonical answer counts
			}
			if ans.OptionID.Matches(opt.ID) {
				score += q.Points
				break
			}
		}
	}
	return score
}

// ComputeProgress is the percentage (0-100) of published quizzes passed.
// A course without published quizzes counts as having one.
func ComputeProgress(passed, published int) int {
	if published <= 0 {
		published = 1
	}
	progress := math.Round(100 * float64(passed) / float64(published))
	return int(math.Max(0, math.Min(100, progress)))
}

func findAnswer(answers []Answer, questionID int64) (Answer, bool) {
	for _, a := range answers {
		if a.QuestionID.Matches(questionID) {
			return a, true
		}
	}
	return Answer{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
