// Package scoring grades a fixed list of questions against chosen answers.
package scoring

import (
	"math"

	"github.com/cloudmaster/examprep/internal/model"
)

// Result is the frozen outcome of a submitted session.
type Result struct {
	Score        int                      `json:"score"`
	CorrectCount int                      `json:"correct_count"`
	TotalCount   int                      `json:"total_count"`
	TagBreakdown map[string]model.TagStat `json:"tag_breakdown"`
}

// Grade scores questions against answers (question id → option id).
// Unanswered questions count as incorrect. Each distinct tag on a question
// adds one to that tag's total.
func Grade(questions []model.Question, answers map[string]string) Result {
	res := Result{
		TotalCount:   len(questions),
		TagBreakdown: make(map[string]model.TagStat),
	}

	for _, q := range questions {
		chosen, answered := answers[q.ID]
		correct := answered && chosen == q.CorrectOptionID
		if correct {
			res.CorrectCount++
		}

		seen := make(map[string]struct{}, len(q.Tags))
		for _, tag := range q.Tags {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}

			stat := res.TagBreakdown[tag]
			stat.Total++
			if correct {
				stat.Correct++
			}
			res.TagBreakdown[tag] = stat
		}
	}

	res.Score = Percent(res.CorrectCount, res.TotalCount)
	return res
}

// Percent returns round(100*correct/total), rounding halves away from zero.
// A zero total scores 0.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
