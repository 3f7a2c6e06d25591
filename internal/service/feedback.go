package service

import (
	"math"

	"github.com/stemsi/exstem-practice/internal/model"
)

// Scoring rule applied by the store when an attempt is finished.
const (
	pointsCorrect   = 1.0
	pointsIncorrect = -0.25
)

// ComputeFeedback returns the correctness record for a selection, or nil when nothing is selected.
// It is pure; callers recompute it on every answer or flag change instead of caching it.
func ComputeFeedback(q model.Question, selected *int) *model.FeedbackRecord {
	if selected == nil {
		return nil
	}
	status := model.FeedbackIncorrect
	if *selected == q.CorrectAnswer {
		status = model.FeedbackCorrect
	}
	return &model.FeedbackRecord{
		Status:        status,
		SelectedIndex: *selected,
		CorrectIndex:  q.CorrectAnswer,
		CorrectText:   q.CorrectText(),
	}
}

// ComputeAllFeedback rebuilds feedback for every answered question of exam.
func ComputeAllFeedback(exam *model.Exam, answers map[string]int) map[string]model.FeedbackRecord {
	out := make(map[string]model.FeedbackRecord, len(answers))
	if exam == nil {
		return out
	}
	for _, q := range exam.Questions {
		selected, ok := answers[q.QuestionID]
		if !ok {
			continue
		}
		if fb := ComputeFeedback(q, &selected); fb != nil {
			out[q.QuestionID] = *fb
		}
	}
	return out
}

// ScoreAnswers tallies answers with the store's rule: +1 correct, -0.25 incorrect, 0 unanswered,
// floored at zero and scaled to the exam type's maximum.
func ScoreAnswers(exam *model.Exam, answers map[string]int) model.ScoreSummary {
	var sum model.ScoreSummary
	if exam == nil {
		return sum
	}
	sum.TotalQuestions = len(exam.Questions)
	sum.Scale = exam.Type.ScoreScale()

	for _, q := range exam.Questions {
		selected, ok := answers[q.QuestionID]
		switch {
		case !ok:
			sum.Unanswered++
		case selected == q.CorrectAnswer:
			sum.Correct++
		default:
			sum.Incorrect++
		}
	}

	raw := float64(sum.Correct)*pointsCorrect + float64(sum.Incorrect)*pointsIncorrect
	if raw < 0 {
		raw = 0
	}
	sum.RawScore = raw
	if sum.TotalQuestions > 0 {
		sum.FinalScore = math.Round(raw/float64(sum.TotalQuestions)*sum.Scale*100) / 100
	}
	return sum
}
