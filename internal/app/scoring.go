package app

import "faculty-eval-service/internal/domain"

// ScoreAnswers awards each question's marks when the selected option matches the correct one.
// Every section in the bank appears in the breakdown, with 0 when nothing in it was answered
// correctly, so the section scores always sum to the quiz score. Answers to unknown questions
// are ignored.
func ScoreAnswers(questions []domain.QuizQuestion, answers domain.AnswerSet) (float64, domain.SectionScores) {
	var total float64
	sections := make(domain.SectionScores)
	for _, q := range questions {
		if _, ok := sections[q.Section]; !ok {
			sections[q.Section] = 0
		}
		selected, ok := answers[q.ID]
		if !ok || selected != q.CorrectAnswer {
			continue
		}
		marks := float64(q.EffectiveMarks())
		total += marks
		sections[q.Section] += marks
	}
	return total, sections
}

// validateAnswers rejects option indexes that do not exist on the referenced question.
func validateAnswers(questions []domain.QuizQuestion, answers domain.AnswerSet) error {
	byID := make(map[string]domain.QuizQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	for id, selected := range answers {
		q, ok := byID[id]
		if !ok {
			continue
		}
		if selected < 0 || selected >= len(q.Options) {
			return domain.NewValidationError("answers."+id, "selected option out of range")
		}
	}
	return nil
}
