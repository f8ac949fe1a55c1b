package engine

import (
	"fmt"
	"strings"
	"time"

	"anamneseai/internal/model"
)

// heuristicEvaluate is the degraded-mode evaluator used whenever the model
// backend is unavailable or returns garbage. It judges on answer length
// alone: under 5 characters or under 3 words is insufficient, anything
// longer passes. The Reasoning field always states that the heuristic was
// used so degraded verdicts stay distinguishable from real ones.
func heuristicEvaluate(q *model.Question, answer string) *model.AnswerEvaluation {
	trimmed := strings.TrimSpace(answer)
	wordCount := len(strings.Fields(trimmed))

	var (
		score      float64
		sufficient bool
		feedback   string
	)
	switch {
	case len(trimmed) < 5:
		score, sufficient = 0.1, false
		feedback = "Please provide a more detailed answer."
	case wordCount < 3:
		score, sufficient = 0.3, false
		feedback = "Please provide more details about your situation."
	default:
		score, sufficient = 0.7, true
		feedback = "Thank you for your response."
	}

	eval := &model.AnswerEvaluation{
		IsSufficient: sufficient,
		Score:        score,
		Feedback:     feedback,
		Reasoning:    "Heuristic evaluation (model backend unavailable): judged on answer length only.",
		Fallback:     true,
	}
	if !sufficient {
		eval.MissingCriteria = append([]string(nil), q.Criteria...)
	}
	return eval
}

// fallbackGuidance is the templated follow-up used when guidance generation
// fails. It names the missing criteria, re-asks the question and states the
// remaining attempts, including the final-attempt case.
func fallbackGuidance(q *model.Question, missingCriteria []string, retriesRemaining int) string {
	var b strings.Builder
	if len(missingCriteria) > 0 {
		b.WriteString("Thanks for your answer. To help me understand better, please also cover: ")
		b.WriteString(strings.Join(missingCriteria, "; "))
		b.WriteString(". ")
	} else {
		b.WriteString("Thanks for your answer. Could you provide a bit more detail? ")
	}
	b.WriteString(q.Prompt)

	if retriesRemaining == 1 {
		b.WriteString(" (This is your last attempt for this question.)")
	} else if retriesRemaining > 1 {
		fmt.Fprintf(&b, " (You have %d attempts left for this question.)", retriesRemaining)
	}
	return b.String()
}

// fallbackSummary assembles a summary directly from the recorded answers when
// synthesis fails. The raw Q/A pairs are preserved in full.
func fallbackSummary(records []model.QuestionRecord) *model.SessionSummary {
	summary := &model.SessionSummary{
		Narrative:   "The summary could not be synthesized automatically. The patient's raw answers are preserved below for manual review.",
		GeneratedAt: time.Now(),
		Fallback:    true,
	}
	for _, rec := range records {
		summary.Questions = append(summary.Questions, model.QuestionSummary{
			QuestionID:  rec.QuestionID,
			Prompt:      rec.Prompt,
			FinalAnswer: rec.FinalAnswer,
			Summary:     fmt.Sprintf("Patient answered: %s", rec.FinalAnswer),
			Sufficient:  rec.Evaluation.IsSufficient,
			Score:       rec.Evaluation.Score,
			Attempts:    rec.Attempts,
			Abandoned:   rec.Abandoned,
		})
	}
	return summary
}
