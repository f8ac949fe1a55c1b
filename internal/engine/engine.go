// Package engine implements the interview state machine: ordered question
// traversal, answer-sufficiency evaluation, the retry/escalation policy and
// final summary synthesis. All transition functions take a ConversationState
// by value and return the next value; the engine keeps no per-session state.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"anamneseai/internal/catalog"
	"anamneseai/internal/logger"
	"anamneseai/internal/model"
)

// AnswerEvaluator judges whether an answer satisfies a question's criteria.
// History is the prior exchanges for that question only. Implementations may
// fail; the engine recovers with a deterministic heuristic.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, q *model.Question, answer string, history []model.Exchange) (*model.AnswerEvaluation, error)
}

// GuidanceGenerator writes a short follow-up steering the patient toward the
// missing criteria.
type GuidanceGenerator interface {
	Guide(ctx context.Context, q *model.Question, missingCriteria []string, answer string, retriesRemaining int) (string, error)
}

// SummaryGenerator synthesizes the final clinical summary from the collected
// per-question records.
type SummaryGenerator interface {
	Summarize(ctx context.Context, records []model.QuestionRecord, meta model.SessionMetadata) (*model.SessionSummary, error)
}

// Score bounds for the consistency guard. Evaluators occasionally contradict
// themselves; a "sufficient" verdict scoring below the floor is downgraded,
// an "insufficient" verdict at or above the ceiling is upgraded.
const (
	sufficientScoreFloor  = 0.6
	insufficientScoreCeil = 0.8
)

// ErrNotComplete is returned by Summary for sessions still in progress.
var ErrNotComplete = errors.New("session is not complete")

// Engine drives one interview turn at a time. Safe for concurrent use across
// sessions; the caller serializes turns within a session.
type Engine struct {
	catalog    *catalog.Catalog
	evaluator  AnswerEvaluator
	guide      GuidanceGenerator
	summarizer SummaryGenerator
	// defaultMaxRetries is recorded on new states; per-question budgets come
	// from the catalog.
	defaultMaxRetries int
}

// New creates an engine. Any collaborator may be nil, in which case the
// corresponding fallback is used unconditionally.
func New(cat *catalog.Catalog, evaluator AnswerEvaluator, guide GuidanceGenerator, summarizer SummaryGenerator, defaultMaxRetries int) *Engine {
	if defaultMaxRetries < 0 {
		defaultMaxRetries = 0
	}
	return &Engine{
		catalog:           cat,
		evaluator:         evaluator,
		guide:             guide,
		summarizer:        summarizer,
		defaultMaxRetries: defaultMaxRetries,
	}
}

// StartSession creates a fresh state and emits the opening messages: the
// welcome plus either the first question or the no-questions terminal notice.
func (e *Engine) StartSession(ctx context.Context) (model.ConversationState, []string) {
	now := time.Now()
	state := model.ConversationState{
		Phase:         model.PhaseAwaitingFirst,
		QuestionIndex: 0,
		RetryCount:    0,
		MaxRetries:    e.defaultMaxRetries,
		StartedAt:     now,
		UpdatedAt:     now,
	}

	state, opening := e.Advance(ctx, state)
	return state, append([]string{msgWelcome}, opening...)
}

// SubmitAnswer processes one patient utterance against the current question.
// Nothing a collaborator throws escapes this method; every failure path has a
// defined fallback so the conversation can always proceed.
func (e *Engine) SubmitAnswer(ctx context.Context, state model.ConversationState, text string) (model.ConversationState, []string) {
	if state.IsComplete {
		return state, []string{msgSessionEnded}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return state, []string{msgEmptyAnswer}
	}

	if state.Phase == model.PhaseAwaitingFirst {
		// The first question was never asked; re-issue it instead of
		// evaluating an answer to nothing.
		return e.Advance(ctx, state)
	}

	q := e.catalog.ByIndex(state.QuestionIndex)
	if q == nil {
		// Pointer ran past the catalog without completing; treat as terminal
		// rather than crash the turn.
		logger.L().Errorf("session %s: no question at index %d", state.SessionID, state.QuestionIndex)
		return e.finish(ctx, state, nil)
	}

	eval := e.evaluate(ctx, q, text, state.ExchangesFor(q.ID))

	entry := model.HistoryEntry{
		QuestionID: q.ID,
		UserAnswer: text,
		Evaluation: *eval,
		Timestamp:  time.Now(),
	}

	if eval.IsSufficient {
		state.History = append(state.History, entry)
		state.UpdatedAt = entry.Timestamp
		return e.advanceToNext(ctx, state, []string{msgAnswerAccepted})
	}

	state.RetryCount++
	if state.RetryCount <= q.MaxRetries {
		guidance := e.guidance(ctx, q, eval, text, q.MaxRetries-state.RetryCount+1)
		entry.Evaluation.Guidance = guidance
		state.History = append(state.History, entry)
		state.UpdatedAt = entry.Timestamp
		return state, []string{guidance}
	}

	// Budget exhausted: abandon the question rather than retry indefinitely.
	logger.L().Infof("session %s: retry budget exhausted for question %q, moving on", state.SessionID, q.ID)
	state.History = append(state.History, entry)
	state.UpdatedAt = entry.Timestamp
	return e.advanceToNext(ctx, state, []string{msgMoveOn})
}

// Advance performs the no-user-input step: it asks the first question on a
// fresh state and is a safe no-op everywhere else. Calling it on a complete
// state repeatably returns the unchanged state and the session-ended notice.
func (e *Engine) Advance(ctx context.Context, state model.ConversationState) (model.ConversationState, []string) {
	if state.IsComplete {
		return state, []string{msgSessionEnded}
	}

	switch state.Phase {
	case model.PhaseAwaitingFirst:
		first := e.catalog.First()
		if first == nil {
			state.IsComplete = true
			state.Phase = model.PhaseComplete
			state.UpdatedAt = time.Now()
			return state, []string{msgNoQuestions}
		}
		state.Phase = model.PhaseQuestionAsked
		state.RetryCount = 0
		state.UpdatedAt = time.Now()
		return state, []string{first.Prompt}
	default:
		// A question is pending; nothing to do.
		return state, nil
	}
}

// Summary returns the session summary, or ErrNotComplete while the interview
// is still in progress.
func (e *Engine) Summary(state model.ConversationState) (*model.SessionSummary, error) {
	if !state.IsComplete || state.Summary == nil {
		return nil, ErrNotComplete
	}
	return state.Summary, nil
}

// advanceToNext moves the question pointer forward and either asks the next
// question or finishes the session. The retry counter resets on every
// advance.
func (e *Engine) advanceToNext(ctx context.Context, state model.ConversationState, messages []string) (model.ConversationState, []string) {
	state.RetryCount = 0
	state.QuestionIndex = e.catalog.NextIndex(state.QuestionIndex)

	next := e.catalog.ByIndex(state.QuestionIndex)
	if next == nil {
		return e.finish(ctx, state, messages)
	}

	state.Phase = model.PhaseQuestionAsked
	state.UpdatedAt = time.Now()
	return state, append(messages, next.Prompt)
}

// finish synthesizes the summary and marks the session terminal. Summary
// generation failures degrade to the raw-answer fallback; they never block
// completion.
func (e *Engine) finish(ctx context.Context, state model.ConversationState, messages []string) (model.ConversationState, []string) {
	now := time.Now()
	state.IsComplete = true
	state.Phase = model.PhaseComplete
	state.RetryCount = 0
	state.UpdatedAt = now

	records := e.buildRecords(&state)
	meta := model.SessionMetadata{
		SessionID:     state.SessionID,
		StartedAt:     state.StartedAt,
		CompletedAt:   now,
		QuestionCount: e.catalog.Len(),
		AnsweredCount: len(records),
	}

	summary := e.summarize(ctx, records, meta)
	summary.SessionID = state.SessionID
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = now
	}
	state.Summary = summary

	messages = append(messages, msgSummaryIntro+summary.Narrative, msgClosing)
	return state, messages
}

// evaluate runs the shortcut acceptance rule, then the evaluator, then the
// consistency guard. Evaluator failure or malformed output triggers the
// deterministic heuristic; the turn never fails.
func (e *Engine) evaluate(ctx context.Context, q *model.Question, answer string, history []model.Exchange) *model.AnswerEvaluation {
	if accepted := acceptByRule(q, answer); accepted != nil {
		return accepted
	}

	var eval *model.AnswerEvaluation
	if e.evaluator != nil {
		var err error
		eval, err = e.evaluator.Evaluate(ctx, q, answer, history)
		if err != nil {
			logger.L().Warnf("evaluator failed for question %q: %v, using heuristic", q.ID, err)
			eval = nil
		}
	}
	if eval == nil {
		eval = heuristicEvaluate(q, answer)
	}

	applyConsistencyGuard(q, eval)
	return eval
}

// acceptByRule returns a synthetic sufficient verdict when the answer matches
// one of the question's accepted literals, nil otherwise.
func acceptByRule(q *model.Question, answer string) *model.AnswerEvaluation {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	for _, accepted := range q.AcceptAnswers {
		if normalized == strings.ToLower(strings.TrimSpace(accepted)) {
			return &model.AnswerEvaluation{
				IsSufficient: true,
				Score:        1.0,
				Feedback:     "Thank you, that answers the question.",
				Reasoning:    "Answer matched an accepted literal for this question; criteria satisfied by rule.",
			}
		}
	}
	return nil
}

// applyConsistencyGuard reconciles contradictory verdicts and enforces the
// invariant that a sufficient verdict carries no missing criteria.
func applyConsistencyGuard(q *model.Question, eval *model.AnswerEvaluation) {
	if eval.Score < 0 {
		eval.Score = 0
	}
	if eval.Score > 1 {
		eval.Score = 1
	}

	if eval.IsSufficient && eval.Score < sufficientScoreFloor {
		logger.L().Warnf("inconsistent verdict for question %q: sufficient with score %.2f, downgrading", q.ID, eval.Score)
		eval.IsSufficient = false
		if len(eval.MissingCriteria) == 0 {
			eval.MissingCriteria = append([]string(nil), q.Criteria...)
		}
	} else if !eval.IsSufficient && eval.Score >= insufficientScoreCeil {
		logger.L().Warnf("inconsistent verdict for question %q: insufficient with score %.2f, upgrading", q.ID, eval.Score)
		eval.IsSufficient = true
	}

	if eval.IsSufficient {
		eval.MissingCriteria = nil
	}
}

// guidance asks the generator for a follow-up and falls back to the template
// on any failure.
func (e *Engine) guidance(ctx context.Context, q *model.Question, eval *model.AnswerEvaluation, answer string, retriesRemaining int) string {
	if e.guide != nil {
		text, err := e.guide.Guide(ctx, q, eval.MissingCriteria, answer, retriesRemaining)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		if err != nil {
			logger.L().Warnf("guidance generation failed for question %q: %v, using template", q.ID, err)
		}
	}
	return fallbackGuidance(q, eval.MissingCriteria, retriesRemaining)
}

// summarize asks the generator for the clinical summary and falls back to the
// raw-answer summary on any failure. Recorded answers are never lost.
func (e *Engine) summarize(ctx context.Context, records []model.QuestionRecord, meta model.SessionMetadata) *model.SessionSummary {
	if len(records) == 0 {
		return &model.SessionSummary{
			Narrative: "No answers were collected during this session.",
			Fallback:  true,
		}
	}
	if e.summarizer != nil {
		summary, err := e.summarizer.Summarize(ctx, records, meta)
		if err == nil && summary != nil && strings.TrimSpace(summary.Narrative) != "" {
			return summary
		}
		if err != nil {
			logger.L().Warnf("summary generation failed for session %s: %v, using fallback", meta.SessionID, err)
		}
	}
	return fallbackSummary(records)
}

// buildRecords groups the history into one record per question, in catalog
// order, for summary generation.
func (e *Engine) buildRecords(state *model.ConversationState) []model.QuestionRecord {
	var records []model.QuestionRecord
	for _, q := range e.catalog.Questions() {
		answers := state.AnswersFor(q.ID)
		if len(answers) == 0 {
			continue
		}

		var last model.HistoryEntry
		for _, entry := range state.History {
			if entry.QuestionID == q.ID {
				last = entry
			}
		}

		records = append(records, model.QuestionRecord{
			QuestionID:  q.ID,
			Prompt:      q.Prompt,
			Criteria:    q.Criteria,
			Answers:     answers,
			FinalAnswer: last.UserAnswer,
			Evaluation:  last.Evaluation,
			Attempts:    len(answers),
			Abandoned:   !last.Evaluation.IsSufficient,
		})
	}
	return records
}
