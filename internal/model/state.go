package model

import "time"

// Phase is the engine-visible conversation phase. Evaluation of a received
// answer is transient within a single turn and never persisted, so it has no
// phase value of its own.
type Phase string

const (
	// PhaseAwaitingFirst means the session exists but the first question has
	// not been asked yet.
	PhaseAwaitingFirst Phase = "awaiting_first_question"
	// PhaseQuestionAsked means a question is pending a patient answer.
	PhaseQuestionAsked Phase = "question_asked"
	// PhaseComplete is terminal; the session is read-only apart from summary
	// retrieval.
	PhaseComplete Phase = "complete"
)

// HistoryEntry records one processed patient turn: the answer given and the
// verdict it received. History is append-only, one entry per user turn.
type HistoryEntry struct {
	QuestionID string           `json:"questionId" bson:"questionId"`
	UserAnswer string           `json:"userAnswer" bson:"userAnswer"`
	Evaluation AnswerEvaluation `json:"evaluation" bson:"evaluation"`
	Timestamp  time.Time        `json:"timestamp" bson:"timestamp"`
}

// ConversationState is the externalized, resumable unit of an interview. The
// engine receives it by value and returns the next value; it holds no
// references across calls. Persistence between turns is owned by the session
// layer.
type ConversationState struct {
	SessionID     string         `json:"sessionId" bson:"sessionId"`
	Phase         Phase          `json:"phase" bson:"phase"`
	QuestionIndex int            `json:"questionIndex" bson:"questionIndex"`
	RetryCount    int            `json:"retryCount" bson:"retryCount"` // follow-ups asked for the current question only
	MaxRetries    int            `json:"maxRetries" bson:"maxRetries"` // global default; per-question overrides live on the question
	History       []HistoryEntry `json:"history" bson:"history"`
	IsComplete    bool           `json:"isComplete" bson:"isComplete"`
	Summary       *SessionSummary `json:"summary,omitempty" bson:"summary,omitempty"`
	StartedAt     time.Time      `json:"startedAt" bson:"startedAt"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// ExchangesFor returns the prior answer/guidance exchanges for one question,
// in order. This is the only history slice an evaluator ever sees.
func (s *ConversationState) ExchangesFor(questionID string) []Exchange {
	var exchanges []Exchange
	for _, entry := range s.History {
		if entry.QuestionID != questionID {
			continue
		}
		exchanges = append(exchanges, Exchange{
			Answer:   entry.UserAnswer,
			Guidance: entry.Evaluation.Guidance,
		})
	}
	return exchanges
}

// AnswersFor returns every raw answer recorded for one question.
func (s *ConversationState) AnswersFor(questionID string) []string {
	var answers []string
	for _, entry := range s.History {
		if entry.QuestionID == questionID {
			answers = append(answers, entry.UserAnswer)
		}
	}
	return answers
}
