package model

import "time"

// QuestionRecord is the per-question input handed to the summary generator:
// everything the session collected for one catalog question.
type QuestionRecord struct {
	QuestionID  string           `json:"questionId" bson:"questionId"`
	Prompt      string           `json:"prompt" bson:"prompt"`
	Criteria    []string         `json:"criteria" bson:"criteria"`
	Answers     []string         `json:"answers" bson:"answers"` // all attempts, in order
	FinalAnswer string           `json:"finalAnswer" bson:"finalAnswer"`
	Evaluation  AnswerEvaluation `json:"evaluation" bson:"evaluation"` // verdict on the final attempt
	Attempts    int              `json:"attempts" bson:"attempts"`
	// Abandoned marks questions the engine moved past after the retry budget
	// was exhausted without a sufficient answer.
	Abandoned bool `json:"abandoned" bson:"abandoned"`
}

// SessionMetadata accompanies the records into summary generation.
type SessionMetadata struct {
	SessionID     string    `json:"sessionId" bson:"sessionId"`
	StartedAt     time.Time `json:"startedAt" bson:"startedAt"`
	CompletedAt   time.Time `json:"completedAt" bson:"completedAt"`
	QuestionCount int       `json:"questionCount" bson:"questionCount"`
	AnsweredCount int       `json:"answeredCount" bson:"answeredCount"`
}

// QuestionSummary is the clinician-facing digest of one question.
type QuestionSummary struct {
	QuestionID  string  `json:"questionId" bson:"questionId"`
	Prompt      string  `json:"prompt" bson:"prompt"`
	FinalAnswer string  `json:"finalAnswer" bson:"finalAnswer"`
	Summary     string  `json:"summary,omitempty" bson:"summary,omitempty"`
	Sufficient  bool    `json:"sufficient" bson:"sufficient"`
	Score       float64 `json:"score" bson:"score"`
	Attempts    int     `json:"attempts" bson:"attempts"`
	Abandoned   bool    `json:"abandoned" bson:"abandoned"`
}

// SessionSummary is the structured clinical summary produced exactly once,
// when the interview completes.
type SessionSummary struct {
	SessionID   string            `json:"sessionId" bson:"sessionId"`
	Narrative   string            `json:"narrative" bson:"narrative"`
	KeyFindings []string          `json:"keyFindings,omitempty" bson:"keyFindings,omitempty"`
	Questions   []QuestionSummary `json:"questions" bson:"questions"`
	GeneratedAt time.Time         `json:"generatedAt" bson:"generatedAt"`
	// Fallback marks summaries assembled from raw answers because synthesis
	// failed. Recorded answers are preserved either way.
	Fallback bool `json:"fallback,omitempty" bson:"fallback,omitempty"`
}
