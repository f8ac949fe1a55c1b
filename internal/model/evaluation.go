package model

// AnswerEvaluation is the structured verdict on a single patient answer.
type AnswerEvaluation struct {
	IsSufficient bool    `json:"isSufficient" bson:"isSufficient"`
	Score        float64 `json:"score" bson:"score"` // 0.0 - 1.0
	Feedback     string  `json:"feedback" bson:"feedback"`
	// MissingCriteria is the subset of the question's criteria the answer did
	// not cover. Always empty when IsSufficient is true; the engine enforces
	// this even if the evaluator does not.
	MissingCriteria []string `json:"missingCriteria,omitempty" bson:"missingCriteria,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty" bson:"reasoning,omitempty"`
	// Guidance is the follow-up message sent to the patient when the answer
	// was insufficient and a retry was granted.
	Guidance string `json:"guidance,omitempty" bson:"guidance,omitempty"`
	// Fallback marks verdicts produced by the deterministic heuristic instead
	// of the model backend. Degraded-mode results are never silently
	// indistinguishable from real ones.
	Fallback bool `json:"fallback,omitempty" bson:"fallback,omitempty"`
}

// Exchange is one answer/guidance pair for a single question, used to give
// the evaluator the prior attempts for the question being re-evaluated.
// History is always scoped to one question; answers to earlier questions are
// never included.
type Exchange struct {
	Answer   string `json:"answer" bson:"answer"`
	Guidance string `json:"guidance,omitempty" bson:"guidance,omitempty"`
}
