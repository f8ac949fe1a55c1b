package model

// Question is one predefined interview question. Questions are loaded once at
// startup and treated as immutable afterwards.
type Question struct {
	ID       string   `json:"id" bson:"id"`
	Prompt   string   `json:"prompt" bson:"prompt"`
	Criteria []string `json:"criteria" bson:"criteria"` // free-text requirements a complete answer must cover
	// MaxRetries is the follow-up budget for this question, resolved against
	// the global default when the catalog is loaded.
	MaxRetries int    `json:"maxRetries" bson:"maxRetries"`
	Category   string `json:"category,omitempty" bson:"category,omitempty"`
	Required   bool   `json:"required" bson:"required"`
	// AcceptAnswers lists literal answers that satisfy every criterion
	// outright, without consulting the evaluator (e.g. "no" for a smoking
	// question). Matched case-insensitively against the trimmed answer.
	AcceptAnswers []string `json:"acceptAnswers,omitempty" bson:"acceptAnswers,omitempty"`
}
