package model

import "time"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// SessionRecord is the durable per-session document. The embedded state is
// the authoritative copy when the hot cache entry has expired.
type SessionRecord struct {
	ID          string            `json:"id" bson:"_id"`
	PatientName string            `json:"patientName,omitempty" bson:"patientName,omitempty"`
	Status      SessionStatus     `json:"status" bson:"status"`
	State       ConversationState `json:"state" bson:"state"`
	StartedAt   time.Time         `json:"startedAt" bson:"startedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// TranscriptRecord is one persisted user turn with its verdict, kept for
// clinician review independently of the session state blob.
type TranscriptRecord struct {
	ID         string           `json:"id" bson:"_id,omitempty"`
	SessionID  string           `json:"sessionId" bson:"sessionId"`
	QuestionID string           `json:"questionId" bson:"questionId"`
	Prompt     string           `json:"prompt" bson:"prompt"`
	UserAnswer string           `json:"userAnswer" bson:"userAnswer"`
	Evaluation AnswerEvaluation `json:"evaluation" bson:"evaluation"`
	BotReplies []string         `json:"botReplies,omitempty" bson:"botReplies,omitempty"`
	Turn       int              `json:"turn" bson:"turn"` // 1-based user-turn counter
	CreatedAt  time.Time        `json:"createdAt" bson:"createdAt"`
}
