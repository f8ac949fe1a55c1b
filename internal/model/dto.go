package model

// StartSessionRequest opens a new interview session.
type StartSessionRequest struct {
	PatientName string `json:"patientName,omitempty"`
}

// StartSessionResponse returns the new session id, a session-scoped token and
// the opening bot messages (welcome plus the first question, or the
// no-questions notice).
type StartSessionResponse struct {
	SessionID string   `json:"sessionId"`
	Token     string   `json:"token"`
	Messages  []string `json:"messages"`
	Complete  bool     `json:"complete"`
}

// MessageRequest carries one patient utterance.
type MessageRequest struct {
	Text string `json:"text"`
}

// TurnResponse is the outcome of one processed turn: the bot's replies plus a
// progress snapshot.
type TurnResponse struct {
	Messages      []string `json:"messages"`
	QuestionIndex int      `json:"questionIndex"`
	RetryCount    int      `json:"retryCount"`
	Complete      bool     `json:"complete"`
}

// StateResponse is the patient-visible view of the current session state.
type StateResponse struct {
	SessionID     string `json:"sessionId"`
	Phase         Phase  `json:"phase"`
	QuestionIndex int    `json:"questionIndex"`
	QuestionCount int    `json:"questionCount"`
	RetryCount    int    `json:"retryCount"`
	Complete      bool   `json:"complete"`
}
