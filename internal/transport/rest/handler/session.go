package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"anamneseai/internal/logger"
	"anamneseai/internal/model"
	"anamneseai/internal/service"
)

// SessionHandler handles the patient-facing interview endpoints and the
// clinician review endpoints.
type SessionHandler struct {
	interviewSvc *service.InterviewService
	authSvc      *service.AuthService
}

func NewSessionHandler(interviewSvc *service.InterviewService, authSvc *service.AuthService) *SessionHandler {
	return &SessionHandler{
		interviewSvc: interviewSvc,
		authSvc:      authSvc,
	}
}

// Start handles POST /v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	resp, err := h.interviewSvc.Start(r.Context(), req.PatientName)
	if err != nil {
		logger.L().Errorf("failed to start session: %v", err)
		writeServiceError(w, err)
		return
	}

	token, err := h.authSvc.GeneratePatientToken(resp.SessionID)
	if err != nil {
		logger.L().Errorf("failed to mint patient token for session %s: %v", resp.SessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to create session token")
		return
	}
	resp.Token = token

	writeJSON(w, http.StatusCreated, resp)
}

// Message handles POST /v1/sessions/{sessionId}/messages
func (h *SessionHandler) Message(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req model.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.interviewSvc.HandleMessage(r.Context(), sessionID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Advance handles POST /v1/sessions/{sessionId}/advance
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	resp, err := h.interviewSvc.Step(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Restart handles POST /v1/sessions/{sessionId}/restart
func (h *SessionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	resp, err := h.interviewSvc.Restart(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// State handles GET /v1/sessions/{sessionId}/state
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	resp, err := h.interviewSvc.GetState(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /v1/sessions (clinician)
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.interviewSvc.ListSessions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*model.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Summary handles GET /v1/sessions/{sessionId}/summary (clinician)
func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	summary, err := h.interviewSvc.GetSummary(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Transcript handles GET /v1/sessions/{sessionId}/transcript (clinician)
func (h *SessionHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	transcript, err := h.interviewSvc.GetTranscript(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if transcript == nil {
		transcript = []*model.TranscriptRecord{}
	}
	writeJSON(w, http.StatusOK, transcript)
}
