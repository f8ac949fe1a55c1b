package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"anamneseai/internal/cache"
	"anamneseai/internal/catalog"
	"anamneseai/internal/engine"
	"anamneseai/internal/logger"
	"anamneseai/internal/model"
	"anamneseai/internal/repository"
)

// InterviewService owns session lifecycle and persistence around the pure
// conversation engine: it loads state, runs one transition, stores the result
// and fans events out to WebSocket observers. Turns within a session are
// serialized with a per-session mutex.
type InterviewService struct {
	engine         *engine.Engine
	catalog        *catalog.Catalog
	stateCache     cache.StateCache
	sessionRepo    repository.SessionRepo
	transcriptRepo repository.TranscriptRepo
	summaryRepo    repository.SummaryRepo
	broadcaster    Broadcaster

	locks sync.Map // sessionID -> *sync.Mutex
}

func NewInterviewService(
	eng *engine.Engine,
	cat *catalog.Catalog,
	stateCache cache.StateCache,
	sessionRepo repository.SessionRepo,
	transcriptRepo repository.TranscriptRepo,
	summaryRepo repository.SummaryRepo,
) *InterviewService {
	return &InterviewService{
		engine:         eng,
		catalog:        cat,
		stateCache:     stateCache,
		sessionRepo:    sessionRepo,
		transcriptRepo: transcriptRepo,
		summaryRepo:    summaryRepo,
	}
}

// SetBroadcaster wires the WebSocket hub after construction.
func (s *InterviewService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Start opens a new session and returns its id plus the opening bot messages.
// The patient token is minted by the caller.
func (s *InterviewService) Start(ctx context.Context, patientName string) (*model.StartSessionResponse, error) {
	sessionID := uuid.New().String()

	state, messages := s.engine.StartSession(ctx)
	state.SessionID = sessionID

	record := &model.SessionRecord{
		ID:          sessionID,
		PatientName: patientName,
		Status:      model.SessionActive,
		State:       state,
		StartedAt:   state.StartedAt,
	}
	if state.IsComplete {
		now := time.Now()
		record.Status = model.SessionCompleted
		record.CompletedAt = &now
	}
	if err := s.sessionRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.stateCache.Set(ctx, &state); err != nil {
		logger.L().Warnf("session %s: failed to cache state: %v", sessionID, err)
	}

	logger.L().Infof("session %s started (patient %q)", sessionID, patientName)
	return &model.StartSessionResponse{
		SessionID: sessionID,
		Messages:  messages,
		Complete:  state.IsComplete,
	}, nil
}

// HandleMessage processes one patient utterance. Completed sessions reject
// further messages with ErrSessionComplete.
func (s *InterviewService) HandleMessage(ctx context.Context, sessionID, text string) (*model.TurnResponse, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.IsComplete {
		return nil, model.ErrSessionComplete
	}

	prevHistoryLen := len(state.History)
	next, messages := s.engine.SubmitAnswer(ctx, *state, text)

	if err := s.persist(ctx, state, &next); err != nil {
		return nil, err
	}

	// One transcript document per recorded turn. Turns the engine refused
	// (empty input) add no history entry and no transcript.
	if len(next.History) > prevHistoryLen {
		entry := next.History[len(next.History)-1]
		s.appendTranscript(ctx, sessionID, entry, messages, len(next.History))
	}

	s.broadcastTurn(sessionID, &next, messages)
	return turnResponse(&next, messages), nil
}

// Step runs the no-input transition, used to (re-)issue the pending question.
func (s *InterviewService) Step(ctx context.Context, sessionID string) (*model.TurnResponse, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.IsComplete {
		return nil, model.ErrSessionComplete
	}

	next, messages := s.engine.Advance(ctx, *state)
	if err := s.persist(ctx, state, &next); err != nil {
		return nil, err
	}

	s.broadcastTurn(sessionID, &next, messages)
	return turnResponse(&next, messages), nil
}

// Restart discards all progress of a session and begins again from the first
// question. The session id and patient token stay valid.
func (s *InterviewService) Restart(ctx context.Context, sessionID string) (*model.TurnResponse, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state, messages := s.engine.StartSession(ctx)
	state.SessionID = sessionID

	if err := s.sessionRepo.UpdateState(ctx, sessionID, &state); err != nil {
		return nil, fmt.Errorf("reset session state: %w", err)
	}
	status := model.SessionActive
	if state.IsComplete {
		status = model.SessionCompleted
	}
	if err := s.sessionRepo.SetStatus(ctx, sessionID, status, nil); err != nil {
		return nil, fmt.Errorf("reset session status: %w", err)
	}
	if err := s.transcriptRepo.DeleteBySession(ctx, sessionID); err != nil {
		logger.L().Warnf("session %s: failed to clear transcript on restart: %v", sessionID, err)
	}
	if err := s.stateCache.Set(ctx, &state); err != nil {
		logger.L().Warnf("session %s: failed to cache state: %v", sessionID, err)
	}

	logger.L().Infof("session %s restarted (patient %q)", sessionID, record.PatientName)
	s.broadcastTurn(sessionID, &state, messages)
	return turnResponse(&state, messages), nil
}

// GetState returns the patient-visible progress snapshot.
func (s *InterviewService) GetState(ctx context.Context, sessionID string) (*model.StateResponse, error) {
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &model.StateResponse{
		SessionID:     state.SessionID,
		Phase:         state.Phase,
		QuestionIndex: state.QuestionIndex,
		QuestionCount: s.catalog.Len(),
		RetryCount:    state.RetryCount,
		Complete:      state.IsComplete,
	}, nil
}

// GetSummary returns the clinical summary of a completed session, or
// ErrSummaryNotReady while the interview is in progress.
func (s *InterviewService) GetSummary(ctx context.Context, sessionID string) (*model.SessionSummary, error) {
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if summary, err := s.engine.Summary(*state); err == nil {
		return summary, nil
	}
	if !state.IsComplete {
		return nil, model.ErrSummaryNotReady
	}
	return s.summaryRepo.GetBySession(ctx, sessionID)
}

// GetTranscript returns the full turn-by-turn record of a session.
func (s *InterviewService) GetTranscript(ctx context.Context, sessionID string) ([]*model.TranscriptRecord, error) {
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.transcriptRepo.GetBySession(ctx, sessionID)
}

// ListSessions returns every session, newest first.
func (s *InterviewService) ListSessions(ctx context.Context) ([]*model.SessionRecord, error) {
	return s.sessionRepo.List(ctx)
}

// SessionExists reports whether the session is known, for WebSocket upgrades.
func (s *InterviewService) SessionExists(ctx context.Context, sessionID string) bool {
	_, err := s.loadState(ctx, sessionID)
	return err == nil
}

// loadState reads the conversation state, preferring the hot cache and
// recovering from the session record when the cache entry has expired.
func (s *InterviewService) loadState(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	state, err := s.stateCache.Get(ctx, sessionID)
	if err != nil {
		logger.L().Warnf("session %s: cache read failed: %v", sessionID, err)
	}
	if state != nil {
		return state, nil
	}

	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	recovered := record.State
	if err := s.stateCache.Set(ctx, &recovered); err != nil {
		logger.L().Warnf("session %s: failed to re-warm cache: %v", sessionID, err)
	}
	return &recovered, nil
}

// persist writes the post-turn state to cache and Mongo and, on the
// completion transition, stores the summary and flips the session status.
func (s *InterviewService) persist(ctx context.Context, prev, next *model.ConversationState) error {
	if err := s.stateCache.Set(ctx, next); err != nil {
		logger.L().Warnf("session %s: failed to cache state: %v", next.SessionID, err)
	}
	if err := s.sessionRepo.UpdateState(ctx, next.SessionID, next); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}

	if next.IsComplete && !prev.IsComplete {
		now := time.Now()
		if err := s.sessionRepo.SetStatus(ctx, next.SessionID, model.SessionCompleted, &now); err != nil {
			logger.L().Errorf("session %s: failed to mark completed: %v", next.SessionID, err)
		}
		if next.Summary != nil {
			if err := s.summaryRepo.Save(ctx, next.Summary); err != nil {
				logger.L().Errorf("session %s: failed to store summary: %v", next.SessionID, err)
			}
		}
		logger.L().Infof("session %s completed after %d turns", next.SessionID, len(next.History))
	}
	return nil
}

func (s *InterviewService) appendTranscript(ctx context.Context, sessionID string, entry model.HistoryEntry, botReplies []string, turn int) {
	prompt := ""
	if q := s.catalog.ByID(entry.QuestionID); q != nil {
		prompt = q.Prompt
	}
	rec := &model.TranscriptRecord{
		SessionID:  sessionID,
		QuestionID: entry.QuestionID,
		Prompt:     prompt,
		UserAnswer: entry.UserAnswer,
		Evaluation: entry.Evaluation,
		BotReplies: botReplies,
		Turn:       turn,
		CreatedAt:  entry.Timestamp,
	}
	if err := s.transcriptRepo.Append(ctx, rec); err != nil {
		logger.L().Errorf("session %s: failed to append transcript: %v", sessionID, err)
	}
}

func (s *InterviewService) broadcastTurn(sessionID string, state *model.ConversationState, messages []string) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToSession(sessionID, "bot_messages", turnResponse(state, messages))
	if state.IsComplete {
		s.broadcaster.BroadcastToSession(sessionID, "session_complete", map[string]interface{}{
			"sessionId": sessionID,
		})
		// The interview is over; close the session's sockets once the final
		// messages have been delivered.
		s.broadcaster.DisconnectSession(sessionID)
	}
}

func (s *InterviewService) lock(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func turnResponse(state *model.ConversationState, messages []string) *model.TurnResponse {
	if messages == nil {
		messages = []string{}
	}
	return &model.TurnResponse{
		Messages:      messages,
		QuestionIndex: state.QuestionIndex,
		RetryCount:    state.RetryCount,
		Complete:      state.IsComplete,
	}
}
