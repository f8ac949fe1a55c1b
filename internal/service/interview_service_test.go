package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anamneseai/internal/catalog"
	"anamneseai/internal/engine"
	"anamneseai/internal/model"
)

type fakeStateCache struct {
	mu     sync.Mutex
	states map[string]*model.ConversationState
}

func newFakeStateCache() *fakeStateCache {
	return &fakeStateCache{states: make(map[string]*model.ConversationState)}
}

func (c *fakeStateCache) Set(_ context.Context, state *model.ConversationState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *state
	c.states[state.SessionID] = &copied
	return nil
}

func (c *fakeStateCache) Get(_ context.Context, sessionID string) (*model.ConversationState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (c *fakeStateCache) Delete(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, sessionID)
	return nil
}

type fakeSessionRepo struct {
	mu      sync.Mutex
	records map[string]*model.SessionRecord
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{records: make(map[string]*model.SessionRecord)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *model.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.records[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*model.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *fakeSessionRepo) UpdateState(_ context.Context, id string, state *model.ConversationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return model.ErrSessionNotFound
	}
	record.State = *state
	return nil
}

func (r *fakeSessionRepo) SetStatus(_ context.Context, id string, status model.SessionStatus, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return model.ErrSessionNotFound
	}
	record.Status = status
	if completedAt != nil {
		record.CompletedAt = completedAt
	}
	return nil
}

func (r *fakeSessionRepo) List(_ context.Context) ([]*model.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SessionRecord
	for _, record := range r.records {
		copied := *record
		out = append(out, &copied)
	}
	return out, nil
}

type fakeTranscriptRepo struct {
	mu      sync.Mutex
	entries []*model.TranscriptRecord
}

func (r *fakeTranscriptRepo) Append(_ context.Context, entry *model.TranscriptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeTranscriptRepo) GetBySession(_ context.Context, sessionID string) ([]*model.TranscriptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TranscriptRecord
	for _, entry := range r.entries {
		if entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeTranscriptRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.TranscriptRecord
	for _, entry := range r.entries {
		if entry.SessionID != sessionID {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	return nil
}

type fakeSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*model.SessionSummary
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{summaries: make(map[string]*model.SessionSummary)}
}

func (r *fakeSummaryRepo) Save(_ context.Context, summary *model.SessionSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *summary
	r.summaries[summary.SessionID] = &copied
	return nil
}

func (r *fakeSummaryRepo) GetBySession(_ context.Context, sessionID string) (*model.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary, ok := r.summaries[sessionID]
	if !ok {
		return nil, model.ErrSummaryNotReady
	}
	return summary, nil
}

type serviceFixture struct {
	svc         *InterviewService
	stateCache  *fakeStateCache
	sessions    *fakeSessionRepo
	transcripts *fakeTranscriptRepo
	summaries   *fakeSummaryRepo
}

// newFixture builds a service on the heuristic engine (no model backend) over
// a two-question catalog.
func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	cat := catalog.New([]model.Question{
		{ID: "q1", Prompt: "Do you smoke?", Criteria: []string{"frequency"}, MaxRetries: 1, Required: true},
		{ID: "q2", Prompt: "Any allergies?", Criteria: []string{"substances"}, MaxRetries: 1, Required: true},
	})
	eng := engine.New(cat, nil, nil, nil, 1)

	f := &serviceFixture{
		stateCache:  newFakeStateCache(),
		sessions:    newFakeSessionRepo(),
		transcripts: &fakeTranscriptRepo{},
		summaries:   newFakeSummaryRepo(),
	}
	f.svc = NewInterviewService(eng, cat, f.stateCache, f.sessions, f.transcripts, f.summaries)
	return f
}

func TestStartCreatesSessionAndAsksFirstQuestion(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Start(context.Background(), "Jo Doe")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.False(t, resp.Complete)
	require.Len(t, resp.Messages, 2)
	assert.Contains(t, resp.Messages[1], "Do you smoke?")

	record, err := f.sessions.GetByID(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, record.Status)
	assert.Equal(t, "Jo Doe", record.PatientName)
	assert.Equal(t, model.PhaseQuestionAsked, record.State.Phase)

	cached, err := f.stateCache.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, resp.SessionID, cached.SessionID)
}

func TestHandleMessagePersistsTurnAndTranscript(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Start(context.Background(), "")
	require.NoError(t, err)

	turn, err := f.svc.HandleMessage(context.Background(), resp.SessionID, "I smoke about ten a day")
	require.NoError(t, err)
	assert.Equal(t, 1, turn.QuestionIndex)
	assert.False(t, turn.Complete)

	record, err := f.sessions.GetByID(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, record.State.History, 1)
	assert.Equal(t, "q1", record.State.History[0].QuestionID)

	transcript, err := f.svc.GetTranscript(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, "Do you smoke?", transcript[0].Prompt)
	assert.Equal(t, "I smoke about ten a day", transcript[0].UserAnswer)
	assert.Equal(t, 1, transcript[0].Turn)
}

func TestHandleMessageUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.HandleMessage(context.Background(), "missing", "hello there friend")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestEmptyAnswerAddsNoTranscript(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Start(context.Background(), "")
	require.NoError(t, err)

	turn, err := f.svc.HandleMessage(context.Background(), resp.SessionID, "   ")
	require.NoError(t, err)
	assert.Equal(t, 0, turn.QuestionIndex)

	transcript, err := f.svc.GetTranscript(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Empty(t, transcript)
}

func TestCompletionStoresSummaryAndStatus(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Start(context.Background(), "")
	require.NoError(t, err)

	_, err = f.svc.HandleMessage(context.Background(), resp.SessionID, "I smoke about ten a day")
	require.NoError(t, err)
	turn, err := f.svc.HandleMessage(context.Background(), resp.SessionID, "Allergic to penicillin only")
	require.NoError(t, err)
	require.True(t, turn.Complete)

	record, err := f.sessions.GetByID(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, record.Status)
	require.NotNil(t, record.CompletedAt)

	summary, err := f.svc.GetSummary(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, summary.Questions, 2)

	stored, err := f.summaries.GetBySession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, stored.SessionID)

	// The session is now read-only.
	_, err = f.svc.HandleMessage(context.Background(), resp.SessionID, "one more thing")
	assert.ErrorIs(t, err, model.ErrSessionComplete)
	_, err = f.svc.Step(context.Background(), resp.SessionID)
	assert.ErrorIs(t, err, model.ErrSessionComplete)
}

func TestSummaryNotReadyWhileInProgress(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Start(context.Background(), "")
	require.NoError(t, err)

	_, err = f.svc.GetSummary(context.Background(), resp.SessionID)
	assert.ErrorIs(t, err, model.ErrSummaryNotReady)
}

func TestStateRecoveredFromRepoOnCacheMiss(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Start(context.Background(), "")
	require.NoError(t, err)

	_, err = f.svc.HandleMessage(context.Background(), resp.SessionID, "I smoke about ten a day")
	require.NoError(t, err)

	// Simulate cache expiry; the next turn must pick up where it left off.
	require.NoError(t, f.stateCache.Delete(context.Background(), resp.SessionID))

	state, err := f.svc.GetState(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.QuestionIndex)
	assert.Equal(t, 2, state.QuestionCount)
	assert.False(t, state.Complete)

	cached, err := f.stateCache.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, cached, "recovery re-warms the cache")
}

func TestRestartResetsProgressAndTranscript(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Start(context.Background(), "Jo Doe")
	require.NoError(t, err)

	_, err = f.svc.HandleMessage(context.Background(), resp.SessionID, "I smoke about ten a day")
	require.NoError(t, err)

	turn, err := f.svc.Restart(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, turn.QuestionIndex)
	assert.False(t, turn.Complete)
	assert.Contains(t, turn.Messages[len(turn.Messages)-1], "Do you smoke?")

	record, err := f.sessions.GetByID(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Empty(t, record.State.History)
	assert.Equal(t, "Jo Doe", record.PatientName, "restart keeps the patient record")

	transcript, err := f.svc.GetTranscript(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Empty(t, transcript)
}

func TestStepReissuesNothingWhileQuestionPending(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Start(context.Background(), "")
	require.NoError(t, err)

	turn, err := f.svc.Step(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Empty(t, turn.Messages)
	assert.Equal(t, 0, turn.QuestionIndex)
}

type fakeBroadcaster struct {
	mu          sync.Mutex
	msgTypes    []string
	disconnects []string
}

func (b *fakeBroadcaster) BroadcastToSession(_ string, msgType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgTypes = append(b.msgTypes, msgType)
}

func (b *fakeBroadcaster) DisconnectSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnects = append(b.disconnects, sessionID)
}

func TestConcurrentTurnsAreSerializedPerSession(t *testing.T) {
	// A single question with a huge retry budget so every turn lands on it.
	// Each insufficient answer must append exactly one history entry; a lost
	// load-modify-store update would drop entries.
	cat := catalog.New([]model.Question{
		{ID: "q1", Prompt: "Do you smoke?", Criteria: []string{"frequency"}, MaxRetries: 100, Required: true},
	})
	eng := engine.New(cat, nil, nil, nil, 100)

	stateCache := newFakeStateCache()
	sessions := newFakeSessionRepo()
	transcripts := &fakeTranscriptRepo{}
	svc := NewInterviewService(eng, cat, stateCache, sessions, transcripts, newFakeSummaryRepo())

	resp, err := svc.Start(context.Background(), "")
	require.NoError(t, err)

	const turns = 16
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleMessage(context.Background(), resp.SessionID, "um")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	record, err := sessions.GetByID(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, record.State.History, turns, "every turn must be recorded exactly once")
	assert.Equal(t, turns, record.State.RetryCount)
	assert.Equal(t, 0, record.State.QuestionIndex)

	transcript, err := svc.GetTranscript(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, transcript, turns)
}

func TestCompletionDisconnectsSessionSockets(t *testing.T) {
	f := newFixture(t)
	b := &fakeBroadcaster{}
	f.svc.SetBroadcaster(b)

	resp, err := f.svc.Start(context.Background(), "")
	require.NoError(t, err)

	_, err = f.svc.HandleMessage(context.Background(), resp.SessionID, "I smoke about ten a day")
	require.NoError(t, err)
	b.mu.Lock()
	assert.Empty(t, b.disconnects, "sockets stay open while the interview runs")
	b.mu.Unlock()

	turn, err := f.svc.HandleMessage(context.Background(), resp.SessionID, "Allergic to penicillin only")
	require.NoError(t, err)
	require.True(t, turn.Complete)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Contains(t, b.msgTypes, "session_complete")
	assert.Equal(t, []string{resp.SessionID}, b.disconnects, "completion closes the session's sockets")
}
