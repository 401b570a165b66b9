package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/brain"
	"github.com/parleyhq/parley/internal/observability"
	"github.com/parleyhq/parley/internal/store"
)

// DefaultSystemPrompt seeds every fresh transcript as its instruction turn.
const DefaultSystemPrompt = "You are a concise, helpful assistant. Answer plainly, and say so when you do not know something."

// EmptyReplySentinel stands in for the assistant turn when the backend
// succeeds but returns no usable text.
const EmptyReplySentinel = "Sorry, I could not come up with a reply. Please try again."

const (
	DefaultWindow = 16
	DefaultTTL    = 24 * time.Hour
)

// Config carries the fixed per-deployment settings of the manager.
type Config struct {
	// SystemPrompt is the content of the instruction turn. Defaults to
	// DefaultSystemPrompt.
	SystemPrompt string
	// Window is the maximum number of non-instruction turns retained when
	// bounding the context sent to inference. Defaults to DefaultWindow.
	Window int
	// TTL is the sliding retention period for stored transcripts, reset on
	// every persist. Defaults to DefaultTTL.
	TTL time.Duration
	// Model, MaxTokens and Temperature are forwarded to the inference
	// backend unchanged on every call.
	Model       string
	MaxTokens   int
	Temperature float64
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}

// Manager owns the lifecycle of conversation transcripts: loading prior
// state, seeding fresh sessions, appending turns, bounding the context
// window, and persisting the result around each inference call.
//
// Requests for the same session are not serialized; concurrent turns can
// interleave their read-modify-write cycles and the last persist wins.
type Manager struct {
	cfg     Config
	store   store.Store
	brain   brain.Client
	metrics *observability.Metrics
}

// NewManager wires a manager from its two collaborators. metrics may be nil.
func NewManager(cfg Config, st store.Store, cl brain.Client, metrics *observability.Metrics) *Manager {
	return &Manager{
		cfg:     cfg.withDefaults(),
		store:   st,
		brain:   cl,
		metrics: metrics,
	}
}

// HandleTurn runs one full conversation turn: it appends userText to the
// session's transcript, obtains the assistant's reply, persists the updated
// transcript and returns both. The returned history is exactly what was
// stored.
//
// Inference failure (including cancellation of ctx) leaves the stored
// transcript untouched.
func (m *Manager) HandleTurn(ctx context.Context, sessionID, userText string) (string, []Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		m.countTurn("validation_error")
		return "", nil, &ValidationError{Field: "sessionId", Reason: "missing or invalid sessionId"}
	}
	text := strings.TrimSpace(userText)
	if text == "" {
		m.countTurn("validation_error")
		return "", nil, &ValidationError{Field: "message", Reason: "missing or invalid message"}
	}

	turnStart := time.Now()
	key := storageKey(sessionID)

	loadStart := time.Now()
	turns, err := m.load(ctx, key)
	m.observeStage(observability.StageLoad, time.Since(loadStart))
	if err != nil {
		m.countTurn("store_error")
		return "", nil, fmt.Errorf("load transcript: %w", err)
	}

	// Seed at most once per session lifetime: the instruction turn is only
	// ever prepended to an empty transcript.
	if len(turns) == 0 {
		turns = append(turns, Turn{Role: RoleInstruction, Content: m.cfg.SystemPrompt})
	}

	turns = append(turns, Turn{Role: RoleUser, Content: text})
	turns = m.window(turns)

	reply, err := m.infer(ctx, turns)
	if err != nil {
		m.countTurn("inference_error")
		return "", nil, &InferenceError{Err: err}
	}
	turns = append(turns, Turn{Role: RoleAssistant, Content: reply})

	persistStart := time.Now()
	err = m.persist(ctx, key, turns)
	m.observeStage(observability.StagePersist, time.Since(persistStart))
	if err != nil {
		m.countTurn("store_error")
		return "", nil, fmt.Errorf("persist transcript: %w", err)
	}

	m.countTurn("ok")
	m.observeStage(observability.StageTurn, time.Since(turnStart))
	if m.metrics != nil {
		m.metrics.TranscriptLength.Observe(float64(len(turns)))
	}
	return reply, turns, nil
}

func (m *Manager) observeStage(stage string, d time.Duration) {
	if m.metrics != nil {
		m.metrics.ObserveStage(stage, d)
	}
}

func storageKey(sessionID string) string {
	return "transcript:" + sessionID
}

// load fetches and decodes the stored transcript. A missing entry and an
// unparseable entry both yield an empty transcript; only storage transport
// failures are errors.
func (m *Manager) load(ctx context.Context, key string) ([]Turn, error) {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	turns, ok := decodeTranscript(raw)
	if !ok {
		log.Printf("transcript: discarding unparseable stored value for %s", key)
		if m.metrics != nil {
			m.metrics.StoreReadAnomalies.Inc()
		}
		return nil, nil
	}
	return turns, nil
}

// decodeTranscript parses a stored transcript, reporting ok=false for
// anything ill-formed so the caller can fall back to a fresh session
// instead of failing the request.
func decodeTranscript(raw []byte) ([]Turn, bool) {
	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, false
	}
	if len(turns) == 0 {
		return nil, true
	}
	if turns[0].Role != RoleInstruction {
		return nil, false
	}
	for i, t := range turns {
		if !t.Role.Valid() || strings.TrimSpace(t.Content) == "" {
			return nil, false
		}
		if i > 0 && t.Role == RoleInstruction {
			return nil, false
		}
	}
	return turns, true
}

// window bounds the transcript to the instruction turn plus the most recent
// cfg.Window non-instruction turns, preserving their relative order. A
// transcript of at most Window+1 turns passes through unchanged; the
// boundary is strictly "greater than". Evicted turns are gone for good.
func (m *Manager) window(turns []Turn) []Turn {
	if len(turns) <= m.cfg.Window+1 {
		return turns
	}
	kept := make([]Turn, 0, m.cfg.Window+1)
	kept = append(kept, turns[0])
	kept = append(kept, turns[len(turns)-m.cfg.Window:]...)
	if m.metrics != nil {
		m.metrics.EvictedTurns.Add(float64(len(turns) - len(kept)))
	}
	return kept
}

func (m *Manager) infer(ctx context.Context, turns []Turn) (string, error) {
	req := brain.CompletionRequest{
		Model:       m.cfg.Model,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
		Messages:    make([]brain.Message, 0, len(turns)),
	}
	for _, t := range turns {
		req.Messages = append(req.Messages, brain.Message{Role: string(t.Role), Content: t.Content})
	}

	start := time.Now()
	res, err := m.brain.Complete(ctx, req)
	if m.metrics != nil {
		m.metrics.ObserveInferenceLatency(time.Since(start))
	}
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return EmptyReplySentinel, nil
	}
	return text, nil
}

// persist stores the transcript and resets its retention deadline.
func (m *Manager) persist(ctx context.Context, key string, turns []Turn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return m.store.Put(ctx, key, raw, m.cfg.TTL)
}

func (m *Manager) countTurn(outcome string) {
	if m.metrics != nil {
		m.metrics.Turns.WithLabelValues(outcome).Inc()
	}
}
