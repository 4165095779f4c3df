// Package score wires the gop scoring engine onto the bus: it buffers
// streamed audio per session the way the teacher's STT service buffers
// partial transcription audio, then aligns the buffered audio against a
// reference sentence once both have arrived.
package score

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/gop-core/internal/bus"
	"github.com/loqalabs/gop-core/internal/eventstore"
	"github.com/loqalabs/gop-core/internal/gop"
	"github.com/loqalabs/gop-core/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Service subscribes to audio frames and score requests, buffers PCM per
// session, and invokes the scoring engine once a session's audio is final
// and a reference sentence has arrived.
type Service struct {
	bus    *bus.Client
	store  *eventstore.Store
	scorer *gop.Scorer
	log    *slog.Logger

	sessions map[string]*sessionState
	mu       sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	subs   []*nats.Subscription
	wg     sync.WaitGroup
	ready  bool
}

type sessionState struct {
	Buffer      []byte
	SampleRate  int
	Channels    int
	Final       bool
	Sentence    string
	TraceID     string
	HasSentence bool
	Inflight    bool
}

// NewService binds the bus, the event store, and a fully-wired gop.Scorer.
func NewService(parent context.Context, busClient *bus.Client, store *eventstore.Store, scorer *gop.Scorer, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		bus:      busClient,
		store:    store,
		scorer:   scorer,
		log:      log.With(slog.String("component", "score-service")),
		sessions: make(map[string]*sessionState),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the audio-frame and score-request subjects.
func (s *Service) Start() error {
	frameSub, err := s.bus.Conn().Subscribe(protocol.SubjectAudioFramePrefix+".>", s.handleFrame)
	if err != nil {
		return fmt.Errorf("subscribe audio frames: %w", err)
	}
	s.subs = append(s.subs, frameSub)

	requestSub, err := s.bus.Conn().Subscribe(protocol.SubjectScoreRequest, s.handleScoreRequest)
	if err != nil {
		return fmt.Errorf("subscribe score requests: %w", err)
	}
	s.subs = append(s.subs, requestSub)

	s.ready = true
	return nil
}

// Close unsubscribes and waits for in-flight scoring goroutines to finish.
func (s *Service) Close() {
	s.cancel()
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return s.ready
}

func (s *Service) handleFrame(msg *nats.Msg) {
	var frame protocol.AudioFrame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		s.log.Warn("failed to decode audio frame", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	state := s.stateFor(frame.SessionID)
	state.Buffer = append(state.Buffer, frame.PCM...)
	if frame.SampleRate > 0 {
		state.SampleRate = frame.SampleRate
	}
	if frame.Channels > 0 {
		state.Channels = frame.Channels
	}
	if frame.Final {
		state.Final = true
	}
	ready := s.readyToScoreLocked(state)
	s.mu.Unlock()

	if ready {
		s.scheduleScore(frame.SessionID)
	}
}

func (s *Service) handleScoreRequest(msg *nats.Msg) {
	var req protocol.ScoreRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.log.Warn("failed to decode score request", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	state := s.stateFor(req.SessionID)
	state.Sentence = req.Sentence
	state.TraceID = req.TraceID
	state.HasSentence = true
	ready := s.readyToScoreLocked(state)
	s.mu.Unlock()

	if ready {
		s.scheduleScore(req.SessionID)
	}
}

// stateFor must be called with s.mu held.
func (s *Service) stateFor(sessionID string) *sessionState {
	state := s.sessions[sessionID]
	if state == nil {
		state = &sessionState{}
		s.sessions[sessionID] = state
	}
	return state
}

// readyToScoreLocked must be called with s.mu held.
func (s *Service) readyToScoreLocked(state *sessionState) bool {
	return state.Final && state.HasSentence && !state.Inflight
}

func (s *Service) scheduleScore(sessionID string) {
	s.mu.Lock()
	state := s.sessions[sessionID]
	if state == nil || state.Inflight || !s.readyToScoreLocked(state) {
		s.mu.Unlock()
		return
	}
	state.Inflight = true
	pcm := append([]byte(nil), state.Buffer...)
	sampleRate, channels := state.SampleRate, state.Channels
	sentence, traceID := state.Sentence, state.TraceID
	s.mu.Unlock()

	if traceID == "" {
		traceID = uuid.NewString()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, 45*time.Second)
		defer cancel()

		result, err := s.scorer.Score(ctx, pcmToFloat32(pcm), sampleRate, channels, sentence)
		s.publishResult(ctx, sessionID, traceID, result, err)

		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
	}()
}

func (s *Service) publishResult(ctx context.Context, sessionID, traceID string, result *gop.Result, scoreErr error) {
	out := protocol.ScoreResult{
		SessionID: sessionID,
		TraceID:   traceID,
		Timestamp: time.Now().UTC(),
	}
	if scoreErr != nil {
		out.Error = scoreErr.Error()
		s.log.Warn("scoring failed", slog.String("session_id", sessionID), slog.String("error", scoreErr.Error()))
	} else {
		out.Words = convertWords(result.Words)
		out.OverallScore = result.OverallScore
	}

	data, err := json.Marshal(out)
	if err != nil {
		s.log.Warn("failed to marshal score result", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectScoreResult, data); err != nil {
		s.log.Warn("failed to publish score result", slog.String("error", err.Error()))
	}

	if s.store == nil {
		return
	}
	// events.session_id references sessions, so the session row must exist first.
	if err := s.store.AppendSession(ctx, sessionID, "", ""); err != nil {
		s.log.Warn("failed to record score session", slog.String("error", err.Error()))
		return
	}
	if err := s.store.AppendEvent(ctx, eventstore.Event{
		SessionID: sessionID,
		TraceID:   traceID,
		Type:      "score.session.complete",
		Payload:   data,
	}); err != nil {
		s.log.Warn("failed to record score event", slog.String("error", err.Error()))
	}
}

func convertWords(words []gop.WordAnalysis) []protocol.ScoredWord {
	out := make([]protocol.ScoredWord, len(words))
	for i, w := range words {
		phonemes := make([]protocol.ScoredPhoneme, len(w.Details))
		for j, d := range w.Details {
			phonemes[j] = protocol.ScoredPhoneme{
				IPA:        d.IPA,
				Score:      d.Score,
				IsGood:     d.IsGood,
				StartFrame: d.StartFrame,
				EndFrame:   d.EndFrame,
			}
		}
		out[i] = protocol.ScoredWord{
			Word:      w.Word,
			RawIPA:    w.RawIPA,
			Phonemes:  phonemes,
			WordScore: w.WordScore,
		}
	}
	return out
}

// pcmToFloat32 decodes little-endian signed 16-bit PCM into [-1, 1] float32
// samples, the format protocol.AudioFrame carries on the wire.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(v) / 32768.0
	}
	return out
}

// History retrieves a session's past scoring events for a pronunciation
// history view layered on top of this service.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]eventstore.Event, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListSessionEvents(ctx, sessionID, limit)
}
