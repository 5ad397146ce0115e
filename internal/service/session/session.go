// Package session manages one agent session: it bridges STT callbacks into
// the admission engine and forwards admitted transcripts to the event
// publisher. The engine sits between source and sink exactly where the
// unfiltered consumer used to be.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-interrupt-filter/internal/events"
	"voice-interrupt-filter/internal/filter"
	"voice-interrupt-filter/internal/models"
	"voice-interrupt-filter/internal/observability/logging"
	"voice-interrupt-filter/internal/observability/metrics"
	"voice-interrupt-filter/internal/service/segment"
	"voice-interrupt-filter/internal/service/stt"
)

// Limits defines safety guardrails for segment processing.
type Limits struct {
	MaxPartials int           // Max partial transcripts per segment
	MaxDuration time.Duration // Max segment duration
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPartials: 500,
		MaxDuration: 5 * time.Minute,
	}
}

// Session is one agent session's transcript stream. It implements
// stt.Callback on the source side; decisions happen inside its filter
// engine; admitted transcripts land in the publisher.
type Session struct {
	id            string
	interactionID string
	tenantID      string

	engine     *filter.Engine
	publisher  events.TranscriptPublisher
	segmentGen *segment.Generator
	lifecycle  *segment.Lifecycle
	limits     Limits
	log        zerolog.Logger
	m          *metrics.Metrics
	started    time.Time

	adapter stt.Adapter // nil when transcripts arrive pre-recognized

	mu             sync.RWMutex
	segmentStart   time.Time
	partialCount   int
	utteranceCount int
	chatHistory    []filter.ChatMessage
	closed         bool
}

// New creates a session with its own engine instance configured from cfg.
func New(interactionID, tenantID string, cfg filter.Config, publisher events.TranscriptPublisher, limits Limits) *Session {
	s := &Session{
		id:            uuid.NewString(),
		interactionID: interactionID,
		tenantID:      tenantID,
		publisher:     publisher,
		segmentGen:    segment.New(),
		limits:        limits,
		m:             metrics.DefaultMetrics,
		started:       time.Now(),
		segmentStart:  time.Now(),
	}
	s.lifecycle = segment.NewLifecycle(s.segmentGen.Next(interactionID))
	s.log = logging.WithSession(interactionID, tenantID, s.id)

	s.engine = filter.NewEngine(cfg, &sink{s: s}, s.log)
	s.engine.SetSuppressionCallback(s.publishFiltered)

	s.m.RecordSessionStart()
	s.m.RecordSegmentCreated()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// InteractionID returns the interaction this session serves.
func (s *Session) InteractionID() string { return s.interactionID }

// TenantID returns the owning tenant.
func (s *Session) TenantID() string { return s.tenantID }

// Engine exposes the filter engine for the control API.
func (s *Session) Engine() *filter.Engine { return s.engine }

// SetAgentSpeaking propagates an agent speaking transition from the
// playback layer into the engine.
func (s *Session) SetAgentSpeaking(speaking bool) {
	s.engine.SetAgentSpeaking(speaking)
}

// BindAdapter attaches an in-process STT adapter whose callbacks feed this
// session. Used for the mock and Google providers; external mode skips it.
func (s *Session) BindAdapter(a stt.Adapter) {
	s.adapter = a
}

// Start begins the STT session with this session as the callback receiver.
func (s *Session) Start(ctx context.Context) error {
	if s.adapter == nil {
		return nil
	}
	return s.adapter.Start(ctx, s)
}

// SendAudio forwards audio bytes to the bound STT adapter.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	if s.adapter == nil {
		return fmt.Errorf("no stt adapter bound to session %s", s.id)
	}
	s.mu.RLock()
	start := s.segmentStart
	s.mu.RUnlock()

	if s.limits.MaxDuration > 0 && time.Since(start) > s.limits.MaxDuration {
		reason := fmt.Sprintf("max duration exceeded: %v > %v", time.Since(start).Round(time.Millisecond), s.limits.MaxDuration)
		s.DropSegment(reason)
		return fmt.Errorf("segment limit exceeded: %s", reason)
	}
	return s.adapter.SendAudio(ctx, audio)
}

// Close ends the session and releases the adapter if one is bound.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.lifecycle.Close()
	s.m.RecordSessionEnd(time.Since(s.started).Seconds())
	s.log.Info().
		Dur("duration", time.Since(s.started)).
		Int("utterances", s.UtteranceCount()).
		Msg("Session closed")

	if s.adapter != nil {
		return s.adapter.Close()
	}
	return nil
}

// UtteranceCount returns the number of utterance boundaries seen.
func (s *Session) UtteranceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.utteranceCount
}

// SegmentID returns the active segment ID.
func (s *Session) SegmentID() string {
	return s.lifecycle.SegmentId()
}

// --- stt.Callback implementation ---

// OnPartial is called when an interim transcript is received from a bound
// adapter. Adapters do not score partials, so confidence is unknown.
func (s *Session) OnPartial(text string) {
	s.HandleInterim(text, nil, nil)
}

// OnFinal is called when a final transcript is received from a bound adapter.
func (s *Session) OnFinal(text string, confidence float64) {
	s.HandleFinal(text, &confidence)
}

// OnEndOfUtterance closes the current segment and opens the next one.
func (s *Session) OnEndOfUtterance() {
	oldSegmentId := s.lifecycle.SegmentId()
	oldState := s.lifecycle.State()
	s.lifecycle.Close()

	s.mu.Lock()
	s.utteranceCount++
	oldPartialCount := s.partialCount
	oldDuration := time.Since(s.segmentStart)
	s.partialCount = 0
	s.segmentStart = time.Now()
	s.mu.Unlock()

	newSegmentId := s.segmentGen.Next(s.interactionID)
	s.lifecycle.Reset(newSegmentId)
	s.m.RecordSegmentCreated()

	s.log.Info().
		Str("oldSegment", oldSegmentId).
		Str("oldState", oldState.String()).
		Str("newSegment", newSegmentId).
		Int("utterance", s.UtteranceCount()).
		Int("partials", oldPartialCount).
		Dur("duration", oldDuration).
		Msg("End of utterance")
}

// OnError drops the current segment. No final will be emitted for it.
func (s *Session) OnError(err error) {
	segmentId := s.lifecycle.SegmentId()
	oldState := s.lifecycle.State()
	dropped := s.lifecycle.Drop()
	if dropped {
		s.m.RecordSegmentDropped("stt_error")
	}
	s.log.Error().
		Err(err).
		Str("segmentId", segmentId).
		Str("previousState", oldState.String()).
		Bool("dropped", dropped).
		Msg("STT error, segment dropped")
}

// --- transcript entry points shared by adapters and the external ingest ---

// HandleInterim runs an interim transcript through the engine. speaking is
// the optional currently-speaking hint from the recognizer.
func (s *Session) HandleInterim(text string, confidence *float64, speaking *bool) {
	if err := s.lifecycle.EmitPartial(); err != nil {
		s.log.Debug().
			Err(err).
			Str("segmentId", s.lifecycle.SegmentId()).
			Str("state", s.lifecycle.State().String()).
			Msg("Interim transcript ignored by segment lifecycle")
		return
	}

	s.mu.Lock()
	s.partialCount++
	count := s.partialCount
	s.mu.Unlock()

	if s.limits.MaxPartials > 0 && count > s.limits.MaxPartials {
		s.DropSegment(fmt.Sprintf("max partials exceeded: %d > %d", count, s.limits.MaxPartials))
		return
	}

	s.m.RecordPartialTranscript()
	s.engine.OnInterimTranscript(filter.SpeechEvent{
		Text:       text,
		Confidence: confidence,
		IsFinal:    false,
		SegmentID:  s.lifecycle.SegmentId(),
		Timestamp:  time.Now().UnixMilli(),
	}, speaking)
}

// HandleFinal runs a final transcript through the engine. A suppressed
// final never reaches the consumer, which is what prevents false barge-in.
func (s *Session) HandleFinal(text string, confidence *float64) {
	if err := s.lifecycle.EmitFinal(); err != nil {
		s.log.Debug().
			Err(err).
			Str("segmentId", s.lifecycle.SegmentId()).
			Str("state", s.lifecycle.State().String()).
			Msg("Final transcript ignored by segment lifecycle")
		return
	}

	s.m.RecordFinalTranscript()
	s.m.RecordSegmentCompleted()
	s.engine.OnFinalTranscript(filter.SpeechEvent{
		Text:       text,
		Confidence: confidence,
		IsFinal:    true,
		SegmentID:  s.lifecycle.SegmentId(),
		Timestamp:  time.Now().UnixMilli(),
	})
}

// HandleSpeechStart forwards a speech-start lifecycle event.
func (s *Session) HandleSpeechStart(ev *filter.VADEvent) {
	s.engine.OnStartOfSpeech(ev)
}

// HandleSpeechEnd forwards a speech-end lifecycle event.
func (s *Session) HandleSpeechEnd(ev *filter.VADEvent) {
	s.engine.OnEndOfSpeech(ev)
}

// HandleVADInference forwards a VAD inference result.
func (s *Session) HandleVADInference(ev *filter.VADEvent) {
	s.engine.OnVADInferenceDone(ev)
}

// HandleEndOfTurn forwards an end-of-turn decision request.
func (s *Session) HandleEndOfTurn(info filter.EndOfTurnInfo) bool {
	return s.engine.OnEndOfTurn(info)
}

// DropSegment abandons the current segment without emitting a final.
func (s *Session) DropSegment(reason string) bool {
	segmentId := s.lifecycle.SegmentId()
	oldState := s.lifecycle.State()
	dropped := s.lifecycle.Drop()
	if dropped {
		s.m.RecordSegmentDropped("limit_exceeded")
	}
	s.log.Warn().
		Str("segmentId", segmentId).
		Str("previousState", oldState.String()).
		Str("reason", reason).
		Msg("Segment dropped")
	return dropped
}

func (s *Session) publishFiltered(ev filter.SpeechEvent, reason string) {
	event := models.TranscriptFiltered{
		EventType:     models.EventTypeFiltered,
		InteractionID: s.interactionID,
		TenantID:      s.tenantID,
		SegmentID:     ev.SegmentID,
		Text:          ev.Text,
		Confidence:    ev.Confidence,
		IsFinal:       ev.IsFinal,
		Reason:        reason,
		AgentSpeaking: s.engine.AgentSpeaking(),
		Timestamp:     time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishFiltered(context.Background(), s.interactionID, event); err != nil {
		s.log.Error().Err(err).Str("segmentId", ev.SegmentID).Msg("Failed to publish filtered transcript")
	}
}

// sink is the downstream consumer the engine wraps: admitted transcripts
// are published, everything else is recorded.
type sink struct {
	s *Session
}

func (k *sink) OnStartOfSpeech(ev *filter.VADEvent) {
	k.s.log.Debug().Msg("User speech started")
}

func (k *sink) OnVADInferenceDone(ev *filter.VADEvent) {}

func (k *sink) OnEndOfSpeech(ev *filter.VADEvent) {
	k.s.log.Debug().Msg("User speech ended")
}

func (k *sink) OnInterimTranscript(ev filter.SpeechEvent, speaking *bool) {
	s := k.s
	event := models.TranscriptPartial{
		EventType:     models.EventTypePartial,
		InteractionID: s.interactionID,
		TenantID:      s.tenantID,
		SegmentID:     ev.SegmentID,
		Text:          ev.Text,
		Timestamp:     ev.Timestamp,
	}
	if err := s.publisher.PublishPartial(context.Background(), s.interactionID, event); err != nil {
		s.log.Error().Err(err).Str("segmentId", ev.SegmentID).Msg("Failed to publish partial")
	}
}

func (k *sink) OnFinalTranscript(ev filter.SpeechEvent) {
	s := k.s

	s.mu.Lock()
	s.chatHistory = append(s.chatHistory, filter.ChatMessage{Role: "user", Content: ev.Text})
	s.mu.Unlock()

	event := models.TranscriptFinal{
		EventType:     models.EventTypeFinal,
		InteractionID: s.interactionID,
		TenantID:      s.tenantID,
		SegmentID:     ev.SegmentID,
		Text:          ev.Text,
		Confidence:    ev.Confidence,
		AgentSpeaking: s.engine.AgentSpeaking(),
		Timestamp:     ev.Timestamp,
	}
	if err := s.publisher.PublishFinal(context.Background(), s.interactionID, event); err != nil {
		s.log.Error().Err(err).Str("segmentId", ev.SegmentID).Msg("Failed to publish final")
	}
}

func (k *sink) OnEndOfTurn(info filter.EndOfTurnInfo) bool { return true }

func (k *sink) OnPreemptiveGeneration(info filter.EndOfTurnInfo) {}

func (k *sink) RetrieveChatContext() filter.ChatContext {
	s := k.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.ChatContext{Messages: append([]filter.ChatMessage(nil), s.chatHistory...)}
}
