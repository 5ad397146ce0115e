package filter

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-interrupt-filter/internal/observability/metrics"
)

// Suppression reasons reported to the callback and metrics.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonFillerOnly    = "filler_only"
)

// SuppressionCallback is invoked synchronously when a transcript is
// suppressed, so the host can audit what was dropped. Optional.
type SuppressionCallback func(ev SpeechEvent, reason string)

// Engine is the transcript admission decision engine. It wraps a delegate
// RecognitionHooks: interim and final transcript handlers are intercepted,
// all other calls are forwarded unchanged.
//
// One engine serves one agent session. All operations complete
// synchronously; matching is in-memory and bounded by transcript length
// times phrase-list size.
type Engine struct {
	next RecognitionHooks
	log  zerolog.Logger
	m    *metrics.Metrics

	// mu guards cfg, the compiled matchers and the speaking flag.
	// Decisions take the read lock, updates swap under the write lock.
	mu         sync.RWMutex
	cfg        Config
	ignored    *Matcher
	interrupts *Matcher
	speaking   bool

	// updateMu serializes UpdateConfig. An overlapping update is rejected
	// outright rather than queued, to bound latency on the control path.
	updateMu sync.Mutex

	cbMu         sync.RWMutex
	onSuppressed SuppressionCallback
}

// NewEngine creates an engine with the given configuration, wrapping next.
func NewEngine(cfg Config, next RecognitionHooks, log zerolog.Logger) *Engine {
	e := &Engine{
		next:       next,
		log:        log,
		m:          metrics.DefaultMetrics,
		cfg:        cfg,
		ignored:    Compile(cfg.IgnoredPhrases, cfg.CaseSensitive),
		interrupts: Compile(cfg.InterruptPhrases, cfg.CaseSensitive),
	}
	e.log.Info().
		Int("ignoredPhrases", len(cfg.IgnoredPhrases)).
		Int("interruptPhrases", len(cfg.InterruptPhrases)).
		Float64("minConfidence", cfg.MinConfidence).
		Bool("caseSensitive", cfg.CaseSensitive).
		Msg("Interrupt filter engine created")
	return e
}

// SetSuppressionCallback registers a callback invoked for every suppressed
// transcript.
func (e *Engine) SetSuppressionCallback(cb SuppressionCallback) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.onSuppressed = cb
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg := e.cfg
	cfg.IgnoredPhrases = append([]string(nil), e.cfg.IgnoredPhrases...)
	cfg.InterruptPhrases = append([]string(nil), e.cfg.InterruptPhrases...)
	return cfg
}

// SetAgentSpeaking records an agent speaking transition. Idempotent:
// repeating the same value changes nothing, only the edge is logged.
func (e *Engine) SetAgentSpeaking(speaking bool) {
	e.mu.Lock()
	was := e.speaking
	e.speaking = speaking
	e.mu.Unlock()

	if was != speaking {
		e.log.Debug().
			Bool("speaking", speaking).
			Bool("wasSpeaking", was).
			Msg("Agent speaking state changed")
		e.m.RecordSpeakingTransition(speaking)
	}
}

// AgentSpeaking returns the current agent speaking state.
func (e *Engine) AgentSpeaking() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speaking
}

// UpdateConfig applies a partial configuration change, recompiling the
// affected matchers and swapping them atomically. Returns false without
// touching any state when another update is already in flight; the change
// is dropped whole, never half-applied.
func (e *Engine) UpdateConfig(u ConfigUpdate) bool {
	if !e.updateMu.TryLock() {
		e.log.Warn().Msg("Config update already in progress, skipping")
		e.m.RecordConfigUpdate(false)
		return false
	}
	defer e.updateMu.Unlock()

	e.mu.RLock()
	cfg := e.cfg
	caseSensitive := e.cfg.CaseSensitive
	e.mu.RUnlock()

	var ignored, interrupts *Matcher
	if u.IgnoredPhrases != nil {
		cfg.IgnoredPhrases = append([]string(nil), u.IgnoredPhrases...)
		ignored = Compile(cfg.IgnoredPhrases, caseSensitive)
	}
	if u.InterruptPhrases != nil {
		cfg.InterruptPhrases = append([]string(nil), u.InterruptPhrases...)
		interrupts = Compile(cfg.InterruptPhrases, caseSensitive)
	}
	if u.MinConfidence != nil {
		cfg.MinConfidence = *u.MinConfidence
	}

	e.mu.Lock()
	e.cfg = cfg
	if ignored != nil {
		e.ignored = ignored
	}
	if interrupts != nil {
		e.interrupts = interrupts
	}
	e.mu.Unlock()

	e.log.Info().
		Int("ignoredPhrases", len(cfg.IgnoredPhrases)).
		Int("interruptPhrases", len(cfg.InterruptPhrases)).
		Float64("minConfidence", cfg.MinConfidence).
		Msg("Filter configuration updated")
	e.m.RecordConfigUpdate(true)
	return true
}

// IsFillerOnly reports whether text consists entirely of ignored phrases.
// Empty text is not filler-only by definition.
func (e *Engine) IsFillerOnly(text string) bool {
	if text == "" {
		return false
	}
	e.mu.RLock()
	m := e.ignored
	e.mu.RUnlock()
	return isFillerOnly(m, text)
}

func isFillerOnly(m *Matcher, text string) bool {
	cleaned := m.StripAll(text)
	return len(strings.Fields(cleaned)) == 0
}

// ContainsInterruptCommand reports whether text contains any interrupt
// phrase.
func (e *Engine) ContainsInterruptCommand(text string) bool {
	if text == "" {
		return false
	}
	e.mu.RLock()
	m := e.interrupts
	e.mu.RUnlock()
	return m.ContainsAny(text)
}

// ShouldIgnore evaluates the admission rules in strict order: confidence
// gate, agent silent, interrupt override, filler suppression, default
// admit. The second return value names the suppression reason when the
// first is true.
func (e *Engine) ShouldIgnore(text string, confidence *float64) (bool, string) {
	e.mu.RLock()
	cfg := e.cfg
	speaking := e.speaking
	ignored := e.ignored
	interrupts := e.interrupts
	e.mu.RUnlock()

	// Low-confidence noise is dropped even when the agent is silent.
	if confidence != nil && *confidence < cfg.MinConfidence {
		e.log.Debug().
			Float64("confidence", *confidence).
			Float64("threshold", cfg.MinConfidence).
			Msg("Ignoring low-confidence transcript")
		return true, ReasonLowConfidence
	}

	if !speaking {
		return false, ""
	}

	if text != "" && interrupts.ContainsAny(text) {
		e.log.Info().
			Str("transcript", text).
			Msg("Interrupt command detected, allowing interruption")
		e.m.RecordInterruptDetected()
		return false, ""
	}

	if text != "" && isFillerOnly(ignored, text) {
		e.log.Debug().
			Str("transcript", text).
			Msg("Ignoring filler-only transcript while agent is speaking")
		return true, ReasonFillerOnly
	}

	return false, ""
}

// --- RecognitionHooks implementation ---

// OnStartOfSpeech forwards the event unchanged.
func (e *Engine) OnStartOfSpeech(ev *VADEvent) { e.next.OnStartOfSpeech(ev) }

// OnVADInferenceDone forwards the event unchanged.
func (e *Engine) OnVADInferenceDone(ev *VADEvent) { e.next.OnVADInferenceDone(ev) }

// OnEndOfSpeech forwards the event unchanged.
func (e *Engine) OnEndOfSpeech(ev *VADEvent) { e.next.OnEndOfSpeech(ev) }

// OnInterimTranscript suppresses the interim display path for ignored
// transcripts. Suppressed interims carry no interruption side effect
// either way; interruption decisions ride exclusively on finals.
func (e *Engine) OnInterimTranscript(ev SpeechEvent, speaking *bool) {
	start := time.Now()
	ignore, reason := e.ShouldIgnore(ev.Text, ev.Confidence)
	e.m.RecordDecision("interim", ignore, reason, time.Since(start).Seconds())

	if ignore {
		e.log.Debug().
			Str("transcript", ev.Text).
			Str("reason", reason).
			Bool("agentSpeaking", e.AgentSpeaking()).
			Msg("Filtered interim transcript")
		e.notifySuppressed(ev, reason)
		return
	}
	e.next.OnInterimTranscript(ev, speaking)
}

// OnFinalTranscript drops ignored finals. This is the path that prevents
// false barge-in: a final that is forwarded while the agent speaks is
// understood by the consumer as a genuine interruption.
func (e *Engine) OnFinalTranscript(ev SpeechEvent) {
	start := time.Now()
	ignore, reason := e.ShouldIgnore(ev.Text, ev.Confidence)
	e.m.RecordDecision("final", ignore, reason, time.Since(start).Seconds())

	if ignore {
		e.log.Info().
			Str("transcript", ev.Text).
			Str("reason", reason).
			Bool("agentSpeaking", e.AgentSpeaking()).
			Msg("Filtered final transcript")
		e.notifySuppressed(ev, reason)
		return
	}

	if e.AgentSpeaking() {
		e.log.Info().
			Str("transcript", ev.Text).
			Bool("containsInterruptCommand", e.ContainsInterruptCommand(ev.Text)).
			Msg("Valid interruption detected")
	}
	e.next.OnFinalTranscript(ev)
}

// OnEndOfTurn forwards the call unchanged.
func (e *Engine) OnEndOfTurn(info EndOfTurnInfo) bool { return e.next.OnEndOfTurn(info) }

// OnPreemptiveGeneration forwards the call unchanged.
func (e *Engine) OnPreemptiveGeneration(info EndOfTurnInfo) { e.next.OnPreemptiveGeneration(info) }

// RetrieveChatContext forwards the call unchanged.
func (e *Engine) RetrieveChatContext() ChatContext { return e.next.RetrieveChatContext() }

func (e *Engine) notifySuppressed(ev SpeechEvent, reason string) {
	e.cbMu.RLock()
	cb := e.onSuppressed
	e.cbMu.RUnlock()
	if cb != nil {
		cb(ev, reason)
	}
}
