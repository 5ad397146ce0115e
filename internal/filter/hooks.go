// Package filter provides the transcript admission engine that decides,
// while an agent may be speaking, whether a transcript is disposable filler,
// a deliberate interruption, or ordinary speech.
package filter

// SpeechEvent carries one transcript result from the recognition pipeline.
type SpeechEvent struct {
	// Text is the transcript payload. May be empty.
	Text string

	// Confidence is the recognizer's score for this result, in [0,1].
	// Nil means the recognizer did not report one; unknown confidence
	// always passes the confidence gate.
	Confidence *float64

	// IsFinal is true for stable results, false for interim ones.
	IsFinal bool

	// SegmentID identifies the utterance segment this result belongs to.
	SegmentID string

	// Timestamp is the event time in milliseconds since epoch.
	Timestamp int64
}

// VADEvent carries a voice-activity-detector inference result. The engine
// never inspects these, it only forwards them.
type VADEvent struct {
	Probability    float64
	SpeechDuration int64 // ms
	Timestamp      int64 // ms since epoch
}

// EndOfTurnInfo carries the turn-detection payload for end-of-turn and
// preemptive-generation notifications.
type EndOfTurnInfo struct {
	NewTranscript       string
	TranscriptionDelay  int64 // ms
	EndOfUtteranceDelay int64 // ms
}

// ChatMessage is a single entry of the conversation context.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext is the conversation history exposed to turn detection.
type ChatContext struct {
	Messages []ChatMessage
}

// RecognitionHooks is the capability set shared by the recognition source
// and the transcript consumer. The Engine implements it so it can be
// substituted transparently for the consumer it wraps: transcript handlers
// are intercepted, everything else is forwarded unchanged.
type RecognitionHooks interface {
	// OnStartOfSpeech is called when the VAD detects speech starting.
	OnStartOfSpeech(ev *VADEvent)

	// OnVADInferenceDone is called after each VAD inference.
	OnVADInferenceDone(ev *VADEvent)

	// OnEndOfSpeech is called when the VAD detects speech ending.
	OnEndOfSpeech(ev *VADEvent)

	// OnInterimTranscript is called for partial, revisable results.
	// speaking is an optional hint that the user is currently speaking;
	// it is forwarded untouched when the event is admitted.
	OnInterimTranscript(ev SpeechEvent, speaking *bool)

	// OnFinalTranscript is called for stable results. Forwarding a final
	// while the agent is speaking is what the consumer treats as a
	// genuine interruption signal.
	OnFinalTranscript(ev SpeechEvent)

	// OnEndOfTurn is called when turn detection decides the user turn is
	// over. The return value tells the caller whether to commit the turn.
	OnEndOfTurn(info EndOfTurnInfo) bool

	// OnPreemptiveGeneration notifies that response generation started
	// ahead of the turn boundary.
	OnPreemptiveGeneration(info EndOfTurnInfo)

	// RetrieveChatContext returns the current conversation context.
	RetrieveChatContext() ChatContext
}
