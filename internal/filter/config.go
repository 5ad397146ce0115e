package filter

// DefaultIgnoredPhrases are filler sounds suppressed while the agent speaks.
var DefaultIgnoredPhrases = []string{"uh", "umm", "hmm", "haan", "uhh", "um", "er", "ah"}

// DefaultInterruptPhrases always signal intent to interrupt, overriding
// filler suppression.
var DefaultInterruptPhrases = []string{
	"wait",
	"stop",
	"hold on",
	"stop it",
	"cancel",
	"no",
	"not that",
	"wrong",
	"nevermind",
}

// Config holds the admission rules for one engine. It is a plain value
// object: the engine never reads ambient process state, the host resolves
// environment overrides and passes the result here.
type Config struct {
	// IgnoredPhrases are filler words/phrases dropped when the agent is
	// speaking. Duplicates are harmless, order is irrelevant.
	IgnoredPhrases []string

	// InterruptPhrases force admission regardless of filler content.
	InterruptPhrases []string

	// MinConfidence in [0,1]. Transcripts with a reported confidence
	// strictly below it are dropped regardless of content or speaking
	// state. Zero disables the gate.
	MinConfidence float64

	// CaseSensitive governs matching of both phrase lists. Set at
	// construction only; not updatable at runtime.
	CaseSensitive bool
}

// DefaultConfig returns the stock filter configuration.
func DefaultConfig() Config {
	return Config{
		IgnoredPhrases:   append([]string(nil), DefaultIgnoredPhrases...),
		InterruptPhrases: append([]string(nil), DefaultInterruptPhrases...),
		MinConfidence:    0,
		CaseSensitive:    false,
	}
}

// ConfigUpdate is a partial configuration change. Nil fields are left
// unchanged. CaseSensitive is deliberately absent.
type ConfigUpdate struct {
	IgnoredPhrases   []string `json:"ignoredPhrases,omitempty"`
	InterruptPhrases []string `json:"interruptPhrases,omitempty"`
	MinConfidence    *float64 `json:"minConfidence,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ConfigUpdate) Empty() bool {
	return u.IgnoredPhrases == nil && u.InterruptPhrases == nil && u.MinConfidence == nil
}
