// Package models defines the data structures for transcript events.
package models

// TranscriptPartial represents an admitted interim/partial transcript result.
type TranscriptPartial struct {
	EventType     string `json:"eventType"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	Timestamp     int64  `json:"timestamp"`
	SegmentID     string `json:"segmentId"`
	Text          string `json:"text"`
}

// TranscriptFinal represents an admitted final transcript result with
// confidence score. A final published while the agent was speaking is a
// genuine interruption signal for downstream consumers.
type TranscriptFinal struct {
	EventType     string   `json:"eventType"`
	InteractionID string   `json:"interactionId"`
	TenantID      string   `json:"tenantId"`
	Timestamp     int64    `json:"timestamp"`
	SegmentID     string   `json:"segmentId"`
	Text          string   `json:"text"`
	Confidence    *float64 `json:"confidence,omitempty"`
	AgentSpeaking bool     `json:"agentSpeaking"`
}

// TranscriptFiltered represents a transcript the engine suppressed. It is
// published on its own topic so suppression decisions stay auditable.
type TranscriptFiltered struct {
	EventType     string   `json:"eventType"`
	InteractionID string   `json:"interactionId"`
	TenantID      string   `json:"tenantId"`
	Timestamp     int64    `json:"timestamp"`
	SegmentID     string   `json:"segmentId"`
	Text          string   `json:"text"`
	Confidence    *float64 `json:"confidence,omitempty"`
	IsFinal       bool     `json:"isFinal"`
	Reason        string   `json:"reason"`
	AgentSpeaking bool     `json:"agentSpeaking"`
}

// Event type identifiers for the transcript topics.
const (
	EventTypePartial  = "interaction.transcript.partial"
	EventTypeFinal    = "interaction.transcript.final"
	EventTypeFiltered = "interaction.transcript.filtered"
)
