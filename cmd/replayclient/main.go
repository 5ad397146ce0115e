// Replay client for manual end-to-end checks. Connects to the ingest
// WebSocket and plays a scripted conversation that exercises filler
// suppression, interrupt commands, and the confidence gate.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	Type          string   `json:"type"`
	InteractionID string   `json:"interactionId,omitempty"`
	TenantID      string   `json:"tenantId,omitempty"`
	Text          string   `json:"text,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Speaking      *bool    `json:"speaking,omitempty"`
}

type serverAck struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	SegmentID string `json:"segmentId,omitempty"`
	Message   string `json:"message,omitempty"`
}

func confidence(v float64) *float64 { return &v }

func speaking(v bool) *bool { return &v }

func main() {
	addr := flag.String("addr", "localhost:8080", "Server address")
	interaction := flag.String("interaction", "int-replay-1", "Interaction ID")
	tenant := flag.String("tenant", "tenant-replay", "Tenant ID")
	delay := flag.Duration("delay", 200*time.Millisecond, "Delay between frames")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/v1/stream"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", u.String(), err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", u.String())

	send(conn, frame{Type: "session.start", InteractionID: *interaction, TenantID: *tenant})
	ack := recvAck(conn)
	if ack.Type != "session.started" {
		log.Fatalf("handshake failed: %s %s", ack.Type, ack.Message)
	}
	log.Printf("Session started: sessionId=%s segmentId=%s", ack.SessionID, ack.SegmentID)

	// Agent silent: everything should pass, fillers included.
	script := []frame{
		{Type: "transcript.partial", Text: "umm"},
		{Type: "transcript.final", Text: "umm what is my balance", Confidence: confidence(0.92)},
		{Type: "utterance.end"},

		// Agent starts speaking: fillers are suppressed now.
		{Type: "agent.speaking", Speaking: speaking(true)},
		{Type: "transcript.partial", Text: "uh"},
		{Type: "transcript.final", Text: "umm hmm", Confidence: confidence(0.85)},
		{Type: "utterance.end"},

		// Interrupt command wins even when wrapped in filler.
		{Type: "transcript.final", Text: "umm wait stop", Confidence: confidence(0.9)},
		{Type: "utterance.end"},

		// Dropped before anything else when FILTER_MIN_CONFIDENCE is set.
		{Type: "transcript.final", Text: "stop", Confidence: confidence(0.1)},
		{Type: "utterance.end"},

		// Real barge-in content passes.
		{Type: "transcript.final", Text: "can you repeat that", Confidence: confidence(0.95)},
		{Type: "utterance.end"},

		{Type: "agent.speaking", Speaking: speaking(false)},
		{Type: "session.end"},
	}

	for _, f := range script {
		log.Printf("Sending %s: %q", f.Type, f.Text)
		send(conn, f)
		if f.Type == "utterance.end" || f.Type == "session.end" {
			ack := recvAck(conn)
			log.Printf("Received %s: segmentId=%s", ack.Type, ack.SegmentID)
		}
		time.Sleep(*delay)
	}

	log.Println("Replay finished")
}

func send(conn *websocket.Conn, f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Fatalf("failed to marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Fatalf("failed to send frame: %v", err)
	}
}

func recvAck(conn *websocket.Conn) serverAck {
	var ack serverAck
	if err := conn.ReadJSON(&ack); err != nil {
		log.Fatalf("failed to read ack: %v", err)
	}
	return ack
}
