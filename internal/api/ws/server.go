// Package ws implements the WebSocket ingest endpoint. Each connection
// carries one session: a JSON control stream (transcripts, speaking
// transitions, utterance boundaries) plus optional binary audio frames
// for in-process STT providers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-interrupt-filter/internal/config"
	"voice-interrupt-filter/internal/filter"
	"voice-interrupt-filter/internal/observability/logging"
	"voice-interrupt-filter/internal/service/session"
	"voice-interrupt-filter/internal/service/stt/google"
	"voice-interrupt-filter/internal/service/stt/mock"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Upstream gateway enforces origin policy
	},
}

// Inbound message types.
const (
	msgSessionStart  = "session.start"
	msgSessionEnd    = "session.end"
	msgPartial       = "transcript.partial"
	msgFinal         = "transcript.final"
	msgAgentSpeaking = "agent.speaking"
	msgSpeechStart   = "speech.start"
	msgSpeechEnd     = "speech.end"
	msgUtteranceEnd  = "utterance.end"
)

// inboundMessage is the envelope for every JSON frame from the client.
// Optional fields are pointers so absence is distinguishable from zero.
type inboundMessage struct {
	Type          string   `json:"type"`
	InteractionID string   `json:"interactionId,omitempty"`
	TenantID      string   `json:"tenantId,omitempty"`
	Text          string   `json:"text,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Speaking      *bool    `json:"speaking,omitempty"`
	Probability   float64  `json:"probability,omitempty"`
}

type ack struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	SegmentID string `json:"segmentId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Handler serves the transcript ingest stream.
type Handler struct {
	manager *session.Manager
	sttCfg  config.STTConfig
	log     zerolog.Logger
}

// NewHandler creates a WebSocket ingest handler backed by the session manager.
func NewHandler(manager *session.Manager, sttCfg config.STTConfig) *Handler {
	return &Handler{
		manager: manager,
		sttCfg:  sttCfg,
		log:     logging.WithComponent("ws-ingest"),
	}
}

// ServeHTTP upgrades the connection and services the session until the
// client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()

	sess, err := h.startSession(ctx, conn)
	if err != nil {
		h.log.Warn().Err(err).Msg("Session handshake failed")
		_ = conn.WriteJSON(ack{Type: "error", Message: err.Error()})
		return
	}
	defer h.manager.Remove(sess.ID())

	h.serve(ctx, conn, sess)
}

// startSession performs the handshake: the first frame must be a
// session.start message. Replies with session.started and the initial
// segment ID.
func (h *Handler) startSession(ctx context.Context, conn *websocket.Conn) (*session.Session, error) {
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if msgType != websocket.TextMessage {
		return nil, errProtocol("expected session.start as first message")
	}

	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != msgSessionStart {
		return nil, errProtocol("expected session.start, got " + msg.Type)
	}
	if msg.InteractionID == "" {
		return nil, errProtocol("session.start requires interactionId")
	}

	sess := h.manager.Create(msg.InteractionID, msg.TenantID)

	if err := h.bindAdapter(ctx, sess); err != nil {
		h.manager.Remove(sess.ID())
		return nil, err
	}
	if err := sess.Start(ctx); err != nil {
		h.manager.Remove(sess.ID())
		return nil, err
	}

	if err := conn.WriteJSON(ack{Type: "session.started", SessionID: sess.ID(), SegmentID: sess.SegmentID()}); err != nil {
		h.manager.Remove(sess.ID())
		return nil, err
	}
	return sess, nil
}

// bindAdapter attaches an in-process STT adapter when the configured
// provider calls for one. External mode leaves the session adapterless
// and transcripts arrive as JSON frames.
func (h *Handler) bindAdapter(ctx context.Context, sess *session.Session) error {
	switch h.sttCfg.Provider {
	case "mock":
		sess.BindAdapter(mock.New())
	case "google":
		adapter, err := google.New(ctx, google.Config{
			LanguageCode:   h.sttCfg.LanguageCode,
			SampleRateHz:   h.sttCfg.SampleRateHz,
			InterimResults: h.sttCfg.InterimResults,
			AudioEncoding:  "LINEAR16",
		})
		if err != nil {
			return err
		}
		sess.BindAdapter(adapter)
	}
	return nil
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, sess *session.Session) {
	log := h.log.With().
		Str("sessionId", sess.ID()).
		Str("interactionId", sess.InteractionID()).
		Logger()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Connection closed unexpectedly")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := sess.SendAudio(ctx, data); err != nil {
				log.Warn().Err(err).Int("bytes", len(data)).Msg("Audio frame rejected")
			}

		case websocket.TextMessage:
			var msg inboundMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Warn().Err(err).Msg("Malformed control frame")
				continue
			}
			if done := h.dispatch(&log, conn, sess, msg); done {
				return
			}
		}
	}
}

// dispatch routes one control frame. Returns true when the session ended.
func (h *Handler) dispatch(log *zerolog.Logger, conn *websocket.Conn, sess *session.Session, msg inboundMessage) bool {
	switch msg.Type {
	case msgPartial:
		sess.HandleInterim(msg.Text, msg.Confidence, msg.Speaking)

	case msgFinal:
		sess.HandleFinal(msg.Text, msg.Confidence)

	case msgAgentSpeaking:
		if msg.Speaking == nil {
			log.Warn().Msg("agent.speaking frame missing speaking field")
			return false
		}
		sess.SetAgentSpeaking(*msg.Speaking)

	case msgSpeechStart:
		sess.HandleSpeechStart(&filter.VADEvent{Probability: msg.Probability})

	case msgSpeechEnd:
		sess.HandleSpeechEnd(&filter.VADEvent{Probability: msg.Probability})

	case msgUtteranceEnd:
		sess.OnEndOfUtterance()
		_ = conn.WriteJSON(ack{Type: "segment.started", SessionID: sess.ID(), SegmentID: sess.SegmentID()})

	case msgSessionEnd:
		log.Info().Msg("Session ended by client")
		_ = conn.WriteJSON(ack{Type: "session.ended", SessionID: sess.ID()})
		return true

	default:
		log.Warn().Str("type", msg.Type).Msg("Unknown control frame type")
	}
	return false
}

type errProtocol string

func (e errProtocol) Error() string { return string(e) }
