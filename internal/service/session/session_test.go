package session

import (
	"context"
	"sync"
	"testing"

	"voice-interrupt-filter/internal/filter"
	"voice-interrupt-filter/internal/models"
)

// fakePublisher records every event instead of writing to Kafka.
type fakePublisher struct {
	mu       sync.Mutex
	partials []models.TranscriptPartial
	finals   []models.TranscriptFinal
	filtered []models.TranscriptFiltered
}

func (f *fakePublisher) PublishPartial(ctx context.Context, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partials = append(f.partials, event.(models.TranscriptPartial))
	return nil
}

func (f *fakePublisher) PublishFinal(ctx context.Context, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, event.(models.TranscriptFinal))
	return nil
}

func (f *fakePublisher) PublishFiltered(ctx context.Context, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filtered = append(f.filtered, event.(models.TranscriptFiltered))
	return nil
}

func (f *fakePublisher) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.partials), len(f.finals), len(f.filtered)
}

func conf(v float64) *float64 { return &v }

func newTestSession(t *testing.T) (*Session, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	s := New("int-test", "tenant-test", filter.DefaultConfig(), pub, DefaultLimits())
	return s, pub
}

func TestSession_AdmittedFinalIsPublished(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	s.HandleFinal("what is my balance", conf(0.9))

	_, finals, filtered := pub.counts()
	if finals != 1 {
		t.Fatalf("expected 1 published final, got %d", finals)
	}
	if filtered != 0 {
		t.Errorf("expected 0 filtered events, got %d", filtered)
	}

	ev := pub.finals[0]
	if ev.EventType != models.EventTypeFinal {
		t.Errorf("unexpected event type: %s", ev.EventType)
	}
	if ev.InteractionID != "int-test" {
		t.Errorf("unexpected interactionId: %s", ev.InteractionID)
	}
	if ev.SegmentID != s.SegmentID() {
		t.Errorf("segmentId mismatch: %s vs %s", ev.SegmentID, s.SegmentID())
	}
	if ev.AgentSpeaking {
		t.Error("agent was silent; AgentSpeaking must be false")
	}
}

func TestSession_FillerFinalWhileSpeakingIsFiltered(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	s.SetAgentSpeaking(true)
	s.HandleFinal("umm", conf(0.8))

	_, finals, filtered := pub.counts()
	if finals != 0 {
		t.Fatalf("expected no published finals, got %d", finals)
	}
	if filtered != 1 {
		t.Fatalf("expected 1 filtered event, got %d", filtered)
	}

	ev := pub.filtered[0]
	if ev.Reason != filter.ReasonFillerOnly {
		t.Errorf("expected reason %q, got %q", filter.ReasonFillerOnly, ev.Reason)
	}
	if !ev.IsFinal {
		t.Error("expected filtered event to be marked final")
	}
	if !ev.AgentSpeaking {
		t.Error("expected filtered event to record agent speaking")
	}
}

func TestSession_InterruptCommandPassesWhileSpeaking(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	s.SetAgentSpeaking(true)
	s.HandleFinal("umm wait stop", conf(0.9))

	_, finals, filtered := pub.counts()
	if finals != 1 {
		t.Fatalf("expected interrupt final to pass, got %d finals, %d filtered", finals, filtered)
	}
	if !pub.finals[0].AgentSpeaking {
		t.Error("interruption final must carry AgentSpeaking true")
	}
}

func TestSession_InterimSuppressionIsDisplayOnly(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	s.SetAgentSpeaking(true)
	s.HandleInterim("uh", nil, nil)
	s.HandleInterim("uh can you", nil, nil)

	partials, _, filtered := pub.counts()
	if partials != 1 {
		t.Errorf("expected 1 admitted partial, got %d", partials)
	}
	if filtered != 1 {
		t.Errorf("expected 1 filtered partial, got %d", filtered)
	}
	if pub.filtered[0].IsFinal {
		t.Error("filtered interim must not be marked final")
	}
}

func TestSession_OneFinalPerSegment(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	s.HandleFinal("first", conf(0.9))
	s.HandleFinal("second", conf(0.9))

	_, finals, _ := pub.counts()
	if finals != 1 {
		t.Errorf("expected only the first final to publish, got %d", finals)
	}
}

func TestSession_UtteranceBoundaryOpensNewSegment(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	first := s.SegmentID()
	s.HandleFinal("first utterance", conf(0.9))
	s.OnEndOfUtterance()
	second := s.SegmentID()

	if first == second {
		t.Fatalf("expected a new segment after utterance end, still %s", first)
	}
	if s.UtteranceCount() != 1 {
		t.Errorf("expected 1 utterance, got %d", s.UtteranceCount())
	}

	s.HandleFinal("second utterance", conf(0.9))

	_, finals, _ := pub.counts()
	if finals != 2 {
		t.Fatalf("expected 2 published finals, got %d", finals)
	}
	if pub.finals[0].SegmentID == pub.finals[1].SegmentID {
		t.Error("finals of different utterances must carry different segment IDs")
	}
}

func TestSession_NoPartialAfterFinalInSameSegment(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	s.HandleFinal("done", conf(0.9))
	s.HandleInterim("late partial", nil, nil)

	partials, _, _ := pub.counts()
	if partials != 0 {
		t.Errorf("expected late partial to be dropped by lifecycle, got %d", partials)
	}
}

func TestSession_ErrorDropsSegment(t *testing.T) {
	s, pub := newTestSession(t)
	defer s.Close()

	s.OnError(context.DeadlineExceeded)

	s.HandleFinal("after error", conf(0.9))

	_, finals, _ := pub.counts()
	if finals != 0 {
		t.Errorf("expected no final from a dropped segment, got %d", finals)
	}
}

func TestSession_MaxPartialsDropsSegment(t *testing.T) {
	pub := &fakePublisher{}
	limits := Limits{MaxPartials: 3}
	s := New("int-limit", "tenant-test", filter.DefaultConfig(), pub, limits)
	defer s.Close()

	for i := 0; i < 10; i++ {
		s.HandleInterim("still talking", nil, nil)
	}

	partials, _, _ := pub.counts()
	if partials != 3 {
		t.Errorf("expected 3 partials before the limit, got %d", partials)
	}

	s.HandleFinal("too late", conf(0.9))
	_, finals, _ := pub.counts()
	if finals != 0 {
		t.Errorf("expected no final after limit drop, got %d", finals)
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("unexpected error on second close: %v", err)
	}
}

func TestSession_ChatContextAccumulates(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()

	s.HandleFinal("first", conf(0.9))
	s.OnEndOfUtterance()
	s.HandleFinal("second", conf(0.9))

	ctx := s.Engine().RetrieveChatContext()
	if len(ctx.Messages) != 2 {
		t.Fatalf("expected 2 chat messages, got %d", len(ctx.Messages))
	}
	if ctx.Messages[0].Content != "first" || ctx.Messages[1].Content != "second" {
		t.Errorf("unexpected chat history: %+v", ctx.Messages)
	}
	if ctx.Messages[0].Role != "user" {
		t.Errorf("expected role 'user', got %q", ctx.Messages[0].Role)
	}
}

func TestManager_CreateGetRemove(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(filter.DefaultConfig(), pub, DefaultLimits())

	s := m.Create("int-1", "tenant-1")
	if s.InteractionID() != "int-1" {
		t.Errorf("unexpected interactionId: %s", s.InteractionID())
	}

	got, ok := m.Get(s.ID())
	if !ok || got != s {
		t.Fatal("expected to find created session")
	}

	if len(m.List()) != 1 {
		t.Errorf("expected 1 session, got %d", len(m.List()))
	}

	m.Remove(s.ID())
	if _, ok := m.Get(s.ID()); ok {
		t.Error("expected session to be gone after Remove")
	}
	if len(m.List()) != 0 {
		t.Errorf("expected 0 sessions, got %d", len(m.List()))
	}
}

func TestManager_SessionsGetIndependentEngines(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(filter.DefaultConfig(), pub, DefaultLimits())
	defer m.CloseAll()

	a := m.Create("int-a", "tenant-1")
	b := m.Create("int-b", "tenant-1")

	a.Engine().UpdateConfig(filter.ConfigUpdate{IgnoredPhrases: []string{"basically"}})

	if !a.Engine().IsFillerOnly("basically") {
		t.Error("expected update to apply to session a")
	}
	if b.Engine().IsFillerOnly("basically") {
		t.Error("update to session a must not leak into session b")
	}
	if !b.Engine().IsFillerOnly("umm") {
		t.Error("session b should still run the base config")
	}
}

func TestManager_CloseAll(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(filter.DefaultConfig(), pub, DefaultLimits())

	m.Create("int-1", "t")
	m.Create("int-2", "t")

	m.CloseAll()
	if len(m.List()) != 0 {
		t.Errorf("expected 0 sessions after CloseAll, got %d", len(m.List()))
	}
}
