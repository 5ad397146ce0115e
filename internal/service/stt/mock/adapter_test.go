package mock

import (
	"context"
	"sync"
	"testing"
	"time"
)

// testCallback implements stt.Callback for testing
type testCallback struct {
	mu         sync.Mutex
	partials   []string
	finals     []finalResult
	errors     []error
	utterances int
}

type finalResult struct {
	text       string
	confidence float64
}

func (c *testCallback) OnPartial(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partials = append(c.partials, text)
}

func (c *testCallback) OnFinal(text string, confidence float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finals = append(c.finals, finalResult{text, confidence})
}

func (c *testCallback) OnEndOfUtterance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.utterances++
}

func (c *testCallback) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

func (c *testCallback) getPartials() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.partials...)
}

func (c *testCallback) getFinals() []finalResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]finalResult{}, c.finals...)
}

func (c *testCallback) getUtterances() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utterances
}

func TestAdapter_New(t *testing.T) {
	adapter := New()
	if adapter == nil {
		t.Fatal("expected non-nil adapter")
	}
	if adapter.closed {
		t.Error("expected adapter to not be closed initially")
	}
	if adapter.finalSent {
		t.Error("expected finalSent to be false initially")
	}
}

func TestAdapter_Start(t *testing.T) {
	adapter := New()
	cb := &testCallback{}

	err := adapter.Start(context.Background(), cb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if adapter.cb != cb {
		t.Error("expected callback to be set")
	}
}

func TestAdapter_SendAudio_TriggersPartials(t *testing.T) {
	adapter := New()
	cb := &testCallback{}
	adapter.Start(context.Background(), cb)

	for i := 0; i < 3; i++ {
		err := adapter.SendAudio(context.Background(), []byte("audio"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Wait for async callbacks
	time.Sleep(200 * time.Millisecond)

	partials := cb.getPartials()
	if len(partials) == 0 {
		t.Error("expected partials to be received")
	}
}

func TestAdapter_SendAudio_ExactlyOneFinalPerUtterance(t *testing.T) {
	adapter := New()
	cb := &testCallback{}
	adapter.Start(context.Background(), cb)

	// Send enough audio frames to exhaust partials and trigger the final
	for i := 0; i < 6; i++ {
		err := adapter.SendAudio(context.Background(), []byte("audio"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		time.Sleep(60 * time.Millisecond)
	}

	// Wait for async callbacks
	time.Sleep(300 * time.Millisecond)

	finals := cb.getFinals()
	if len(finals) != 1 {
		t.Errorf("expected 1 final, got %d", len(finals))
	}
	if len(finals) == 1 {
		if finals[0].confidence <= 0 || finals[0].confidence > 1 {
			t.Errorf("confidence out of range: %v", finals[0].confidence)
		}
	}

	if cb.getUtterances() != 1 {
		t.Errorf("expected 1 utterance boundary, got %d", cb.getUtterances())
	}
}

func TestAdapter_Close(t *testing.T) {
	adapter := New()
	cb := &testCallback{}
	adapter.Start(context.Background(), cb)

	err := adapter.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !adapter.closed {
		t.Error("expected adapter to be closed")
	}
}

func TestAdapter_Close_Idempotent(t *testing.T) {
	adapter := New()
	cb := &testCallback{}
	adapter.Start(context.Background(), cb)

	adapter.Close()
	err := adapter.Close()

	if err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
}

func TestAdapter_SendAudio_AfterClose(t *testing.T) {
	adapter := New()
	cb := &testCallback{}
	adapter.Start(context.Background(), cb)
	adapter.Close()

	// Should not panic or error
	err := adapter.SendAudio(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdapter_Close_SendsFinalIfNotSent(t *testing.T) {
	adapter := New()
	cb := &testCallback{}
	adapter.Start(context.Background(), cb)

	// Close without sending enough audio to trigger the final
	adapter.Close()

	// Wait for async final
	time.Sleep(200 * time.Millisecond)

	finals := cb.getFinals()
	if len(finals) != 1 {
		t.Errorf("expected 1 final on close, got %d", len(finals))
	}
}

func TestNew_CyclesThroughUtterances(t *testing.T) {
	a1 := New()
	a2 := New()

	// Adjacent adapters should not simulate the same utterance
	if a1.utterance.Final == a2.utterance.Final {
		t.Errorf("expected different utterances, both got %q", a1.utterance.Final)
	}
}
