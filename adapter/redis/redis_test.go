package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/autotiny/adapter"
	"github.com/justapithecus/autotiny/iox"
)

func testEvent() *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		EventType:  adapter.EventTypeRunCompleted,
		RunID:      "run-001",
		StopReason: "credentials_exhausted",
		Marker:     "tiny",
		Total:      10,
		Processed:  4,
		Skipped:    1,
		Remaining:  5,
		BytesSaved: 4096,
		Timestamp:  "2026-10-17T12:00:00Z",
		DurationMs: 1500,
		Version:    "0.3.0",
	}
}

// asyncReceive starts a goroutine that reads one message from the subscriber
// and sends it to the returned channel. Must be called BEFORE Publish to avoid
// deadlocking miniredis's synchronous pub/sub delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{} // unreachable
	}
}

// newTestAdapter connects an adapter to mr with millisecond backoff.
func newTestAdapter(t *testing.T, mr *miniredis.Miniredis, cfg Config) *Adapter {
	t.Helper()
	cfg.URL = "redis://" + mr.Addr()
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = time.Millisecond
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))
	return a
}

func TestPublish_Channels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		channel string
	}{
		{name: "default", channel: DefaultChannel},
		{name: "custom", cfg: Config{Channel: "images:compressed"}, channel: "images:compressed"},
		{name: "with retries", cfg: Config{Retries: 3, Timeout: 5 * time.Second}, channel: DefaultChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			a := newTestAdapter(t, mr, tt.cfg)

			sub := mr.NewSubscriber()
			sub.Subscribe(tt.channel)
			ch := asyncReceive(sub)

			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Fatalf("publish: %v", err)
			}

			msg := waitMessage(t, ch)
			if msg.Channel != tt.channel {
				t.Errorf("channel = %q, want %q", msg.Channel, tt.channel)
			}
			var received adapter.RunCompletedEvent
			if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if received.RunID != "run-001" || received.EventType != adapter.EventTypeRunCompleted {
				t.Errorf("received %s/%s", received.RunID, received.EventType)
			}
			if received.StopReason != "credentials_exhausted" || received.Remaining != 5 {
				t.Errorf("received stop %s remaining %d", received.StopReason, received.Remaining)
			}
		})
	}
}

func TestPublish_UnreachableServer(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 2, Timeout: 100 * time.Millisecond, BaseBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("publish to an unreachable server returned nil")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	slow, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(slow))
	if err := slow.Publish(ctx, testEvent()); err == nil {
		t.Fatal("publish with a canceled context returned nil")
	}
}

func TestNew_Validation(t *testing.T) {
	for name, cfg := range map[string]Config{
		"empty URL":        {},
		"invalid URL":      {URL: "not-a-redis-url"},
		"negative retries": {URL: "redis://localhost:6379", Retries: -1},
	} {
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	a, err := New(Config{URL: "redis://localhost:6379"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))
	if a.config.Channel != DefaultChannel || a.config.Timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", a.config)
	}
}

func TestPublish_AfterClose(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("publish after close returned nil")
	}
}

func TestPublish_StoresLastRun(t *testing.T) {
	mr := miniredis.RunT(t)

	a := newTestAdapter(t, mr, Config{LastRunKey: "autotiny:last_run"})

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg := waitMessage(t, ch)

	stored, err := mr.Get("autotiny:last_run")
	if err != nil {
		t.Fatalf("get last run: %v", err)
	}
	if stored != msg.Message {
		t.Errorf("stored payload %q differs from published %q", stored, msg.Message)
	}

	var received adapter.RunCompletedEvent
	if err := json.Unmarshal([]byte(stored), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.RunID != "run-001" {
		t.Errorf("expected run-001, got %s", received.RunID)
	}
}

func TestPublish_NoLastRunKeyLeavesKeyspaceEmpty(t *testing.T) {
	mr := miniredis.RunT(t)

	a := newTestAdapter(t, mr, Config{})

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}
