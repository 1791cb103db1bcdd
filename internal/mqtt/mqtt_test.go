package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/servo-idle/internal/servo"
)

func TestFormatPayload(t *testing.T) {
	event := servo.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      servo.EventSettled,
		Channel:   "pan",
		Position:  90,
		Target:    90,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"servo":{"timestamp":"2026-02-02T22:18:12Z","event":"SETTLED","channel":"pan","position":90,"target":90,"idle":false}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	tests := []struct {
		eventType servo.EventType
		idle      bool
		wantEvent string
	}{
		{servo.EventMoving, false, "MOVING"},
		{servo.EventSettled, false, "SETTLED"},
		{servo.EventIdle, true, "IDLE"},
		{servo.EventActive, false, "ACTIVE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			payload, err := FormatPayload(servo.Event{
				Timestamp: time.Now(),
				Type:      tt.eventType,
				Channel:   "tilt",
				Idle:      tt.idle,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Servo.Event != tt.wantEvent {
				t.Errorf("event: got %s, want %s", parsed.Servo.Event, tt.wantEvent)
			}
			if parsed.Servo.Idle != tt.idle {
				t.Errorf("idle: got %v, want %v", parsed.Servo.Idle, tt.idle)
			}
			if parsed.Servo.Channel != "tilt" {
				t.Errorf("channel: got %s", parsed.Servo.Channel)
			}
		})
	}
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"system":{"timestamp":"2026-02-03T10:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		Event:     "OFFLINE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"system":{"timestamp":"2026-02-03T10:00:00Z","event":"OFFLINE"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload returned as-is, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(servo.Event{Timestamp: time.Now(), Type: servo.EventMoving, Channel: "pan"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if got := f.EventTypes(); len(got) != 1 || got[0] != servo.EventMoving {
		t.Errorf("unexpected event types: %v", got)
	}
	if len(f.SystemEvents) != 1 || f.SystemEvents[0].Event != "HEARTBEAT" {
		t.Errorf("unexpected system events: %+v", f.SystemEvents)
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated error")

	if err := f.Publish(servo.Event{Type: servo.EventIdle}); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("expected nothing recorded on error")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(servo.Event{Type: servo.EventIdle})
	f.Close()
	f.Connected = true
	f.Reset()

	if len(f.Events) != 0 || f.Closed || f.Connected {
		t.Errorf("expected clean fake after reset: %+v", f)
	}
}

// fakeToken is an already-completed token.
type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool {
	return true
}

func (t *fakeToken) WaitTimeout(time.Duration) bool {
	return true
}

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *fakeToken) Error() error {
	return t.err
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient implements the parts of paho.Client the publisher uses.
// Calling anything else panics on the nil embedded interface.
type fakeClient struct {
	paho.Client
	open         bool
	err          error
	published    []published
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.err == nil {
		c.published = append(c.published, published{topic, qos, retained, string(payload.([]byte))})
	}
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestRealPublisherConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisherWithClient(c)

	if err := p.Publish(servo.Event{Timestamp: time.Now(), Type: servo.EventMoving, Channel: "pan"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(c.published))
	}
	if c.published[0].topic != Topic || c.published[0].qos != 0 || c.published[0].retained {
		t.Errorf("unexpected event publish: %+v", c.published[0])
	}
	if c.published[1].topic != TopicSystem || c.published[1].qos != 1 || !c.published[1].retained {
		t.Errorf("unexpected system publish: %+v", c.published[1])
	}
	if !p.IsConnected() {
		t.Error("expected connected")
	}
}

func TestRealPublisherError(t *testing.T) {
	c := &fakeClient{open: true, err: errors.New("broker said no")}
	p := newPublisherWithClient(c)

	if err := p.Publish(servo.Event{Type: servo.EventIdle}); err == nil {
		t.Error("expected publish error")
	}
	if p.Buffered() != 0 {
		t.Error("failed publishes while connected are not buffered")
	}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := newPublisherWithClient(c)

	p.Publish(servo.Event{Timestamp: time.Now(), Type: servo.EventMoving, Channel: "pan"})
	p.Publish(servo.Event{Timestamp: time.Now(), Type: servo.EventSettled, Channel: "pan"})
	p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT", Retained: true})

	if len(c.published) != 0 {
		t.Fatalf("expected nothing published while down, got %d", len(c.published))
	}
	if p.Buffered() != 3 {
		t.Fatalf("expected 3 buffered, got %d", p.Buffered())
	}
	if p.IsConnected() {
		t.Error("expected disconnected")
	}

	c.open = true
	p.onConnect(c)

	if p.Buffered() != 0 {
		t.Errorf("expected buffer drained, got %d", p.Buffered())
	}
	if len(c.published) != 3 {
		t.Fatalf("expected 3 replayed, got %d", len(c.published))
	}
	var first Payload
	if err := json.Unmarshal([]byte(c.published[0].payload), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first.Servo.Event != "MOVING" {
		t.Errorf("expected oldest message first, got %s", first.Servo.Event)
	}
	if c.published[2].topic != TopicSystem || !c.published[2].retained {
		t.Errorf("system message lost its options: %+v", c.published[2])
	}
}

func TestRealPublisherClose(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisherWithClient(c)
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !c.disconnected {
		t.Error("expected client disconnected")
	}
}
