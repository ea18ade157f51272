package flow

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cartoonify/internal/domain"
)

// EventKind names a controller notification.
type EventKind string

const (
	EventSessionStarted        EventKind = "session_started"
	EventImageProvided         EventKind = "image_provided"
	EventImageUnavailable      EventKind = "image_unavailable"
	EventUpgradeRequired       EventKind = "upgrade_required"
	EventProcessingStarted     EventKind = "processing_started"
	EventProcessingReady       EventKind = "processing_ready"
	EventProcessingFailed      EventKind = "processing_failed"
	EventProcessingCancelled   EventKind = "processing_cancelled"
	EventSaved                 EventKind = "saved"
	EventShared                EventKind = "shared"
	EventInterstitialShown     EventKind = "interstitial_shown"
	EventInterstitialDismissed EventKind = "interstitial_dismissed"
)

// Event is published after the state change it describes is visible.
type Event struct {
	Kind       EventKind      `json:"kind"`
	SessionID  string         `json:"session_id"`
	StyleID    domain.StyleID `json:"style_id,omitempty"`
	Generation uint64         `json:"generation,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	At         time.Time      `json:"at"`
}

// Sink receives controller events. Publish must not block for long; it is
// called outside the controller lock, possibly from a processing goroutine.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// LogSink writes every event to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Publish(e Event) {
	ev := s.Logger.Info()
	if e.Kind == EventProcessingFailed {
		ev = s.Logger.Warn()
	}
	ev.Str("event", string(e.Kind)).
		Str("session_id", e.SessionID).
		Str("style_id", string(e.StyleID)).
		Uint64("generation", e.Generation).
		Str("reason", e.Reason).
		Msg("flow: event")
}

// Fanout publishes to several sinks in order.
type Fanout []Sink

func (f Fanout) Publish(e Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(e)
		}
	}
}

// Recorder keeps published events in memory, for inspection.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events, optionally filtered to one session.
func (r *Recorder) Kinds(sessionID string) []EventKind {
	var out []EventKind
	for _, e := range r.Events() {
		if sessionID == "" || e.SessionID == sessionID {
			out = append(out, e.Kind)
		}
	}
	return out
}
