package domain

import "time"

// SessionStatus enumerates creation session lifecycle states.
type SessionStatus string

const (
	SessionStatusIdle       SessionStatus = "idle"
	SessionStatusSelecting  SessionStatus = "selecting"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusReady      SessionStatus = "ready"
	SessionStatusFailed     SessionStatus = "failed"
)

// ExitKind records how a ready session left the flow.
type ExitKind string

const (
	ExitNone   ExitKind = ""
	ExitSaved  ExitKind = "saved"
	ExitShared ExitKind = "shared"
)

// CreationSession is one attempt to turn a single source image into a styled result.
//
// ProcessedImageRef is non-empty if and only if Status is SessionStatusReady.
type CreationSession struct {
	ID                  string        `json:"id"`
	OriginalImageRef    string        `json:"original_image_ref,omitempty"`
	SelectedStyleID     StyleID       `json:"selected_style_id,omitempty"`
	Intensity           float64       `json:"intensity"`
	ProcessedImageRef   string        `json:"processed_image_ref,omitempty"`
	Status              SessionStatus `json:"status"`
	FailureReason       string        `json:"failure_reason,omitempty"`
	Generation          uint64        `json:"generation"`
	Exit                ExitKind      `json:"exit,omitempty"`
	SharedTo            []string      `json:"shared_to,omitempty"`
	InterstitialPending bool          `json:"interstitial_pending"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Closed reports whether the session has taken its exit transition.
func (s CreationSession) Closed() bool {
	return s.Exit != ExitNone
}

// Clone returns a copy that shares no mutable state with s.
func (s CreationSession) Clone() CreationSession {
	out := s
	if s.SharedTo != nil {
		out.SharedTo = append([]string(nil), s.SharedTo...)
	}
	return out
}
