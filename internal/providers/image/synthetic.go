package image

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// DefaultSyntheticDelay mirrors the latency the mobile client simulated.
const DefaultSyntheticDelay = 1500 * time.Millisecond

// Synthetic stands in for the real service: it waits for a fixed delay and
// returns a deterministic reference derived from the request. It performs no
// image transformation.
type Synthetic struct {
	delay   time.Duration
	baseURL string
	failFn  func(Request) error
}

// SyntheticOption customises a Synthetic processor.
type SyntheticOption func(*Synthetic)

// WithDelay overrides the simulated latency.
func WithDelay(d time.Duration) SyntheticOption {
	return func(s *Synthetic) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithBaseURL sets the prefix of generated references.
func WithBaseURL(base string) SyntheticOption {
	return func(s *Synthetic) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			s.baseURL = base
		}
	}
}

// WithFailure makes the processor fail whenever fn returns a non-nil error.
func WithFailure(fn func(Request) error) SyntheticOption {
	return func(s *Synthetic) { s.failFn = fn }
}

// NewSynthetic constructs the placeholder processor.
func NewSynthetic(opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{delay: DefaultSyntheticDelay, baseURL: "https://cdn.example.com/cartoonify"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process implements Processor.
func (s *Synthetic) Process(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.ImageRef) == "" {
		return Result{}, &ServiceError{Code: CodeInvalidImage, Message: "image reference is empty"}
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	if s.failFn != nil {
		if err := s.failFn(req); err != nil {
			return Result{}, err
		}
	}
	level := int(math.Round(req.Intensity * 100))
	ref := fmt.Sprintf("%s/%s/%s.png?intensity=%d", s.baseURL, url.PathEscape(string(req.StyleID)), url.PathEscape(req.RequestID), level)
	return Result{ProcessedImageRef: ref}, nil
}

var _ Processor = (*Synthetic)(nil)
