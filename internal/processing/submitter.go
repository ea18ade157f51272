package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cartoonify/internal/domain"
	"cartoonify/internal/infra"
	"cartoonify/internal/providers/image"
)

// DefaultTimeout bounds a single processing request.
const DefaultTimeout = 30 * time.Second

// Options configures a Submitter.
type Options struct {
	Timeout time.Duration
	Logger  *infra.Logger
	NewID   func() string
}

// Submitter dispatches processing requests to a backend.
type Submitter struct {
	processor image.Processor
	timeout   time.Duration
	logger    zerolog.Logger
	newID     func() string
}

// NewSubmitter wires a backend with request timeouts.
func NewSubmitter(processor image.Processor, opts Options) *Submitter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Submitter{processor: processor, timeout: timeout, logger: logger, newID: newID}
}

// Submit starts processing imageRef with the given style and intensity and
// returns immediately. The request outlives ctx's cancellation; only
// Handle.Cancel or the configured timeout stop it.
func (s *Submitter) Submit(ctx context.Context, generation uint64, imageRef string, styleID domain.StyleID, intensity float64) *Handle {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	h := newHandle(s.newID(), generation, cancel)
	req := image.Request{
		RequestID: h.id,
		ImageRef:  imageRef,
		StyleID:   styleID,
		Intensity: intensity,
	}
	go s.run(runCtx, h, req)
	return h
}

func (s *Submitter) run(ctx context.Context, h *Handle, req image.Request) {
	defer h.cancel()
	start := time.Now()
	res, err := s.invoke(ctx, req)
	outcome := classify(res, err)
	if !h.resolve(outcome) {
		s.logger.Debug().
			Str("request_id", h.id).
			Uint64("generation", h.generation).
			Msg("processing: result discarded after cancellation")
		return
	}
	s.logger.Debug().
		Str("request_id", h.id).
		Uint64("generation", h.generation).
		Str("state", string(outcome.State)).
		Dur("took", time.Since(start)).
		Msg("processing: resolved")
}

func (s *Submitter) invoke(ctx context.Context, req image.Request) (res image.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &image.ServiceError{Code: image.CodeInternal, Message: fmt.Sprint("processor panic: ", r)}
		}
	}()
	return s.processor.Process(ctx, req)
}

func classify(res image.Result, err error) Outcome {
	switch {
	case err == nil && res.ProcessedImageRef != "":
		return Outcome{State: StateSucceeded, ProcessedImageRef: res.ProcessedImageRef}
	case err == nil:
		return Outcome{State: StateFailed, Err: &image.ServiceError{Code: image.CodeInternal, Message: "empty processed image reference"}}
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{State: StateFailed, Err: &image.ServiceError{Code: image.CodeTimeout, Message: "processing timed out"}}
	case errors.Is(err, context.Canceled):
		return Outcome{State: StateCancelled, Err: domain.ErrCancelled}
	case errors.Is(err, domain.ErrProcessingFailed):
		return Outcome{State: StateFailed, Err: err}
	default:
		return Outcome{State: StateFailed, Err: fmt.Errorf("%w: %v", domain.ErrProcessingFailed, err)}
	}
}
