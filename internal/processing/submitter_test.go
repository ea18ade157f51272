package processing

import (
	"context"
	"errors"
	"testing"
	"time"

	"cartoonify/internal/domain"
	"cartoonify/internal/providers/image"
)

// gatedProcessor blocks every call until a response is pushed on release.
type gatedProcessor struct {
	started chan image.Request
	release chan gatedResponse
}

type gatedResponse struct {
	ref string
	err error
}

func newGatedProcessor() *gatedProcessor {
	return &gatedProcessor{started: make(chan image.Request, 8), release: make(chan gatedResponse, 8)}
}

func (g *gatedProcessor) Process(ctx context.Context, req image.Request) (image.Result, error) {
	g.started <- req
	select {
	case resp := <-g.release:
		return image.Result{ProcessedImageRef: resp.ref}, resp.err
	case <-ctx.Done():
		return image.Result{}, ctx.Err()
	}
}

type ignoringProcessor struct {
	release chan string
}

// Process ignores cancellation to model a transport that cannot be aborted.
func (p *ignoringProcessor) Process(ctx context.Context, req image.Request) (image.Result, error) {
	return image.Result{ProcessedImageRef: <-p.release}, nil
}

func waitDone(t *testing.T, h *Handle) Outcome {
	t.Helper()
	select {
	case <-h.Done():
		return h.Poll()
	case <-time.After(2 * time.Second):
		t.Fatalf("handle %s did not resolve", h.ID())
		return Outcome{}
	}
}

func TestSubmitSucceeds(t *testing.T) {
	proc := newGatedProcessor()
	s := NewSubmitter(proc, Options{NewID: func() string { return "req-1" }})
	h := s.Submit(context.Background(), 3, "in.png", "anime", 0.7)
	if h.Generation() != 3 || h.ID() != "req-1" {
		t.Fatalf("handle = (%s, %d), want (req-1, 3)", h.ID(), h.Generation())
	}
	req := <-proc.started
	if req.RequestID != "req-1" || req.StyleID != "anime" || req.Intensity != 0.7 {
		t.Fatalf("unexpected request: %#v", req)
	}
	if got := h.Poll().State; got != StatePending {
		t.Fatalf("state = %s, want pending", got)
	}
	proc.release <- gatedResponse{ref: "out.png"}
	out := waitDone(t, h)
	if out.State != StateSucceeded || out.ProcessedImageRef != "out.png" || out.Err != nil {
		t.Fatalf("unexpected outcome: %#v", out)
	}
}

func TestSubmitFailureIsProcessingFailed(t *testing.T) {
	proc := newGatedProcessor()
	h := NewSubmitter(proc, Options{}).Submit(context.Background(), 1, "in.png", "anime", 1)
	<-proc.started
	proc.release <- gatedResponse{err: errors.New("boom")}
	out := waitDone(t, h)
	if out.State != StateFailed || !errors.Is(out.Err, domain.ErrProcessingFailed) {
		t.Fatalf("unexpected outcome: %#v", out)
	}
	if out.ProcessedImageRef != "" {
		t.Fatalf("failed outcome must not carry a ref")
	}
}

func TestCancelDiscardsLateResult(t *testing.T) {
	proc := &ignoringProcessor{release: make(chan string)}
	h := NewSubmitter(proc, Options{}).Submit(context.Background(), 1, "in.png", "anime", 1)
	h.Cancel()
	out := h.Poll()
	if out.State != StateCancelled || !errors.Is(out.Err, domain.ErrCancelled) {
		t.Fatalf("unexpected outcome after cancel: %#v", out)
	}
	proc.release <- "late.png"
	// Give the worker a moment to attempt its resolution.
	time.Sleep(20 * time.Millisecond)
	if got := h.Poll(); got.State != StateCancelled || got.ProcessedImageRef != "" {
		t.Fatalf("late result leaked: %#v", got)
	}
}

func TestTimeoutFails(t *testing.T) {
	proc := newGatedProcessor()
	h := NewSubmitter(proc, Options{Timeout: 10 * time.Millisecond}).Submit(context.Background(), 1, "in.png", "anime", 1)
	out := waitDone(t, h)
	var svcErr *image.ServiceError
	if out.State != StateFailed || !errors.As(out.Err, &svcErr) || svcErr.Code != image.CodeTimeout {
		t.Fatalf("unexpected outcome: %#v", out)
	}
}

func TestSubmitOutlivesCallerContext(t *testing.T) {
	proc := newGatedProcessor()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewSubmitter(proc, Options{}).Submit(ctx, 1, "in.png", "anime", 1)
	<-proc.started
	cancel()
	proc.release <- gatedResponse{ref: "out.png"}
	if out := waitDone(t, h); out.State != StateSucceeded {
		t.Fatalf("state = %s, want succeeded", out.State)
	}
}

type panickingProcessor struct{}

func (panickingProcessor) Process(context.Context, image.Request) (image.Result, error) {
	panic("kaboom")
}

func TestProcessorPanicBecomesFailure(t *testing.T) {
	h := NewSubmitter(panickingProcessor{}, Options{}).Submit(context.Background(), 1, "in.png", "anime", 1)
	if out := waitDone(t, h); out.State != StateFailed {
		t.Fatalf("state = %s, want failed", out.State)
	}
}
