package image

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cartoonify/internal/domain"
)

type stubProcessor struct {
	calls int
	res   Result
	err   error
}

func (s *stubProcessor) Process(ctx context.Context, req Request) (Result, error) {
	s.calls++
	return s.res, s.err
}

func TestRemoteProcessSuccess(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/stylize" {
			t.Errorf("path = %q, want /v1/stylize", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"processed_image_ref": "https://cdn/out.png"})
	}))
	defer srv.Close()

	client, err := NewRemote(RemoteOptions{APIKey: "key", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	res, err := client.Process(context.Background(), Request{RequestID: "r1", ImageRef: "in.png", StyleID: "anime", Intensity: 0.5})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.ProcessedImageRef != "https://cdn/out.png" {
		t.Fatalf("ref = %q", res.ProcessedImageRef)
	}
	if got.StyleID != "anime" || got.Intensity != 0.5 || got.ImageRef != "in.png" {
		t.Fatalf("unexpected request payload: %#v", got)
	}
}

func TestRemoteProcessErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_code": CodeInvalidImage, "message": "no face"})
	}))
	defer srv.Close()

	client, _ := NewRemote(RemoteOptions{APIKey: "key", BaseURL: srv.URL})
	_, err := client.Process(context.Background(), Request{ImageRef: "in.png"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want ServiceError", err)
	}
	if svcErr.Code != CodeInvalidImage {
		t.Fatalf("code = %q, want %q", svcErr.Code, CodeInvalidImage)
	}
	if !errors.Is(err, domain.ErrProcessingFailed) {
		t.Fatalf("expected ErrProcessingFailed")
	}
}

func TestRemoteProcessUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, _ := NewRemote(RemoteOptions{APIKey: "key", BaseURL: srv.URL})
	_, err := client.Process(context.Background(), Request{ImageRef: "in.png"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != CodeUnavailable {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestRemoteFallsBackWithoutCredentials(t *testing.T) {
	fallback := &stubProcessor{res: Result{ProcessedImageRef: "synthetic"}}
	client, _ := NewRemote(RemoteOptions{BaseURL: "http://unused", Fallback: fallback})
	res, err := client.Process(context.Background(), Request{ImageRef: "in.png"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if fallback.calls != 1 || res.ProcessedImageRef != "synthetic" {
		t.Fatalf("fallback not used: calls=%d res=%#v", fallback.calls, res)
	}
}

func TestRemoteMissingCredentialsWithoutFallback(t *testing.T) {
	client, _ := NewRemote(RemoteOptions{BaseURL: "http://unused"})
	if _, err := client.Process(context.Background(), Request{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewRemoteRequiresBaseURL(t *testing.T) {
	if _, err := NewRemote(RemoteOptions{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestRemoteRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"processed_image_ref":"` + strings.Repeat("a", maxResponseBytes) + `"}`))
	}))
	defer srv.Close()

	client, _ := NewRemote(RemoteOptions{APIKey: "key", BaseURL: srv.URL})
	_, err := client.Process(context.Background(), Request{ImageRef: "in.png"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != CodeInternal || !strings.Contains(svcErr.Message, "exceeds") {
		t.Fatalf("err = %v, want oversized response error", err)
	}
}
