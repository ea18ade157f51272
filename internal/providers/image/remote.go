package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cartoonify/internal/infra"
)

// RemoteOptions configures the HTTP client for a hosted style service.
type RemoteOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// Fallback serves requests while no API key is configured.
	Fallback Processor
}

// Remote posts processing requests to a hosted style service.
type Remote struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	fallback   Processor
}

type remoteResponse struct {
	ProcessedImageRef string `json:"processed_image_ref"`
	ErrorCode         string `json:"error_code"`
	Message           string `json:"message"`
}

// maxResponseBytes bounds how much of a service response is read.
const maxResponseBytes = 1 << 20

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("image: api key is required")

// NewRemote constructs a client with defaults applied.
func NewRemote(opts RemoteOptions) (*Remote, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("image: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Remote{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		fallback:   opts.Fallback,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Remote) HasCredentials() bool {
	return c.apiKey != ""
}

// Process implements Processor.
func (c *Remote) Process(ctx context.Context, req Request) (Result, error) {
	if !c.HasCredentials() {
		if c.fallback != nil {
			return c.fallback.Process(ctx, req)
		}
		return Result{}, ErrMissingAPIKey
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("image: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/stylize", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("image: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, &ServiceError{Code: CodeUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return Result{}, &ServiceError{Code: CodeUnavailable, Message: "read response: " + err.Error()}
	}
	if len(raw) > maxResponseBytes {
		return Result{}, &ServiceError{Code: CodeInternal, Message: fmt.Sprintf("response exceeds %d bytes", maxResponseBytes)}
	}

	var decoded remoteResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.ErrorCode != "" {
			return Result{}, &ServiceError{Code: decoded.ErrorCode, Message: decoded.Message}
		}
		code := CodeInternal
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway {
			code = CodeUnavailable
		}
		return Result{}, &ServiceError{Code: code, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}
	if decodeErr != nil {
		return Result{}, &ServiceError{Code: CodeInternal, Message: "decode response: " + decodeErr.Error()}
	}
	if decoded.ErrorCode != "" {
		return Result{}, &ServiceError{Code: decoded.ErrorCode, Message: decoded.Message}
	}
	ref := strings.TrimSpace(decoded.ProcessedImageRef)
	if ref == "" {
		return Result{}, &ServiceError{Code: CodeInternal, Message: "empty processed image reference"}
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("style_id", string(req.StyleID)).
		Msg("image: stylized")
	return Result{ProcessedImageRef: ref}, nil
}

var _ Processor = (*Remote)(nil)
