// Package image defines the boundary to the style transfer service. The
// service is a black box: a request names the source image, the style and the
// intensity, and the response is either a processed image reference or an
// error code.
package image

import (
	"context"
	"fmt"

	"cartoonify/internal/domain"
)

// Request is the opaque processing request sent to the service.
type Request struct {
	RequestID string         `json:"request_id"`
	ImageRef  string         `json:"image_ref"`
	StyleID   domain.StyleID `json:"style_id"`
	Intensity float64        `json:"intensity"`
}

// Result is the successful service response.
type Result struct {
	ProcessedImageRef string `json:"processed_image_ref"`
}

// Processor is implemented by every style transfer backend. Implementations
// must return promptly with ctx.Err() once ctx is cancelled.
type Processor interface {
	Process(ctx context.Context, req Request) (Result, error)
}

// Service error codes returned by backends.
const (
	CodeUnavailable  = "style_service_unavailable"
	CodeInvalidImage = "invalid_image"
	CodeTimeout      = "timeout"
	CodeInternal     = "internal"
)

// ServiceError carries the error code reported by the service. It matches
// domain.ErrProcessingFailed under errors.Is.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("image: service error (%s)", e.Code)
	}
	return fmt.Sprintf("image: %s (%s)", e.Message, e.Code)
}

func (e *ServiceError) Unwrap() error {
	return domain.ErrProcessingFailed
}
