package flow

import (
	"context"
	"strings"

	"cartoonify/internal/domain"
)

// ImageSource yields a reference to the user's chosen picture: a gallery
// pick, a camera capture or a reference the client already holds. Sources
// report a missing permission with domain.ErrPermissionDenied.
type ImageSource interface {
	Acquire(ctx context.Context) (string, error)
}

// ImageSourceFunc adapts a function to ImageSource.
type ImageSourceFunc func(ctx context.Context) (string, error)

func (f ImageSourceFunc) Acquire(ctx context.Context) (string, error) { return f(ctx) }

// ImageRef is a source that already holds the reference.
type ImageRef string

func (r ImageRef) Acquire(context.Context) (string, error) {
	ref := strings.TrimSpace(string(r))
	if ref == "" {
		return "", domain.ErrInvalidImageRef
	}
	return ref, nil
}
