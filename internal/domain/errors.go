package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnknownStyle        = errors.New("unknown style")
	ErrInvalidIntensity    = errors.New("intensity must be within [0,1]")
	ErrInvalidImageRef     = errors.New("invalid image reference")
	ErrPermissionDenied    = errors.New("image source permission denied")
	ErrProcessingFailed    = errors.New("processing failed")
	ErrCancelled           = errors.New("processing cancelled")
	ErrRequiresUpgrade     = errors.New("style requires upgrade")
	ErrInvalidTransition   = errors.New("invalid session transition")
	ErrSessionClosed       = errors.New("session closed")
	ErrInterstitialPending = errors.New("interstitial pending")
)
