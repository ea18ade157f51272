package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"cartoonify/internal/domain"
	"cartoonify/internal/flow"
	"cartoonify/internal/middleware"
	"cartoonify/internal/storage"
)

const maxBodyBytes = 64 << 10

// App holds the dependencies shared by every handler.
type App struct {
	Flow    *flow.Controller
	Gallery *storage.Gallery
	Logger  zerolog.Logger
}

func NewApp(ctrl *flow.Controller, gallery *storage.Gallery, logger zerolog.Logger) *App {
	return &App{Flow: ctrl, Gallery: gallery, Logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// decode reads an optional JSON body into v. An empty body leaves v untouched.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
	return false
}

// fail maps domain errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("handler failed")
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	a.error(w, status, code, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnknownStyle):
		return http.StatusBadRequest, "unknown_style"
	case errors.Is(err, domain.ErrInvalidIntensity):
		return http.StatusBadRequest, "invalid_intensity"
	case errors.Is(err, domain.ErrInvalidImageRef):
		return http.StatusBadRequest, "invalid_image_ref"
	case errors.Is(err, flow.ErrUnknownPlatform):
		return http.StatusBadRequest, "unknown_platform"
	case errors.Is(err, domain.ErrRequiresUpgrade):
		return http.StatusPaymentRequired, "requires_upgrade"
	case errors.Is(err, domain.ErrInterstitialPending):
		return http.StatusConflict, "interstitial_pending"
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict, "session_closed"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrProcessingFailed):
		return http.StatusServiceUnavailable, "processing_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
