package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cartoonify/internal/domain"
	"cartoonify/internal/entitlement"
	"cartoonify/internal/flow"
)

// maxWait caps the long-poll on GET /sessions/{id}.
const maxWait = 30 * time.Second

type imageRequest struct {
	ImageRef string `json:"image_ref"`
}

type styleRequest struct {
	StyleID   domain.StyleID `json:"style_id"`
	Intensity *float64       `json:"intensity"`
}

type shareRequest struct {
	Platform string `json:"platform"`
}

type upgradeResponse struct {
	Error   errorDetail            `json:"error"`
	StyleID domain.StyleID         `json:"style_id"`
	Session domain.CreationSession `json:"session"`
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !a.decode(w, r, &req) {
		return
	}
	s := a.Flow.NewSession()
	if strings.TrimSpace(req.ImageRef) != "" {
		id := s.ID
		var err error
		s, err = a.Flow.ProvideImage(r.Context(), id, flow.ImageRef(req.ImageRef))
		if err != nil {
			_ = a.Flow.End(r.Context(), id)
			a.fail(w, r, err)
			return
		}
	}
	a.json(w, http.StatusCreated, s)
}

// GetSession returns a snapshot. With ?wait=<duration> it blocks while the
// session is processing, up to the given duration.
func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid wait duration")
		return
	}
	if wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()
		s, err := a.Flow.Await(ctx, id)
		if err == nil {
			a.json(w, http.StatusOK, s)
			return
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			a.fail(w, r, err)
			return
		}
	}
	s, err := a.Flow.Session(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Flow.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) ProvideImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !a.decode(w, r, &req) {
		return
	}
	s, err := a.Flow.ProvideImage(r.Context(), chi.URLParam(r, "id"), flow.ImageRef(req.ImageRef))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

func (a *App) SelectStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if !a.decode(w, r, &req) {
		return
	}
	intensity := domain.DefaultIntensity
	if req.Intensity != nil {
		intensity = *req.Intensity
	}
	s, decision, err := a.Flow.SelectStyle(r.Context(), chi.URLParam(r, "id"), req.StyleID, intensity)
	a.dispatched(w, r, s, decision, req.StyleID, err)
}

func (a *App) Retry(w http.ResponseWriter, r *http.Request) {
	s, decision, err := a.Flow.Retry(r.Context(), chi.URLParam(r, "id"))
	a.dispatched(w, r, s, decision, s.SelectedStyleID, err)
}

func (a *App) dispatched(w http.ResponseWriter, r *http.Request, s domain.CreationSession, decision entitlement.Decision, style domain.StyleID, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if decision == entitlement.RequiresUpgrade {
		a.json(w, http.StatusPaymentRequired, upgradeResponse{
			Error:   errorDetail{Code: "requires_upgrade", Message: domain.ErrRequiresUpgrade.Error()},
			StyleID: style,
			Session: s,
		})
		return
	}
	a.json(w, http.StatusAccepted, s)
}

func (a *App) Back(w http.ResponseWriter, r *http.Request) {
	s, err := a.Flow.Back(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

func (a *App) Save(w http.ResponseWriter, r *http.Request) {
	res, err := a.Flow.Save(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"session":      res.Session,
		"gallery_key":  res.GalleryKey,
		"interstitial": res.Interstitial,
	})
}

func (a *App) Share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Flow.Share(r.Context(), chi.URLParam(r, "id"), req.Platform)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"session":      res.Session,
		"platform":     res.Platform,
		"interstitial": res.Interstitial,
	})
}

func (a *App) DismissInterstitial(w http.ResponseWriter, r *http.Request) {
	s, err := a.Flow.DismissInterstitial(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, errors.New("invalid duration")
	}
	if d > maxWait {
		d = maxWait
	}
	return d, nil
}
