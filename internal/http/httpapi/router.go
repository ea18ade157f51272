package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"cartoonify/internal/http/handlers"
	"cartoonify/internal/middleware"
)

// Options configures the router's middleware stack.
type Options struct {
	Logger             zerolog.Logger
	RateLimitPerMinute int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute))

			r.Get("/styles", app.Styles)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", app.CreateSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", app.GetSession)
					r.Delete("/", app.DeleteSession)
					r.Post("/image", app.ProvideImage)
					r.Post("/style", app.SelectStyle)
					r.Post("/retry", app.Retry)
					r.Post("/back", app.Back)
					r.Post("/save", app.Save)
					r.Post("/share", app.Share)
					r.Post("/interstitial/dismiss", app.DismissInterstitial)
				})
			})

			r.Get("/history", app.History)
			r.Get("/gallery", app.GalleryItems)
			r.Get("/gallery/export", app.GalleryExport)

			r.Route("/entitlements", func(r chi.Router) {
				r.Get("/", app.Entitlements)
				r.Post("/subscribe", app.Subscribe)
				r.Post("/rewarded-ad", app.RewardedAd)
			})
		})
	})

	return r
}
