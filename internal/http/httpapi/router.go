package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"veostudio/internal/http/handlers"
	"veostudio/internal/middleware"
)

// Options configures the middleware stack around the handlers.
type Options struct {
	JWTSecret      string
	CORSOrigins    []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	SyncRatePerMin int
	Logger         zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	syncLimit := middleware.RateLimit(syncRate(opts), time.Minute)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))

			r.Get("/me", app.Me)

			r.Route("/videos", func(r chi.Router) {
				r.Post("/", app.VideosSubmit)
				r.Get("/", app.VideosList)
				r.Delete("/latest", app.VideosDeleteLatest)
				r.With(syncLimit).Post("/sync", app.VideosSyncBatch)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", app.VideoGet)
					r.Delete("/", app.VideoDelete)
					r.Get("/url", app.VideoURL)
					r.Get("/download", app.VideoDownload)
					r.With(syncLimit).Post("/sync", app.VideoSync)
				})
			})
		})
	})

	return r
}

func syncRate(opts Options) int {
	if opts.SyncRatePerMin > 0 {
		return opts.SyncRatePerMin
	}
	return 60
}
