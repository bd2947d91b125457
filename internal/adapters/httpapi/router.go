package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type RouterOptions struct {
	// AuthMiddleware sets the request subject. Nil leaves every API route unauthenticated
	// and each handler answers 401.
	AuthMiddleware func(http.Handler) http.Handler
	Logger         logrus.FieldLogger
	// CORSOrigins enables CORS for the listed origins. Empty disables the CORS layer.
	CORSOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter constructs the API HTTP router.
func NewRouter(api *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Debug-Subject"},
			ExposedHeaders:   []string{"X-Offline", "X-Request-Id"},
			AllowCredentials: true,
		}).Handler)
	}

	// Infra endpoints stay outside auth.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Use(offlineHeader(api.trips.Offline))

		r.Get("/trips", api.ListTrips)
		r.Post("/trips", api.CreateTrip)
		r.Route("/trips/{tripId}", func(r chi.Router) {
			r.Get("/", api.GetTrip)
			r.Patch("/", api.UpdateTrip)
			r.Delete("/", api.DeleteTrip)
			r.Get("/context", api.GetContext)
			r.Post("/items", api.AddItem)
			r.Patch("/items/{itemId}", api.UpdateItem)
			r.Delete("/items/{itemId}", api.RemoveItem)
			r.Post("/confirm", api.ConfirmAll)
			r.Post("/selections", api.Select)
			r.Post("/chat", api.Chat)
			r.Get("/summary", api.Summary)
			r.Get("/calendar.ics", api.Calendar)
		})
		r.Post("/sync", api.Sync)
	})
	return r
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				w.Header().Set("X-Request-Id", rid)
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":    r.Method,
				"path":      r.URL.Path,
				"status":    ww.Status(),
				"bytes":     ww.BytesWritten(),
				"duration":  time.Since(start).String(),
				"requestId": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}

// offlineHeader marks responses served from the local working set with X-Offline: true.
// The flag is read when the status line is written, after the handler touched the store.
func offlineHeader(offline func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&offlineWriter{ResponseWriter: w, offline: offline}, r)
		})
	}
}

type offlineWriter struct {
	http.ResponseWriter
	offline     func() bool
	wroteHeader bool
}

func (w *offlineWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if w.offline() {
			w.Header().Set("X-Offline", "true")
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *offlineWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying Flusher.
func (w *offlineWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
