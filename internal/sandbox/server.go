package sandbox

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"permisconnect/internal/live"
	"permisconnect/pkg/jwt"
)

// Server bundles what NewRouter mounts.
type Server struct {
	Service  *Service
	Checkout Checkout
	Signer   *jwt.Signer
	Hub      *live.Hub
	Log      *zap.Logger
}

// NewRouter builds the HTTP surface: /health, /api/... and /ws/....
func NewRouter(s Server) http.Handler {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(s.Signer.Optional)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"permisconnect-sandbox"}`))
	})

	r.Mount("/api", NewHandler(s.Service, s.Checkout).Routes())
	if s.Hub != nil {
		r.Mount("/ws", s.Hub.Routes())
	}
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("requestId", r.Header.Get("X-Request-ID")),
			)
		})
	}
}
