package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"bnbbrain-backend/internal/handlers"
	"bnbbrain-backend/internal/middleware"
	"bnbbrain-backend/pkg/logger"
)

// ChatLimiter returns the optional /api/chat limiter. A limit of zero or less
// means no limiter, which is the default.
func ChatLimiter(limit int, window time.Duration) *middleware.RateLimiter {
	if limit <= 0 {
		return nil
	}
	return middleware.NewRateLimiter(limit, window)
}

// New wires the HTTP surface. chatLimiter may be nil to leave /api/chat
// unlimited.
func New(
	chatHandler *handlers.ChatHandler,
	marketHandler *handlers.MarketHandler,
	wsHandler http.HandlerFunc,
	chatLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RequestLogger(&chimiddleware.DefaultLogFormatter{Logger: logger.L(), NoColor: true}))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if chatLimiter != nil {
				r.Use(chatLimiter.Middleware)
			}
			r.Post("/chat", chatHandler.Relay)
		})

		r.Route("/market/{symbol}", func(r chi.Router) {
			r.Get("/", marketHandler.Snapshot)
			r.Get("/prediction", marketHandler.Prediction)
			r.Get("/analysis", marketHandler.Analysis)
		})

		r.Get("/ws", wsHandler)
	})

	return r
}
