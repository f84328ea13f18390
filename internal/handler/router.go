package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/efreitasn/papertrader/internal/service"
)

// NewRouter creates a chi router with all routes registered, panic
// recovery, CORS for the given origins, request logging, and Content-Type
// validation middleware.
func NewRouter(
	accountSvc *service.AccountService,
	marketSvc *service.MarketService,
	tradeSvc *service.TradeService,
	portfolioSvc *service.PortfolioService,
	adviceSvc *service.AdviceService,
	corsOrigins []string,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	accountH := NewAccountHandler(accountSvc)
	marketH := NewMarketHandler(marketSvc)
	tradeH := NewTradeHandler(tradeSvc)
	portfolioH := NewPortfolioHandler(portfolioSvc)
	chatH := NewChatHandler(adviceSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Account routes.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", accountH.Signup)
			r.Get("/profile/{user_id}", accountH.Profile)
			r.Get("/watchlist/{user_id}", accountH.Watchlist)
			r.Post("/watchlist/{user_id}", accountH.AddToWatchlist)
			r.Delete("/watchlist/{user_id}/{symbol}", accountH.RemoveFromWatchlist)
			r.Get("/goals/{user_id}", accountH.Goals)
			r.Post("/goals/{user_id}", accountH.UpdateGoals)
		})

		// Market, trade and portfolio routes.
		r.Route("/stocks", func(r chi.Router) {
			r.Get("/quote/{symbol}", marketH.Quote)
			r.Get("/history/{symbol}", marketH.History)
			r.Post("/trade/{user_id}", tradeH.Execute)
			r.Get("/trades/{user_id}", tradeH.History)
			r.Get("/portfolio/{user_id}", portfolioH.Portfolio)
			r.Get("/summary/{user_id}", portfolioH.Summary)
			r.Get("/sectors/{user_id}", portfolioH.Sectors)
			r.Get("/performance/{user_id}", portfolioH.Performance)
		})

		// Advice routes.
		r.Route("/chat", func(r chi.Router) {
			r.Post("/chat", chatH.Chat)
			r.Get("/insights/{user_id}", chatH.Insights)
		})
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, duration and request ID using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
