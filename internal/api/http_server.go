package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"svidanie/internal/config"
	"svidanie/internal/database"
	"svidanie/internal/domain"
	"svidanie/internal/metrics"
)

// HTTPServer exposes the REST API for the mini-app frontend and the
// admin panel.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings domain.BookingService
	wallet   domain.WalletService
	referral domain.ReferralService
	users    domain.UserService
	repo     domain.Repository
	auth     *AdminAuth
	limiter  *rateLimiter
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
	server   *http.Server
}

func NewHTTPServer(
	cfg config.APIConfig,
	adminCfg config.AdminConfig,
	bookings domain.BookingService,
	wallet domain.WalletService,
	referral domain.ReferralService,
	users domain.UserService,
	repo domain.Repository,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		wallet:   wallet,
		referral: referral,
		users:    users,
		repo:     repo,
		auth:     NewAdminAuth(adminCfg),
		limiter:  newRateLimiter(&cfg),
		validate: validator.New(),
		logger:   logger.With().Str("component", "http").Logger(),
		now:      time.Now,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/services", srv.handleListServices)

	mux.HandleFunc("POST /api/v1/users", srv.handleSaveUser)
	mux.HandleFunc("GET /api/v1/users/{id}", srv.handleGetUser)
	mux.HandleFunc("GET /api/v1/users/{id}/bookings", srv.handleUserBookings)
	mux.HandleFunc("PUT /api/v1/users/{id}/schedule", srv.handleSetSchedule)
	mux.HandleFunc("GET /api/v1/users/{id}/availability", srv.handleAvailability)

	mux.HandleFunc("POST /api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", srv.transitionHandler(srv.bookings.ConfirmBooking))
	mux.HandleFunc("POST /api/v1/bookings/{id}/reject", srv.transitionHandler(srv.bookings.RejectBooking))
	mux.HandleFunc("POST /api/v1/bookings/{id}/seller-ready", srv.transitionHandler(srv.bookings.SellerReady))
	mux.HandleFunc("POST /api/v1/bookings/{id}/buyer-ready", srv.transitionHandler(srv.bookings.BuyerReady))
	mux.HandleFunc("POST /api/v1/bookings/{id}/complete", srv.transitionHandler(srv.bookings.CompleteBooking))
	mux.HandleFunc("POST /api/v1/bookings/{id}/extend", srv.handleExtendBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", srv.handleCancelBooking)

	mux.HandleFunc("GET /api/v1/wallet/{id}/balance", srv.handleBalance)
	mux.HandleFunc("POST /api/v1/wallet/{id}/deposit", srv.handleDeposit)
	mux.HandleFunc("POST /api/v1/wallet/{id}/withdraw", srv.handleWithdraw)
	mux.HandleFunc("GET /api/v1/wallet/{id}/transactions", srv.handleTransactions)

	mux.HandleFunc("GET /api/v1/referral/{id}/link", srv.handleReferralLink)
	mux.HandleFunc("GET /api/v1/referral/{id}/list", srv.handleReferralList)
	mux.HandleFunc("POST /api/v1/referral/{id}/register", srv.handleRegisterReferral)

	mux.HandleFunc("POST /api/v1/admin/login", srv.handleAdminLogin)
	mux.HandleFunc("GET /api/v1/admin/users", srv.auth.Wrap(srv.handleAdminUsers))
	mux.HandleFunc("POST /api/v1/admin/users/{id}/blacklist", srv.auth.Wrap(srv.handleAdminBlacklist))
	mux.HandleFunc("GET /api/v1/admin/bookings", srv.auth.Wrap(srv.handleAdminBookings))
	mux.HandleFunc("POST /api/v1/admin/wallet/{id}/export", srv.auth.Wrap(srv.handleAdminExport))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handler := srv.loggingMiddleware(srv.keyAuthMiddleware(srv.rateLimitMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler отдает корневой обработчик, удобно для httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit.RPS > 0 {
			if !s.limiter.getLimiter(s.clientKey(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// keyAuthMiddleware проверяет ключ сервисного клиента. Админка и health
// не трогаются: первая живет на JWT, второй нужен балансировщику.
func (s *HTTPServer) keyAuthMiddleware(next http.Handler) http.Handler {
	clients := make(map[string]config.APIClientKey, len(s.cfg.Auth.APIKeys))
	for _, k := range s.cfg.Auth.APIKeys {
		clients[k.Key] = k
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Auth.Enabled ||
			strings.HasPrefix(r.URL.Path, "/api/v1/admin/") ||
			r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := strings.TrimSpace(r.Header.Get(s.apiKeyHeader()))
		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}
		if _, ok := clients[apiKey]; !ok {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) apiKeyHeader() string {
	header := strings.TrimSpace(s.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = "X-Api-Key"
	}
	return header
}

func (s *HTTPServer) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(s.apiKeyHeader())); apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

// mapError переводит доменные ошибки в HTTP статусы.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid booking state")
	case errors.Is(err, database.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "booking was modified concurrently, retry")
	case errors.Is(err, errInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
