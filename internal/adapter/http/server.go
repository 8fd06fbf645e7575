package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/usecase"
)

// Server represents the HTTP server.
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	JWTSecret      string
	AllowedOrigins []string
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(
	config ServerConfig,
	lifecycle *usecase.LifecycleUseCase,
	certification *usecase.CertificationUseCase,
	reserve *usecase.ReserveUseCase,
	compliance *usecase.ComplianceUseCase,
	householdHandler *HouseholdHandler,
	logger *logrus.Logger,
) *Server {
	router := mux.NewRouter()

	contractHandler := NewContractHandler(lifecycle)
	certHandler := NewCertificationHandler(certification)
	reserveHandler := NewReserveHandler(reserve)
	complianceHandler := NewComplianceHandler(compliance)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware(config.JWTSecret))
	contractHandler.RegisterRoutes(api)
	certHandler.RegisterRoutes(api)
	reserveHandler.RegisterRoutes(api)
	complianceHandler.RegisterRoutes(api)
	householdHandler.RegisterRoutes(api)

	router.Use(correlationMiddleware())
	router.Use(corsMiddleware(config.AllowedOrigins))
	router.Use(loggingMiddleware(logger))
	router.Use(recoveryMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return &Server{
		server: &http.Server{
			Addr:         ":" + config.Port,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Middleware

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":         r.Method,
				"path":           r.URL.Path,
				"remote":         r.RemoteAddr,
				"correlation_id": w.Header().Get(CorrelationIDHeader),
				"duration":       time.Since(start).String(),
			}).Info("request")
		})
	}
}

func recoveryMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithField("panic", err).Error("panic recovered")
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// staffClaimsKey carries the authenticated staff subject through the request
// context.
type contextKey string

const staffClaimsKey contextKey = "staff_subject"

// authMiddleware validates the bearer token issued to program staff. Token
// issuance lives in the agency's identity tooling, not here.
func authMiddleware(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			subject := ""
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				subject, _ = claims.GetSubject()
			}
			ctx := context.WithValue(r.Context(), staffClaimsKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// actorFrom returns the authenticated staff subject, or "system" for
// internal callers.
func actorFrom(r *http.Request) string {
	if subject, ok := r.Context().Value(staffClaimsKey).(string); ok && subject != "" {
		return subject
	}
	return "system"
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrContractNotFound),
		errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrHouseholdNotFound),
		errors.Is(err, domain.ErrFindingNotFound),
		errors.Is(err, domain.ErrReportNotFound),
		errors.Is(err, domain.ErrLimitsNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStaleReport):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientData),
		errors.Is(err, domain.ErrAmbiguousPeriod),
		errors.Is(err, domain.ErrNoAdultMember),
		errors.Is(err, domain.ErrUnknownReserveKind):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
