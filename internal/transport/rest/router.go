package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"anamneseai/internal/service"
	"anamneseai/internal/transport/rest/handler"
	"anamneseai/internal/transport/rest/middleware"
	"anamneseai/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	AuthService      *service.AuthService
	InterviewService *service.InterviewService
	WSHub            *ws.Hub
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	sessionHandler := handler.NewSessionHandler(c.InterviewService, c.AuthService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.InterviewService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions", sessionHandler.Start).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param, patient or clinician)
	v1.HandleFunc("/ws/sessions/{sessionId}", wsHandler.SessionWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Patient routes (session-scoped token)
	patientRoutes := v1.NewRoute().Subrouter()
	patientRoutes.Use(authMW.RequirePatient)

	patientRoutes.HandleFunc("/sessions/{sessionId}/messages", sessionHandler.Message).Methods("POST", "OPTIONS")
	patientRoutes.HandleFunc("/sessions/{sessionId}/advance", sessionHandler.Advance).Methods("POST", "OPTIONS")
	patientRoutes.HandleFunc("/sessions/{sessionId}/restart", sessionHandler.Restart).Methods("POST", "OPTIONS")
	patientRoutes.HandleFunc("/sessions/{sessionId}/state", sessionHandler.State).Methods("GET", "OPTIONS")

	// Clinician routes (require clinician auth)
	clinicianRoutes := v1.NewRoute().Subrouter()
	clinicianRoutes.Use(authMW.RequireClinician)

	clinicianRoutes.HandleFunc("/sessions", sessionHandler.List).Methods("GET", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}/summary", sessionHandler.Summary).Methods("GET", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}/transcript", sessionHandler.Transcript).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
