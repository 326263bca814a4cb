package routes

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/deepdey/notebook-backend/internal/handlers"
	"github.com/deepdey/notebook-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Deps is everything the router dispatches to. RateLimiter and Throttle may
// be nil to disable them.
type Deps struct {
	Auth   *handlers.AuthHandler
	Notes  *handlers.NoteHandler
	Avatar *handlers.AvatarHandler
	Guard  *middleware.Auth

	RateLimiter *middleware.RateLimiter
	Throttle    *middleware.Throttle

	TrustedProxies []*net.IPNet
	AllowedOrigins []string
	AllowedHost    string
	Production     bool
	Log            *slog.Logger
}

// NewRouter builds the HTTP handler with the global middleware chain.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(d.TrustedProxies))
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(d.Production))
	r.Use(middleware.HostCheck(d.AllowedHost))

	// Health check (no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Handler)
		}
		SetupRoutes(r, d)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Route not found"}`))
	})

	return r
}

func SetupRoutes(r chi.Router, d Deps) {
	r.Route("/api/auth", func(r chi.Router) {
		// Credential and code endpoints get the per-IP throttle on top
		r.Group(func(r chi.Router) {
			if d.Throttle != nil {
				r.Use(d.Throttle.Handler)
			}
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/verify-otp", d.Auth.VerifyOTP)
			r.Post("/resend-otp", d.Auth.ResendOTP)
			r.Post("/forgot-password", d.Auth.ForgotPassword)
			r.Post("/reset-password", d.Auth.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Guard.Protect)
			r.Get("/me", d.Auth.Me)
			r.Post("/avatar", d.Avatar.Upload)
		})
	})

	r.Route("/api/notes", func(r chi.Router) {
		r.Use(d.Guard.Protect)
		r.Get("/", d.Notes.List)
		r.Post("/", d.Notes.Create)
		r.Get("/{id}", d.Notes.Get)
		r.Put("/{id}", d.Notes.Update)
		r.Delete("/{id}", d.Notes.Delete)
	})
}
