package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/deepdey/notebook-backend/internal/middleware"
	"github.com/deepdey/notebook-backend/internal/models"
	"github.com/deepdey/notebook-backend/internal/services"
)

// Accounts is the account lifecycle the auth routes expose.
type Accounts interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.OTPSentResponse, error)
	VerifyOTP(ctx context.Context, req services.VerifyOTPRequest) (*services.AuthResponse, error)
	ResendOTP(ctx context.Context, req services.EmailRequest) (*services.MessageResponse, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.AuthResponse, error)
	ForgotPassword(ctx context.Context, req services.EmailRequest) (*services.OTPSentResponse, error)
	ResetPassword(ctx context.Context, req services.ResetPasswordRequest) (*services.MessageResponse, error)
}

type AuthHandler struct {
	accounts Accounts
	log      *slog.Logger
}

func NewAuthHandler(accounts Accounts, log *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err, "Server error during registration")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyOTP handles POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req services.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.accounts.VerifyOTP(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err, "Server error during OTP verification")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResendOTP handles POST /api/auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req services.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.accounts.ResendOTP(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err, "Server error while resending OTP")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err, "Server error during login")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me. The user was loaded by the auth middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req services.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.accounts.ForgotPassword(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err, "Server error during password reset request")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req services.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.accounts.ResetPassword(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err, "Server error during password reset")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// currentUser returns the user stored by the auth middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "Not authorized, no token"})
	}
	return user, ok
}
