package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/deepdey/notebook-backend/internal/database"
	"github.com/deepdey/notebook-backend/internal/models"
	"github.com/deepdey/notebook-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the persistence the account flows need.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

// AccountMailer sends the two account emails.
type AccountMailer interface {
	SendVerificationOTP(ctx context.Context, to, name, otp string) error
	SendPasswordReset(ctx context.Context, to, name, otp string) error
}

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User not found"
	msgAlreadyVerified    = "Email already verified"
	msgInvalidOTP         = "Invalid OTP"
	msgOTPExpired         = "OTP has expired. Please request a new one."
	msgWeakPassword       = "Password does not meet requirements"
	msgProvideAllFields   = "Please provide all fields"
	msgProvideEmail       = "Please provide email"
	msgInvalidEmail       = "Please provide a valid email"

	msgSandboxRestricted = "Email service is in test mode. Only the account owner's address can receive mail until a sending domain is verified."
)

// AccountService runs the account lifecycle: register, verify, resend,
// login, forgot and reset password. Every state change is persisted on the
// user document; nothing is kept in memory between calls.
type AccountService struct {
	users  UserStore
	hasher utils.Hasher
	tokens TokenIssuer
	mailer AccountMailer
	otps   OTPGenerator
	otpTTL time.Duration
	now    func() time.Time
	log    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AccountDeps groups the collaborators of AccountService.
type AccountDeps struct {
	Users  UserStore
	Hasher utils.Hasher
	Tokens TokenIssuer
	Mailer AccountMailer
	OTPs   OTPGenerator
	OTPTTL time.Duration // zero means OTPTTL; only tests shorten it
	Now    func() time.Time
	Log    *slog.Logger
}

func NewAccountService(d AccountDeps) *AccountService {
	if d.OTPs == nil {
		d.OTPs = RandomOTP{}
	}
	if d.OTPTTL <= 0 {
		d.OTPTTL = OTPTTL
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &AccountService{
		users:  d.Users,
		hasher: d.Hasher,
		tokens: d.Tokens,
		mailer: d.Mailer,
		otps:   d.OTPs,
		otpTTL: d.OTPTTL,
		now:    d.Now,
		log:    d.Log.With("component", "account"),
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPSentResponse is returned when a code has been mailed.
type OTPSentResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// AuthResponse carries the profile and a fresh bearer token.
type AuthResponse struct {
	ID      primitive.ObjectID `json:"_id"`
	Name    string             `json:"name"`
	Email   string             `json:"email"`
	Avatar  string             `json:"avatar"`
	Token   string             `json:"token"`
	Message string             `json:"message,omitempty"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// Register creates an unverified account, or overwrites the pending one for
// the same address, and mails a verification code.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*OTPSentResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := utils.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, validationError(msgProvideAllFields)
	}
	if !utils.ValidEmail(email) {
		return nil, validationError(msgInvalidEmail)
	}
	if check := utils.ValidatePassword(req.Password); !check.IsValid {
		return nil, validationError(msgWeakPassword, check.Errors...)
	}

	const failMsg = "Server error during registration"

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, "register", failMsg, err, "email", email)
	}
	if user != nil && user.IsVerified {
		return nil, conflictError("Email already registered. Please login instead.")
	}

	otp, err := s.otps.Generate()
	if err != nil {
		return nil, s.internal(ctx, "register", failMsg, err, "email", email)
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, s.internal(ctx, "register", failMsg, err, "email", email)
	}

	if user == nil {
		user = &models.User{Email: email}
		s.applyRegistration(user, name, hash, otp)
		err = s.users.Create(ctx, user)
		if errors.Is(err, database.ErrDuplicate) {
			// Lost an insert race for the same address; overwrite the winner.
			user, err = s.overwritePlaceholder(ctx, email, name, hash, otp)
		}
	} else {
		s.applyRegistration(user, name, hash, otp)
		err = s.users.Save(ctx, user)
	}
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, s.internal(ctx, "register", failMsg, err, "email", email)
	}

	// The user document stays as written even if the email cannot be sent.
	if err := s.mailer.SendVerificationOTP(ctx, email, user.Name, otp); err != nil {
		if errors.Is(err, ErrSandboxRestricted) {
			s.log.WarnContext(ctx, "registration email refused by provider sandbox", "email", email, "error", err)
			return nil, &Error{Kind: KindValidation, Message: msgSandboxRestricted, Err: err}
		}
		return nil, s.internal(ctx, "register", "Failed to send OTP email. Please try again.", err, "email", email)
	}

	return &OTPSentResponse{
		Message: "OTP sent to your email. Please verify to complete registration.",
		Email:   email,
	}, nil
}

func (s *AccountService) applyRegistration(user *models.User, name, hash, otp string) {
	user.Name = name
	user.Password = hash
	user.IsVerified = false
	user.IssueOTP(otp, s.now(), s.otpTTL)
}

func (s *AccountService) overwritePlaceholder(ctx context.Context, email, name, hash, otp string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, conflictError("Email already registered. Please login instead.")
	}
	s.applyRegistration(user, name, hash, otp)
	return user, s.users.Save(ctx, user)
}

// VerifyOTP completes registration and logs the user in.
func (s *AccountService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.OTP == "" {
		return nil, validationError("Please provide email and OTP")
	}

	const failMsg = "Server error during OTP verification"

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, "verify_otp", failMsg, err, "email", email)
	}
	if user == nil {
		return nil, notFoundError(msgUserNotFound)
	}
	if user.IsVerified {
		return nil, validationError(msgAlreadyVerified)
	}
	if err := s.checkOTP(user, req.OTP); err != nil {
		return nil, err
	}

	user.IsVerified = true
	user.ClearOTP()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, s.internal(ctx, "verify_otp", failMsg, err, "email", email)
	}

	resp, err := s.authResponse(user)
	if err != nil {
		return nil, s.internal(ctx, "verify_otp", failMsg, err, "email", email)
	}
	resp.Message = "Email verified successfully!"
	return resp, nil
}

// ResendOTP replaces the pending registration code with a new one.
func (s *AccountService) ResendOTP(ctx context.Context, req EmailRequest) (*MessageResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" {
		return nil, validationError(msgProvideEmail)
	}

	const failMsg = "Server error while resending OTP"

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, "resend_otp", failMsg, err, "email", email)
	}
	if user == nil {
		return nil, notFoundError(msgUserNotFound)
	}
	if user.IsVerified {
		return nil, validationError(msgAlreadyVerified)
	}

	otp, err := s.issueOTP(ctx, user)
	if err != nil {
		return nil, s.internal(ctx, "resend_otp", failMsg, err, "email", email)
	}
	if err := s.mailer.SendVerificationOTP(ctx, email, user.Name, otp); err != nil {
		return nil, s.internal(ctx, "resend_otp", failMsg, err, "email", email)
	}

	return &MessageResponse{Message: "New OTP sent to your email"}, nil
}

// Login checks the password before anything else, so an unknown address and
// a wrong password are indistinguishable. Only a caller who knows the
// password learns that the account still needs verification.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, validationError("Please provide email and password")
	}

	const failMsg = "Server error during login"

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, "login", failMsg, err, "email", email)
	}

	hash := s.dummyPasswordHash()
	if user != nil {
		hash = user.Password
	}
	ok, err := s.hasher.Compare(hash, req.Password)
	if err != nil {
		s.log.WarnContext(ctx, "password comparison failed", "email", email, "error", err)
		ok = false
	}
	if user == nil || !ok {
		return nil, unauthorizedError(msgInvalidCredentials)
	}
	if !user.IsVerified {
		return nil, unauthorizedError("Please verify your email first")
	}

	resp, err := s.authResponse(user)
	if err != nil {
		return nil, s.internal(ctx, "login", failMsg, err, "email", email)
	}
	return resp, nil
}

// SetAvatar stores an uploaded avatar URL on the user.
func (s *AccountService) SetAvatar(ctx context.Context, userID primitive.ObjectID, url string) (*models.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError(msgUserNotFound)
	}
	if err != nil {
		return nil, s.internal(ctx, "set_avatar", "Server error", err, "user_id", userID.Hex())
	}
	user.Avatar = url
	if err := s.users.Save(ctx, user); err != nil {
		return nil, s.internal(ctx, "set_avatar", "Server error", err, "user_id", userID.Hex())
	}
	profile := user.Profile()
	return &profile, nil
}

// ForgotPassword mails a reset code to a verified account.
func (s *AccountService) ForgotPassword(ctx context.Context, req EmailRequest) (*OTPSentResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" {
		return nil, validationError(msgProvideEmail)
	}

	const failMsg = "Server error during password reset request"

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, "forgot_password", failMsg, err, "email", email)
	}
	if user == nil {
		return nil, notFoundError("No account found with this email")
	}
	if !user.IsVerified {
		return nil, validationError("Please verify your email first before resetting password")
	}

	otp, err := s.issueOTP(ctx, user)
	if err != nil {
		return nil, s.internal(ctx, "forgot_password", failMsg, err, "email", email)
	}
	if err := s.mailer.SendPasswordReset(ctx, email, user.Name, otp); err != nil {
		return nil, s.internal(ctx, "forgot_password", "Failed to send password reset email. Please try again.", err, "email", email)
	}

	return &OTPSentResponse{Message: "Password reset code sent to your email", Email: email}, nil
}

// ResetPassword replaces the password when the code matches. No token is
// issued; the caller logs in afterwards.
func (s *AccountService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*MessageResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.OTP == "" || req.NewPassword == "" {
		return nil, validationError(msgProvideAllFields)
	}
	if check := utils.ValidatePassword(req.NewPassword); !check.IsValid {
		return nil, validationError(msgWeakPassword, check.Errors...)
	}

	const failMsg = "Server error during password reset"

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, "reset_password", failMsg, err, "email", email)
	}
	if user == nil {
		return nil, notFoundError(msgUserNotFound)
	}
	if err := s.checkOTP(user, req.OTP); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, s.internal(ctx, "reset_password", failMsg, err, "email", email)
	}
	user.Password = hash
	user.ClearOTP()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, s.internal(ctx, "reset_password", failMsg, err, "email", email)
	}

	return &MessageResponse{Message: "Password reset successful. Please login with your new password."}, nil
}

// checkOTP reports a mismatch before an expiry, so a correct but stale code
// gets the expiry message.
func (s *AccountService) checkOTP(user *models.User, otp string) *Error {
	if !otpMatches(user.OTP, otp) {
		return validationError(msgInvalidOTP)
	}
	if user.OTPExpired(s.now()) {
		return validationError(msgOTPExpired)
	}
	return nil
}

// issueOTP generates and persists a new code, invalidating the previous one.
func (s *AccountService) issueOTP(ctx context.Context, user *models.User) (string, error) {
	otp, err := s.otps.Generate()
	if err != nil {
		return "", err
	}
	user.IssueOTP(otp, s.now(), s.otpTTL)
	if err := s.users.Save(ctx, user); err != nil {
		return "", err
	}
	return otp, nil
}

func (s *AccountService) authResponse(user *models.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Avatar: user.Avatar,
		Token:  token,
	}, nil
}

// findByEmail returns (nil, nil) when no user has email.
func (s *AccountService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// dummyPasswordHash gives unknown-email logins a hash to compare against so
// they take as long as real ones.
func (s *AccountService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.log.Warn("could not prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AccountService) internal(ctx context.Context, op, msg string, err error, attrs ...any) *Error {
	s.log.ErrorContext(ctx, "account operation failed", append([]any{"op", op, "error", err}, attrs...)...)
	return externalError(msg, err)
}
