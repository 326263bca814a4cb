package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deepdey/notebook-backend/internal/config"
	"github.com/deepdey/notebook-backend/internal/database"
	"github.com/deepdey/notebook-backend/internal/handlers"
	"github.com/deepdey/notebook-backend/internal/middleware"
	"github.com/deepdey/notebook-backend/internal/routes"
	"github.com/deepdey/notebook-backend/internal/services"
	"github.com/deepdey/notebook-backend/pkg/clientip"
	"github.com/deepdey/notebook-backend/pkg/utils"
)

const (
	authThrottleEvery = 5 * time.Second
	authThrottleBurst = 5
	shutdownTimeout   = 15 * time.Second
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}
	// Load configuration
	cfg := config.Load()
	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongo, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongo.Disconnect(); err != nil {
			log.Warn("mongo disconnect failed", "error", err)
		}
	}()
	if err := mongo.EnsureIndexes(ctx); err != nil {
		log.Warn("⚠️  failed to ensure MongoDB indexes", "error", err)
	} else {
		log.Info("✅ MongoDB indexes ensured")
	}

	// Connect to Redis. The limiter fails open, so a missing Redis only
	// disables rate limiting.
	var limiter *middleware.RateLimiter
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, log)
	if err != nil {
		log.Warn("⚠️  Redis unavailable, rate limiting disabled", "error", err)
	} else {
		defer rdb.Close()
	}

	users := database.NewUserStore(mongo.DB)
	notes := database.NewNoteStore(mongo.DB)
	tokens := services.NewJWTIssuer(cfg.JWTSecret, services.TokenTTL)

	mailer := services.NewMailer(newSender(cfg, log), services.OTPTTL, log)
	log.Info("✅ Mail provider configured", "provider", cfg.MailProvider)

	accounts := services.NewAccountService(services.AccountDeps{
		Users:  users,
		Hasher: utils.NewBcryptHasher(),
		Tokens: tokens,
		Mailer: mailer,
		Log:    log,
	})

	// Initialize Cloudinary service
	var uploader handlers.AvatarUploader
	if cfg.CloudinaryEnabled() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Warn("Failed to initialize Cloudinary, avatar uploads will not be available", "error", err)
		} else {
			uploader = cld
			log.Info("✅ Cloudinary service initialized")
		}
	} else {
		log.Warn("Cloudinary credentials not found, avatar uploads will not be available")
	}

	// Validate has already parsed these
	proxies, _ := clientip.ParseNetworks(cfg.TrustedProxies)
	if len(proxies) > 0 {
		log.Info("Forwarding headers trusted from proxies", "proxies", cfg.TrustedProxies)
	}

	if rdb != nil {
		limiter = middleware.NewRateLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow, middleware.CallerIdentity(tokens), log)
	}

	router := routes.NewRouter(routes.Deps{
		Auth:           handlers.NewAuthHandler(accounts, log),
		Notes:          handlers.NewNoteHandler(notes, log),
		Avatar:         handlers.NewAvatarHandler(uploader, accounts, log),
		Guard:          middleware.NewAuth(tokens, users, log),
		RateLimiter:    limiter,
		Throttle:       middleware.NewThrottle(authThrottleEvery, authThrottleBurst),
		TrustedProxies: proxies,
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHost:    cfg.AllowedHost,
		Production:     cfg.IsProduction(),
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 NoteBook backend running", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSender(cfg *config.Config, log *slog.Logger) services.Sender {
	switch cfg.MailProvider {
	case "resend":
		return services.NewResendSender(cfg.ResendAPIKey, cfg.MailFromHeader(), cfg.MailReplyTo)
	case "smtp":
		return services.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, cfg.MailFromName, cfg.MailReplyTo)
	default:
		return services.LogSender{Log: log}
	}
}
