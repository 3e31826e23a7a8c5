package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"guestcheckin/config"
	"guestcheckin/docs"
	"guestcheckin/internal/adapters/auth"
	"guestcheckin/internal/adapters/email"
	"guestcheckin/internal/adapters/objectstore"
	"guestcheckin/internal/adapters/qrcode"
	deliveryhttp "guestcheckin/internal/delivery/http"
	"guestcheckin/internal/delivery/http/controllers"
	"guestcheckin/internal/delivery/http/middleware"
	"guestcheckin/internal/delivery/http/realtime"
	"guestcheckin/internal/domain"
	"guestcheckin/internal/repository/postgres"
	"guestcheckin/internal/services"
)

const (
	shutdownTimeout  = 10 * time.Second
	rateLimiterTTL   = 10 * time.Minute
	rateLimiterSweep = time.Minute
	bcryptCost       = 12
	invitationPrefix = "invitations"
)

// @title Guest Check-in API
// @version 1.0
// @description Event attendance tracking with QR invitations and door scanning.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	store := services.NewStore(postgres.NewEventRepository(db), postgres.NewGuestRepository(db), logger)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	images := objectstore.NewQRImageStore(objectstore.Config{
		URL:    cfg.Storage.SupabaseURL,
		Key:    cfg.Storage.SupabaseKey,
		Bucket: cfg.Storage.Bucket,
		Prefix: invitationPrefix,
	}, logger)

	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	hub := realtime.NewHub(logger)

	authService := services.NewAuthService(postgres.NewUserRepository(db), auth.NewBcryptHasher(bcryptCost), issuer, cfg.JWTExpiry, cfg.RequestTimeout)
	eventService := services.NewEventService(store, cfg.RequestTimeout)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	guestService := services.NewGuestService(store, qrcode.NewEncoder(), images, emailService, cfg.RequestTimeout)
	checkInService := services.NewCheckInService(store, checkInNotifier(ctx, db, cfg, hub, logger), logger, cfg.RequestTimeout)

	limiter := middleware.NewIPRateLimiter(cfg.ScanRatePerMinute, cfg.ScanRateBurst, rateLimiterTTL)
	go limiter.Cleanup(ctx, rateLimiterSweep)

	mux := deliveryhttp.NewRouter(deliveryhttp.Controllers{
		Auth:     controllers.NewAuthController(logger, authService),
		Event:    controllers.NewEventController(logger, eventService),
		Guest:    controllers.NewGuestController(logger, guestService),
		Scan:     controllers.NewScanController(logger, eventService, checkInService, qrcode.NewDecoder()),
		Realtime: realtime.NewHandler(hub, verifier, eventService, cfg.CORSAllowedOrigins, logger),
	}, deliveryhttp.Middlewares{
		RequireAuth: middleware.RequireAuth(verifier, logger),
		ScanLimit:   middleware.RateLimitByIP(limiter, logger),
	})
	configureDocs(cfg.PublicBaseURL)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deliveryhttp.NewHandler(mux, cfg.CORSAllowedOrigins, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// checkInNotifier sends check-ins through Postgres NOTIFY and relays every notice, from
// this process or a door station, into the hub. Without a listener only check-ins made
// by this process reach the hub.
func checkInNotifier(ctx context.Context, db *sql.DB, cfg *config.Config, hub *realtime.Hub, logger *slog.Logger) domain.CheckInNotifier {
	listener, err := postgres.NewCheckInListener(cfg.DBUrl, logger)
	if err != nil {
		logger.Warn("check-in listener unavailable, door station check-ins will not reach the live feed", "error", err)
		return hub
	}
	go listener.Run(ctx, hub)
	return postgres.NewCheckInPublisher(db, logger, cfg.RequestTimeout)
}

// configureDocs points the OpenAPI document at the public address when one is configured.
func configureDocs(publicBaseURL string) {
	if publicBaseURL == "" {
		return
	}
	u, err := url.Parse(publicBaseURL)
	if err != nil || u.Host == "" {
		slog.Warn("ignoring invalid PUBLIC_BASE_URL", "value", publicBaseURL)
		return
	}
	docs.SwaggerInfo.Host = u.Host
	docs.SwaggerInfo.Schemes = []string{u.Scheme}
	if u.Path != "" {
		docs.SwaggerInfo.BasePath = u.Path
	}
}
