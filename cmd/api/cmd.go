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

	"golang.org/x/sync/errgroup"

	"github.com/GregMSThompson/dockly/internal/bootstrap"
	"github.com/GregMSThompson/dockly/internal/cache"
	sendgridclient "github.com/GregMSThompson/dockly/internal/client/sendgrid"
	"github.com/GregMSThompson/dockly/internal/config"
	"github.com/GregMSThompson/dockly/internal/handlers"
	"github.com/GregMSThompson/dockly/internal/metrics"
	"github.com/GregMSThompson/dockly/internal/middleware"
	"github.com/GregMSThompson/dockly/internal/response"
	"github.com/GregMSThompson/dockly/internal/router"
	"github.com/GregMSThompson/dockly/internal/services"
	"github.com/GregMSThompson/dockly/internal/store"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// config
	cfg, err := config.New()
	exitOnError("config failed", err, logger.New("", logger.NewCloudRunHandler))

	// bootstrap
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// helpers
	validate := services.NewValidator()
	m := metrics.New()

	// stores
	ustore := store.NewUserStore(bs.Firestore)
	mstore := store.NewMarkerStore(bs.Firestore)
	istore := store.NewImageStore(bs.Bucket)

	// services
	userv := services.NewUserService(ustore, cache.New(bs.Redis), cfg.ProfileCacheTTL, validate)
	mserv := services.NewMarkerService(mstore, validate, userv, m)
	upserv := services.NewUploadService(istore, m)
	vserv := services.NewVerificationService(bs.Firebase, nil, cfg.VerifyContinueURL, m)
	if bs.Sendgrid != nil {
		vserv.Mailer = sendgridclient.NewAdapter(bs.Log, bs.Sendgrid, cfg.MailFrom)
	}

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.MarkerSvc = mserv
	deps.UserSvc = userv
	deps.UploadSvc = upserv
	deps.VerificationSvc = vserv

	// router
	r := router.NewRouter(deps, router.Options{
		ProjectID:      cfg.ProjectID,
		AllowedOrigins: cfg.AllowedOrigins,
		Auth:           middleware.NewMiddleware(bs.Firebase, rh),
		Metrics:        m,
	})

	err = serve(bs.Log, ":"+cfg.Port, r)
	exitOnError("server failed", err, bs.Log)
}

// serve runs the HTTP server until SIGINT or SIGTERM, then drains it.
func serve(log *slog.Logger, addr string, h http.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
