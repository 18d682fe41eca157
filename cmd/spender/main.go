package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spender/internal/auth/google"
	"spender/internal/backend"
	"spender/internal/cli"
	"spender/internal/config"
	apphttp "spender/internal/http"
	"spender/internal/log"
	"spender/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.With(log.FieldComponent, log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err.Error())
		}
	}()

	verifier, err := google.NewVerifier(ctx, google.Options{
		ClientID: cfg.GoogleClientID,
		Endpoint: cfg.GoogleTokeninfoEndpoint,
	})
	if err != nil {
		return err
	}

	// a nil *amqp.Client must not become a non-nil interface
	var events services.EventPublisher
	if result.Events != nil {
		events = result.Events
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		Identity:           services.NewIdentityService(result.Backend, verifier),
		Transactions:       services.NewTransactionService(result.Backend, events),
		Dashboard:          services.NewDashboardService(result.Backend),
		Store:              result.Backend,
		Logger:             logger,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spender server",
			"addr", srv.Addr,
			"backend", backendCfg.Type.String(),
			"events", events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
