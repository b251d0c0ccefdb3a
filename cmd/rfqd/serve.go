package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rfqworks/rfqd/internal/audit"
	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/corrections"
	"github.com/rfqworks/rfqd/internal/ingest"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/masking"
	"github.com/rfqworks/rfqd/internal/oracle"
	"github.com/rfqworks/rfqd/internal/pipeline"
	"github.com/rfqworks/rfqd/internal/server"
	"github.com/rfqworks/rfqd/internal/validate"
	"github.com/rfqworks/rfqd/internal/verify"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RFQ extraction HTTP server",
	Long: `Start the HTTP server.

Without an oracle API key the server still starts: health endpoints and the
correction store work, while /process and /re-extract report the extraction
service as unavailable.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting rfqd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.HTTPPort),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	auditLog, err := audit.New(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("init audit log: %w", err)
	}
	defer auditLog.Close()

	store, err := corrections.Open(cfg.Corrections.DBPath, cfg.Corrections.Keywords)
	if err != nil {
		return fmt.Errorf("open correction store: %w", err)
	}
	defer store.Close()

	var (
		o         oracle.Oracle
		ocrClient ingest.OCRClient
		ready     = func() bool { return false }
	)
	if cfg.Oracle.APIKey.IsSet() {
		mc, err := oracle.NewMistralClient(cfg.Oracle, logger)
		if err != nil {
			return fmt.Errorf("init oracle client: %w", err)
		}
		mocr, err := ingest.NewMistralOCR(cfg.Oracle, logger)
		if err != nil {
			return fmt.Errorf("init OCR client: %w", err)
		}
		o = mc
		ocrClient = mocr
		ready = mc.Available
	} else {
		logger.Warn("no oracle API key configured, extraction and OCR are unavailable")
		o = oracle.Unconfigured{}
		ocrClient = unavailableOCR{}
	}

	router := ingest.NewRouter(ocrClient, ingest.NewPDFExtractor(), logger)
	masker := masking.NewMasker(logger)
	validator := validate.New(cfg.Validation, logger)
	verifier := verify.New(o, cfg.Validation, logger)

	pipe := pipeline.New(router, masker, store, o, validator, verifier, auditLog, cfg.Corrections, logger)

	srv, err := server.New(pipe, store, ready, cfg.Server, logger)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh

	logger.Info("server shutdown complete")
	return nil
}

// unavailableOCR stands in when no API key is configured so the router can
// still route text uploads.
type unavailableOCR struct{}

func (unavailableOCR) Recognize(ctx context.Context, fileName string, data []byte) (string, error) {
	return "", fmt.Errorf("OCR unavailable: no API key configured")
}
