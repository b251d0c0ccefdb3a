// Package server provides the HTTP API for rfqd.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/corrections"
	"github.com/rfqworks/rfqd/internal/ingest"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/oracle"
	"github.com/rfqworks/rfqd/internal/pipeline"
)

// Server exposes the processing pipeline over HTTP.
type Server struct {
	echo        *echo.Echo
	pipeline    *pipeline.Pipeline
	store       corrections.Store
	oracleReady func() bool
	logger      *logging.Logger
	cfg         config.ServerConfig
}

// New creates the HTTP server. oracleReady reports whether the extraction
// service has usable credentials; it feeds the /healthz component check.
func New(p *pipeline.Pipeline, store corrections.Store, oracleReady func() bool, cfg config.ServerConfig, logger *logging.Logger) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if oracleReady == nil {
		oracleReady = func() bool { return false }
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:        e,
		pipeline:    p,
		store:       store,
		oracleReady: oracleReady,
		logger:      logger.Named("http"),
		cfg:         cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/healthz", s.handleHealthz)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/process", s.handleProcess)
	s.echo.POST("/re-extract", s.handleReExtract)
	s.echo.POST("/correct", s.handleCorrect)
}

// ErrorResponse is the uniform failure payload. Raw faults never reach the
// client.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ResultResponse wraps a pipeline result for process and re-extract.
type ResultResponse struct {
	Status string `json:"status"`
	*pipeline.Result
}

// AckResponse acknowledges a correct call.
type AckResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "rfqd"})
}

// componentCheck is one entry in the /healthz report.
type componentCheck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthzResponse reports per-component readiness.
type HealthzResponse struct {
	Status string                    `json:"status"`
	Checks map[string]componentCheck `json:"checks"`
}

func (s *Server) handleHealthz(c echo.Context) error {
	resp := HealthzResponse{Status: "healthy", Checks: map[string]componentCheck{}}

	if s.oracleReady() {
		resp.Checks["oracle"] = componentCheck{Status: "ok", Message: "extraction service configured"}
	} else {
		resp.Checks["oracle"] = componentCheck{Status: "error", Message: "API key missing"}
		resp.Status = "degraded"
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if _, err := s.store.All(ctx); err != nil {
			resp.Checks["correction_store"] = componentCheck{Status: "error", Message: err.Error()}
			resp.Status = "degraded"
		} else {
			resp.Checks["correction_store"] = componentCheck{Status: "ok", Message: "store reachable"}
		}
	} else {
		resp.Checks["correction_store"] = componentCheck{Status: "error", Message: "store not configured"}
		resp.Status = "degraded"
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleProcess(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return s.fail(c, http.StatusBadRequest, "multipart field 'file' is required")
	}

	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	if fileHeader.Size > maxBytes {
		return s.fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d MB limit", s.cfg.MaxUploadMB))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return s.fail(c, http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return s.fail(c, http.StatusBadRequest, "cannot read uploaded file")
	}
	if int64(len(data)) > maxBytes {
		return s.fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d MB limit", s.cfg.MaxUploadMB))
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	result, err := s.pipeline.Process(c.Request().Context(), fileHeader.Filename, mimeType, data)
	if err != nil {
		return s.failFromPipeline(c, err)
	}
	return c.JSON(http.StatusOK, ResultResponse{Status: "success", Result: result})
}

// ReExtractRequest is the body for POST /re-extract.
type ReExtractRequest struct {
	RawText      string `json:"raw_text"`
	NativeText   string `json:"native_text"`
	UserFeedback string `json:"user_feedback"`
}

func (s *Server) handleReExtract(c echo.Context) error {
	var req ReExtractRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, http.StatusBadRequest, "invalid request body")
	}

	result, err := s.pipeline.ReExtract(c.Request().Context(), req.RawText, req.NativeText, req.UserFeedback)
	if err != nil {
		return s.failFromPipeline(c, err)
	}
	return c.JSON(http.StatusOK, ResultResponse{Status: "success", Result: result})
}

// CorrectRequest is the body for POST /correct.
type CorrectRequest struct {
	RawTextSnippet  string          `json:"raw_text_snippet"`
	CorrectJSON     json.RawMessage `json:"correct_json"`
	FullTextContext string          `json:"full_text_context"`
}

func (s *Server) handleCorrect(c echo.Context) error {
	var req CorrectRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, http.StatusBadRequest, "invalid request body")
	}

	if err := s.pipeline.Correct(c.Request().Context(), req.RawTextSnippet, req.CorrectJSON, req.FullTextContext); err != nil {
		return s.failFromPipeline(c, err)
	}
	return c.JSON(http.StatusOK, AckResponse{Status: "success"})
}

// failFromPipeline maps pipeline errors onto HTTP statuses: bad input and
// unsupported uploads are client errors, oracle trouble is an upstream
// failure, everything else is internal.
func (s *Server) failFromPipeline(c echo.Context, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput),
		errors.Is(err, ingest.ErrUnsupportedType):
		return s.fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, oracle.ErrUnavailable), oracle.IsMalformed(err):
		return s.fail(c, http.StatusBadGateway, err.Error())
	}
	s.logger.Error("request failed", zap.Error(err))
	return s.fail(c, http.StatusInternalServerError, "internal server error")
}

func (s *Server) fail(c echo.Context, code int, message string) error {
	return c.JSON(code, ErrorResponse{Status: "error", Message: message})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.HTTPPort)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
