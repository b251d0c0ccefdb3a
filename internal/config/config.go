// Package config provides configuration loading for rfqd.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_HTTP_PORT, ORACLE_API_KEY, ...)
//  2. YAML config file
//  3. Hardcoded defaults
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rfqworks/rfqd/internal/logging"
)

// Config holds the complete rfqd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     logging.Config    `koanf:"logging"`
	Oracle      OracleConfig      `koanf:"oracle"`
	Validation  ValidationConfig  `koanf:"validation"`
	Corrections CorrectionsConfig `koanf:"corrections"`
	Audit       AuditConfig       `koanf:"audit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	HTTPPort        int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	MaxUploadMB     int      `koanf:"max_upload_mb"`
}

// OracleConfig holds the AI extraction service configuration.
type OracleConfig struct {
	BaseURL       string   `koanf:"base_url"`
	APIKey        Secret   `koanf:"api_key"`
	Model         string   `koanf:"model"`
	VerifierModel string   `koanf:"verifier_model"`
	Timeout       Duration `koanf:"timeout"`
	VerifyTimeout Duration `koanf:"verify_timeout"`
	MaxRetries    int      `koanf:"max_retries"`
}

// ValidationConfig holds the rule-validator thresholds.
//
// Items scoring at or above AcceptThreshold are accepted as-is. Items in
// [VerifyFloor, AcceptThreshold) are escalated to the verifier. Items below
// VerifyFloor pass through unverified for manual review.
type ValidationConfig struct {
	AcceptThreshold float64 `koanf:"accept_threshold"`
	VerifyFloor     float64 `koanf:"verify_floor"`
	MaxConcurrent   int     `koanf:"max_concurrent"`
}

// CorrectionsConfig holds the learned-correction store configuration.
type CorrectionsConfig struct {
	DBPath   string   `koanf:"db_path"`
	MaxHints int      `koanf:"max_hints"`
	Keywords []string `koanf:"keywords"`
}

// AuditConfig holds the audit trail configuration.
type AuditConfig struct {
	Path    string `koanf:"path"`
	Enabled bool   `koanf:"enabled"`
}

// defaultKeywords identify supplier/format layouts for correction retrieval.
var defaultKeywords = []string{
	"würth", "nosta", "schrauben", "liefertermin", "bestellnummer", "auftrag",
}

// applyDefaults fills zero values with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = map[string]string{"service": "rfqd"}
	}

	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "mistral-small-latest"
	}
	if cfg.Oracle.VerifierModel == "" {
		cfg.Oracle.VerifierModel = cfg.Oracle.Model
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = Duration(120 * time.Second)
	}
	if cfg.Oracle.VerifyTimeout == 0 {
		cfg.Oracle.VerifyTimeout = Duration(30 * time.Second)
	}
	if cfg.Oracle.MaxRetries == 0 {
		cfg.Oracle.MaxRetries = 1
	}

	if cfg.Validation.AcceptThreshold == 0 {
		cfg.Validation.AcceptThreshold = 0.70
	}
	if cfg.Validation.MaxConcurrent == 0 {
		cfg.Validation.MaxConcurrent = 4
	}

	if cfg.Corrections.DBPath == "" {
		cfg.Corrections.DBPath = "data/corrections.db"
	}
	if cfg.Corrections.MaxHints == 0 {
		cfg.Corrections.MaxHints = 3
	}
	if cfg.Corrections.Keywords == nil {
		cfg.Corrections.Keywords = defaultKeywords
	}

	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "logs/audit.log"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.HTTPPort)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Oracle.BaseURL == "" {
		return errors.New("oracle base URL is required")
	}
	if c.Oracle.Timeout <= 0 || c.Oracle.VerifyTimeout <= 0 {
		return errors.New("oracle timeouts must be positive")
	}
	if c.Validation.AcceptThreshold <= 0 || c.Validation.AcceptThreshold > 1 {
		return fmt.Errorf("accept threshold %.2f out of range (0,1]", c.Validation.AcceptThreshold)
	}
	if c.Validation.VerifyFloor < 0 || c.Validation.VerifyFloor >= c.Validation.AcceptThreshold {
		return fmt.Errorf("verify floor %.2f must be in [0, accept threshold)", c.Validation.VerifyFloor)
	}
	if c.Validation.MaxConcurrent < 1 {
		return errors.New("max concurrent verifications must be at least 1")
	}
	if c.Corrections.DBPath == "" {
		return errors.New("corrections db path is required")
	}
	return nil
}
