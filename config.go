package tably

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
)

const defaultBaseURL = "http://localhost:8000"

// Config carries the session's wiring. The json-tagged fields can come
// from a config file (see LoadConfig); the rest is injected by the
// embedding application.
type Config struct {
	BaseURL   string `json:"base_url"`
	Token     string `json:"token,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	Logger     *slog.Logger `json:"-"`
	Transport  Transport    `json:"-"`
	HTTPClient *http.Client `json:"-"`
	// Notice surfaces user-visible messages, e.g. a rolled-back drag.
	Notice func(string) `json:"-"`
}

func (cfg *Config) setDefaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	if cfg.Logger == nil {
		cfg.Logger = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	if cfg.Transport == nil {
		cfg.Transport = NewWebsocketTransport(cfg.BaseURL, cfg.Token)
	}

	if cfg.Notice == nil {
		logger := cfg.Logger
		cfg.Notice = func(msg string) {
			logger.Warn(msg)
		}
	}
}

// Service builds the HTTP record service for this config.
func (cfg Config) Service() *HTTPService {
	cfg.setDefaults()
	return NewHTTPService(cfg.BaseURL, cfg.Token, cfg.HTTPClient, cfg.Logger)
}

var ErrConfigInvalid = errors.New("config file invalid")

// LoadConfig reads a config file in hujson (json with comments and
// trailing commas). A missing file yields the zero config, not an
// error — defaults apply.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(ErrConfigInvalid, "could not read %s: %v", path, err)
	}

	std, err := hujson.Standardize(b)
	if err != nil {
		return cfg, errors.Wrapf(ErrConfigInvalid, "could not parse %s: %v", path, err)
	}

	if err := json.Unmarshal(std, &cfg); err != nil {
		return cfg, errors.Wrapf(ErrConfigInvalid, "could not decode %s: %v", path, err)
	}

	return cfg, nil
}

// NewLogger builds a slog logger. Level: debug|info|warn|error.
// Format: text|json.
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
