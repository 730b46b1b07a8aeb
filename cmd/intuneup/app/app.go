// Package app provides the application context and dependency management
// for the intuneup CLI. It centralizes configuration, logging and the
// reconciliation client, and manages their lifecycle.
package app

import (
	"context"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/appcontext"
	"github.com/realgarit/intuneup/internal/cmd/alerts"
	"github.com/realgarit/intuneup/pkg/errors"
)

// App represents the intuneup application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client intuneup.Client
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("app", "loading configuration", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Alerts returns a writer for status messages on stderr.
func (a *App) Alerts() alerts.Writer {
	return alerts.NewFormatWriter(os.Stderr, a.config.Format, !a.config.NoColor && !color.NoColor)
}

// Client returns the reconciliation client, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Client() (intuneup.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	c, err := intuneup.New(a.clientOptions()...)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// ClientWithOptions returns a new client with opts applied after the
// configured options.
func (a *App) ClientWithOptions(opts ...intuneup.Option) (intuneup.Client, error) {
	return intuneup.New(append(a.clientOptions(), opts...)...)
}

// Shutdown performs graceful shutdown of the application.
// Writes already issued run to completion on their own; nothing is left to stop.
func (a *App) Shutdown(_ context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return nil
}

// clientOptions constructs client options from the app configuration.
func (a *App) clientOptions() []intuneup.Option {
	opts := []intuneup.Option{
		intuneup.WithAccessToken(a.config.AccessToken),
		intuneup.WithLogger(a.logger),
		intuneup.WithCustomerName(a.config.CustomerName),
		intuneup.WithFeatureUpdateVersion(a.config.FeatureUpdateVersion),
		intuneup.WithQualityUpdateRelease(a.config.QualityUpdateRelease),
	}
	if a.config.GraphBaseURL != "" {
		opts = append(opts, intuneup.WithGraphBaseURL(a.config.GraphBaseURL))
	}
	if a.config.GraphV1BaseURL != "" {
		opts = append(opts, intuneup.WithGraphV1BaseURL(a.config.GraphV1BaseURL))
	}
	if a.config.HTTPTimeout > 0 {
		opts = append(opts, intuneup.WithHTTPTimeout(a.config.HTTPTimeout))
	}
	if a.config.WriteRateLimit >= 0 {
		opts = append(opts, intuneup.WithWriteRateLimit(a.config.WriteRateLimit, burstFor(a.config.WriteRateLimit)))
	}
	return opts
}

// burstFor derives the write burst from the rate, at least one request.
func burstFor(rate float64) int {
	if rate <= 0 {
		return 0
	}
	if b := int(rate * 2); b > 1 {
		return b
	}
	return 1
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client instance (useful for testing).
func WithClient(c intuneup.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
