package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/cmd/alerts"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	ClientFunc            func() (intuneup.Client, error)
	ClientWithOptionsFunc func(...intuneup.Option) (intuneup.Client, error)
	LoggerFunc            func() *zerolog.Logger
	AlertsWriter          alerts.Writer
	Format                string
	VersionFunc           func() string
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client() (intuneup.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc()
	}
	return nil, nil
}

// ClientWithOptions returns a client using the mock function, falling back to Client.
func (m *Mock) ClientWithOptions(opts ...intuneup.Option) (intuneup.Client, error) {
	if m.ClientWithOptionsFunc != nil {
		return m.ClientWithOptionsFunc(opts...)
	}
	return m.Client()
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// Alerts returns the configured writer or one that discards everything.
func (m *Mock) Alerts() alerts.Writer {
	if m.AlertsWriter != nil {
		return m.AlertsWriter
	}
	return alerts.DiscardWriter
}

// OutputFormat returns the configured format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string {
	return "unknown"
}

// Date returns "unknown".
func (m *Mock) Date() string {
	return "unknown"
}

// BuiltBy returns "unknown".
func (m *Mock) BuiltBy() string {
	return "unknown"
}
