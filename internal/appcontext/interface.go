// Package appcontext provides the shared application context interface
// used by all commands. This eliminates interface duplication across
// command packages and provides a single source of truth for app dependencies.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/cmd/alerts"
)

// Interface defines the application context interface that commands need.
// The App struct from cmd/intuneup/app implements this interface,
// providing dependency injection for commands while maintaining testability.
type Interface interface {
	// Client returns the reconciliation client, creating it lazily if needed.
	Client() (intuneup.Client, error)

	// ClientWithOptions creates a new client with extra options on top of the
	// configured ones, e.g. a customer name given on the command line.
	ClientWithOptions(...intuneup.Option) (intuneup.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// Alerts returns the writer for status messages.
	Alerts() alerts.Writer

	// OutputFormat returns the configured output format (json, yaml, table, etc).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
