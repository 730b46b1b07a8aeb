// Package constants provides shared constants used throughout the intuneup codebase.
// This includes timeouts, cache lifetimes, limits, and remote endpoints that
// should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to Microsoft Graph
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout bounds graceful shutdown after a failed command
	ShutdownTimeout = 5 * time.Second
)

// Cache constants
const (
	// PolicyCacheTTL is how long a fetched policy collection stays fresh
	PolicyCacheTTL = 5 * time.Minute

	// DiscoveryCacheTTL is how long discovery values (latest releases, tenant name) stay fresh
	DiscoveryCacheTTL = 1 * time.Hour

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 10 * time.Minute
)

// Limit constants define various limits and capacities
const (
	// MaxConcurrentCategories bounds how many categories are reconciled at once
	MaxConcurrentCategories = 4

	// DefaultWriteRateLimit is the default number of write requests per second
	DefaultWriteRateLimit = 2

	// WriteBurstSize is the token bucket burst size for write rate limiting
	WriteBurstSize = 4
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Microsoft Graph endpoints
const (
	// GraphBetaURL is the base URL for the Graph beta API, which hosts the update policies
	GraphBetaURL = "https://graph.microsoft.com/beta"

	// GraphV1URL is the base URL for the stable Graph API
	GraphV1URL = "https://graph.microsoft.com/v1.0"

	// GraphServiceName labels errors and logs produced by the Graph client
	GraphServiceName = "graph"
)

// Environment variable names
const (
	// EnvAccessToken holds a pre-acquired Graph bearer token
	EnvAccessToken = "GRAPH_ACCESS_TOKEN"

	// EnvCustomerName holds the customer fragment used in generated display names
	EnvCustomerName = "INTUNEUP_CUSTOMER_NAME"
)
