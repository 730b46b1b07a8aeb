package intuneup

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/realgarit/intuneup/pkg/constants"
	"github.com/realgarit/intuneup/pkg/differ"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/remediate"
)

// Option is a function that configures a Client instance
type Option func(*config) error

// config holds the settings a Client is built from.
type config struct {
	api         PolicyAPI
	discovery   Discovery
	invalidator remediate.Invalidator

	accessToken    string
	graphBaseURL   string
	graphV1BaseURL string
	httpTimeout    time.Duration
	writeRate      float64
	writeBurst     int

	customerName         string
	featureUpdateVersion string
	qualityUpdateRelease string

	logger            *zerolog.Logger
	differ            differ.Differ
	concurrency       int
	refreshAfterWrite bool
}

func defaultConfig() *config {
	return &config{
		graphBaseURL:      constants.GraphBetaURL,
		graphV1BaseURL:    constants.GraphV1URL,
		httpTimeout:       constants.DefaultHTTPTimeout,
		writeRate:         constants.DefaultWriteRateLimit,
		writeBurst:        constants.WriteBurstSize,
		concurrency:       constants.MaxConcurrentCategories,
		refreshAfterWrite: true,
	}
}

// WithPolicyAPI sets the remote policy API. When set, no Graph client is
// built and no access token is needed.
func WithPolicyAPI(api PolicyAPI) Option {
	return func(c *config) error {
		if api == nil {
			return errors.NewValidationError("api", nil, "policy API cannot be nil")
		}
		c.api = api
		return nil
	}
}

// WithDiscovery sets the source of the latest release values and the tenant name.
func WithDiscovery(d Discovery) Option {
	return func(c *config) error {
		c.discovery = d
		return nil
	}
}

// WithInvalidator sets the cache dropped after every write.
func WithInvalidator(inv remediate.Invalidator) Option {
	return func(c *config) error {
		c.invalidator = inv
		return nil
	}
}

// WithAccessToken configures the bearer token for the built-in Graph client.
func WithAccessToken(token string) Option {
	return func(c *config) error {
		c.accessToken = token
		return nil
	}
}

// WithGraphBaseURL overrides the Graph beta endpoint.
func WithGraphBaseURL(url string) Option {
	return func(c *config) error {
		if url == "" {
			return errors.NewValidationError("graph_base_url", url, "cannot be empty")
		}
		c.graphBaseURL = url
		return nil
	}
}

// WithGraphV1BaseURL overrides the Graph v1.0 endpoint used for the tenant name.
func WithGraphV1BaseURL(url string) Option {
	return func(c *config) error {
		if url == "" {
			return errors.NewValidationError("graph_v1_base_url", url, "cannot be empty")
		}
		c.graphV1BaseURL = url
		return nil
	}
}

// WithHTTPTimeout sets the per-request timeout of the built-in Graph client.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("http_timeout", d, "must be positive")
		}
		c.httpTimeout = d
		return nil
	}
}

// WithWriteRateLimit caps PATCH and POST calls per second. Zero disables the limit.
func WithWriteRateLimit(perSecond float64, burst int) Option {
	return func(c *config) error {
		if perSecond < 0 || burst < 0 {
			return errors.NewValidationError("write_rate_limit", perSecond, "cannot be negative")
		}
		c.writeRate = perSecond
		c.writeBurst = burst
		return nil
	}
}

// WithCustomerName sets the customer fragment of golden display names.
func WithCustomerName(name string) Option {
	return func(c *config) error {
		c.customerName = name
		return nil
	}
}

// WithFeatureUpdateVersion pins the golden feature update version instead of
// discovering the latest one.
func WithFeatureUpdateVersion(version string) Option {
	return func(c *config) error {
		c.featureUpdateVersion = version
		return nil
	}
}

// WithQualityUpdateRelease pins the golden expedite release instead of
// discovering the latest one.
func WithQualityUpdateRelease(release string) Option {
	return func(c *config) error {
		c.qualityUpdateRelease = release
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithDiffer replaces the field differ.
func WithDiffer(d differ.Differ) Option {
	return func(c *config) error {
		c.differ = d
		return nil
	}
}

// WithConcurrency bounds how many categories or policies are processed at once.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.NewValidationError("concurrency", n, "must be at least 1")
		}
		c.concurrency = n
		return nil
	}
}

// WithRefreshAfterWrite configures whether a patched policy is refetched and
// compared again.
func WithRefreshAfterWrite(enabled bool) Option {
	return func(c *config) error {
		c.refreshAfterWrite = enabled
		return nil
	}
}
