// Package intuneup reconciles Windows Update policies stored in Microsoft
// Intune against golden standards and remediates the deviations a patch
// can correct.
//
// A Client fetches each policy category, compares every policy field by
// field with the golden definition of that category and reports the
// deviations. Remediate writes the patchable subset back; Provision creates
// a new policy from the golden definition.
package intuneup

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/realgarit/intuneup/internal/cache"
	"github.com/realgarit/intuneup/internal/graph"
	"github.com/realgarit/intuneup/internal/transport"
	"github.com/realgarit/intuneup/pkg/constants"
	"github.com/realgarit/intuneup/pkg/differ"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/logging"
	"github.com/realgarit/intuneup/pkg/policy"
	"github.com/realgarit/intuneup/pkg/remediate"
)

// PolicyAPI is the remote configuration API holding the policies.
type PolicyAPI interface {
	Fetch(ctx context.Context, category policy.Category) ([]policy.RawPolicy, error)
	Create(ctx context.Context, category policy.Category, payload policy.RawPolicy) (policy.RawPolicy, error)
	Patch(ctx context.Context, category policy.Category, id string, payload policy.Patch) error
}

// Discovery provides the dynamic inputs of the golden registry.
// Every method may fail; the registry then falls back to static values.
type Discovery interface {
	LatestFeatureUpdateVersion(ctx context.Context) (string, error)
	LatestQualityUpdateRelease(ctx context.Context) (string, error)
	OrganizationName(ctx context.Context) (string, error)
}

// Client reconciles and remediates policies
type Client interface {
	// Golden builds the golden registry for a run
	Golden(ctx context.Context) *golden.Registry

	// Reconcile compares every policy of category with its golden definition
	Reconcile(ctx context.Context, category policy.Category) ([]policy.Result, error)

	// ReconcileAll reconciles every category concurrently
	ReconcileAll(ctx context.Context) *Report

	// Plan returns the patch Remediate would send for result
	Plan(ctx context.Context, result policy.Result) policy.Patch

	// Remediate writes the patchable corrections of result
	Remediate(ctx context.Context, result policy.Result) (*remediate.Outcome, error)

	// RemediateAll remediates every non-compliant result
	RemediateAll(ctx context.Context, results []policy.Result) []RemediationReport

	// Provision creates a policy of category from its golden definition
	Provision(ctx context.Context, category policy.Category, name string) (*remediate.Outcome, error)

	// Invalidate drops every cached collection and discovery value
	Invalidate()

	// OnNonCompliant registers a callback for deviating policies
	OnNonCompliant(NonCompliantHook)

	// OnRemediated registers a callback for applied patches
	OnRemediated(RemediatedHook)

	// OnProvisioned registers a callback for created policies
	OnProvisioned(ProvisionedHook)
}

// client is the internal implementation of the Client interface
type client struct {
	config *config
	api    PolicyAPI
	logger *zerolog.Logger

	// in-flight remediations by policy ID
	mu       sync.Mutex
	inflight map[string]struct{}

	*hooks
}

// New creates a new Client with the given options. Without WithPolicyAPI
// a cached Graph client is built, which needs an access token.
func New(opts ...Option) (Client, error) {
	c := &client{
		config:   defaultConfig(),
		inflight: make(map[string]struct{}),
		hooks:    newHooks(),
	}

	if err := c.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	c.logger = c.config.logger
	if c.logger == nil {
		c.logger = logging.Default()
	}
	if c.config.differ == nil {
		c.config.differ = differ.New(differ.WithLogger(c.logger))
	}

	c.api = c.config.api
	if c.api == nil {
		cached, err := c.graphClient()
		if err != nil {
			return nil, err
		}
		c.api = cached
		if c.config.discovery == nil {
			c.config.discovery = cached
		}
		if c.config.invalidator == nil {
			c.config.invalidator = cached
		}
	}

	return c, nil
}

func (c *client) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c.config); err != nil {
			return err
		}
	}
	return nil
}

// graphClient builds the cached Graph stack: bearer transport, Graph
// collections and discovery feeds, and a TTL cache in front of both.
func (c *client) graphClient() (*cache.CachedClient, error) {
	token := strings.TrimSpace(c.config.accessToken)
	if token == "" {
		return nil, errors.NewConfigError("graph", "no access token configured", errors.ErrTokenRequired)
	}

	tc := transport.New(&transport.BearerAuth{}, transport.NewStaticToken(token),
		transport.WithTimeout(c.config.httpTimeout),
		transport.WithWriteRateLimit(c.config.writeRate, c.config.writeBurst),
		transport.WithService(constants.GraphServiceName),
		transport.WithLogger(c.logger),
	)
	gc := graph.New(tc,
		graph.WithBaseURL(c.config.graphBaseURL),
		graph.WithV1BaseURL(c.config.graphV1BaseURL),
		graph.WithLogger(c.logger),
	)
	return cache.NewClient(gc, gc, cache.WithLogger(c.logger)), nil
}

// Invalidate drops every cached collection and discovery value
func (c *client) Invalidate() {
	inv := c.config.invalidator
	if inv == nil {
		return
	}
	if all, ok := inv.(interface{ InvalidateAll() }); ok {
		all.InvalidateAll()
		return
	}
	for _, category := range policy.Categories() {
		inv.Invalidate(category)
	}
}

// orchestrator returns the write path bound to registry.
func (c *client) orchestrator(registry *golden.Registry) *remediate.Orchestrator {
	opts := []remediate.Option{
		remediate.WithDiffer(c.config.differ),
		remediate.WithLogger(c.logger),
	}
	if c.config.invalidator != nil {
		opts = append(opts, remediate.WithInvalidator(c.config.invalidator))
	}
	if c.config.refreshAfterWrite {
		opts = append(opts, remediate.WithRefresher(c.api))
	}
	return remediate.New(c.api, registry, opts...)
}
