// Package remediate applies synthesized patches to existing policies and
// provisions new policies from the golden standard.
//
// Every write is a single remote call. A write is issued on a context that
// ignores caller cancellation, so a caller that gives up does not leave a
// half-known remote state behind. Cache invalidation and the optional
// refetch run only after the write has returned.
package remediate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/realgarit/intuneup/pkg/differ"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/logging"
	"github.com/realgarit/intuneup/pkg/patch"
	"github.com/realgarit/intuneup/pkg/policy"
)

// Operation names.
const (
	OperationPatch  = "patch"
	OperationCreate = "create"
)

// Client is the write side of the remote configuration API.
type Client interface {
	Create(ctx context.Context, category policy.Category, payload policy.RawPolicy) (policy.RawPolicy, error)
	Patch(ctx context.Context, category policy.Category, id string, payload policy.Patch) error
}

// Invalidator drops cached state of a category after a write.
type Invalidator interface {
	Invalidate(category policy.Category)
}

// Refresher refetches a category after a write.
type Refresher interface {
	Fetch(ctx context.Context, category policy.Category) ([]policy.RawPolicy, error)
}

// Outcome describes what a remediation or provisioning did.
type Outcome struct {
	Operation string          `json:"operation" yaml:"operation"`
	Category  policy.Category `json:"category" yaml:"category"`
	PolicyID  string          `json:"policyId,omitempty" yaml:"policyId,omitempty"`
	// Applied is false when nothing needed writing.
	Applied bool `json:"applied" yaml:"applied"`
	// Patch is the payload sent, discriminator included.
	Patch policy.Patch `json:"patch,omitempty" yaml:"patch,omitempty"`
	// Created is the persisted policy returned by a create.
	Created policy.RawPolicy `json:"created,omitempty" yaml:"created,omitempty"`
	// ManualOnly lists deviations no patch can correct.
	ManualOnly []policy.FieldResult `json:"manualOnly,omitempty" yaml:"manualOnly,omitempty"`
	// Refreshed is the comparison of the refetched policy, when a Refresher is set.
	Refreshed *policy.Result `json:"refreshed,omitempty" yaml:"refreshed,omitempty"`
	// RefreshErr records a failed refetch. The write itself succeeded.
	RefreshErr error `json:"-" yaml:"-"`
}

// Orchestrator sequences writes against a Client.
type Orchestrator struct {
	client      Client
	registry    *golden.Registry
	invalidator Invalidator
	refresher   Refresher
	differ      differ.Differ
	logger      *zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInvalidator sets the cache to invalidate after each write.
func WithInvalidator(inv Invalidator) Option {
	return func(o *Orchestrator) {
		o.invalidator = inv
	}
}

// WithRefresher enables refetching the written policy after a patch.
func WithRefresher(r Refresher) Option {
	return func(o *Orchestrator) {
		o.refresher = r
	}
}

// WithDiffer sets the differ used to re-compare refreshed policies.
func WithDiffer(d differ.Differ) Option {
	return func(o *Orchestrator) {
		if d != nil {
			o.differ = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Orchestrator writing through client with golden values
// from registry.
func New(client Client, registry *golden.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		registry: registry,
		differ:   differ.New(),
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan returns the payload Remediate would send for result, or an empty
// patch when nothing is patchable.
func (o *Orchestrator) Plan(result policy.Result) policy.Patch {
	p := patch.New(o.registry.Definition(result.Category)).Synthesize(result)
	if p.Empty() {
		return p
	}
	if result.Category.RequiresWriteDiscriminator() {
		p[policy.FieldODataType] = result.Category.ODataType()
	}
	return p
}

// Remediate patches the policy of result with its patchable corrections.
// Nothing is written when the patch is empty.
func (o *Orchestrator) Remediate(ctx context.Context, result policy.Result) (*Outcome, error) {
	ctx = logging.WithDefaultLogger(ctx, o.logger)
	ctx = logging.WithCategory(ctx, result.Category.String())
	ctx = logging.WithPolicy(ctx, result.PolicyID, result.PolicyName)
	ctx = logging.WithOperation(ctx, OperationPatch)
	logger := logging.FromContext(ctx)

	outcome := &Outcome{
		Operation:  OperationPatch,
		Category:   result.Category,
		PolicyID:   result.PolicyID,
		ManualOnly: patch.Classify(result).ManualOnly,
	}

	payload := o.Plan(result)
	if payload.Empty() {
		logger.Debug().Int("manual_only", len(outcome.ManualOnly)).Msg("Nothing to patch")
		return outcome, nil
	}
	if result.PolicyID == "" {
		return nil, &errors.RemediationError{
			Operation: OperationPatch,
			Category:  result.Category.String(),
			Err:       errors.NewValidationError("policyId", "", "result has no policy identifier"),
		}
	}
	outcome.Patch = payload

	logger.Info().Strs("fields", payload.Keys()).Msg("Patching policy")
	if err := o.client.Patch(context.WithoutCancel(ctx), result.Category, result.PolicyID, payload); err != nil {
		return nil, &errors.RemediationError{
			Operation: OperationPatch,
			Category:  result.Category.String(),
			PolicyID:  result.PolicyID,
			Err:       err,
		}
	}
	outcome.Applied = true

	o.invalidate(result.Category)
	o.refresh(ctx, outcome)
	return outcome, nil
}

// Provision creates a new policy of category from the golden standard,
// named after name.
func (o *Orchestrator) Provision(ctx context.Context, category policy.Category, name string) (*Outcome, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("provision %q: %w", category, errors.ErrUnknownCategory)
	}

	ctx = logging.WithDefaultLogger(ctx, o.logger)
	ctx = logging.WithCategory(ctx, category.String())
	ctx = logging.WithOperation(ctx, OperationCreate)

	payload := o.registry.ProvisionPayload(category, name)
	logging.FromContext(ctx).Info().
		Str("display_name", payload.DisplayName()).
		Msg("Provisioning policy")

	created, err := o.client.Create(context.WithoutCancel(ctx), category, payload)
	if err != nil {
		return nil, &errors.RemediationError{
			Operation: OperationCreate,
			Category:  category.String(),
			Err:       err,
		}
	}

	o.invalidate(category)
	return &Outcome{
		Operation: OperationCreate,
		Category:  category,
		PolicyID:  created.ID(),
		Applied:   true,
		Created:   created,
	}, nil
}

func (o *Orchestrator) invalidate(category policy.Category) {
	if o.invalidator != nil {
		o.invalidator.Invalidate(category)
	}
}

// refresh refetches the patched policy and re-compares it. The caller may
// have gone away by now, in which case the refetch is skipped.
func (o *Orchestrator) refresh(ctx context.Context, outcome *Outcome) {
	if o.refresher == nil || ctx.Err() != nil {
		return
	}

	policies, err := o.refresher.Fetch(ctx, outcome.Category)
	if err != nil {
		outcome.RefreshErr = err
		logging.FromContext(ctx).Warn().Err(err).Msg("Refetch after patch failed")
		return
	}
	for _, p := range policies {
		if p.ID() == outcome.PolicyID {
			result := o.differ.Compare(p, o.registry.Definition(outcome.Category))
			outcome.Refreshed = &result
			return
		}
	}
	outcome.RefreshErr = errors.NewNotFoundError(outcome.Category.Label(), outcome.PolicyID)
}
