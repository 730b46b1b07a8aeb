package intuneup

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/realgarit/intuneup/pkg/differ"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/logging"
	"github.com/realgarit/intuneup/pkg/policy"
)

// Report is the outcome of reconciling every category.
type Report struct {
	Tenant               string           `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	GeneratedAt          time.Time        `json:"generatedAt" yaml:"generatedAt"`
	CustomerName         string           `json:"customerName" yaml:"customerName"`
	FeatureUpdateVersion string           `json:"featureUpdateVersion" yaml:"featureUpdateVersion"`
	QualityUpdateRelease string           `json:"qualityUpdateRelease" yaml:"qualityUpdateRelease"`
	Categories           []CategoryReport `json:"categories" yaml:"categories"`
	Summary              differ.Summary   `json:"summary" yaml:"summary"`
}

// CategoryReport holds the results of one category. Err is set when the
// category could not be fetched; the other categories are unaffected.
type CategoryReport struct {
	Category policy.Category `json:"category" yaml:"category"`
	Results  []policy.Result `json:"results" yaml:"results"`
	Summary  differ.Summary  `json:"summary" yaml:"summary"`
	Err      error           `json:"-" yaml:"-"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Results returns the results of every category in category order.
func (r *Report) Results() []policy.Result {
	var out []policy.Result
	for _, cr := range r.Categories {
		out = append(out, cr.Results...)
	}
	return out
}

// Err joins the errors of the failed categories, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, cr := range r.Categories {
		if cr.Err != nil {
			errs = append(errs, cr.Err)
		}
	}
	return errors.Join(errs...)
}

// Golden builds the golden registry for a run. Discovery failures are
// logged and the registry keeps its static fallbacks.
func (c *client) Golden(ctx context.Context) *golden.Registry {
	featureVersion := c.config.featureUpdateVersion
	release := c.config.qualityUpdateRelease

	if d := c.config.discovery; d != nil {
		if featureVersion == "" {
			v, err := d.LatestFeatureUpdateVersion(ctx)
			if err != nil {
				c.logger.Warn().Err(err).Msg("Using fallback feature update version")
			}
			featureVersion = v
		}
		if release == "" {
			v, err := d.LatestQualityUpdateRelease(ctx)
			if err != nil {
				c.logger.Warn().Err(err).Msg("Using fallback quality update release")
			}
			release = v
		}
	}

	return golden.New(
		golden.WithCustomerName(c.config.customerName),
		golden.WithFeatureUpdateVersion(featureVersion),
		golden.WithQualityUpdateRelease(release),
	)
}

// Reconcile compares every policy of category with its golden definition.
func (c *client) Reconcile(ctx context.Context, category policy.Category) ([]policy.Result, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("reconcile %q: %w", category, errors.ErrUnknownCategory)
	}
	return c.reconcile(ctx, category, c.Golden(ctx))
}

func (c *client) reconcile(ctx context.Context, category policy.Category, registry *golden.Registry) ([]policy.Result, error) {
	ctx = logging.WithCategory(logging.WithDefaultLogger(ctx, c.logger), category.String())
	policies, err := c.api.Fetch(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("fetching %s policies: %w", category.Label(), err)
	}

	results := c.config.differ.CompareAll(policies, registry.Definition(category))
	summary := differ.Summarize(results)
	logging.FromContext(ctx).Debug().
		Int("policies", summary.Policies).
		Int("non_compliant", summary.NonCompliant).
		Msg("Reconciled category")

	c.triggerResults(results)
	return results, nil
}

// ReconcileAll reconciles every category against one registry. A failed
// category is recorded in its CategoryReport and does not stop the others.
func (c *client) ReconcileAll(ctx context.Context) *Report {
	registry := c.Golden(ctx)
	report := &Report{
		Tenant:               c.tenant(ctx),
		GeneratedAt:          time.Now().UTC(),
		CustomerName:         registry.CustomerName(),
		FeatureUpdateVersion: registry.FeatureUpdateVersion(),
		QualityUpdateRelease: registry.QualityUpdateRelease(),
	}

	categories := policy.Categories()
	report.Categories = make([]CategoryReport, len(categories))

	var g errgroup.Group
	g.SetLimit(c.config.concurrency)
	for i, category := range categories {
		g.Go(func() error {
			cr := CategoryReport{Category: category}
			results, err := c.reconcile(ctx, category, registry)
			if err != nil {
				c.logger.Error().Err(err).Str("category", category.String()).Msg("Reconcile failed")
				cr.Err = &errors.CategoryError{Category: category.String(), Err: err}
				cr.Error = cr.Err.Error()
			}
			cr.Results = results
			cr.Summary = differ.Summarize(results)
			report.Categories[i] = cr
			return nil
		})
	}
	_ = g.Wait()

	for _, cr := range report.Categories {
		report.Summary = report.Summary.Add(cr.Summary)
	}
	return report
}

// tenant returns the organization name, or "" when it cannot be read.
func (c *client) tenant(ctx context.Context) string {
	if c.config.discovery == nil {
		return ""
	}
	name, err := c.config.discovery.OrganizationName(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Tenant name unavailable")
		return ""
	}
	return name
}
