package intuneup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/policy"
	"github.com/realgarit/intuneup/pkg/remediate"
)

// RemediationReport pairs a result with what remediating it did.
type RemediationReport struct {
	PolicyID   string             `json:"policyId" yaml:"policyId"`
	PolicyName string             `json:"policyName" yaml:"policyName"`
	Category   policy.Category    `json:"category" yaml:"category"`
	Outcome    *remediate.Outcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Err        error              `json:"-" yaml:"-"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Plan returns the patch Remediate would send for result.
func (c *client) Plan(ctx context.Context, result policy.Result) policy.Patch {
	return c.orchestrator(c.Golden(ctx)).Plan(result)
}

// Remediate writes the patchable corrections of result. A second call for a
// policy whose remediation is still running fails with ErrRemediationInFlight.
func (c *client) Remediate(ctx context.Context, result policy.Result) (*remediate.Outcome, error) {
	return c.remediate(ctx, c.orchestrator(c.Golden(ctx)), result)
}

func (c *client) remediate(ctx context.Context, orch *remediate.Orchestrator, result policy.Result) (*remediate.Outcome, error) {
	if id := result.PolicyID; id != "" {
		if !c.acquire(id) {
			return nil, fmt.Errorf("remediate %s: %w", id, errors.ErrRemediationInFlight)
		}
		defer c.release(id)
	}

	outcome, err := orch.Remediate(ctx, result)
	if err != nil {
		return nil, err
	}
	if outcome.Applied {
		c.triggerRemediated(*outcome)
	}
	return outcome, nil
}

// RemediateAll remediates every non-compliant result with one registry.
// Reports keep the order of results; compliant results are skipped.
func (c *client) RemediateAll(ctx context.Context, results []policy.Result) []RemediationReport {
	var pending []policy.Result
	for _, r := range results {
		if !r.IsFullyCompliant {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	orch := c.orchestrator(c.Golden(ctx))
	reports := make([]RemediationReport, len(pending))

	var g errgroup.Group
	g.SetLimit(c.config.concurrency)
	for i, r := range pending {
		g.Go(func() error {
			rep := RemediationReport{
				PolicyID:   r.PolicyID,
				PolicyName: r.PolicyName,
				Category:   r.Category,
			}
			rep.Outcome, rep.Err = c.remediate(ctx, orch, r)
			if rep.Err != nil {
				c.logger.Error().Err(rep.Err).Str("policy_id", r.PolicyID).Msg("Remediation failed")
				rep.Error = rep.Err.Error()
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// Provision creates a policy of category named after name.
func (c *client) Provision(ctx context.Context, category policy.Category, name string) (*remediate.Outcome, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("provision %q: %w", category, errors.ErrUnknownCategory)
	}
	outcome, err := c.orchestrator(c.Golden(ctx)).Provision(ctx, category, name)
	if err != nil {
		return nil, err
	}
	c.triggerProvisioned(*outcome)
	return outcome, nil
}

func (c *client) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *client) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}
