// Package remediate implements the remediate command.
package remediate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/cmd/intuneup/cmd/reconcile"
	"github.com/realgarit/intuneup/internal/appcontext"
	"github.com/realgarit/intuneup/internal/cmd/alerts"
	"github.com/realgarit/intuneup/internal/cmd/globals"
	"github.com/realgarit/intuneup/internal/cmd/output"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/policy"
)

// NewCommand creates the remediate command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		runFlags       *globals.RunFlags
		remediateFlags *globals.RemediateFlags
	)

	cmd := &cobra.Command{
		Use:     "remediate [category]",
		GroupID: "core",
		Short:   "Patch policies back to the golden standard",
		Args:    cobra.MaximumNArgs(1),
		Long: `Remediate reconciles the tenant and sends one patch per non-compliant
policy, holding only the fields that deviate. Protected fields are never
written. Deviations inside settings the API does not accept on update are
reported as manual and left alone.

After each patch the category is refetched and compared again, so the
output shows whether the policy is now compliant.`,
		Example: `  intuneup remediate                           # Remediate every category
  intuneup remediate featureUpdate --dry-run   # Show the patches only
  intuneup remediate --id 9f1c...              # Remediate a single policy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			globalFlags, err := globals.Parse(cmd)
			if err != nil {
				return err
			}
			if globalFlags.Output == "" {
				globalFlags.Output = app.OutputFormat()
			}

			var category policy.Category
			if len(args) == 1 {
				if category, err = policy.ParseCategory(args[0]); err != nil {
					return err
				}
			}

			client, err := reconcile.NewClient(app, runFlags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			report, err := reconcile.Run(ctx, client, category)
			if err != nil {
				return err
			}
			reconcile.WarnFailures(app, report)
			reconcileErr := report.Err()

			pending, err := Select(report.Results(), remediateFlags.ID)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				_ = app.Alerts().WriteAlert(alerts.NewSuccess("All policies match the golden standard"))
				return reconcileErr
			}

			if remediateFlags.DryRun {
				plans := Plan(ctx, client, pending)
				return output.FormatPlans(cmd.OutOrStdout(), pending, plans, globalFlags)
			}

			reports := Apply(ctx, client, pending, app.Logger())
			if err := output.FormatRemediations(cmd.OutOrStdout(), reports, globalFlags); err != nil {
				return err
			}

			if err := failures(reports); err != nil {
				for _, rep := range reports {
					if rep.Err != nil {
						_ = app.Alerts().WriteAlert(alerts.NewError("Remediation failed").
							ForPolicy(rep.Category.String(), rep.PolicyID).WithError(rep.Err))
					}
				}
				return errors.Join(reconcileErr, err)
			}
			return reconcileErr
		},
	}

	runFlags = globals.AddRunFlags(cmd)
	remediateFlags = globals.AddRemediateFlags(cmd)

	return cmd
}

// Select returns the non-compliant results, narrowed to id when set.
func Select(results []policy.Result, id string) ([]policy.Result, error) {
	var pending []policy.Result
	found := false
	for _, r := range results {
		if id != "" && r.PolicyID != id {
			continue
		}
		found = true
		if !r.IsFullyCompliant {
			pending = append(pending, r)
		}
	}
	if id != "" && !found {
		return nil, fmt.Errorf("policy %s: %w", id, errors.ErrNotFound)
	}
	return pending, nil
}

// Plan returns the patch each result would receive.
func Plan(ctx context.Context, client intuneup.Client, results []policy.Result) []policy.Patch {
	plans := make([]policy.Patch, len(results))
	for i, r := range results {
		plans[i] = client.Plan(ctx, r)
	}
	return plans
}

// Apply remediates results and logs each applied patch.
func Apply(ctx context.Context, client intuneup.Client, results []policy.Result, logger *zerolog.Logger) []intuneup.RemediationReport {
	reports := client.RemediateAll(ctx, results)
	for _, rep := range reports {
		if rep.Outcome != nil && rep.Outcome.Applied {
			logger.Info().
				Str("policy_id", rep.PolicyID).
				Str("category", rep.Category.String()).
				Int("fields", len(rep.Outcome.Patch)).
				Msg("Policy patched")
		}
	}
	return reports
}

func failures(reports []intuneup.RemediationReport) error {
	var errs []error
	for _, rep := range reports {
		if rep.Err != nil {
			errs = append(errs, rep.Err)
		}
	}
	return errors.Join(errs...)
}
