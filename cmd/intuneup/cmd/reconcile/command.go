// Package reconcile implements the reconcile command.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/appcontext"
	"github.com/realgarit/intuneup/internal/cmd/alerts"
	"github.com/realgarit/intuneup/internal/cmd/globals"
	"github.com/realgarit/intuneup/internal/cmd/output"
	"github.com/realgarit/intuneup/pkg/differ"
	"github.com/realgarit/intuneup/pkg/policy"
)

// NewCommand creates the reconcile command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var flags *globals.RunFlags

	cmd := &cobra.Command{
		Use:     "reconcile [category]",
		GroupID: "core",
		Short:   "Compare tenant policies with the golden standard",
		Args:    cobra.MaximumNArgs(1),
		Long: `Reconcile fetches the Windows Update policies of the tenant and compares
every policy field by field with the golden definition of its category.

Categories:
  updateRing            Windows Update rings
  featureUpdate         feature update profiles
  expediteProfile       quality update (expedite) profiles
  qualityUpdatePolicy   hotpatch quality update policies

Without a category all four are reconciled concurrently. A category that
cannot be fetched is reported and does not stop the others.`,
		Example: `  intuneup reconcile                          # Reconcile every category
  intuneup reconcile updateRing               # Reconcile update rings only
  intuneup reconcile --deviations-only        # Hide compliant policies
  intuneup reconcile -o markdown > report.md  # Write a markdown report`,
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

			client, err := NewClient(app, flags)
			if err != nil {
				return err
			}

			report, err := Run(cmd.Context(), client, category)
			if err != nil {
				return err
			}

			if err := output.FormatReport(cmd.OutOrStdout(), report, flags.DeviationsOnly, globalFlags); err != nil {
				return err
			}

			WarnFailures(app, report)
			return report.Err()
		},
	}

	flags = globals.AddRunFlags(cmd)

	return cmd
}

// WarnFailures writes one warning per category that could not be reconciled.
func WarnFailures(app appcontext.Interface, report *intuneup.Report) {
	for _, cr := range report.Categories {
		if cr.Err != nil {
			_ = app.Alerts().WriteAlert(alerts.NewWarning("Category not reconciled").
				ForPolicy(cr.Category.String(), "").WithError(cr.Err))
		}
	}
}

// NewClient returns the app client, with the customer override applied
// and the caches dropped when a fresh run was requested.
func NewClient(app appcontext.Interface, flags *globals.RunFlags) (intuneup.Client, error) {
	var (
		client intuneup.Client
		err    error
	)
	if flags.Customer != "" {
		client, err = app.ClientWithOptions(intuneup.WithCustomerName(flags.Customer))
	} else {
		client, err = app.Client()
	}
	if err != nil {
		return nil, err
	}

	if flags.Fresh {
		app.Logger().Debug().Msg("Dropping cached policy collections")
		client.Invalidate()
	}
	return client, nil
}

// Run reconciles category, or every category when category is empty.
// A single category is wrapped in a report so both paths print alike.
func Run(ctx context.Context, client intuneup.Client, category policy.Category) (*intuneup.Report, error) {
	if category == "" {
		return client.ReconcileAll(ctx), nil
	}

	results, err := client.Reconcile(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", category, err)
	}

	registry := client.Golden(ctx)
	summary := differ.Summarize(results)
	return &intuneup.Report{
		GeneratedAt:          time.Now().UTC(),
		CustomerName:         registry.CustomerName(),
		FeatureUpdateVersion: registry.FeatureUpdateVersion(),
		QualityUpdateRelease: registry.QualityUpdateRelease(),
		Categories: []intuneup.CategoryReport{{
			Category: category,
			Results:  results,
			Summary:  summary,
		}},
		Summary: summary,
	}, nil
}
