// Package provision implements the provision command.
package provision

import (
	"github.com/spf13/cobra"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/appcontext"
	"github.com/realgarit/intuneup/internal/cmd/alerts"
	"github.com/realgarit/intuneup/internal/cmd/globals"
	"github.com/realgarit/intuneup/internal/cmd/output"
	"github.com/realgarit/intuneup/pkg/policy"
)

// NewCommand creates the provision command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		name     string
		customer string
	)

	cmd := &cobra.Command{
		Use:     "provision <category>",
		GroupID: "management",
		Short:   "Create a policy from the golden standard",
		Args:    cobra.ExactArgs(1),
		Long: `Provision creates a new policy of the given category from its golden
definition. The display name follows default_aad_<name>_<suffix>, where
name defaults to the customer name.`,
		Example: `  intuneup provision updateRing --name contoso
  intuneup provision featureUpdate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			globalFlags, err := globals.Parse(cmd)
			if err != nil {
				return err
			}
			if globalFlags.Output == "" {
				globalFlags.Output = app.OutputFormat()
			}

			category, err := policy.ParseCategory(args[0])
			if err != nil {
				return err
			}

			var client intuneup.Client
			if customer != "" {
				client, err = app.ClientWithOptions(intuneup.WithCustomerName(customer))
			} else {
				client, err = app.Client()
			}
			if err != nil {
				return err
			}

			outcome, err := client.Provision(cmd.Context(), category, name)
			if err != nil {
				_ = app.Alerts().WriteAlert(alerts.NewError("Provisioning failed").ForPolicy(category.String(), "").WithError(err))
				return err
			}

			_ = app.Alerts().WriteAlert(alerts.NewSuccess("Created "+outcome.Created.DisplayName()).
				ForPolicy(category.String(), outcome.PolicyID))
			return output.FormatOutcome(cmd.OutOrStdout(), outcome, globalFlags)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name used in the display name (default: customer name)")
	cmd.Flags().StringVar(&customer, "customer", "", "Customer name used in golden display names")

	return cmd
}
