// Package golden implements the golden command.
package golden

import (
	"github.com/spf13/cobra"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/appcontext"
	"github.com/realgarit/intuneup/internal/cmd/globals"
	"github.com/realgarit/intuneup/internal/cmd/output"
	"github.com/realgarit/intuneup/pkg/policy"
)

// NewCommand creates the golden command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var customer string

	cmd := &cobra.Command{
		Use:     "golden [category]",
		GroupID: "management",
		Short:   "Show the golden standard",
		Args:    cobra.MaximumNArgs(1),
		Long: `Golden prints the golden definition of one or every category, with the
feature update version and quality update release resolved for this run.`,
		Example: `  intuneup golden
  intuneup golden expediteProfile -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			globalFlags, err := globals.Parse(cmd)
			if err != nil {
				return err
			}
			if globalFlags.Output == "" {
				globalFlags.Output = app.OutputFormat()
			}

			categories := policy.Categories()
			if len(args) == 1 {
				category, err := policy.ParseCategory(args[0])
				if err != nil {
					return err
				}
				categories = []policy.Category{category}
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

			registry := client.Golden(cmd.Context())
			return output.FormatGolden(cmd.OutOrStdout(), registry, categories, globalFlags)
		},
	}

	cmd.Flags().StringVar(&customer, "customer", "", "Customer name used in golden display names")

	return cmd
}
