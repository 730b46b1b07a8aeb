package globals

import "github.com/spf13/cobra"

// RunFlags holds flags shared by commands that reconcile policies.
type RunFlags struct {
	DeviationsOnly bool
	Fresh          bool
	Customer       string
}

// AddRunFlags adds reconciliation flags to a command.
func AddRunFlags(cmd *cobra.Command) *RunFlags {
	flags := &RunFlags{}

	cmd.Flags().BoolVar(&flags.DeviationsOnly, "deviations-only", false,
		"Only show policies that deviate from the golden standard")
	cmd.Flags().BoolVar(&flags.Fresh, "fresh", false,
		"Drop cached collections before fetching")
	cmd.Flags().StringVar(&flags.Customer, "customer", "",
		"Customer name used in golden display names")

	return flags
}

// RemediateFlags holds flags for the remediate command.
type RemediateFlags struct {
	ID     string
	DryRun bool
}

// AddRemediateFlags adds remediation flags to a command.
func AddRemediateFlags(cmd *cobra.Command) *RemediateFlags {
	flags := &RemediateFlags{}

	cmd.Flags().StringVar(&flags.ID, "id", "",
		"Only remediate the policy with this ID")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false,
		"Print the patches without writing them")

	return flags
}

// ParseRemediate extracts remediation flags from a command.
// The command must have had AddRemediateFlags called on it, otherwise this will panic.
func ParseRemediate(cmd *cobra.Command) *RemediateFlags {
	return &RemediateFlags{
		ID:     mustGetString(cmd, "id"),
		DryRun: mustGetBool(cmd, "dry-run"),
	}
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
