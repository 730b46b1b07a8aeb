package app

import (
	"github.com/spf13/cobra"

	"github.com/realgarit/intuneup/cmd/intuneup/cmd/golden"
	"github.com/realgarit/intuneup/cmd/intuneup/cmd/provision"
	"github.com/realgarit/intuneup/cmd/intuneup/cmd/reconcile"
	"github.com/realgarit/intuneup/cmd/intuneup/cmd/remediate"
	"github.com/realgarit/intuneup/cmd/intuneup/cmd/version"
)

// registerCommands adds all subcommands to the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(reconcile.NewCommand(a))
	rootCmd.AddCommand(remediate.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(provision.NewCommand(a))
	rootCmd.AddCommand(golden.NewCommand(a))

	rootCmd.AddCommand(version.NewCommand(a))
}
