// Package emoji provides symbol constants for CLI output.
// These symbols create a consistent visual language across all commands.
package emoji

// Symbol constants for CLI output.
const (
	// Success marks compliant policies and applied writes.
	Success = "✓"

	// Error marks deviations a patch can correct and failed operations.
	Error = "✗"

	// Warning marks discovery fallbacks and other non-fatal problems.
	Warning = "!"

	// Manual marks deviations that must be corrected by hand.
	Manual = "✋"

	// Optional marks skipped work, such as a no-op patch.
	Optional = "-"

	// Unknown marks values that could not be interpreted.
	Unknown = "?"

	// Info represents informational messages.
	Info = "i"
)
