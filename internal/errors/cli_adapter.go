package errors

import (
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if sfe, ok := err.(*StubforgeError); ok {
		return a.exitCodeFromStubforge(sfe)
	}

	return 1
}

// exitCodeFromStubforge maps StubforgeError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromStubforge(err *StubforgeError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryGeneration, CategoryFileSystem, CategoryState:
		return 11 // Build error
	case CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if sfe, ok := err.(*StubforgeError); ok {
		if a.verbose {
			return sfe.Error()
		}
		return fmt.Sprintf("Error (%s): %s", sfe.Category, sfe.Message)
	}

	return fmt.Sprintf("Error: %v", err)
}
