// Package cli provides the command-line interface for the harvest application.
package cli

import (
	"github.com/map-harvest/harvest/internal/app"
)

// Global application reference shared by the commands. Set by the root
// command's PersistentPreRunE, cleared on PersistentPostRun.
var globalApp *app.Application

// GetApp retrieves the Application initialized for the current command.
func GetApp() *app.Application {
	return globalApp
}
