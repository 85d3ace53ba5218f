// Package cli provides the command-line interface for webtoon-dl.
package cli

import (
	"github.com/toonworks/webtoon-dl/internal/app"
)

// currentApp holds the shared Application instance, set up by the root
// command's PersistentPreRunE and torn down in PersistentPostRun. One
// command runs per process, so a package variable suffices.
var currentApp *app.Application

func setApp(a *app.Application) {
	currentApp = a
}

func getApp() *app.Application {
	return currentApp
}
