package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tmakela/callvault/cmd"
	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version

	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
