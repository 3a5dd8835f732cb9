// Locus runs and inspects a process-local capability registry.
//
// Usage:
//
//	# Bootstrap the registry and serve the introspection API
//	locus serve
//
//	# Bootstrap from a manifest and list what got registered
//	locus list --manifest ./manifest.toml
//
//	# Show what a capability resolves to
//	locus resolve greeter --all
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// manifestPath overrides manifest.path from the config.
	manifestPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locus",
		Short: "Process-local capability registry",
		Long: `locus bootstraps a registry of capability implementations and exposes
it for inspection over HTTP and on the command line.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/locus/config.yaml)")
	root.PersistentFlags().StringVar(&manifestPath, "manifest", "", "bootstrap manifest (TOML); overrides manifest.path")

	root.AddCommand(newServeCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newResolveCmd())
	return root
}
