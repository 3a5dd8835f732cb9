package main

import (
	"fmt"

	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "resolve <capability>",
		Short: "Show what a capability resolves to",
		Long: `Bootstrap the registry and resolve one capability the way a consumer would,
honoring registry.resolution. With --all every implementation is listed.`,
		Example: `  locus resolve greeter
  locus resolve greeter --all --manifest ./manifest.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := registry.ParseKey(args[0])
			if err != nil {
				return err
			}
			return withBootstrap(cmd, func(a *app) error {
				return runResolve(cmd, a.reg, key, all)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every implementation, not just the resolved one")
	return cmd
}

func runResolve(cmd *cobra.Command, reg *registry.Registry, key registry.Key, all bool) error {
	out := cmd.OutOrStdout()
	if all {
		entries := reg.Describe(key)
		if len(entries) == 0 {
			return fmt.Errorf("no implementations of %q", key)
		}
		return renderEntries(out, entries)
	}

	h := registry.Resolve[any](reg, key)
	info, ok := h.Info()
	if !ok {
		return fmt.Errorf("no implementation of %q (resolution %s)", key, reg.Resolution())
	}
	return renderEntries(out, []registry.EntryInfo{info})
}
