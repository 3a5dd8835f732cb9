package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/spf13/cobra"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	primaryStyle = cellStyle.Foreground(lipgloss.Color("42"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Bootstrap the registry and list every registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBootstrap(cmd, func(a *app) error {
				return renderEntries(cmd.OutOrStdout(), a.reg.Snapshot())
			})
		},
	}
}

// withBootstrap runs fn against a quietly bootstrapped registry and tears
// it down afterwards.
func withBootstrap(cmd *cobra.Command, fn func(*app) error) (err error) {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{configPath: configPath, manifestPath: manifestPath, quiet: true})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(ctx); err == nil {
			err = cerr
		}
	}()

	tbl, err := a.table()
	if err != nil {
		return err
	}
	if _, err := a.bootstrap(ctx, tbl); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return fn(a)
}

// renderEntries writes entries as a table, one row per registration.
func renderEntries(w io.Writer, entries []registry.EntryInfo) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no registrations")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("CAPABILITY", "NAME", "TYPE", "MODE", "OWNERSHIP", "PRIMARY", "SINCE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 5 && entries[row].Primary:
				return primaryStyle
			default:
				return cellStyle
			}
		})

	for _, e := range entries {
		t.Row(
			e.Key.String(),
			orDash(e.Name),
			e.Type,
			e.Mode.String(),
			e.Ownership.String(),
			strconv.FormatBool(e.Primary),
			e.RegisteredAt.Format(time.TimeOnly),
		)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
