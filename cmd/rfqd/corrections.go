package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/corrections"
)

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Inspect the learned-correction store",
}

var correctionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned corrections, newest first",
	Long: `List the corrections learned from operator feedback, newest first.

Examples:
  # List corrections from the configured store
  rfqd corrections list

  # Use an explicit config file
  rfqd corrections list --config /etc/rfqd/config.yaml`,
	RunE: runCorrections,
}

func init() {
	correctionsCmd.AddCommand(correctionsListCmd)
}

func runCorrections(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := corrections.Open(cfg.Corrections.DBPath, cfg.Corrections.Keywords)
	if err != nil {
		return fmt.Errorf("open correction store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	all, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("list corrections: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No corrections stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tID\tKEYWORDS\tSNIPPET")
	for _, c := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.CreatedAt.Format("2006-01-02 15:04"),
			c.ID,
			joinOrDash(c.Keywords),
			truncate(c.RawTextSnippet, 60))
	}
	return w.Flush()
}

func joinOrDash(parts []string) string {
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
