package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/autotally/tallybridge/internal/pipeline"
)

var ledgersCmd = &cobra.Command{
	Use:   "ledgers",
	Short: "List the ledger masters of the current Tally company",
	Long: `Fetches the ledger list from the configured Tally instance and prints
the names alphabetically. Useful for checking which masters a batch will
have to create before pushing it.`,
	Args: cobra.NoArgs,
	RunE: runLedgers,
}

func init() {
	rootCmd.AddCommand(ledgersCmd)
}

func runLedgers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	pl := pipeline.New(cfg, log)

	ok, detail := pl.Client().CheckConnection(context.Background())
	if !ok {
		return fmt.Errorf("tally is not reachable at %s: %s", cfg.TallyURL, detail)
	}

	snap, err := pl.Snapshot(context.Background())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%d ledgers in current company:\n", len(names))
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
