package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autotally/tallybridge/internal/importer"
	"github.com/autotally/tallybridge/internal/pipeline"
	"github.com/autotally/tallybridge/internal/tally"
	"github.com/autotally/tallybridge/pkg/files"
)

var (
	pushCompany      string
	pushSales        bool
	pushForceMasters bool
	pushArchive      bool
	pushSaveXML      bool
)

var pushCmd = &cobra.Command{
	Use:   "push <input-file>",
	Short: "Convert an invoice spreadsheet and push it to a running Tally instance",
	Long: `Reads invoice rows from an XLSX or CSV file, fetches the ledger list
from Tally so only missing masters are created, and pushes the resulting
import envelope to the configured Tally URL. The command reports how many
vouchers Tally accepted and prints any per-voucher errors it returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushCompany, "company", "", "Target company name (default: current company in Tally)")
	pushCmd.Flags().BoolVar(&pushSales, "sales", false, "Treat rows as sales invoices instead of purchases")
	pushCmd.Flags().BoolVar(&pushForceMasters, "force-masters", false, "Send all ledger masters, not just missing ones")
	pushCmd.Flags().BoolVar(&pushArchive, "archive", false, "Move the input file to the archive directory on success")
	pushCmd.Flags().BoolVar(&pushSaveXML, "save-xml", false, "Also write the pushed envelope to the output directory")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	raw, err := importer.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	pl := pipeline.New(cfg, log)
	batch := pl.Convert(raw, direction(pushSales))
	if len(batch.Vouchers) == 0 {
		return fmt.Errorf("no usable invoice rows in %s", inputPath)
	}

	ctx := context.Background()

	forceAll := pushForceMasters
	snap, err := pl.Snapshot(ctx)
	if err != nil {
		// Without a ledger list every master must travel with the batch.
		log.Warnw("ledger snapshot unavailable, sending all masters", "error", err)
		forceAll = true
	}

	document, missing := pl.Encode(batch, snap, pipeline.EncodeOptions{
		Company:         company(cfg, pushCompany),
		ForceAllMasters: forceAll,
	})

	if pushSaveXML {
		outPath, err := files.WriteDocument(cfg.OutputDir, document)
		if err != nil {
			return err
		}
		fmt.Printf("Envelope written to: %s\n", outPath)
	}

	result := pl.Push(ctx, document)

	printBatchSummary(batch)
	fmt.Printf("Masters sent:       %d\n", len(missing))
	printPushResult(result)

	if !result.OK() {
		return fmt.Errorf("push failed: %s", result.Message)
	}

	if pushArchive {
		archived, err := files.ArchiveInput(inputPath, cfg.ArchiveDir)
		if err != nil {
			log.Warnw("failed to archive input", "path", inputPath, "error", err)
		} else {
			fmt.Printf("Input archived to:  %s\n", archived)
		}
	}
	return nil
}

func printPushResult(result tally.PushResult) {
	fmt.Printf("Push outcome:       %s\n", result.Outcome)
	fmt.Printf("Created: %d  Altered: %d  Skipped: %d  Errors: %d\n",
		result.Created, result.Altered, result.Skipped, result.ErrorCount)
	for _, line := range result.LineErrors {
		fmt.Printf("  tally: %s\n", line)
	}
	if result.Message != "" {
		fmt.Printf("Detail:             %s\n", result.Message)
	}
}
