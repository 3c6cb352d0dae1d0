package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autotally/tallybridge/internal/config"
	"github.com/autotally/tallybridge/internal/importer"
	"github.com/autotally/tallybridge/internal/ledger"
	"github.com/autotally/tallybridge/internal/normalize"
	"github.com/autotally/tallybridge/internal/pipeline"
	"github.com/autotally/tallybridge/pkg/files"
)

var (
	convertOutputDir    string
	convertCompany      string
	convertSales        bool
	convertForceMasters bool
	convertArchive      bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <input-file>",
	Short: "Convert an invoice spreadsheet into a Tally import XML file",
	Long: `Reads invoice rows from an XLSX or CSV file, aggregates them into GST
vouchers and writes the Tally Prime import envelope to the output
directory. No connection to Tally is made: every ledger master the batch
references is included in the envelope, so the file can be imported into
any company.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutputDir, "output", "o", "", "Output directory (default from config)")
	convertCmd.Flags().StringVar(&convertCompany, "company", "", "Target company name (default: current company in Tally)")
	convertCmd.Flags().BoolVar(&convertSales, "sales", false, "Treat rows as sales invoices instead of purchases")
	convertCmd.Flags().BoolVar(&convertForceMasters, "force-masters", true, "Include all ledger masters in the envelope")
	convertCmd.Flags().BoolVar(&convertArchive, "archive", false, "Move the input file to the archive directory afterwards")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
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

	outputDir := convertOutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	raw, err := importer.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	pl := pipeline.New(cfg, log)
	batch := pl.Convert(raw, direction(convertSales))
	if len(batch.Vouchers) == 0 {
		return fmt.Errorf("no usable invoice rows in %s", inputPath)
	}

	document, missing := pl.Encode(batch, ledger.Snapshot{}, pipeline.EncodeOptions{
		Company:         company(cfg, convertCompany),
		ForceAllMasters: convertForceMasters,
	})

	outPath, err := files.WriteDocument(outputDir, document)
	if err != nil {
		return err
	}

	printBatchSummary(batch)
	fmt.Printf("Masters included:   %d\n", len(missing))
	fmt.Printf("Output written to:  %s\n", outPath)

	if convertArchive {
		archived, err := files.ArchiveInput(inputPath, cfg.ArchiveDir)
		if err != nil {
			log.Warnw("failed to archive input", "path", inputPath, "error", err)
		} else {
			fmt.Printf("Input archived to:  %s\n", archived)
		}
	}
	return nil
}

func direction(sales bool) normalize.Direction {
	if sales {
		return normalize.DirectionSale
	}
	return normalize.DirectionPurchase
}

// company resolves a --company flag against the configured default.
func company(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.CompanyName
}

func printBatchSummary(batch pipeline.BatchResult) {
	fmt.Printf("Vouchers created:   %d\n", len(batch.Vouchers))
	if batch.Stats.DuplicateRows > 0 {
		fmt.Printf("Rows merged:        %d\n", batch.Stats.DuplicateRows)
	}
	if len(batch.Discards) > 0 {
		fmt.Printf("Rows discarded:     %d\n", len(batch.Discards))
		for _, d := range batch.Discards {
			fmt.Printf("  row %d: %s\n", d.RowIndex, d.Reason)
		}
	}
}
