package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/db"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display ledger and export statistics",
	Long: `Display statistics about the tenant's ledger.

Shows:
- Total number of imported transactions
- Number of unclassified transactions
- Journal entries and how many were exported
- Last export timestamp

Example:
  bookkeeper stats --tenant 1`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	history := db.NewExportHistory(s.conn)
	stats, err := history.GetStats(cmd.Context(), s.tenantID)
	exitOnError(err, "failed to get statistics")

	printStats(stats)
	fmt.Printf("Database:           %s\n", s.conn.GetPath())

	lastRun, err := history.GetMetadata(cmd.Context(), lastExportKey)
	exitOnError(err, "failed to read export metadata")
	if lastRun != "" {
		fmt.Printf("Last export run:    %s\n", lastRun)
	}
	fmt.Println()

	slog.Info("Statistics displayed successfully")
}

func printStats(stats *db.Stats) {
	fmt.Println("\n=== Ledger Statistics ===")
	fmt.Printf("Transactions:       %d\n", stats.TotalTransactions)
	fmt.Printf("Unclassified:       %d\n", stats.Unclassified)
	fmt.Printf("Journal entries:    %d\n", stats.TotalEntries)
	fmt.Printf("Exported entries:   %d\n", stats.ExportedEntries)

	if stats.LastExport.Valid {
		fmt.Printf("Last export:        %s\n", stats.LastExport.String)
	} else {
		fmt.Printf("Last export:        (never)\n")
	}

	fmt.Println()
}
