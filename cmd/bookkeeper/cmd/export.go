package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/beancount"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/converter"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/db"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/pathutil"
)

var (
	exportDryRun   bool
	exportOpenDate string
)

const lastExportKey = "last_export_run"

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal entries to Beancount",
	Long: `Export the tenant's journal entries to Beancount files.

This command:
1. Loads journal entries not exported yet
2. Converts them to Beancount transactions
3. Appends them to monthly Beancount files
4. Rewrites the accounts file with open directives
5. Records export history in SQLite

An entry is exported once. If override later changes the accounts of an
exported entry, the Beancount files keep the old accounts; override warns
when that happens and the posting has to be corrected in the file by hand.

Example:
  bookkeeper export --tenant 1
  bookkeeper export --tenant 1 --dry-run`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportDryRun, "dry-run", false, "Dry run mode (no file writes)")
	exportCmd.Flags().StringVar(&exportOpenDate, "open-date", "2000-01-01", "date of the account open directives (YYYY-MM-DD)")
}

func runExport(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	if _, err := time.Parse(time.DateOnly, exportOpenDate); err != nil {
		exitOnError(err, "invalid --open-date")
	}
	slog.Info("Starting export", "tenant_id", s.tenantID, "root", s.pathResolver.GetBeancountRoot(), "dry_run", exportDryRun)

	mapper, err := converter.NewMapper(s.cfg.Beancount.MappingFile)
	exitOnError(err, "failed to load account mapping")
	cvtr := converter.NewConverter(mapper, s.cfg.Beancount.Currency)
	beancountRepo := beancount.NewFileSystemRepository(s.pathResolver)
	history := db.NewExportHistory(s.conn)

	accounts, err := s.store.ListAccounts(ctx, s.tenantID)
	exitOnError(err, "failed to list accounts")
	byID := make(map[int64]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	entries, err := s.store.ListEntries(ctx, s.tenantID)
	exitOnError(err, "failed to list journal entries")
	exported, err := history.ExportedIDs(ctx, s.tenantID)
	exitOnError(err, "failed to get exported entry IDs")

	byMonth := make(map[string][]model.JournalEntry)
	for _, entry := range entries {
		if exported[entry.ID] {
			continue
		}
		month := pathutil.MonthKey(entry.EntryDate)
		byMonth[month] = append(byMonth[month], entry)
	}

	opens := cvtr.FormatOpens(cvtr.OpenDirectives(accounts, exportOpenDate))
	if exportDryRun {
		fmt.Println("[DRY RUN] Would write accounts file")
		fmt.Println(opens)
	} else {
		exitOnError(beancountRepo.WriteAccountsFile(opens), "failed to write accounts file")
	}

	if len(byMonth) == 0 {
		fmt.Println("No new entries to export")
		return
	}

	written := 0
	for _, month := range slices.Sorted(maps.Keys(byMonth)) {
		var formatted []string
		var converted []model.JournalEntry
		for _, entry := range byMonth[month] {
			txn, err := cvtr.ConvertEntry(entry, byID)
			if err != nil {
				slog.Error("Failed to convert entry", "entry_id", entry.ID, "error", err)
				continue
			}
			formatted = append(formatted, cvtr.FormatTransaction(txn))
			converted = append(converted, entry)
		}

		if exportDryRun {
			filePath, _ := s.pathResolver.GetMonthFilePath(month)
			fmt.Printf("[DRY RUN] Would append to %s\n", filePath)
			for _, f := range formatted {
				fmt.Println(f)
			}
			continue
		}

		filePath, err := beancountRepo.AppendTransactions(month, formatted)
		if err != nil {
			slog.Error("Failed to append entries", "month", month, "error", err)
			continue
		}

		for _, entry := range converted {
			if err := history.RecordExport(ctx, db.ExportRecord{
				EntryID:       entry.ID,
				EntryDate:     entry.EntryDate.Format(time.DateOnly),
				BeancountFile: filePath,
			}); err != nil {
				slog.Error("Failed to record export", "entry_id", entry.ID, "error", err)
			}
		}
		written += len(converted)
		slog.Info("Updated file", "path", filePath, "entries", len(converted))
	}

	if exportDryRun {
		return
	}

	if err := history.SetMetadata(ctx, lastExportKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("Failed to record export run", "error", err)
	}

	stats, err := history.GetStats(ctx, s.tenantID)
	if err == nil {
		printStats(stats)
	}
	printMonthFiles(os.Stdout, beancountRepo, slices.Sorted(maps.Keys(byMonth)))

	slog.Info("Export completed", "entries", written, "months", len(byMonth))
}

// printMonthFiles lists, per year touched by this export, every monthly file
// now present under the Beancount root.
func printMonthFiles(w io.Writer, repo beancount.Repository, written []string) {
	years := make(map[string]bool)
	for _, month := range written {
		years[month[:4]] = true
	}

	for _, year := range slices.Sorted(maps.Keys(years)) {
		months, err := repo.ListMonths(year)
		if err != nil {
			slog.Warn("Failed to list month files", "year", year, "error", err)
			continue
		}
		fmt.Fprintf(w, "Files for %s:        %s\n", year, strings.Join(months, ", "))
	}
}
