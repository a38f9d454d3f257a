package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/classifier"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/db"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/posting"
)

var (
	overrideDebit  string
	overrideCredit string
)

var overrideCmd = &cobra.Command{
	Use:   "override TRANSACTION_ID",
	Short: "Set the accounts a transaction posts to",
	Long: `Point the journal lines of a transaction at the given debit and
credit accounts. When the transaction has no lines yet a manual entry is
created and the transaction is classified to the debit account.

Example:
  bookkeeper override 42 --tenant 1 --debit 9600 --credit 1100`,
	Args: cobra.ExactArgs(1),
	Run:  runOverride,
}

func init() {
	overrideCmd.Flags().StringVar(&overrideDebit, "debit", "", "debit account code (required)")
	overrideCmd.Flags().StringVar(&overrideCredit, "credit", "", "credit account code (required)")

	overrideCmd.MarkFlagRequired("debit")
	overrideCmd.MarkFlagRequired("credit")
}

func runOverride(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	txnID, err := strconv.ParseInt(args[0], 10, 64)
	exitOnError(err, "invalid transaction ID")

	resolver := classifier.NewResolver(s.store)
	debit, err := resolver.Resolve(ctx, s.tenantID, overrideDebit)
	exitOnError(err, "invalid debit account")
	credit, err := resolver.Resolve(ctx, s.tenantID, overrideCredit)
	exitOnError(err, "invalid credit account")

	entry, err := posting.NewEngine(s.store, slog.Default()).Override(ctx, txnID, debit.ID, credit.ID, s.actor)
	exitOnError(err, "override failed")

	slog.Info("Override applied", "transaction_id", txnID, "entry_id", entry.ID)

	exported, err := db.NewExportHistory(s.conn).IsExported(ctx, entry.ID)
	exitOnError(err, "failed to check export history")
	if exported {
		slog.Warn("Entry was already exported; the Beancount file still has the previous accounts", "entry_id", entry.ID)
	}

	fmt.Printf("Entry %d (%s)\n", entry.ID, entry.Reference)
	for _, l := range entry.Lines {
		fmt.Printf("  %-40s %12s %12s\n", l.Description, l.DebitAmount.StringFixed(2), l.CreditAmount.StringFixed(2))
	}
}
