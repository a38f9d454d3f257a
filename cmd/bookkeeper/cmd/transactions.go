package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/source"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

var (
	listPeriod       int64
	listUnclassified bool
)

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Import and list bank transactions",
}

var transactionsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import bank transactions from a statement CSV",
	Long: `Import bank transactions from a CSV file with the header
fiscal_period,date,details,debit,credit. The file is validated as a
whole before anything is stored.

Example:
  bookkeeper transactions import statement-2024-03.csv --tenant 1`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

var transactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's transactions",
	Run:   runTransactionsList,
}

func init() {
	transactionsListCmd.Flags().Int64Var(&listPeriod, "period", 0, "only this fiscal period")
	transactionsListCmd.Flags().BoolVar(&listUnclassified, "unclassified", false, "only unclassified transactions")

	transactionsCmd.AddCommand(transactionsImportCmd)
	transactionsCmd.AddCommand(transactionsListCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	_, err := s.store.GetTenant(ctx, s.tenantID)
	exitOnError(err, "failed to load tenant")

	f, err := os.Open(args[0])
	exitOnError(err, "failed to open statement")
	defer f.Close()

	txns, err := source.ReadCSV(f, s.tenantID)
	exitOnError(err, "failed to parse statement")

	for i := range txns {
		exitOnError(s.store.CreateTransaction(ctx, &txns[i]), "failed to store transaction")
	}

	slog.Info("Transactions imported", "tenant_id", s.tenantID, "file", args[0], "count", len(txns))
	fmt.Printf("Imported %d transactions\n", len(txns))
}

func runTransactionsList(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	txns, err := s.store.ListTransactions(cmd.Context(), store.TransactionFilter{
		TenantID:         s.tenantID,
		FiscalPeriodID:   listPeriod,
		UnclassifiedOnly: listUnclassified,
	})
	exitOnError(err, "failed to list transactions")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPERIOD\tDATE\tDETAILS\tDEBIT\tCREDIT\tACCOUNT")
	for _, t := range txns {
		code := "-"
		if t.IsClassified() {
			code = *t.AccountCode
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.FiscalPeriodID, t.Date.Format("2006-01-02"), t.Details,
			t.DebitAmount.StringFixed(2), t.CreditAmount.StringFixed(2), code)
	}
	exitOnError(w.Flush(), "failed to write output")
}
