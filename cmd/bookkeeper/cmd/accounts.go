package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/chart"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

var chartFile string

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the chart of accounts",
}

var accountsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a chart of accounts into the tenant",
	Long: `Load a chart of accounts into the tenant. Without --file the
built-in chart is used. Accounts whose code already exists are skipped.

Example:
  bookkeeper accounts seed --tenant 1
  bookkeeper accounts seed --tenant 1 --file config/accounts.yaml`,
	Run: runAccountsSeed,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's accounts",
	Run:   runAccountsList,
}

func init() {
	accountsSeedCmd.Flags().StringVar(&chartFile, "file", "", "chart of accounts YAML file")

	accountsCmd.AddCommand(accountsSeedCmd)
	accountsCmd.AddCommand(accountsListCmd)
}

func runAccountsSeed(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	var templates []model.Account
	var err error
	if chartFile != "" {
		templates, err = chart.LoadFile(chartFile)
	} else {
		templates, err = chart.Default()
	}
	exitOnError(err, "failed to load chart of accounts")

	_, err = s.store.GetTenant(ctx, s.tenantID)
	exitOnError(err, "failed to load tenant")

	created, skipped := 0, 0
	for _, account := range chart.ForTenant(templates, s.tenantID) {
		err := s.store.CreateAccount(ctx, &account)
		if errors.Is(err, model.ErrValidation) {
			slog.Debug("Account exists", "code", account.Code)
			skipped++
			continue
		}
		exitOnError(err, "failed to create account "+account.Code)
		created++
	}

	slog.Info("Accounts seeded", "tenant_id", s.tenantID, "created", created, "skipped", skipped)
	fmt.Printf("Created %d accounts, skipped %d existing\n", created, skipped)
}

func runAccountsList(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	accounts, err := s.store.ListAccounts(cmd.Context(), s.tenantID)
	exitOnError(err, "failed to list accounts")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tCATEGORY\tACTIVE")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", a.Code, a.Name, a.Category, a.Active)
	}
	exitOnError(w.Flush(), "failed to write output")
}
