package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/resync"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify unclassified transactions",
	Long: `Assign an account code to every unclassified transaction using
the tenant's active rules.

Example:
  bookkeeper classify --tenant 1`,
	Run: runClassify,
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Classify every transaction again",
	Long: `Classify every transaction of the tenant again with the current
rules. Transactions no rule matches keep their code. Existing journal
lines are not rewritten; use override for that.

Example:
  bookkeeper reclassify --tenant 1`,
	Run: runReclassify,
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Generate journal entries for classified transactions",
	Long: `Post every classified transaction that has no journal lines yet
against the bank control account (BOOKKEEPER_CONTROL_ACCOUNT).

Example:
  bookkeeper post --tenant 1`,
	Run: runPost,
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Reclassify everything, then post what is missing",
	Run:   runRegenerate,
}

func (s *session) driver() *resync.Driver {
	return resync.NewDriver(s.store, resync.Config{
		ControlAccountCode: s.cfg.Bookkeeper.ControlAccount,
	})
}

func runClassify(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	res, err := s.driver().ClassifyAllUnclassified(cmd.Context(), s.tenantID, s.actor)
	exitOnError(err, "classification failed")
	printResult(res)
}

func runReclassify(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	res, err := s.driver().ReclassifyAll(cmd.Context(), s.tenantID, s.actor)
	exitOnError(err, "reclassification failed")
	printResult(res)
}

func runPost(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	res, err := s.driver().GenerateJournalEntriesForClassified(cmd.Context(), s.tenantID, s.actor)
	exitOnError(err, "posting failed")
	printResult(res)
}

func runRegenerate(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	res, err := s.driver().RegenerateAll(cmd.Context(), s.tenantID, s.actor)
	printResult(res.Reclassify)
	if res.Generate.RunID != "" {
		printResult(res.Generate)
	}
	exitOnError(err, "regeneration failed")
}

func printResult(res resync.Result) {
	fmt.Printf("\n=== %s (run %s) ===\n", res.Operation, res.RunID)
	fmt.Printf("Total:      %d\n", res.Total)
	fmt.Printf("Succeeded:  %d\n", res.Succeeded)
	if res.Operation != resync.OpGenerateEntries {
		fmt.Printf("Unmatched:  %d\n", res.Unmatched)
	}
	fmt.Printf("Failed:     %d\n", res.Failed)
	for _, f := range res.Failures {
		fmt.Printf("  transaction %d [%s]: %v\n", f.TransactionID, f.Kind, f.Err)
	}
	fmt.Println()
}
