package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/classifier"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/rules"
)

var (
	ruleName     string
	ruleMatch    string
	ruleValue    string
	ruleAccount  string
	rulePriority int
	ruleInactive bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage classification rules",
}

var rulesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the rule table into the tenant",
	Long: `Load the rule table into the tenant. The table named by
BOOKKEEPER_RULES_FILE is used when set, the built-in table otherwise.
Rules whose name already exists are skipped.

Example:
  bookkeeper rules seed --tenant 1`,
	Run: runRulesSeed,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load a rule table YAML file into the tenant",
	Args:  cobra.ExactArgs(1),
	Run:   runRulesImport,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a single rule",
	Long: `Add a single classification rule.

Example:
  bookkeeper rules add --tenant 1 --name fees --match contains --value FEE --account 9600 --priority 90`,
	Run: runRulesAdd,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's rules in evaluation order",
	Run:   runRulesList,
}

var rulesTestCmd = &cobra.Command{
	Use:   "test DESCRIPTION",
	Short: "Show which rule classifies a description",
	Args:  cobra.ExactArgs(1),
	Run:   runRulesTest,
}

func init() {
	rulesAddCmd.Flags().StringVar(&ruleName, "name", "", "rule name (required)")
	rulesAddCmd.Flags().StringVar(&ruleMatch, "match", "contains", "match type: contains, starts-with, ends-with, equals, regex")
	rulesAddCmd.Flags().StringVar(&ruleValue, "value", "", "value to match (required)")
	rulesAddCmd.Flags().StringVar(&ruleAccount, "account", "", "target account code (required)")
	rulesAddCmd.Flags().IntVar(&rulePriority, "priority", 50, "priority, higher is evaluated first")
	rulesAddCmd.Flags().BoolVar(&ruleInactive, "inactive", false, "create the rule disabled")

	rulesAddCmd.MarkFlagRequired("name")
	rulesAddCmd.MarkFlagRequired("value")
	rulesAddCmd.MarkFlagRequired("account")

	rulesCmd.AddCommand(rulesSeedCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesTestCmd)
}

func runRulesSeed(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	var table *rules.Table
	var err error
	if s.cfg.Bookkeeper.RulesFile != "" {
		table, err = rules.LoadTableFile(s.cfg.Bookkeeper.RulesFile)
	} else {
		table, err = rules.DefaultTable()
	}
	exitOnError(err, "failed to load rule table")

	s.loadTable(cmd.Context(), table)
}

func runRulesImport(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	table, err := rules.LoadTableFile(args[0])
	exitOnError(err, "failed to load rule table")

	s.loadTable(cmd.Context(), table)
}

func (s *session) loadTable(ctx context.Context, table *rules.Table) {
	_, err := s.store.GetTenant(ctx, s.tenantID)
	exitOnError(err, "failed to load tenant")

	rs, err := table.Rules(s.tenantID)
	exitOnError(err, "invalid rule table")

	existing, err := s.store.ListRules(ctx, s.tenantID)
	exitOnError(err, "failed to list rules")
	names := make(map[string]bool, len(existing))
	for _, r := range existing {
		names[r.Name] = true
	}

	resolver := classifier.NewResolver(s.store)
	created, skipped := 0, 0
	for _, rule := range rs {
		if names[rule.Name] {
			skipped++
			continue
		}
		if _, err := resolver.Resolve(ctx, s.tenantID, rule.TargetAccountCode); err != nil {
			slog.Warn("Rule targets an unknown account", "rule", rule.Name, "account", rule.TargetAccountCode)
		}
		exitOnError(s.store.CreateRule(ctx, &rule), "failed to create rule "+rule.Name)
		names[rule.Name] = true
		created++
	}

	slog.Info("Rules loaded", "tenant_id", s.tenantID, "created", created, "skipped", skipped)
	fmt.Printf("Created %d rules, skipped %d existing\n", created, skipped)
}

func runRulesAdd(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	matchType, err := model.ParseMatchType(ruleMatch)
	exitOnError(err, "invalid match type")

	rule := &model.ClassificationRule{
		TenantID:          s.tenantID,
		Name:              strings.TrimSpace(ruleName),
		MatchType:         matchType,
		MatchValue:        ruleValue,
		TargetAccountCode: strings.TrimSpace(ruleAccount),
		Priority:          rulePriority,
		Active:            !ruleInactive,
		Description:       "added by " + s.actor,
	}
	_, err = rules.Compile(*rule)
	exitOnError(err, "invalid rule")

	_, err = classifier.NewResolver(s.store).Resolve(ctx, s.tenantID, rule.TargetAccountCode)
	exitOnError(err, "invalid target account")

	exitOnError(s.store.CreateRule(ctx, rule), "failed to create rule")
	slog.Info("Rule created", "rule_id", rule.ID, "name", rule.Name)
	fmt.Printf("Created rule %d\n", rule.ID)
}

func runRulesList(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()

	rs, err := s.store.ListRules(cmd.Context(), s.tenantID)
	exitOnError(err, "failed to list rules")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tNAME\tMATCH\tVALUE\tACCOUNT\tACTIVE")
	for _, r := range rs {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%t\n",
			r.ID, r.Priority, r.Name, r.MatchType, r.MatchValue, r.TargetAccountCode, r.Active)
	}
	exitOnError(w.Flush(), "failed to write output")
}

func runRulesTest(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	selector, err := classifier.LoadSelector(ctx, s.store, s.tenantID, slog.Default())
	exitOnError(err, "failed to load rules")

	rule, ok := selector.Explain(args[0])
	if !ok {
		fmt.Println("No rule matches")
		return
	}

	fmt.Printf("Rule:     %s (priority %d, %s %q)\n", rule.Name, rule.Priority, rule.MatchType, rule.MatchValue)
	account, err := classifier.NewResolver(s.store).Resolve(ctx, s.tenantID, rule.TargetAccountCode)
	if err != nil {
		fmt.Printf("Account:  %s (unresolved: %v)\n", rule.TargetAccountCode, err)
		return
	}
	fmt.Printf("Account:  %s\n", account.Label())
}
