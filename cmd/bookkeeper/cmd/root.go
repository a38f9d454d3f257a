// Package cmd provides CLI commands for bookkeeper.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/config"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/db"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/pathutil"
)

var (
	cfgFile    string
	debug      bool
	tenantFlag int64
	actorFlag  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bookkeeper",
	Short: "Classify bank transactions and post them to the ledger",
	Long: `bookkeeper imports bank statement lines, classifies them to
accounts with prioritised rules and posts double-entry journal entries
against the bank control account.

It supports:
- Importing statement CSV files
- Classifying with a tiered rule table
- Generating and overriding journal entries
- Coverage reports and Beancount export

Example:
  bookkeeper tenants add "Acme (Pty) Ltd"
  bookkeeper accounts seed --tenant 1
  bookkeeper rules seed --tenant 1
  bookkeeper transactions import statement.csv --tenant 1
  bookkeeper regenerate --tenant 1`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int64Var(&tenantFlag, "tenant", 0, "tenant ID (default is BOOKKEEPER_TENANT_ID)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "name recorded on changes (default is BOOKKEEPER_ACTOR)")

	// Add subcommands
	rootCmd.AddCommand(tenantsCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(reclassifyCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to handle errors and exit.
// The open session is closed first because os.Exit skips deferred calls.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		closeActiveSession()
		os.Exit(1)
	}
}

// session is the state shared by every command: configuration, the open
// database and the tenant and actor the command runs as.
type session struct {
	cfg          *config.Config
	conn         *db.Connection
	store        *db.Store
	pathResolver *pathutil.PathResolver
	tenantID     int64
	actor        string
}

// openSession loads configuration and opens the database. Commands that work
// on tenant data pass needTenant so a missing tenant ID is reported early.
func openSession(needTenant bool) *session {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if tenantFlag != 0 {
		cfg.Bookkeeper.TenantID = tenantFlag
	}
	if actorFlag != "" {
		cfg.Bookkeeper.Actor = actorFlag
	}

	required := [][]string{{"beancount", "root"}, {"bookkeeper", "actor"}}
	if needTenant {
		required = append(required, []string{"bookkeeper", "tenantId"})
	}
	if err := cfg.Validate(required...); err != nil {
		exitOnError(err, "invalid configuration")
	}

	// BEANCOUNT_DB_PATH is still honoured when BOOKKEEPER_DB_PATH is unset.
	dbPath := cfg.Bookkeeper.DBPath
	if dbPath == "" {
		dbPath = cfg.Beancount.DBPath
	}
	pathResolver := pathutil.New(pathutil.Config{
		BeancountRoot: cfg.Beancount.Root,
		DatabasePath:  dbPath,
	})

	dbPath = pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")

	activeSession = &session{
		cfg:          cfg,
		conn:         conn,
		store:        db.NewStore(conn),
		pathResolver: pathResolver,
		tenantID:     cfg.Bookkeeper.TenantID,
		actor:        cfg.Bookkeeper.Actor,
	}
	return activeSession
}

// activeSession is the session opened by the running command, if any.
var activeSession *session

func closeActiveSession() {
	if activeSession != nil {
		activeSession.Close()
	}
}

func (s *session) Close() {
	if activeSession == s {
		activeSession = nil
	}
	if err := s.conn.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}
