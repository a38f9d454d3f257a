package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/report"
)

var coverageFormat string

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report classification coverage per fiscal period",
	Long: `Report how many transactions of each fiscal period are
classified and posted.

Example:
  bookkeeper coverage --tenant 1
  bookkeeper coverage --tenant 1 --format yaml`,
	Run: runCoverage,
}

func init() {
	coverageCmd.Flags().StringVar(&coverageFormat, "format", "text", "output format: text or yaml")
}

func runCoverage(cmd *cobra.Command, args []string) {
	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	_, err := s.store.GetTenant(ctx, s.tenantID)
	exitOnError(err, "failed to load tenant")

	cov, err := report.BuildCoverage(ctx, s.store, s.store, s.tenantID)
	exitOnError(err, "failed to build coverage report")

	switch coverageFormat {
	case "text":
		err = report.WriteText(os.Stdout, cov)
	case "yaml":
		err = report.WriteYAML(os.Stdout, cov)
	default:
		err = model.Validationf("unknown format %q", coverageFormat)
	}
	exitOnError(err, "failed to write coverage report")
}
