package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
}

var tenantsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a tenant",
	Long: `Create a tenant and print its ID. Every other command is scoped
to one tenant with --tenant or BOOKKEEPER_TENANT_ID.

Example:
  bookkeeper tenants add "Acme (Pty) Ltd"`,
	Args: cobra.ExactArgs(1),
	Run:  runTenantsAdd,
}

func init() {
	tenantsCmd.AddCommand(tenantsAddCmd)
}

func runTenantsAdd(cmd *cobra.Command, args []string) {
	s := openSession(false)
	defer s.Close()

	name := strings.TrimSpace(args[0])
	if name == "" {
		exitOnError(model.Validationf("tenant name is empty"), "invalid tenant")
	}

	tenant := &model.Tenant{Name: name}
	exitOnError(s.store.CreateTenant(cmd.Context(), tenant), "failed to create tenant")

	slog.Info("Tenant created", "tenant_id", tenant.ID, "name", tenant.Name)
	fmt.Printf("%d\t%s\n", tenant.ID, tenant.Name)
}
