package main

import (
	"fmt"

	"github.com/cloudboost/cloudboost-api/internal/app"
	"github.com/spf13/cobra"
)

func seedTemplatesCmd() *cobra.Command {
	var tenantDomain string
	cmd := &cobra.Command{
		Use:   "seed-templates",
		Short: "Add the built-in workflow templates to a tenant as draft workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.SeedTemplates(cmd.Context(), tenantDomain)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d workflow(s) for %s.\n", n, tenantDomain)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantDomain, "tenant", "", "domain of the tenant to seed")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
