package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/db"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/seed"
	"github.com/triagedesk/backend/internal/services"
)

var teamPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Bootstrap the support team",
		Long:  `Create the profiles listed in a team file (YAML or JSON) and print their credentials. Existing profiles are left untouched.`,
		RunE:  runSeed,
		// errors are printed by main
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&teamPath, "file", "f", "data/team.yaml", "Path to the team file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Initialize(cfg.Logger)

	team, err := seed.LoadTeamFile(teamPath)
	if err != nil {
		return err
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(database); err != nil {
		return err
	}

	creds, err := seed.Seed(cmd.Context(), services.NewProfileDirectory(database), team, cfg.Auth.BcryptCost)
	printCredentials(cmd, creds)
	if err != nil {
		return fmt.Errorf("seeding stopped: %w", err)
	}
	return nil
}

func printCredentials(cmd *cobra.Command, creds []seed.Credential) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tROLE\tPASSWORD")
	for _, c := range creds {
		password := c.Password
		if !c.Created {
			password = "(already exists)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Email, c.Role, password)
	}
	w.Flush()
}
