package main

import (
	"docuchat-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create extensions and migrate relational tables",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}

	color.Yellow("Migrating %d tables...", len(database.Models()))
	if err := database.Migrate(db, true); err != nil {
		return err
	}
	color.Green("✅ Schema is up to date")
	return nil
}
