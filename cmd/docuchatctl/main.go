package main

import (
	"fmt"
	"os"

	"docuchat-be/internal/config"
	"docuchat-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "docuchatctl",
	Short:         "Operate a DocuChat deployment",
	Long:          `Maintenance commands for the DocuChat backend: schema migration, vector collection rebuilds and quota resets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var cfg *config.Config

func init() {
	cobra.OnInitialize(func() {
		cfg = config.Load()
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func openDatabase() (*gorm.DB, error) {
	if cfg.Database.Connection == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
