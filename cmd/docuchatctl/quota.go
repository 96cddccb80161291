package main

import (
	"context"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/quota"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and reset token quotas",
}

var quotaResetCmd = &cobra.Command{
	Use:   "reset [user-id]",
	Short: "Reset a user's daily and/or monthly usage",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuotaReset,
}

var resetType string

func init() {
	quotaResetCmd.Flags().StringVarP(&resetType, "type", "t", string(quota.ResetAll), "daily, monthly or all")

	quotaCmd.AddCommand(quotaResetCmd)
	rootCmd.AddCommand(quotaCmd)
}

func runQuotaReset(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}

	ledger := quota.NewLedger(
		service.NewUsageStore(unitofwork.NewRepositoryFactory(db)),
		quota.Limits{Daily: cfg.Quota.DailyTokenLimit, Monthly: cfg.Quota.MonthlyTokenLimit},
		logger.NewNopLogger(),
	)

	usage, err := ledger.Reset(context.Background(), args[0], quota.ResetType(resetType))
	if err != nil {
		return err
	}

	color.Green("✅ Quota reset (%s) for %s", resetType, args[0])
	cmd.Printf("  Daily:   %d / %d\n", usage.TokensUsedToday, usage.DailyTokenLimit)
	cmd.Printf("  Monthly: %d / %d\n", usage.TokensUsedThisMonth, usage.MonthlyTokenLimit)
	return nil
}
