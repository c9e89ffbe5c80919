package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

var (
	repairUserID string
	repairDryRun bool

	usageCmd = &cobra.Command{
		Use:   "usage",
		Short: "Storage usage accounting commands",
	}

	// 按实际文件大小重算 storage_used.
	usageRepairCmd = &cobra.Command{
		Use:   "repair",
		Short: "recompute storage usage from active files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, _ *storage.Manager) error {
				out, err := service.NewMaintenanceService(ctx).RepairUsage(ctx, types.RepairUsageRequest{
					UserID: repairUserID,
					DryRun: repairDryRun,
				})
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	trashCmd = &cobra.Command{
		Use:   "trash",
		Short: "Trash maintenance commands",
	}

	// 永久删除超过保留期的回收站内容.
	trashCleanCmd = &cobra.Command{
		Use:   "clean",
		Short: "purge trash entries older than jobs.trash_retention_days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, _ *storage.Manager) error {
				out, err := service.NewMaintenanceService(ctx).PurgeExpiredTrash(ctx)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
)

func registerUsageCommands() {
	usageRepairCmd.Flags().StringVar(&repairUserID, "user", "", "only repair this user id")
	usageRepairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "report drift without writing")

	usageCmd.AddCommand(usageRepairCmd)
	rootCmd.AddCommand(usageCmd)
}

func registerTrashCommands() {
	trashCmd.AddCommand(trashCleanCmd)
	rootCmd.AddCommand(trashCmd)
}
