package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
)

var (
	storageCmd = &cobra.Command{
		Use:   "storage",
		Short: "Byte store and backend related commands",
	}

	storageListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered byte store types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered byte store types:")

			for _, t := range blob.RegisteredTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	// 依次检查 db、blob、kv、mq.
	storageCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "connect to every configured backend and report its health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, mgr *storage.Manager) error {
				failed := 0

				for _, c := range []storage.Component{
					storage.ComponentDB, storage.ComponentBlob, storage.ComponentKV, storage.ComponentMQ,
				} {
					checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
					err := mgr.Check(checkCtx, c)

					cancel()

					if err != nil {
						failed++

						fmt.Fprintf(cmd.OutOrStdout(), "%-5s down  %v\n", c, err)

						continue
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%-5s ok\n", c)
				}

				if failed > 0 {
					return fmt.Errorf("%d component(s) unhealthy", failed)
				}

				return nil
			})
		},
	}
)

// registerStorageCommands 注册存储相关命令.
func registerStorageCommands() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageListCmd)
	storageCmd.AddCommand(storageCheckCmd)
}
