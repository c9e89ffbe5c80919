package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/cloudbox/pkg/internal/storage"
	kv "github.com/yeisme/cloudbox/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")

			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	// 列出匹配的键，默认列出分享快照.
	kvKeysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "list keys in the configured kv store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, mgr *storage.Manager) error {
				pattern := mgr.Config.Share.CachePrefix + "*"
				if len(args) == 1 {
					pattern = args[0]
				}

				keys, err := mgr.KV.Keys(ctx, pattern)
				if err != nil {
					return err
				}

				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}

				return nil
			})
		},
	}

	// 清空分享快照缓存.
	kvFlushSharesCmd = &cobra.Command{
		Use:   "flush-shares",
		Short: "drop every cached share snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, mgr *storage.Manager) error {
				if err := mgr.ShareCache.Clear(ctx); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "share cache cleared")

				return nil
			})
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd)
	kvCmd.AddCommand(kvKeysCmd)
	kvCmd.AddCommand(kvFlushSharesCmd)
}
