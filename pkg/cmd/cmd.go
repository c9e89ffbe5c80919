// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/cloudbox/pkg/configs"
	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "cloudbox",
		Short:         "A multi-user file storage service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configs.InitConfig(configPath)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print verbose output")

	registerServeCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerStorageCommands()
	registerUsageCommands()
	registerTrashCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withManager 打开存储资源并注入 context，fn 返回后关闭.
func withManager(ctx context.Context, fn func(ctx context.Context, mgr *storage.Manager) error) error {
	mgr, err := storage.New(ctx, configs.GetConfig())
	if err != nil {
		return err
	}

	defer mgr.Close()

	return fn(ctxPkg.WithStorageManager(ctx, mgr), mgr)
}

// printJSON 以缩进 JSON 输出 v.
func printJSON(w io.Writer, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
