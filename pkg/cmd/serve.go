package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/cloudbox/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP server and scheduled jobs",
	// 配置由 app 自行加载
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.NewApp(cmd.Context(), configPath)
		if err != nil {
			return err
		}

		return a.Run(cmd.Context())
	},
}

func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}
