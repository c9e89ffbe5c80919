package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/cloudbox/pkg/configs"
)

var (
	// config 子命令.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				fmt.Println("config not initialized")

				return nil
			}

			cfg := v.ConfigFileUsed()
			if cfg == "" {
				fmt.Println("no config file used (maybe using defaults or env)")

				return nil
			}

			fmt.Println(cfg)

			return nil
		},
	}

	// 校验当前配置.
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "validate the current config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.ValidateConfig(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config ok")

			return nil
		},
	}

	// 调用 viper 的 Debug 输出.
	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the current config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			c := configs.GetConfig()
			if v == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config not initialized.")

				return nil
			}

			if debug {
				v.Debug()
			}

			// 以 JSON 格式打印当前配置，隐藏密钥
			masked := *c
			masked.Auth.JWTSecret = mask(masked.Auth.JWTSecret)
			masked.DB.Password = mask(masked.DB.Password)
			masked.S3.SecretAccessKey = mask(masked.S3.SecretAccessKey)
			masked.KV.Redis.Password = mask(masked.KV.Redis.Password)
			masked.KV.NATS.Password = mask(masked.KV.NATS.Password)

			return printJSON(cmd.OutOrStdout(), masked)
		},
	}
)

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	configCmd.AddCommand(pathCmd)
	configCmd.AddCommand(debugCmd)
	configCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(configCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}

	return "******"
}
