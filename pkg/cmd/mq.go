package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"

	"github.com/yeisme/cloudbox/pkg/internal/storage"
	mq "github.com/yeisme/cloudbox/pkg/internal/storage/mq"
	"github.com/yeisme/cloudbox/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "Message queue related commands",
		Aliases: []string{"messagequeue"},
	}

	mqListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered mq types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")

			for _, t := range mq.GetRegisteredMQTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	mqTopicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "list domain event topics",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range queue.AllTopics() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	// 订阅事件并逐条打印，Ctrl-C 退出.
	mqTailCmd = &cobra.Command{
		Use:   "tail [topic...]",
		Short: "print domain events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			topics := args
			if len(topics) == 0 {
				topics = queue.AllTopics()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withManager(ctx, func(ctx context.Context, mgr *storage.Manager) error {
				merged := make(chan *message.Message)

				for _, topic := range topics {
					ch, err := mgr.MQ.Subscribe(ctx, topic)
					if err != nil {
						return fmt.Errorf("subscribe %s: %w", topic, err)
					}

					go func() {
						for msg := range ch {
							select {
							case merged <- msg:
							case <-ctx.Done():
								return
							}
						}
					}()
				}

				for {
					select {
					case <-ctx.Done():
						return nil
					case msg := <-merged:
						fmt.Fprintln(cmd.OutOrStdout(), string(msg.Payload))
						msg.Ack()
					}
				}
			})
		},
	}
)

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd)
	mqCmd.AddCommand(mqTopicsCmd)
	mqCmd.AddCommand(mqTailCmd)
}
