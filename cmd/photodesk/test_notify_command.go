package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"photodesk/internal/config"
	"photodesk/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			channels := configuredChannels(cfg)
			if len(channels) == 0 {
				fmt.Fprintln(out, "Notification not sent: set notifications.ntfy_topic or the telegram token and chat id")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("test notification: %w", err)
			}
			fmt.Fprintf(out, "Test notification sent via %s\n", strings.Join(channels, ", "))
			return nil
		},
	}
}

func configuredChannels(cfg *config.Config) []string {
	var channels []string
	n := cfg.Notifications
	if strings.TrimSpace(n.NtfyTopic) != "" {
		channels = append(channels, "ntfy")
	}
	if strings.TrimSpace(n.TelegramToken) != "" && strings.TrimSpace(n.TelegramChatID) != "" {
		channels = append(channels, "telegram")
	}
	return channels
}
