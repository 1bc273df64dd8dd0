package main

import (
	"fmt"
	"strings"

	"github.com/keepmind9/tgchannel/internal/core"
	"github.com/spf13/cobra"
)

var (
	sendChatID int64
	sendText   string

	sendCmd = &cobra.Command{
		Use:   "send --text <text> [--chat-id <id>]",
		Short: "Send a text message to a chat",
		Long: `Send one text message. Without --chat-id the message goes to
telegram.default_chat_id (TELEGRAM_CHAT_ID). Text longer than 4096 characters
is truncated.

Examples:
  tgchannel send --chat-id 123456789 --text "deploy finished"
  TELEGRAM_CHAT_ID=123456789 tgchannel send --text "hello"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			chatID, err := resolveChatID(sendChatID, cmd.Flags().Changed("chat-id"), config)
			if err != nil {
				return err
			}
			if strings.TrimSpace(sendText) == "" {
				return fmt.Errorf("message text cannot be empty")
			}

			engine := core.NewEngine(config)
			messageID, err := engine.Bot().SendText(cmd.Context(), chatID, sendText)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to chat %d\n", messageID, chatID)
			return nil
		},
	}
)

// resolveChatID prefers the flag, then the configured default chat.
func resolveChatID(flagValue int64, flagSet bool, config *core.Config) (int64, error) {
	if flagSet {
		return flagValue, nil
	}
	if config != nil && config.Telegram.DefaultChatID != 0 {
		return config.Telegram.DefaultChatID, nil
	}
	return 0, fmt.Errorf("missing chat id: use --chat-id or set TELEGRAM_CHAT_ID")
}

func init() {
	sendCmd.Flags().Int64Var(&sendChatID, "chat-id", 0, "Target chat id (default: TELEGRAM_CHAT_ID)")
	sendCmd.Flags().StringVarP(&sendText, "text", "t", "", "Message text")
	sendCmd.MarkFlagRequired("text")
}
