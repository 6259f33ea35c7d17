package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/requiem-ai/relaybot/config"
	"github.com/requiem-ai/relaybot/services"
)

var registerCommandsCmd = &cobra.Command{
	Use:   "register-commands",
	Short: "Publish the bot command menu to Telegram",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.TelegramToken == "" {
			return fmt.Errorf("%s: %w", config.EnvTelegramToken, config.ErrMissingSecret)
		}

		if err := services.RegisterCommands(cfg.TelegramToken); err != nil {
			return fmt.Errorf("failed to register commands: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Telegram commands and menu updated.")
		return nil
	},
}
