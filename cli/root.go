// Package cli provides the relaybot command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/requiem-ai/relaybot/config"
	"github.com/requiem-ai/relaybot/context"
	"github.com/requiem-ai/relaybot/services"
)

var (
	envFileFlag  string
	logLevelFlag string

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "relaybot",
	Short: "Telegram bot that relays chat messages to OpenAI",
	Long: `relaybot long-polls Telegram for text messages and answers each one with an
OpenAI chat completion. Each chat remembers only the bot's previous reply.

Secrets are read from the environment or the env file:
  TELEGRAM_TOKEN    Bot token from BotFather (TOKEN is accepted too)
  OPENAI_API_KEY    OpenAI API key

Examples:
  relaybot                             Run the bot
  relaybot --env-file /etc/relaybot.env
  relaybot register-commands           Publish /start, /clear and /help`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFileFlag); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFileFlag, err)
		}
		setupLogging(logLevel())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "relaybot %s (built %s)\n", Version, BuildTime)
			return nil
		}
		return runBot()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("relaybot exited with error")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", config.DefaultEnvFile, "Env file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(registerCommandsCmd)
}

func logLevel() string {
	if logLevelFlag != "" {
		return logLevelFlag
	}
	return config.LogLevel()
}

func runBot() error {
	log.Info().Str("version", Version).Msg("Starting relaybot")

	ctx, err := context.NewCtx(
		&services.SetupService{EnvFile: envFileFlag},
		&services.RelayService{},
		&services.TelegramService{},
	)
	if err != nil {
		return err
	}

	return ctx.Run()
}
