package services

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	tb "gopkg.in/telebot.v3"

	"github.com/requiem-ai/relaybot/config"
	"github.com/requiem-ai/relaybot/context"
	"github.com/requiem-ai/relaybot/llm"
)

// SetupService loads the configuration other services read from. When a
// secret is missing and stdin is a terminal it walks the operator through
// entering it and saves the result to the env file.
type SetupService struct {
	context.DefaultService

	EnvFile string
	Config  config.Config

	in          io.Reader
	out         io.Writer
	interactive func() bool
}

const SETUP_SVC = "setup_svc"

const verificationTimeout = 5 * time.Minute

func (svc SetupService) Id() string {
	return SETUP_SVC
}

func (svc *SetupService) Configure(ctx *context.Context) error {
	if err := svc.DefaultService.Configure(ctx); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		if !svc.isInteractive() {
			return err
		}
		if cfg, err = svc.runSecretsSetup(cfg); err != nil {
			return err
		}
	}

	svc.Config = cfg
	log.Info().
		Str("model", cfg.OpenAIModel).
		Bool("restricted", cfg.AllowedUserID != 0).
		Msg("configuration loaded")
	return nil
}

func (svc *SetupService) runSecretsSetup(cfg config.Config) (config.Config, error) {
	reader := bufio.NewReader(svc.input())
	out := svc.output()

	fmt.Fprintln(out, "Relaybot setup")
	fmt.Fprintln(out, "Press Enter to keep the current value shown in brackets.")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "BotFather tips:")
	fmt.Fprintln(out, "- Create a bot with /newbot, then copy the token.")
	fmt.Fprintln(out, "- No webhook needed; relaybot uses long polling.")
	fmt.Fprintln(out, "")

	token, err := promptRequired(reader, out, "Bot token (from BotFather /newbot)", cfg.TelegramToken)
	if err != nil {
		return cfg, err
	}
	apiKey, err := promptRequired(reader, out, "OpenAI API key", cfg.OpenAIKey)
	if err != nil {
		return cfg, err
	}
	model, err := promptWithDefault(reader, out, "Model", cfg.OpenAIModel, llm.DefaultModel)
	if err != nil {
		return cfg, err
	}

	updates := map[string]string{
		config.EnvTelegramToken: token,
		config.EnvOpenAIKey:     apiKey,
		config.EnvOpenAIModel:   model,
	}
	cfg.TelegramToken = token
	cfg.OpenAIKey = apiKey
	cfg.OpenAIModel = model

	if cfg.AllowedUserID == 0 && confirm(reader, out, "Restrict the bot to your Telegram account? (y/N): ") {
		userID, err := svc.runUserIDVerification(token)
		if err != nil {
			return cfg, err
		}
		cfg.AllowedUserID = userID
		updates[config.EnvAllowedUserID] = strconv.FormatInt(userID, 10)
	}

	envFile := svc.envFile()
	if err := config.SaveEnv(envFile, updates); err != nil {
		return cfg, err
	}
	fmt.Fprintf(out, "Setup saved to %s.\n", envFile)

	return cfg, nil
}

func (svc *SetupService) runUserIDVerification(token string) (int64, error) {
	code, err := generateVerificationCode()
	if err != nil {
		return 0, err
	}

	out := svc.output()
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Telegram user verification")
	fmt.Fprintln(out, "Send this code to the bot in Telegram to authorize your user:")
	fmt.Fprintln(out, code)
	fmt.Fprintln(out, "")

	return waitForVerification(token, code, verificationTimeout)
}

func (svc *SetupService) envFile() string {
	if svc.EnvFile != "" {
		return svc.EnvFile
	}
	return config.DefaultEnvFile
}

func (svc *SetupService) isInteractive() bool {
	if svc.interactive != nil {
		return svc.interactive()
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (svc *SetupService) input() io.Reader {
	if svc.in != nil {
		return svc.in
	}
	return os.Stdin
}

func (svc *SetupService) output() io.Writer {
	if svc.out != nil {
		return svc.out
	}
	return os.Stdout
}

// RegisterCommands publishes the command menu shown by Telegram clients.
func RegisterCommands(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("telegram bot token is required to register commands")
	}

	bot, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 1 * time.Second},
	})
	if err != nil {
		return err
	}

	return setCommands(bot)
}

func setCommands(bot *tb.Bot) error {
	return bot.SetCommands(botCommands, tb.CommandScope{Type: tb.CommandScopeDefault})
}

func generateVerificationCode() (string, error) {
	const codeDigits = 6
	const maxDigit = 10

	var sb strings.Builder
	sb.Grow(codeDigits)
	for i := 0; i < codeDigits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(maxDigit))
		if err != nil {
			return "", err
		}
		sb.WriteString(strconv.Itoa(int(n.Int64())))
	}
	return sb.String(), nil
}

func waitForVerification(token, code string, timeout time.Duration) (int64, error) {
	bot, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return 0, err
	}

	done := make(chan int64, 1)
	bot.Handle(tb.OnText, func(c tb.Context) error {
		if strings.TrimSpace(c.Text()) != code {
			return nil
		}
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		select {
		case done <- sender.ID:
		default:
		}
		_ = c.Send("Verification received. You can return to the setup.")
		return nil
	})

	go bot.Start()
	defer bot.Stop()

	select {
	case userID := <-done:
		return userID, nil
	case <-time.After(timeout):
		return 0, errors.New("telegram verification timed out")
	}
}

func confirm(reader *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	text, _ := reader.ReadString('\n')
	text = strings.TrimSpace(strings.ToLower(text))
	return text == "y" || text == "yes"
}

func promptRequired(reader *bufio.Reader, out io.Writer, label, current string) (string, error) {
	for {
		value, err := promptWithDefault(reader, out, label, current, "")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(value) == "" {
			fmt.Fprintln(out, "Value required.")
			continue
		}
		return value, nil
	}
}

func promptWithDefault(reader *bufio.Reader, out io.Writer, label, current, fallback string) (string, error) {
	display := current
	if display == "" {
		display = fallback
	}

	if display != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, display)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	text, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		if current != "" {
			return current, nil
		}
		return fallback, nil
	}

	return text, nil
}
