package services

import (
	ctx "context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tb "gopkg.in/telebot.v3"

	"github.com/requiem-ai/relaybot/context"
	"github.com/requiem-ai/relaybot/relay"
)

type eventSubmitter interface {
	Submit(c ctx.Context, ev relay.Event) error
}

// TelegramService is the chat transport: it long-polls for updates, hands
// text messages to the relay and delivers the relay's outbound messages.
type TelegramService struct {
	context.DefaultService

	Bot *tb.Bot

	relay         eventSubmitter
	allowedUserID int64
	dropPending   bool

	mu      sync.Mutex
	running bool
	stopped bool
	baseCtx ctx.Context
	cancel  ctx.CancelFunc
}

var _ relay.Transport = (*TelegramService)(nil)

const TELEGRAM_SVC = "telegram_svc"

var botCommands = []tb.Command{
	{Text: "start", Description: "Start over and show the welcome message"},
	{Text: "clear", Description: "Forget the last reply"},
	{Text: "help", Description: "Show available commands"},
}

func (svc *TelegramService) Id() string {
	return TELEGRAM_SVC
}

func (svc *TelegramService) Configure(ctx *context.Context) (err error) {
	if err := svc.DefaultService.Configure(ctx); err != nil {
		return err
	}

	setup, ok := svc.Service(SETUP_SVC).(*SetupService)
	if !ok {
		return errors.New("setup service not available")
	}
	cfg := setup.Config

	svc.allowedUserID = cfg.AllowedUserID
	svc.dropPending = cfg.DropPending

	svc.Bot, err = tb.NewBot(tb.Settings{
		Token: cfg.TelegramToken,
		Poller: &tb.LongPoller{
			Timeout: cfg.PollTimeout,
		},
		Synchronous: true,
		OnError: func(err error, c tb.Context) {
			svc.decorateTelegramEvent(log.Error().Err(err), c).Msg("telegram bot error")
		},
	})
	return err
}

func (svc *TelegramService) Start() error {
	relaySvc, ok := svc.Service(RELAY_SVC).(*RelayService)
	if !ok {
		return errors.New("relay service not available")
	}
	svc.relay = relaySvc

	svc.dropPendingUpdates()
	if err := setCommands(svc.Bot); err != nil {
		log.Warn().Err(err).Msg("failed to register bot commands")
	}

	svc.setupHandlers()

	svc.mu.Lock()
	if svc.stopped {
		svc.mu.Unlock()
		return nil
	}
	svc.running = true
	svc.mu.Unlock()

	log.Info().Str("bot", svc.Bot.Me.Username).Msg("telegram polling started")
	svc.Bot.Start()

	return nil
}

// Shutdown cancels pending submissions before stopping the poller, so a
// handler waiting on a full queue cannot hold Bot.Stop.
func (svc *TelegramService) Shutdown() {
	svc.mu.Lock()
	running := svc.running
	svc.running = false
	svc.stopped = true
	svc.ensureContextLocked()
	svc.cancel()
	svc.mu.Unlock()

	if svc.Bot == nil || !running {
		return
	}
	svc.Bot.Stop()
}

func (svc *TelegramService) dropPendingUpdates() {
	if !svc.dropPending {
		return
	}
	if err := svc.Bot.RemoveWebhook(true); err != nil {
		log.Warn().Err(err).Msg("failed to drop pending updates")
	}
}

func (svc *TelegramService) submitContext() ctx.Context {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.ensureContextLocked()
	return svc.baseCtx
}

func (svc *TelegramService) ensureContextLocked() {
	if svc.baseCtx == nil {
		svc.baseCtx, svc.cancel = ctx.WithCancel(ctx.Background())
	}
}

// Commands are routed by the relay, so only text is registered here.
func (svc *TelegramService) setupHandlers() {
	svc.Bot.Handle(tb.OnText, svc.guardHandler(svc.onText))
}

func (svc *TelegramService) guardHandler(fn tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) error {
		if c != nil {
			svc.decorateTelegramEvent(log.Info(), c).Msg("inbound telegram update")
		}

		allowed, reason := svc.isAllowedUser(c)
		if !allowed {
			svc.decorateTelegramEvent(
				log.Warn().
					Str("reason", reason).
					Int64("allowed_user_id", svc.allowedUserID),
				c,
			).Msg("telegram update blocked")
			return nil
		}

		if err := fn(c); err != nil {
			svc.decorateTelegramEvent(log.Error().Err(err), c).Msg("telegram handler returned error")
			return err
		}

		return nil
	}
}

func (svc *TelegramService) decorateTelegramEvent(event *zerolog.Event, c tb.Context) *zerolog.Event {
	if event == nil || c == nil {
		return event
	}

	if chat := c.Chat(); chat != nil {
		event = event.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
	}

	if sender := c.Sender(); sender != nil {
		event = event.Int64("user_id", sender.ID).Str("sender_username", sender.Username)
	}

	if msg := c.Message(); msg != nil {
		event = event.Int("message_id", msg.ID)
		if cmd := relay.Classify(msg.Text); cmd != relay.CommandText && cmd != relay.CommandNone {
			event = event.Str("command", cmd.String())
		}
	}

	return event
}

func (svc *TelegramService) isAllowedUser(c tb.Context) (bool, string) {
	if c == nil {
		return false, "missing_context"
	}
	sender := c.Sender()
	if sender != nil && svc.Bot != nil && svc.Bot.Me != nil && sender.ID == svc.Bot.Me.ID && sender.ID != 0 {
		return false, "sender_is_bot"
	}
	if svc.allowedUserID == 0 {
		return true, ""
	}
	if sender == nil {
		return false, "missing_sender"
	}
	if sender.ID != svc.allowedUserID {
		return false, "sender_not_allowed"
	}
	return true, ""
}

func (svc *TelegramService) onText(c tb.Context) error {
	ev, ok := eventFromContext(c)
	if !ok {
		return nil
	}
	if svc.relay == nil {
		return errors.New("relay service not available")
	}
	return svc.relay.Submit(svc.submitContext(), ev)
}

func eventFromContext(c tb.Context) (relay.Event, bool) {
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return relay.Event{}, false
	}

	ev := relay.Event{
		ID:        uuid.NewString(),
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      msg.Text,
	}
	if msg.Sender != nil {
		ev.SenderID = msg.Sender.ID
	}
	return ev, true
}

// Send delivers plain text; no parse mode is applied to model output.
func (svc *TelegramService) Send(_ ctx.Context, out relay.Outbound) error {
	chat := &tb.Chat{ID: out.ChatID}
	opts := &tb.SendOptions{}
	if out.ReplyTo != 0 {
		opts.ReplyTo = &tb.Message{ID: out.ReplyTo, Chat: chat}
	}

	_, err := svc.Bot.Send(chat, out.Text, opts)
	return err
}

func (svc *TelegramService) Typing(_ ctx.Context, chatID int64) error {
	return svc.Bot.Notify(&tb.Chat{ID: chatID}, tb.Typing)
}
