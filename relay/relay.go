// Package relay routes inbound chat text and produces replies: commands reset
// or describe the bot, everything else goes to the completion provider along
// with the chat's previous response.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/requiem-ai/relaybot/llm"
)

// Event is one inbound text message.
type Event struct {
	ID        string
	ChatID    int64
	MessageID int
	SenderID  int64
	Text      string
}

// Outbound is one message to send. ReplyTo, when non-zero, threads the message
// as a reply to that message id.
type Outbound struct {
	ChatID  int64
	Text    string
	ReplyTo int
}

type Transport interface {
	Send(ctx context.Context, msg Outbound) error
	Typing(ctx context.Context, chatID int64) error
}

// ContextStore is the per-chat memory of the last response.
type ContextStore interface {
	Get(chatID int64) string
	Set(chatID int64, text string)
	Reset(chatID int64)
}

type HandlerFunc func(ctx context.Context, ev Event) error

type Relay struct {
	store       ContextStore
	provider    llm.Client
	transport   Transport
	errorNotice string

	handlers map[Command]HandlerFunc
}

type Option func(*Relay)

// WithErrorNotice sets the message sent when the provider fails. An empty
// notice sends nothing.
func WithErrorNotice(text string) Option {
	return func(r *Relay) {
		r.errorNotice = text
	}
}

func New(store ContextStore, provider llm.Client, transport Transport, opts ...Option) (*Relay, error) {
	if store == nil {
		return nil, errors.New("relay: context store must not be nil")
	}
	if provider == nil {
		return nil, errors.New("relay: provider must not be nil")
	}
	if transport == nil {
		return nil, errors.New("relay: transport must not be nil")
	}

	r := &Relay{
		store:       store,
		provider:    provider,
		transport:   transport,
		errorNotice: DefaultErrorNotice,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.handlers = map[Command]HandlerFunc{
		CommandStart: r.onStart,
		CommandClear: r.onClear,
		CommandHelp:  r.onHelp,
		CommandText:  r.onText,
	}

	return r, nil
}

// Handle runs the event to completion, including the provider call.
func (r *Relay) Handle(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	cmd := Classify(ev.Text)
	handler, ok := r.handlers[cmd]
	if !ok {
		r.logger(ev).Debug().Msg("ignoring blank message")
		return nil
	}

	r.logger(ev).Debug().Str("command", cmd.String()).Msg("dispatch")
	return handler(ctx, ev)
}

func (r *Relay) onStart(ctx context.Context, ev Event) error {
	r.store.Reset(ev.ChatID)
	return r.transport.Send(ctx, Outbound{ChatID: ev.ChatID, Text: WelcomeText, ReplyTo: ev.MessageID})
}

// onClear is silent, unlike onStart.
func (r *Relay) onClear(_ context.Context, ev Event) error {
	r.store.Reset(ev.ChatID)
	r.logger(ev).Info().Msg("context cleared")
	return nil
}

func (r *Relay) onHelp(ctx context.Context, ev Event) error {
	return r.transport.Send(ctx, Outbound{ChatID: ev.ChatID, Text: HelpText, ReplyTo: ev.MessageID})
}

func (r *Relay) onText(ctx context.Context, ev Event) error {
	logger := r.logger(ev)
	logger.Debug().Str("text", ev.Text).Msg("user message")

	_ = r.transport.Typing(ctx, ev.ChatID)

	prior := r.store.Get(ev.ChatID)
	resp, err := r.provider.Complete(ctx, llm.Request{Prior: prior, Text: ev.Text})
	if err != nil {
		logger.Error().Err(err).Str("provider", r.provider.ID()).Msg("completion failed")
		if r.errorNotice != "" {
			if sendErr := r.transport.Send(ctx, Outbound{ChatID: ev.ChatID, Text: r.errorNotice}); sendErr != nil {
				logger.Error().Err(sendErr).Msg("failed to send error notice")
			}
		}
		return fmt.Errorf("relay: reply to chat %d: %w", ev.ChatID, err)
	}

	r.store.Set(ev.ChatID, resp.Text)
	logger.Debug().Str("text", resp.Text).Msg("model reply")

	return r.transport.Send(ctx, Outbound{ChatID: ev.ChatID, Text: resp.Text})
}

func (r *Relay) logger(ev Event) *zerolog.Logger {
	logger := log.With().
		Str("event_id", ev.ID).
		Int64("chat_id", ev.ChatID).
		Int64("user_id", ev.SenderID).
		Logger()
	return &logger
}
