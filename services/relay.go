package services

import (
	ctx "context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/requiem-ai/relaybot/config"
	"github.com/requiem-ai/relaybot/context"
	"github.com/requiem-ai/relaybot/llm"
	"github.com/requiem-ai/relaybot/memory"
	"github.com/requiem-ai/relaybot/relay"
	"github.com/requiem-ai/relaybot/worker"
)

// RelayService owns the conversation memory, the completion provider and the
// worker pool that runs inbound events.
type RelayService struct {
	context.DefaultService

	DrainTimeout time.Duration

	store    *memory.Store
	provider llm.Client
	relay    *relay.Relay
	pool     *worker.Pool

	errorNotice string

	cancel  ctx.CancelFunc
	stopped chan struct{}
}

const RELAY_SVC = "relay_svc"

const defaultDrainTimeout = 30 * time.Second

func (svc RelayService) Id() string {
	return RELAY_SVC
}

func (svc *RelayService) Configure(appCtx *context.Context) error {
	if err := svc.DefaultService.Configure(appCtx); err != nil {
		return err
	}

	setup, ok := svc.Service(SETUP_SVC).(*SetupService)
	if !ok {
		return errors.New("setup service not available")
	}
	cfg := setup.Config

	provider, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, llm.WithBaseURL(cfg.OpenAIBaseURL))
	if err != nil {
		return err
	}

	svc.configure(cfg, provider)
	return nil
}

func (svc *RelayService) configure(cfg config.Config, provider llm.Client) {
	svc.store = memory.NewStore()
	svc.provider = provider
	svc.pool = worker.NewPool(cfg.Workers, cfg.QueueDepth)
	svc.errorNotice = cfg.ErrorNotice
	if svc.DrainTimeout <= 0 {
		svc.DrainTimeout = defaultDrainTimeout
	}

	log.Info().
		Str("provider", provider.ID()).
		Int("workers", svc.pool.Lanes()).
		Int("queue_depth", cfg.QueueDepth).
		Msg("relay configured")
}

func (svc *RelayService) Start() error {
	transport, ok := svc.Service(TELEGRAM_SVC).(relay.Transport)
	if !ok {
		return errors.New("telegram service not available")
	}
	return svc.start(transport)
}

func (svc *RelayService) start(transport relay.Transport) error {
	r, err := relay.New(svc.store, svc.provider, transport, relay.WithErrorNotice(svc.errorNotice))
	if err != nil {
		return err
	}
	svc.relay = r

	runCtx, cancel := ctx.WithCancel(ctx.Background())
	svc.cancel = cancel
	svc.stopped = make(chan struct{})

	go func() {
		defer close(svc.stopped)
		if err := svc.pool.Run(runCtx); err != nil {
			log.Error().Err(err).Msg("relay worker pool stopped")
		}
	}()

	return nil
}

// Submit queues the event; its reply is produced asynchronously.
func (svc *RelayService) Submit(c ctx.Context, ev relay.Event) error {
	if svc.relay == nil {
		return errors.New("relay service not started")
	}

	return svc.pool.Submit(c, worker.Task{
		Key: ev.ChatID,
		Run: func(runCtx ctx.Context) {
			if err := svc.relay.Handle(runCtx, ev); err != nil {
				log.Error().Err(err).
					Str("event_id", ev.ID).
					Int64("chat_id", ev.ChatID).
					Msg("relay handler returned error")
			}
		},
	})
}

// Store exposes the conversation memory, mainly for diagnostics.
func (svc *RelayService) Store() *memory.Store {
	return svc.store
}

// Shutdown stops accepting events and waits for queued ones. In-flight
// completions are cancelled once DrainTimeout passes.
func (svc *RelayService) Shutdown() {
	if svc.pool == nil {
		return
	}
	svc.pool.Close()
	if svc.stopped == nil {
		return
	}

	select {
	case <-svc.stopped:
		return
	case <-time.After(svc.DrainTimeout):
		log.Warn().Dur("timeout", svc.DrainTimeout).Msg("relay drain timed out, cancelling in-flight requests")
	}

	svc.cancel()
	<-svc.stopped
}
