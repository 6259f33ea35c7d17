package context

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Context is a small service wrapper that handles the startup/shutdown of the service
// Services are started in registration order and shut down in reverse order.
// Provides cross-service access while still maintaining separation of concerns
type Context struct {
	startOrder []string
	serviceMap map[string]Service

	stop     chan os.Signal
	stopOnce sync.Once
	done     chan struct{}
}

// NewCtx Create a new context containing the given services.
func NewCtx(svcs ...Service) (*Context, error) {
	ctx := Context{
		startOrder: make([]string, 0, len(svcs)),
		serviceMap: make(map[string]Service, len(svcs)),
		stop:       make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}

	for _, s := range svcs {
		if err := ctx.Register(s); err != nil {
			return nil, err
		}
	}

	return &ctx, nil
}

// Register a new service into the context and preserve the order passed
func (ctx *Context) Register(service Service) error {
	if _, ok := ctx.serviceMap[service.Id()]; ok {
		return fmt.Errorf("service %s already registered", service.Id())
	}

	ctx.startOrder = append(ctx.startOrder, service.Id())
	ctx.serviceMap[service.Id()] = service

	return nil
}

// Service Returns the given service.
// Note: once returned the service must be cast to the correct service
// Example: ctx.Service(RELAY_SVC).(*RelayService)
func (ctx *Context) Service(id string) Service {
	return ctx.serviceMap[id]
}

// Run configures and starts every service, then waits for SIGINT/SIGTERM (or Stop)
// and shuts the services down in reverse order before returning.
// Each service is configured first, if any fail here the context will bail out
// Each service is started, if any fail here the context will shut down what already started
func (ctx *Context) Run() error {
	signal.Notify(ctx.stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ctx.stop)

	started := 0
	go func() {
		sig := <-ctx.stop
		log.Info().Str("signal", sig.String()).Msg("Received signal. Shutting down")
		ctx.shutdown()
		close(ctx.done)
	}()

	for _, svcId := range ctx.startOrder {
		if err := ctx.Configure(ctx.serviceMap[svcId]); err != nil {
			log.Error().Err(err).Str("service", svcId).Msg("Context Configure Error")
			return err
		}
	}

	for _, svcId := range ctx.startOrder {
		if err := ctx.Start(ctx.serviceMap[svcId]); err != nil {
			log.Error().Err(err).Str("service", svcId).Msg("Context Start Error")
			for i := started - 1; i >= 0; i-- {
				ctx.serviceMap[ctx.startOrder[i]].Shutdown()
			}
			return err
		}
		started++
	}

	<-ctx.done
	return nil
}

// Stop asks a running context to shut down, as if it had received SIGTERM.
func (ctx *Context) Stop() {
	ctx.stopOnce.Do(func() {
		ctx.stop <- syscall.SIGTERM
	})
}

func (ctx *Context) shutdown() {
	for i := len(ctx.startOrder) - 1; i >= 0; i-- {
		svcId := ctx.startOrder[i]
		log.Info().Str("service", svcId).Msg("Shutting down")
		ctx.serviceMap[svcId].Shutdown()
	}
}

// Configure the given service
func (ctx *Context) Configure(svc Service) error {
	log.Info().Str("service", svc.Id()).Msg("Context Configure")

	if err := svc.Configure(ctx); err != nil {
		return err
	}

	return nil
}

// Start the given service
func (ctx *Context) Start(svc Service) error {
	log.Info().Str("service", svc.Id()).Msg("Context Start")

	if err := svc.Start(); err != nil {
		return err
	}

	return nil
}

func (ctx *Context) Services() []string {
	keys := make([]string, len(ctx.startOrder))
	copy(keys, ctx.startOrder)
	return keys
}
