package services

import (
	ctx "context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/requiem-ai/relaybot/config"
	"github.com/requiem-ai/relaybot/llm"
	"github.com/requiem-ai/relaybot/relay"
)

type echoProvider struct{}

func (echoProvider) ID() string { return "echo" }

func (echoProvider) Complete(_ ctx.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Text: "echo: " + req.Text}, nil
}

// blockingProvider holds every completion until its context ends.
type blockingProvider struct {
	started chan struct{}
}

func (blockingProvider) ID() string { return "blocking" }

func (p blockingProvider) Complete(c ctx.Context, _ llm.Request) (llm.Response, error) {
	p.started <- struct{}{}
	<-c.Done()
	return llm.Response{}, c.Err()
}

type chanTransport struct {
	sent chan relay.Outbound
}

func newChanTransport() *chanTransport {
	return &chanTransport{sent: make(chan relay.Outbound, 16)}
}

func (t *chanTransport) Send(_ ctx.Context, out relay.Outbound) error {
	t.sent <- out
	return nil
}

func (t *chanTransport) Typing(ctx.Context, int64) error { return nil }

func (t *chanTransport) next(tt *testing.T) relay.Outbound {
	tt.Helper()
	select {
	case out := <-t.sent:
		return out
	case <-time.After(2 * time.Second):
		tt.Fatal("timed out waiting for outbound message")
		return relay.Outbound{}
	}
}

func testRelayConfig() config.Config {
	return config.Config{Workers: 2, QueueDepth: 4, ErrorNotice: "try again"}
}

func TestRelayService_SubmitBeforeStart(t *testing.T) {
	svc := &RelayService{}
	svc.configure(testRelayConfig(), echoProvider{})

	err := svc.Submit(ctx.Background(), relay.Event{ChatID: 1, Text: "hi"})
	require.Error(t, err)
}

func TestRelayService_RoutesEventsAndRemembersReply(t *testing.T) {
	svc := &RelayService{}
	svc.configure(testRelayConfig(), echoProvider{})
	transport := newChanTransport()
	require.NoError(t, svc.start(transport))
	defer svc.Shutdown()

	require.NoError(t, svc.Submit(ctx.Background(), relay.Event{ChatID: 5, MessageID: 1, Text: "hello"}))
	out := transport.next(t)
	require.Equal(t, relay.Outbound{ChatID: 5, Text: "echo: hello"}, out)

	require.NoError(t, svc.Submit(ctx.Background(), relay.Event{ChatID: 5, MessageID: 2, Text: "/help"}))
	out = transport.next(t)
	require.Equal(t, relay.HelpText, out.Text)
	require.Equal(t, 2, out.ReplyTo)

	require.Equal(t, "echo: hello", svc.Store().Get(5))
}

func TestRelayService_ShutdownDrainsQueue(t *testing.T) {
	svc := &RelayService{}
	svc.configure(testRelayConfig(), echoProvider{})
	transport := newChanTransport()
	require.NoError(t, svc.start(transport))

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Submit(ctx.Background(), relay.Event{ChatID: 9, Text: "ping"}))
	}
	svc.Shutdown()

	require.Len(t, transport.sent, 3)
	require.Error(t, svc.Submit(ctx.Background(), relay.Event{ChatID: 9, Text: "late"}))
}

func TestRelayService_ShutdownCancelsAfterDrainTimeout(t *testing.T) {
	provider := blockingProvider{started: make(chan struct{}, 1)}
	svc := &RelayService{DrainTimeout: 50 * time.Millisecond}
	svc.configure(testRelayConfig(), provider)
	transport := newChanTransport()
	require.NoError(t, svc.start(transport))

	require.NoError(t, svc.Submit(ctx.Background(), relay.Event{ChatID: 3, Text: "slow"}))
	<-provider.started

	done := make(chan struct{})
	go func() {
		svc.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not cancel in-flight completion")
	}

	require.Equal(t, "try again", transport.next(t).Text)
	require.Equal(t, "", svc.Store().Get(3))
}

func TestRelayService_ShutdownWithoutStart(t *testing.T) {
	(&RelayService{}).Shutdown()

	svc := &RelayService{}
	svc.configure(testRelayConfig(), echoProvider{})
	svc.Shutdown()
}
