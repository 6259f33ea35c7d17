package context

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeService struct {
	DefaultService

	id       string
	rec      *recorder
	startErr error
}

func (svc *fakeService) Id() string {
	return svc.id
}

func (svc *fakeService) Configure(ctx *Context) error {
	svc.rec.add("configure:" + svc.id)
	return svc.DefaultService.Configure(ctx)
}

func (svc *fakeService) Start() error {
	svc.rec.add("start:" + svc.id)
	return svc.startErr
}

func (svc *fakeService) Shutdown() {
	svc.rec.add("shutdown:" + svc.id)
}

func TestNewCtx_DuplicateService(t *testing.T) {
	rec := &recorder{}
	_, err := NewCtx(&fakeService{id: "a", rec: rec}, &fakeService{id: "a", rec: rec})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already registered")
}

func TestContext_ServicesKeepRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	ctx, err := NewCtx(
		&fakeService{id: "setup", rec: rec},
		&fakeService{id: "relay", rec: rec},
		&fakeService{id: "telegram", rec: rec},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"setup", "relay", "telegram"}, ctx.Services())
}

func TestContext_RunStopOrdersLifecycle(t *testing.T) {
	rec := &recorder{}
	a := &fakeService{id: "a", rec: rec}
	b := &fakeService{id: "b", rec: rec}
	ctx, err := NewCtx(a, b)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- ctx.Run() }()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 4
	}, time.Second, 5*time.Millisecond)

	ctx.Stop()
	ctx.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	require.Equal(t, []string{
		"configure:a", "configure:b",
		"start:a", "start:b",
		"shutdown:b", "shutdown:a",
	}, rec.snapshot())

	require.Same(t, b, a.Service("b"))
}

func TestContext_StartErrorShutsDownStarted(t *testing.T) {
	rec := &recorder{}
	ctx, err := NewCtx(
		&fakeService{id: "a", rec: rec},
		&fakeService{id: "b", rec: rec, startErr: errors.New("boom")},
		&fakeService{id: "c", rec: rec},
	)
	require.NoError(t, err)

	err = ctx.Run()
	require.EqualError(t, err, "boom")
	require.Equal(t, []string{
		"configure:a", "configure:b", "configure:c",
		"start:a", "start:b",
		"shutdown:a",
	}, rec.snapshot())
}

func TestDefaultService_ServiceBeforeConfigure(t *testing.T) {
	var svc DefaultService
	require.Nil(t, svc.Service("anything"))
}
