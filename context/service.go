package context

// Service is a unit managed by Context.
// Configure is called for every service before any Start, in registration order.
// Start may block (the transport's poll loop does), so the blocking service goes last.
type Service interface {
	Id() string
	Configure(ctx *Context) error
	Start() error
	Shutdown()
}

// DefaultService gives embedding services access to the owning context and
// no-op lifecycle methods.
type DefaultService struct {
	ctx *Context
}

func (svc *DefaultService) Configure(ctx *Context) error {
	svc.ctx = ctx
	return nil
}

func (svc *DefaultService) Start() error {
	return nil
}

func (svc *DefaultService) Shutdown() {}

// Service looks up a sibling service, nil before Configure or when unknown.
func (svc *DefaultService) Service(id string) Service {
	if svc.ctx == nil {
		return nil
	}
	return svc.ctx.Service(id)
}
