package system

import "context"

// Service represents a lifecycle-managed component. All application modules
// must implement this interface so the system manager can start and stop them
// deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService satisfies Service for modules that need registration but have
// no background work of their own.
type NoopService struct {
	ServiceName string
}

func (n NoopService) Name() string                 { return n.ServiceName }
func (n NoopService) Start(context.Context) error  { return nil }
func (n NoopService) Stop(context.Context) error   { return nil }
