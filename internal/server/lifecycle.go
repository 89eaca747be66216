// Package server provides application lifecycle management including
// graceful startup and shutdown with signal handling.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds one service's Shutdown call.
const DefaultShutdownTimeout = 15 * time.Second

// Service is a long-running component under lifecycle management.
type Service interface {
	// Name identifies the service in logs.
	Name() string
	// Run executes the service. It should block until ctx is canceled,
	// Shutdown is called, or an error occurs. A nil return is a clean
	// exit.
	Run(ctx context.Context) error
	// Shutdown gracefully stops the service, unblocking Run.
	Shutdown(ctx context.Context) error
}

// FuncService adapts run/shutdown functions into the Service interface.
// A nil RunFn blocks until ctx is done; a nil ShutdownFn is a no-op.
type FuncService struct {
	ServiceName string
	RunFn       func(ctx context.Context) error
	ShutdownFn  func(ctx context.Context) error
}

// Name identifies the service in logs.
func (f *FuncService) Name() string { return f.ServiceName }

// Run calls the underlying run function.
func (f *FuncService) Run(ctx context.Context) error {
	if f.RunFn == nil {
		<-ctx.Done()
		return nil
	}
	return f.RunFn(ctx)
}

// Shutdown calls the underlying shutdown function.
func (f *FuncService) Shutdown(ctx context.Context) error {
	if f.ShutdownFn == nil {
		return nil
	}
	return f.ShutdownFn(ctx)
}

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order.
type Lifecycle struct {
	logger          *zap.Logger
	shutdownTimeout time.Duration

	mu       sync.Mutex
	services []Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// Add registers a service. Services are started in the order they are added.
//
// Precondition: svc must be non-nil.
func (l *Lifecycle) Add(svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, svc)
}

// Run starts all services and blocks until a termination signal is received
// (SIGINT or SIGTERM), ctx is canceled, or a service fails. Then services are
// shut down in reverse order.
//
// Postcondition: All services are stopped when this method returns. Returns
// the error that triggered shutdown, if any.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(l.services))
	var wg sync.WaitGroup
	for _, svc := range l.services {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.logger.Info("starting service",
				zap.String("service", svc.Name()),
			)
			svcStart := time.Now()
			if err := svc.Run(ctx); err != nil {
				l.logger.Error("service failed",
					zap.String("service", svc.Name()),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", svc.Name(), err)
				cancel()
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(l.services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down",
			zap.Error(runErr),
		)
	case <-ctx.Done():
		l.logger.Info("context canceled, shutting down")
	}

	cancel()
	l.shutdown()
	wg.Wait()

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return runErr
}

// shutdown stops services in reverse registration order, each under its own
// timeout.
func (l *Lifecycle) shutdown() {
	shutdownStart := time.Now()
	for i := len(l.services) - 1; i >= 0; i-- {
		svc := l.services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service",
			zap.String("service", svc.Name()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
		if err := svc.Shutdown(ctx); err != nil {
			l.logger.Warn("service shutdown failed",
				zap.String("service", svc.Name()),
				zap.Error(err),
			)
		}
		cancel()
		l.logger.Info("service stopped",
			zap.String("service", svc.Name()),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
