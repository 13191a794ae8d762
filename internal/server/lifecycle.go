// Package server supervises long-running simulator work: services run until
// they finish, fail, or a termination signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a supervised unit of work. Start blocks until the work ends;
// Stop asks it to end early.
type Service interface {
	Start() error
	Stop()
}

// ContextService runs a context-aware function as a Service. Stop cancels the
// context passed to the function.
type ContextService struct {
	run     func(ctx context.Context) error
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

// NewContextService wraps run.
//
// Precondition: run must return promptly once its context is cancelled.
func NewContextService(run func(ctx context.Context) error) *ContextService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ContextService{run: run, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Start calls run and blocks until it returns. A run that ends because Stop
// cancelled it reports nil.
//
// Precondition: Start is called at most once.
func (c *ContextService) Start() error {
	c.started.Store(true)
	defer close(c.done)
	err := c.run(c.ctx)
	if err != nil && c.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop cancels the running function and waits for it to return.
func (c *ContextService) Stop() {
	c.cancel()
	if c.started.Load() {
		<-c.done
	}
}

// Lifecycle supervises a set of named services. All services start together
// and are stopped in reverse registration order.
type Lifecycle struct {
	logger   *zap.Logger
	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// outcome is what one service's Start returned.
type outcome struct {
	name string
	err  error
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc under name.
//
// Precondition: name must be non-empty; svc must be non-nil; Run has not
// started.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until all of them have returned from
// Start, one fails, SIGINT or SIGTERM arrives, or ctx is cancelled.
//
// Postcondition: Every service has been stopped. Returns the first service
// error wrapped with its name, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	outcomes := make(chan outcome, len(services))
	for _, ns := range services {
		go l.launch(ns, outcomes)
	}
	l.logger.Debug("services launched", zap.Int("count", len(services)))

	runErr := l.await(ctx, sigCh, outcomes, len(services))
	l.shutdown(services)

	l.logger.Info("lifecycle complete",
		zap.Int("services", len(services)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", runErr != nil),
	)
	return runErr
}

func (l *Lifecycle) launch(ns namedService, outcomes chan<- outcome) {
	began := time.Now()
	l.logger.Debug("service starting", zap.String("service", ns.name))
	err := ns.service.Start()
	if err != nil {
		l.logger.Error("service failed",
			zap.String("service", ns.name),
			zap.Duration("uptime", time.Since(began)),
			zap.Error(err),
		)
	} else {
		l.logger.Debug("service returned",
			zap.String("service", ns.name),
			zap.Duration("uptime", time.Since(began)),
		)
	}
	outcomes <- outcome{name: ns.name, err: err}
}

// await returns once pending services have all returned cleanly, or with the
// first failure, or early on a signal or cancellation.
func (l *Lifecycle) await(ctx context.Context, sigCh <-chan os.Signal, outcomes <-chan outcome, pending int) error {
	for pending > 0 {
		select {
		case o := <-outcomes:
			if o.err != nil {
				return fmt.Errorf("service %s: %w", o.name, o.err)
			}
			pending--
		case sig := <-sigCh:
			l.logger.Info("signal received, stopping", zap.String("signal", sig.String()))
			return nil
		case <-ctx.Done():
			l.logger.Info("context done, stopping", zap.Error(ctx.Err()))
			return nil
		}
	}
	return nil
}

func (l *Lifecycle) shutdown(services []namedService) {
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		began := time.Now()
		ns.service.Stop()
		l.logger.Debug("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(began)),
		)
	}
}
