package espalier

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/espalier/internal/logging"
	httpadapter "github.com/aretw0/espalier/pkg/adapters/http"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/flow"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/session"
)

// Version is the current release of the espalier module.
var Version = "0.1.0"

// App wires a flow registry to persistence, session management and the HTTP
// dispatcher. It is the high-level entry point for consumers that do not
// need to assemble the pieces themselves.
type App struct {
	registry *flow.Registry
	store    ports.StateStore
	locker   ports.DistributedLocker
	sessions *session.Manager
	logger   *slog.Logger
	metrics  *observability.Metrics
	handler  http.Handler
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithStore injects a state store, bypassing the default in-memory store.
func WithStore(store ports.StateStore) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(a *App) {
		a.locker = locker
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation of the dispatcher.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// New binds the registry and assembles the app. The default configuration
// uses an in-memory store and a no-op logger.
func New(reg *flow.Registry, opts ...Option) (*App, error) {
	a := &App{registry: reg}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}

	mgrOpts := []session.Option{session.WithLogger(a.logger)}
	if a.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(a.locker))
	}
	a.sessions = session.NewManager(a.store, mgrOpts...)

	httpOpts := []httpadapter.Option{httpadapter.WithLogger(a.logger)}
	if a.metrics != nil {
		httpOpts = append(httpOpts, httpadapter.WithMetrics(a.metrics))
	}
	handler, err := httpadapter.NewHandler(reg, a.sessions, httpOpts...)
	if err != nil {
		return nil, err
	}
	a.handler = handler

	return a, nil
}

// Handler returns the mounted HTTP handler for all flow routes.
func (a *App) Handler() http.Handler { return a.handler }

// Sessions returns the session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Registry returns the bound flow registry.
func (a *App) Registry() *flow.Registry { return a.registry }
