package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/history"
	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hubsync/internal/synchronizer"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Synchronizer is the part of *synchronizer.Synchronizer the API serves from.
type Synchronizer interface {
	Devices() []device.Device
	Device(id string) (device.Device, bool)
	Snapshot() synchronizer.Snapshot
	Health() synchronizer.Health
	Refresh(ctx context.Context) ([]device.Device, error)
	Apply(ctx context.Context, intent device.Intent) error
}

// HubReader reads single entries straight from the controller.
// *hub.Client satisfies this interface.
type HubReader interface {
	Get(ctx context.Context, collection string, id hub.ID) (any, error)
}

// ConnectionChecker reports whether an optional downstream link is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Logger       *logging.Logger
	Synchronizer Synchronizer
	Hub          HubReader          // optional: enables /hub/{collection}/{id}
	History      history.Repository // optional: enables /devices/{id}/history
	MQTT         ConnectionChecker  // optional: reported by /health
	Gatherer     prometheus.Gatherer
	Version      string
}

// Server is the HTTP API server for hubsync.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	syncer    Synchronizer
	hubReader HubReader
	history   history.Repository
	mqtt      ConnectionChecker
	gatherer  prometheus.Gatherer
	version   string
	startTime time.Time

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc

	// lastState holds the state last broadcast per device.
	lastState   map[string]device.State
	lastStateMu sync.Mutex
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called, but it can be
// registered as a synchronizer listener straight away.
//
// Parameters:
//   - deps: Required dependencies (logger, synchronizer); the rest are optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Synchronizer == nil {
		return nil, fmt.Errorf("synchronizer is required")
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		syncer:    deps.Synchronizer,
		hubReader: deps.Hub,
		history:   deps.History,
		mqtt:      deps.MQTT,
		gatherer:  gatherer,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Logger),
		lastState: make(map[string]device.State),
	}, nil
}

// Handler returns the routed HTTP handler. Start uses it; tests can serve it directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for background goroutines (not the listener lifetime)
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.Read,
		ReadHeaderTimeout: s.cfg.Timeouts.Read,
		WriteTimeout:      s.cfg.Timeouts.Write,
		IdleTimeout:       s.cfg.Timeouts.Idle,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// UpdateState broadcasts a "device.state" event when d's state differs from
// the last one broadcast.
func (s *Server) UpdateState(d device.Device) {
	s.lastStateMu.Lock()
	prev, seen := s.lastState[d.ID]
	if seen && prev.Equal(d.State) {
		s.lastStateMu.Unlock()
		return
	}
	s.lastState[d.ID] = d.State.Clone()
	s.lastStateMu.Unlock()

	s.broadcastState(d)
}
