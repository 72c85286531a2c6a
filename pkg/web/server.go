// Package web exposes the ordering pipeline over HTTP.
//
// Gesture signals and typed messages come in through the REST API; status,
// transcript and cart changes go out on the /ws/status websocket.
package web

import (
	"context"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voiceorder/pkg/hub"
	"github.com/teslashibe/go-voiceorder/pkg/order"
	"github.com/teslashibe/go-voiceorder/pkg/pipeline"
)

// Server is the ordering UI server
type Server struct {
	app    *fiber.App
	orch   *pipeline.Orchestrator
	menu   []order.ItemDefinition
	logger *slog.Logger

	// statusHub fans pipeline events out to websocket clients
	statusHub   *hub.Hub
	unsubscribe func()
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	menu      []order.ItemDefinition
	staticDir string
	logger    *slog.Logger
}

// WithMenu sets the items served by GET /api/catalog.
func WithMenu(items []order.ItemDefinition) Option {
	return func(o *serverOptions) { o.menu = items }
}

// WithStaticDir serves a UI bundle from dir at /.
func WithStaticDir(dir string) Option {
	return func(o *serverOptions) { o.staticDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a server for orch.
func NewServer(orch *pipeline.Orchestrator, opts ...Option) *Server {
	o := serverOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		orch:      orch,
		menu:      o.menu,
		logger:    o.logger.With("component", "web"),
		statusHub: hub.New("status", o.logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voiceorder",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for local development
	app.Use(cors.New())

	if o.staticDir != "" {
		app.Static("/", o.staticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Post("/gesture", s.handleGesture)
	api.Post("/message", s.handleMessage)
	api.Post("/runs/:id/ack", s.handleAck)
	api.Get("/status", s.handleStatus)
	api.Get("/cart", s.handleCart)
	api.Delete("/cart/:key", s.handleRemoveLine)
	api.Delete("/cart", s.handleClearCart)
	api.Get("/conversation", s.handleConversation)
	api.Get("/catalog", s.handleCatalog)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	s.unsubscribe = orch.Subscribe(s.forward)
	return s
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve runs the hub and serves on ln until ctx is done or the listener
// fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)

	s.logger.Info("web server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown(ctx context.Context) error {
	s.unsubscribe()
	return s.app.ShutdownWithContext(ctx)
}

// forward broadcasts a pipeline event to websocket clients.
func (s *Server) forward(ev pipeline.Event) {
	if err := s.statusHub.BroadcastJSON(ev); err != nil {
		s.logger.Warn("encode event", "error", err)
	}
}
