// Package server exposes a running world for inspection over HTTP and
// websocket. It is strictly read-only: every handler goes through the
// Provider interface, which hands out the state reader and the event log but
// no mutators, so a curious client can never perturb the simulation.
package server

import (
	"sync/atomic"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/clock"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/codec"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/report"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/state"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

const defaultPort = "4040"

// Provider is the view of a world the server needs. The root package's World
// satisfies it.
type Provider interface {
	Namespace() string
	RunID() string
	CurrentTick() uint64
	CurrentDate() clock.Date
	Calendar() clock.Calendar
	EventLog() *event.Log
	ReportForTick(tick uint64) (*report.TickReport, error)
	RegisteredComponents() []types.ComponentMetadata
	RegisteredSystemNames() []string
	RegisteredEventTypes() []event.TypeInfo
	StoreReader() state.Reader
	IsRunning() bool
}

// Server serves the inspection API for one world.
type Server struct {
	provider Provider
	app      *fiber.App
	hub      *hub
	logger   zerolog.Logger

	port     string
	withCORS bool

	running atomic.Bool
}

// New creates a Server for the given world view. Call Serve to start
// listening.
func New(provider Provider, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		provider: provider,
		logger:   logger,
		port:     defaultPort,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           codec.Encode,
		JSONDecoder:           codec.Unmarshal,
	})
	if s.withCORS {
		s.app.Use(cors.New())
	}
	s.hub = newHub(logger)
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	s.app.Get("/health", s.getHealth)
	s.app.Get("/world", s.getWorld)
	s.app.Get("/clock", s.getClock)
	s.app.Get("/events", s.getEvents)
	s.app.Get("/events/:id", s.getEventByID)
	s.app.Get("/events/:id/cascade", s.getEventCascade)
	s.app.Post("/events/search", s.postEventSearch)
	s.app.Get("/reports/:tick", s.getReportForTick)
	s.app.Get("/debug/state", s.getDebugState)

	s.app.Use("/stream", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/stream", websocket.New(func(conn *websocket.Conn) {
		s.hub.registerConnection(conn)
		defer s.hub.unregisterConnection(conn)
		// The stream is write-only from the server side. Reading here keeps
		// the connection alive and notices the client going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

// Port returns the port the server listens on.
func (s *Server) Port() string {
	return s.port
}

// Serve starts listening. It blocks until Shutdown is called or the listener
// fails.
func (s *Server) Serve() error {
	s.running.Store(true)
	err := s.app.Listen(":" + s.port)
	s.running.Store(false)
	return eris.Wrap(err, "inspection server stopped")
}

// Shutdown gracefully stops the server and closes every stream connection.
func (s *Server) Shutdown() error {
	s.hub.shutdown()
	if !s.running.Load() {
		return nil
	}
	return eris.Wrap(s.app.Shutdown(), "failed to shut down inspection server")
}

// tickMessage is the per-tick frame pushed to stream subscribers.
type tickMessage struct {
	Tick   uint64             `json:"tick"`
	Report *report.TickReport `json:"report"`
	Events []*event.Event     `json:"events"`
}

// BroadcastTick pushes the tick's report and freshly emitted events to every
// stream subscriber. Serialization failures are logged and dropped; a broken
// stream frame must not fail the tick.
func (s *Server) BroadcastTick(tickReport *report.TickReport, events []*event.Event) {
	msg := tickMessage{
		Tick:   tickReport.Tick,
		Report: tickReport,
		Events: events,
	}
	data, err := codec.Encode(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to serialize tick broadcast")
		return
	}
	s.hub.broadcast(data)
	s.hub.flush()
}

// ConnectionCount returns the number of live stream subscribers.
func (s *Server) ConnectionCount() int {
	return s.hub.connectionCount()
}

// Test returns the underlying fiber app's test hook, so server tests can
// drive requests without a listener.
func (s *Server) Test() *fiber.App {
	return s.app
}
