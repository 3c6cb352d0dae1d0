// Package api exposes the conversion pipeline over HTTP: upload a
// spreadsheet for a voucher preview, push a reviewed batch to Tally, and
// query the target system's status and ledgers.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/autotally/tallybridge/internal/config"
	"github.com/autotally/tallybridge/internal/pipeline"
)

// Server hosts the HTTP API.
type Server struct {
	cfg *config.Config
	log *zap.SugaredLogger
	pl  *pipeline.Pipeline
	app *fiber.App
}

// NewServer wires the routes onto a fresh fiber app.
func NewServer(cfg *config.Config, log *zap.SugaredLogger) *Server {
	s := &Server{
		cfg: cfg,
		log: log,
		pl:  pipeline.New(cfg, log),
		app: fiber.New(fiber.Config{
			AppName:      "tallybridge",
			BodyLimit:    50 * 1024 * 1024, // bulk spreadsheet uploads
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
		}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.handleHealth)
	s.app.Post("/import", s.handleImport)
	s.app.Post("/tally/push", s.handlePush)
	s.app.Get("/tally/status", s.handleStatus)
	s.app.Get("/tally/ledgers", s.handleLedgers)
}

// App returns the underlying fiber app, used by tests via app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	s.log.Infow("api listening", "addr", s.cfg.ListenAddr)
	return s.app.Listen(s.cfg.ListenAddr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: msg})
}
