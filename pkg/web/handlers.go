package web

import (
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voiceorder/pkg/capture"
	"github.com/teslashibe/go-voiceorder/pkg/hub"
	"github.com/teslashibe/go-voiceorder/pkg/order"
	"github.com/teslashibe/go-voiceorder/pkg/pipeline"
)

// GestureRequest carries a raw UI event name such as "pointerdown".
type GestureRequest struct {
	Event string `json:"event"`
}

// MessageRequest is a typed user message.
type MessageRequest struct {
	Text string `json:"text"`
}

// StatusResponse describes the pipeline.
type StatusResponse struct {
	Status pipeline.Status `json:"status"`
	Run    *pipeline.Run   `json:"run,omitempty"`
}

// CartResponse is the cart with its total.
type CartResponse struct {
	Lines []order.CartLine `json:"lines"`
	Total order.Price      `json:"total"`
}

// ErrorResponse is returned for every rejected request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleGesture feeds a normalized gesture signal into the pipeline
func (s *Server) handleGesture(c *fiber.Ctx) error {
	var req GestureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	sig, err := capture.ParseSignal(req.Event)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	id, err := s.orch.Signal(c.UserContext(), sig)
	if errors.Is(err, capture.ErrTooShort) {
		return c.JSON(fiber.Map{"signal": sig.String(), "notice": pipeline.Kind(err)})
	}
	if err != nil && !errors.Is(err, capture.ErrDevice) {
		return err
	}
	// A device error has already failed the run; report it with the run.
	return c.JSON(fiber.Map{"signal": sig.String(), "run_id": id, "status": s.orch.Status(), "run": s.orch.Current()})
}

// handleMessage starts a text-mode run
func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	id, err := s.orch.Submit(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": id})
}

// handleAck acknowledges a finished run
func (s *Server) handleAck(c *fiber.Ctx) error {
	if err := s.orch.Ack(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(StatusResponse{Status: s.orch.Status()})
}

// handleStatus returns the pipeline status and current run
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

func (s *Server) status() StatusResponse {
	run := s.orch.Current()
	status := pipeline.StatusIdle
	if run != nil {
		status = run.Status
	}
	return StatusResponse{Status: status, Run: run}
}

// handleCart returns the cart
func (s *Server) handleCart(c *fiber.Ctx) error {
	lines := s.orch.Cart()
	if lines == nil {
		lines = []order.CartLine{}
	}
	return c.JSON(CartResponse{Lines: lines, Total: order.Total(lines)})
}

// handleRemoveLine deletes one cart line by identity key
func (s *Server) handleRemoveLine(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid key")
	}
	if !s.orch.Remove(key) {
		return fiber.NewError(fiber.StatusNotFound, "no such cart line")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleClearCart empties the cart
func (s *Server) handleClearCart(c *fiber.Ctx) error {
	s.orch.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleConversation returns the conversation history
func (s *Server) handleConversation(c *fiber.Ctx) error {
	return c.JSON(s.orch.History())
}

// handleCatalog returns the menu
func (s *Server) handleCatalog(c *fiber.Ctx) error {
	menu := s.menu
	if menu == nil {
		menu = []order.ItemDefinition{}
	}
	return c.JSON(menu)
}

// handleStatusWS streams pipeline events, starting with the current status
func (s *Server) handleStatusWS(c *websocket.Conn) {
	snap := s.status()
	initial, err := json.Marshal(pipeline.Event{
		Type:   pipeline.EventStatus,
		Status: snap.Status,
		Run:    snap.Run,
		At:     time.Now(),
	})
	if err != nil {
		s.logger.Warn("encode snapshot", "error", err)
		return
	}

	client := hub.NewClient(s.statusHub, c, hub.NewJSONMessage(initial))
	client.Run()
}

// handleError maps pipeline errors to HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: "bad_request", Message: fe.Message})
	}

	status := httpStatus(err)
	kind := pipeline.Kind(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}

	message := pipeline.Message(kind)
	switch {
	case errors.Is(err, pipeline.ErrUnknownRun):
		kind, message = "unknown_run", err.Error()
	case errors.Is(err, pipeline.ErrNotFinished):
		kind, message = "not_finished", err.Error()
	case errors.Is(err, pipeline.ErrEmptyMessage):
		kind, message = "empty_message", err.Error()
	case errors.Is(err, pipeline.ErrNoCapture):
		kind, message = "capture_unavailable", err.Error()
	case errors.Is(err, pipeline.ErrClosed):
		kind, message = "closed", err.Error()
	}
	return c.Status(status).JSON(ErrorResponse{Error: kind, Message: message})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning), errors.Is(err, pipeline.ErrNotFinished):
		return fiber.StatusConflict
	case errors.Is(err, pipeline.ErrUnknownRun):
		return fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrEmptyMessage):
		return fiber.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoCapture):
		return fiber.StatusNotImplemented
	case errors.Is(err, pipeline.ErrClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
