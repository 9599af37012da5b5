package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/api/dto"
	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/service"
)

// ChatHandler serves the live chat queue and conversations.
type ChatHandler struct {
	chats     *service.ChatService
	validator *Validator
}

// NewChatHandler constructs handler.
func NewChatHandler(chats *service.ChatService, validator *Validator) *ChatHandler {
	return &ChatHandler{chats: chats, validator: validator}
}

// Request POST /chat/sessions.
func (h *ChatHandler) Request(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RequestChatRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	session, err := h.chats.Request(c.UserContext(), p, req.Subject)
	if err != nil {
		return err
	}
	return respondCreated(c, chatSessionResponse(session))
}

// Queue GET /chat/queue.
func (h *ChatHandler) Queue(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	limit, _ := pagination(c)
	queued, err := h.chats.Queue(c.UserContext(), p, limit)
	if err != nil {
		return err
	}
	items := make([]dto.QueuedChatResponse, 0, len(queued))
	for i := range queued {
		items = append(items, queuedChatResponse(&queued[i]))
	}
	return respondData(c, items)
}

// AcceptNext POST /chat/queue/next.
func (h *ChatHandler) AcceptNext(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	session, err := h.chats.AcceptNext(c.UserContext(), p)
	if err != nil {
		return err
	}
	return respondData(c, chatSessionResponse(session))
}

// Mine GET /chat/sessions.
func (h *ChatHandler) Mine(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	sessions, err := h.chats.Mine(c.UserContext(), p)
	if err != nil {
		return err
	}
	items := make([]dto.ChatSessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, chatSessionResponse(&sessions[i]))
	}
	return respondData(c, items)
}

// Get GET /chat/sessions/:id. Waiting sessions carry their place in line.
func (h *ChatHandler) Get(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	session, position, err := h.chats.PlaceInLine(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	resp := chatSessionResponse(session)
	resp.QueuePosition = position
	return respondData(c, resp)
}

// Accept POST /chat/sessions/:id/accept.
func (h *ChatHandler) Accept(c *fiber.Ctx) error {
	return h.sessionAction(c, h.chats.Accept)
}

// Close POST /chat/sessions/:id/close.
func (h *ChatHandler) Close(c *fiber.Ctx) error {
	return h.sessionAction(c, h.chats.Close)
}

// Cancel POST /chat/sessions/:id/cancel.
func (h *ChatHandler) Cancel(c *fiber.Ctx) error {
	return h.sessionAction(c, h.chats.Cancel)
}

// PostMessage POST /chat/sessions/:id/messages.
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PostChatMessageRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	msg, err := h.chats.PostMessage(c.UserContext(), p, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return respondCreated(c, chatMessageResponse(msg))
}

// Messages GET /chat/sessions/:id/messages?since=RFC3339.
// Clients poll with the timestamp of the last line they rendered.
func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	sinceParam, err := parseTime(c.Query("since"))
	if err != nil {
		return err
	}
	var since time.Time
	if sinceParam != nil {
		since = *sinceParam
	}
	lines, err := h.chats.Messages(c.UserContext(), p, c.Params("id"), since)
	if err != nil {
		return err
	}
	items := make([]dto.ChatMessageResponse, 0, len(lines))
	for i := range lines {
		items = append(items, chatMessageResponse(&lines[i]))
	}
	return respondData(c, items)
}

func (h *ChatHandler) sessionAction(c *fiber.Ctx, action func(ctx context.Context, p *auth.Principal, id string) (*domain.ChatSession, error)) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	session, err := action(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, chatSessionResponse(session))
}
