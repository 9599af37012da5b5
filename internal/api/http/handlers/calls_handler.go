package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/api/dto"
	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/service"
)

// CallsHandler exposes the support call workflow to clients and operators.
type CallsHandler struct {
	calls     *service.CallService
	validator *Validator
}

// NewCallsHandler constructs handler.
func NewCallsHandler(calls *service.CallService, validator *Validator) *CallsHandler {
	return &CallsHandler{calls: calls, validator: validator}
}

// Open POST /calls.
func (h *CallsHandler) Open(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.OpenCallRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.Open(c.UserContext(), p, service.CallOpenInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return respondCreated(c, callResponse(call))
}

// List GET /calls.
func (h *CallsHandler) List(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseCallQuery(c)
	if err != nil {
		return err
	}
	calls, err := h.calls.List(c.UserContext(), p, filter)
	if err != nil {
		return err
	}
	items := make([]dto.CallResponse, 0, len(calls))
	for i := range calls {
		items = append(items, callResponse(&calls[i]))
	}
	return respondData(c, items)
}

// Get GET /calls/:id.
func (h *CallsHandler) Get(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "call")
	if err != nil {
		return err
	}
	detail, err := h.calls.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return respondData(c, callDetailResponse(detail))
}

// GetByProtocol GET /calls/protocol/:protocol.
func (h *CallsHandler) GetByProtocol(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.calls.GetByProtocol(c.UserContext(), p, c.Params("protocol"))
	if err != nil {
		return err
	}
	return respondData(c, callDetailResponse(detail))
}

// AddMessage POST /calls/:id/messages.
func (h *CallsHandler) AddMessage(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "call")
	if err != nil {
		return err
	}
	var req dto.AddCallMessageRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	msg, err := h.calls.AddMessage(c.UserContext(), p, id, req.MessageType, req.Body)
	if err != nil {
		return err
	}
	return respondCreated(c, callMessageResponse(msg))
}

// UpdateStatus PATCH /calls/:id/status.
func (h *CallsHandler) UpdateStatus(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "call")
	if err != nil {
		return err
	}
	var req dto.UpdateCallStatusRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.UpdateStatus(c.UserContext(), p, id, req.Status, req.Comment)
	if err != nil {
		return err
	}
	return respondData(c, callResponse(call))
}

// UpdatePriority PATCH /calls/:id/priority.
func (h *CallsHandler) UpdatePriority(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "call")
	if err != nil {
		return err
	}
	var req dto.UpdateCallPriorityRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.UpdatePriority(c.UserContext(), p, id, req.Priority)
	if err != nil {
		return err
	}
	return respondData(c, callResponse(call))
}

// Take POST /calls/:id/take.
func (h *CallsHandler) Take(c *fiber.Ctx) error {
	return h.act(c, h.calls.Take)
}

// Close POST /calls/:id/close.
func (h *CallsHandler) Close(c *fiber.Ctx) error {
	return h.act(c, h.calls.Close)
}

// Cancel POST /calls/:id/cancel.
func (h *CallsHandler) Cancel(c *fiber.Ctx) error {
	return h.act(c, h.calls.Cancel)
}

// Assign POST /calls/:id/assign.
func (h *CallsHandler) Assign(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "call")
	if err != nil {
		return err
	}
	var req dto.AssignCallRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.Assign(c.UserContext(), p, id, req.OperatorID)
	if err != nil {
		return err
	}
	return respondData(c, callResponse(call))
}

// History GET /calls/:id/history.
func (h *CallsHandler) History(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "call")
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	entries, err := h.calls.History(c.UserContext(), p, id, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.CallHistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, callHistoryResponse(&entries[i]))
	}
	return respondData(c, items)
}

type callAction func(ctx context.Context, p *auth.Principal, id string) (*domain.Call, error)

func (h *CallsHandler) act(c *fiber.Ctx, action callAction) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "call")
	if err != nil {
		return err
	}
	call, err := action(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return respondData(c, callResponse(call))
}

func parseCallQuery(c *fiber.Ctx) (service.CallListFilter, error) {
	limit, offset := pagination(c)
	filter := service.CallListFilter{
		CompanyID:  optionalQuery(c, "company_id"),
		OperatorID: optionalQuery(c, "operator_id"),
		Tag:        optionalQuery(c, "tag"),
		SearchTerm: optionalQuery(c, "q"),
		Limit:      limit,
		Offset:     offset,
	}
	if unassigned := parseBool(c.Query("unassigned")); unassigned != nil {
		filter.Unassigned = *unassigned
	}
	for _, s := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.CallStatus(strings.ToUpper(s)))
	}
	for _, s := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.CallPriority(strings.ToUpper(s)))
	}
	from, err := parseTime(c.Query("created_from"))
	if err != nil {
		return filter, err
	}
	to, err := parseTime(c.Query("created_to"))
	if err != nil {
		return filter, err
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	return filter, nil
}
