package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/service"
)

const defaultDashboardWindow = 30

// DashboardHandler exposes call aggregates.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary GET /dashboard/summary?days=30&company_id=.
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	days := parseInt(c.Query("days"), defaultDashboardWindow)
	summary, err := h.dashboard.Summary(c.UserContext(), p, days, optionalQuery(c, "company_id"))
	if err != nil {
		return err
	}
	return respondData(c, summary)
}
