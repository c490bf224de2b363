package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/volunteer-scheduler/internal/application"
)

// StatsService computes the dashboard counters.
type StatsService interface {
	Dashboard(ctx context.Context, principal application.Principal) (application.DashboardStats, error)
}

// MaintenanceService runs administrative repairs.
type MaintenanceService interface {
	RepairDaysOfWeek(ctx context.Context, principal application.Principal) (application.RepairReport, error)
}

// DashboardHandler serves the dashboard counters and the maintenance actions
// reachable from it.
type DashboardHandler struct {
	stats       StatsService
	maintenance MaintenanceService
	responder   responder
	logger      *slog.Logger
}

// NewDashboardHandler constructs a DashboardHandler. maintenance may be nil.
func NewDashboardHandler(stats StatsService, maintenance MaintenanceService, logger *slog.Logger) *DashboardHandler {
	logger = defaultLogger(logger)
	return &DashboardHandler{stats: stats, maintenance: maintenance, responder: newResponder(logger), logger: logger}
}

type dashboardResponse struct {
	Month       string `json:"month"`
	Members     int    `json:"members"`
	Departments int    `json:"departments"`
	Services    int    `json:"services"`
	Users       int    `json:"users"`
	Schedules   int    `json:"schedules"`
}

type repairResponse struct {
	Total   int `json:"total"`
	Fixed   int `json:"fixed"`
	Correct int `json:"correct"`
	Invalid int `json:"invalid"`
}

// Dashboard handles GET /dashboard.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	stats, err := h.stats.Dashboard(ctx, principal)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, dashboardResponse{
		Month:       stats.MonthYear,
		Members:     stats.Members,
		Departments: stats.Departments,
		Services:    stats.Services,
		Users:       stats.Users,
		Schedules:   stats.Schedules,
	})
}

// RepairDaysOfWeek handles POST /maintenance/day-of-week.
func (h *DashboardHandler) RepairDaysOfWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	if h.maintenance == nil {
		h.responder.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: msgNotFound})
		return
	}

	report, err := h.maintenance.RepairDaysOfWeek(ctx, principal)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	handlerLogger(ctx, h.logger, "DashboardHandler", "RepairDaysOfWeek",
		"total", report.Total,
		"fixed", report.Fixed,
		"invalid", report.Invalid,
	).InfoContext(ctx, "day of week repair finished")
	h.responder.writeJSON(ctx, w, http.StatusOK, repairResponse(report))
}
