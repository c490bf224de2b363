package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/volunteer-scheduler/internal/application"
	"github.com/example/volunteer-scheduler/internal/calendar"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

// ScheduleService is the subset of the schedule service used by the handler.
type ScheduleService interface {
	ListSchedules(ctx context.Context, params application.ListSchedulesParams) (application.ScheduleListing, error)
	GetSchedule(ctx context.Context, principal application.Principal, scheduleID int64) (application.Schedule, error)
	CreateSchedule(ctx context.Context, params application.CreateScheduleParams) (application.Schedule, error)
	UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (application.Schedule, error)
	DeleteSchedule(ctx context.Context, principal application.Principal, scheduleID int64) error
}

// ScheduleHandler serves /schedules.
type ScheduleHandler struct {
	service   ScheduleService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduleHandler constructs a ScheduleHandler. now picks the month shown
// when the request does not name one.
func NewScheduleHandler(service ScheduleService, now func() time.Time, logger *slog.Logger) *ScheduleHandler {
	if now == nil {
		now = time.Now
	}
	logger = defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(logger), logger: logger, now: now}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

type scheduleRequest struct {
	DepartmentID int64  `json:"department_id" validate:"required,gt=0"`
	Sector       string `json:"sector" validate:"required,max=100"`
	MemberID     int64  `json:"member_id" validate:"required,gt=0"`
	ServiceID    int64  `json:"service_id" validate:"required,gt=0"`
	Date         string `json:"date" validate:"required"`
}

func (req scheduleRequest) input() application.ScheduleInput {
	return application.ScheduleInput{
		DepartmentID: req.DepartmentID,
		Sector:       req.Sector,
		MemberID:     req.MemberID,
		ServiceID:    req.ServiceID,
		Date:         req.Date,
	}
}

type scheduleDTO struct {
	ID             int64     `json:"id"`
	DepartmentID   int64     `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	Sector         string    `json:"sector"`
	MemberID       int64     `json:"member_id"`
	MemberName     string    `json:"member_name"`
	ServiceID      int64     `json:"service_id"`
	ServiceName    string    `json:"service_name"`
	Date           string    `json:"date"`
	DayOfWeek      int       `json:"day_of_week"`
	DayName        string    `json:"day_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toScheduleDTO(s application.Schedule) scheduleDTO {
	return scheduleDTO{
		ID:             s.ID,
		DepartmentID:   s.DepartmentID,
		DepartmentName: s.DepartmentName,
		Sector:         s.Sector,
		MemberID:       s.MemberID,
		MemberName:     s.MemberName,
		ServiceID:      s.ServiceID,
		ServiceName:    s.ServiceName,
		Date:           s.Date,
		DayOfWeek:      s.DayOfWeek,
		DayName:        calendar.DayName(s.DayOfWeek),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type scheduleGroupDTO struct {
	Date        string        `json:"date"`
	DisplayDate string        `json:"display_date"`
	DayOfWeek   int           `json:"day_of_week"`
	DayName     string        `json:"day_name"`
	Schedules   []scheduleDTO `json:"schedules"`
}

type scheduleListResponse struct {
	Month      string             `json:"month"`
	Department string             `json:"department"`
	Total      int                `json:"total"`
	Message    string             `json:"message,omitempty"`
	Groups     []scheduleGroupDTO `json:"groups"`
}

func toScheduleListResponse(listing application.ScheduleListing) scheduleListResponse {
	resp := scheduleListResponse{
		Month:      listing.MonthYear,
		Department: listing.Department.String(),
		Total:      listing.Total,
		Groups:     make([]scheduleGroupDTO, 0, len(listing.Groups)),
	}
	if listing.Empty() {
		resp.Message = msgEmptyPeriod
	}
	for _, group := range listing.Groups {
		display, err := calendar.DisplayDate(group.Date)
		if err != nil {
			display = group.Date
		}
		dto := scheduleGroupDTO{
			Date:        group.Date,
			DisplayDate: display,
			DayOfWeek:   group.DayOfWeek,
			DayName:     calendar.DayName(group.DayOfWeek),
			Schedules:   make([]scheduleDTO, 0, len(group.Rows)),
		}
		for _, row := range group.Rows {
			dto.Schedules = append(dto.Schedules, toScheduleDTO(row))
		}
		resp.Groups = append(resp.Groups, dto)
	}
	return resp
}

// periodQuery reads ?month=YYYY-MM (default: the current month) and
// ?department=all|id.
func periodQuery(r *http.Request, now time.Time) (string, scheduler.DepartmentFilter, error) {
	query := r.URL.Query()
	month := strings.TrimSpace(query.Get("month"))
	if month == "" {
		month = calendar.MonthKey(now.Year(), int(now.Month()))
	}
	filter, err := scheduler.ParseDepartmentFilter(query.Get("department"))
	if err != nil {
		return "", scheduler.DepartmentFilter{}, &application.ValidationError{FieldErrors: map[string]string{"department": "Departamento inválido"}}
	}
	return month, filter, nil
}

// List handles GET /schedules.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	month, filter, err := periodQuery(r, h.now())
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	listing, err := h.service.ListSchedules(ctx, application.ListSchedulesParams{Principal: principal, MonthYear: month, Department: filter})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	if listing.MonthYear == "" {
		listing.MonthYear = month
		listing.Department = filter
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toScheduleListResponse(listing))
}

// Get handles GET /schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(ctx, principal, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toScheduleDTO(schedule))
}

// Create handles POST /schedules.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	schedule, err := h.service.CreateSchedule(ctx, application.CreateScheduleParams{Principal: principal, Input: req.input()})
	if err != nil {
		h.log(ctx, "Create", "member_id", req.MemberID, "date", req.Date).WarnContext(ctx, "schedule rejected", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Create", "schedule_id", schedule.ID).InfoContext(ctx, "schedule created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, toScheduleDTO(schedule))
}

// Update handles PUT /schedules/{id}.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	schedule, err := h.service.UpdateSchedule(ctx, application.UpdateScheduleParams{Principal: principal, ScheduleID: id, Input: req.input()})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Update", "schedule_id", schedule.ID).InfoContext(ctx, "schedule updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, toScheduleDTO(schedule))
}

// Delete handles DELETE /schedules/{id}.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSchedule(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Delete", "schedule_id", id).InfoContext(ctx, "schedule deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}
