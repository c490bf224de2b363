package http

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/example/volunteer-scheduler/internal/application"
	"github.com/example/volunteer-scheduler/internal/export"
)

// Exporter renders schedule listings as files.
type Exporter interface {
	Export(ctx context.Context, params application.ExportParams) (application.ExportFile, error)
}

// ExportHandler serves GET /schedules/export.
type ExportHandler struct {
	exporter  Exporter
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exporter Exporter, now func() time.Time, logger *slog.Logger) *ExportHandler {
	if now == nil {
		now = time.Now
	}
	logger = defaultLogger(logger)
	return &ExportHandler{exporter: exporter, responder: newResponder(logger), logger: logger, now: now}
}

// Export writes the rendered file as an attachment.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
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
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.responder.handleServiceError(ctx, w, &application.ValidationError{FieldErrors: map[string]string{"format": msgUnsupportedExportFmt}})
		return
	}

	file, err := h.exporter.Export(ctx, application.ExportParams{
		Principal:  principal,
		MonthYear:  month,
		Department: filter,
		Format:     format,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	handlerLogger(ctx, h.logger, "ExportHandler", "Export",
		"file_name", file.FileName,
		"rows", file.Rows,
	).InfoContext(ctx, "schedules exported")

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Content); err != nil {
		h.responder.loggerFor(ctx).ErrorContext(ctx, "failed to write export", "error", err)
	}
}
