package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/volunteer-scheduler/internal/calendar"
	"github.com/example/volunteer-scheduler/internal/export"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

const exportTitle = "Sistema de Escalas - Igreja"

// ExportParams selects the period, departments and output format of an export.
type ExportParams struct {
	Principal  Principal
	MonthYear  string
	Department scheduler.DepartmentFilter
	Format     export.Format
}

// ExportFile is a rendered export ready to be downloaded.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
	Rows        int
}

// ExportService renders schedule listings as downloadable documents.
type ExportService struct {
	schedules   *ScheduleService
	rowsPerPage int
	now         func() time.Time
	logger      *slog.Logger
}

// NewExportService wires the schedule listing used for exports.
func NewExportService(schedules *ScheduleService, rowsPerPage int, now func() time.Time) *ExportService {
	return NewExportServiceWithLogger(schedules, rowsPerPage, now, nil)
}

// NewExportServiceWithLogger wires the schedule listing with a specified logger.
func NewExportServiceWithLogger(schedules *ScheduleService, rowsPerPage int, now func() time.Time, logger *slog.Logger) *ExportService {
	if now == nil {
		now = time.Now
	}
	return &ExportService{
		schedules:   schedules,
		rowsPerPage: rowsPerPage,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Export runs the same query as the schedule listing and renders the result.
func (s *ExportService) Export(ctx context.Context, params ExportParams) (file ExportFile, err error) {
	if s == nil {
		err = fmt.Errorf("ExportService is nil")
		return
	}
	if s.schedules == nil {
		err = fmt.Errorf("schedule service not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ExportService", "Export",
		"principal_id", params.Principal.UserID,
		"month", params.MonthYear,
		"department", params.Department.String(),
		"format", string(params.Format),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to export schedules", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedules exported", "file_name", file.FileName, "rows", file.Rows)
	}()

	var listing ScheduleListing
	listing, err = s.schedules.ListSchedules(ctx, ListSchedulesParams{
		Principal:  params.Principal,
		MonthYear:  params.MonthYear,
		Department: params.Department,
	})
	if err != nil {
		return
	}
	if listing.Empty() {
		err = ErrNothingToExport
		return
	}

	year, month, _ := calendar.ParseMonth(params.MonthYear)
	monthName := calendar.MonthName(month)
	doc := buildExportDocument(listing, monthName, year, s.now())

	var buf bytes.Buffer
	if err = export.Render(&buf, doc, params.Format, s.rowsPerPage); err != nil {
		return
	}

	file = ExportFile{
		FileName:    export.FileName(monthName, year, params.Format),
		ContentType: params.Format.ContentType(),
		Content:     buf.Bytes(),
		Rows:        listing.Total,
	}
	return
}

func buildExportDocument(listing ScheduleListing, monthName string, year int, generated time.Time) export.Document {
	doc := export.Document{
		Title:       exportTitle,
		Subtitle:    fmt.Sprintf("Escalas de %s/%d", monthName, year),
		GeneratedOn: generated.Format("02/01/2006"),
	}
	for _, group := range listing.Groups {
		display, err := calendar.DisplayDate(group.Date)
		if err != nil {
			display = group.Date
		}
		section := export.Section{
			Date:    group.Date,
			Heading: calendar.DayName(group.DayOfWeek) + ", " + display,
			Rows:    make([]export.Row, 0, len(group.Rows)),
		}
		for _, row := range group.Rows {
			section.Rows = append(section.Rows, export.Row{
				Service:    row.ServiceName,
				Department: row.DepartmentName,
				Sector:     row.Sector,
				Member:     row.MemberName,
			})
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}
