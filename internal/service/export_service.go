package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusdesk/request-portal-api/internal/models"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
	"github.com/campusdesk/request-portal-api/pkg/export"
)

type exportRequestLister interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
}

// ExportService renders an admin's department requests as CSV or PDF.
type ExportService struct {
	requests exportRequestLister
	scope    *AccessScope
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(requests exportRequestLister, scope *AccessScope, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = NewAccessScope()
	}
	return &ExportService{
		requests: requests,
		scope:    scope,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

var exportHeaders = []string{"ID", "Student", "Type", "Subject", "Status", "Submitted", "Updated"}

// Render produces the report body and content type for the requested format.
func (s *ExportService) Render(ctx context.Context, actor models.Actor, format string) ([]byte, string, error) {
	if actor.Role != models.RoleAdmin {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "only admins export reports")
	}
	filter, err := s.scope.VisibleFilter(actor)
	if err != nil {
		return nil, "", err
	}
	filter.Page = 1
	filter.PageSize = 100

	dataset := export.Dataset{Headers: exportHeaders}
	for {
		requests, total, err := s.requests.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests for export")
		}
		for _, r := range requests {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"ID":        r.ID,
				"Student":   r.StudentID,
				"Type":      string(r.Type),
				"Subject":   r.Subject,
				"Status":    string(r.Status),
				"Submitted": r.SubmittedAt.Format("2006-01-02 15:04"),
				"Updated":   r.UpdatedAt.Format("2006-01-02 15:04"),
			})
		}
		if len(dataset.Rows) >= total || len(requests) == 0 {
			break
		}
		filter.Page++
	}

	switch format {
	case "csv", "":
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return body, "text/csv", nil
	case "pdf":
		body, err := s.pdf.Render(dataset, fmt.Sprintf("Department %s requests", actor.Department()))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return body, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export format %q", format))
	}
}
