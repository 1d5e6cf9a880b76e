package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/aula-backend/internal/modules/export"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type ExportService interface {
	Export(ctx context.Context, actor Actor, activityID uuid.UUID, format string) (*ExportFile, error)
}

type exportService struct {
	log        *logger.Logger
	activities ActivityService
}

func NewExportService(baseLog *logger.Logger, activities ActivityService) ExportService {
	return &exportService{log: baseLog.With("service", "ExportService"), activities: activities}
}

func (s *exportService) Export(ctx context.Context, actor Actor, activityID uuid.UUID, format string) (*ExportFile, error) {
	f, ok := export.ParseFormat(format)
	if !ok {
		return nil, apierr.Validation("invalid_format", "format must be word, excel or pdf")
	}
	a, err := s.activities.GetByID(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	doc, err := export.FromActivity(a)
	if err != nil {
		s.log.Warn("export: content not renderable", "activity_id", a.ID, "error", err)
		return nil, apierr.Upstream("export_failed", "activity content could not be exported", err)
	}
	data, err := f.Render(doc)
	if err != nil {
		s.log.Error("export: render failed", "activity_id", a.ID, "format", f, "error", err)
		return nil, apierr.Upstream("export_failed", "document generation failed", err)
	}
	return &ExportFile{
		Name:        export.FileName(doc.Title, f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}
