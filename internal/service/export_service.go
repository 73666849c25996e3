package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
	"github.com/ieab-app/escala-api/pkg/export"
)

type monthViewer interface {
	MonthView(ctx context.Context, month, year int) (*dto.RosterMonthResponse, bool, error)
}

type publishChecker interface {
	HasPublished(ctx context.Context, month, year int) (bool, error)
}

var eventTypeLabels = map[models.EventType]string{
	models.EventTerca:   "Culto de Terça",
	models.EventSabado:  "EBD",
	models.EventDomingo: "Culto de Domingo",
}

var roomLabels = map[models.Room]string{
	models.RoomBebes:     "Bebês",
	models.RoomPequenos:  "Pequenos",
	models.RoomGrandes:   "Grandes",
	models.RoomUnificada: "Unificada",
}

var roleLabels = map[models.Role]string{
	models.RoleProfessor: "Professor",
	models.RoleAuxiliar:  "Auxiliar",
}

// ExportService renders the month roster for distribution: a printable PDF
// and a WhatsApp-ready text message.
type ExportService struct {
	roster   monthViewer
	events   publishChecker
	pdf      *export.PDFExporter
	whatsapp *export.WhatsAppExporter
	title    string
	enabled  bool
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(roster monthViewer, events publishChecker, title string, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if title == "" {
		title = "Escala de Voluntários"
	}
	return &ExportService{
		roster:   roster,
		events:   events,
		pdf:      export.NewPDFExporter(),
		whatsapp: export.NewWhatsAppExporter(),
		title:    title,
		enabled:  enabled,
		logger:   logger,
	}
}

// requirePublished gates exports to months the coordinator has published.
func (s *ExportService) requirePublished(ctx context.Context, month, year int) error {
	if s.events == nil {
		return nil
	}
	published, err := s.events.HasPublished(ctx, month, year)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check publish state")
	}
	if !published {
		return appErrors.Clone(appErrors.ErrNotFound, "month is not published")
	}
	return nil
}

// Enabled reports whether the export endpoints are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// PDF renders the month roster as a PDF document.
func (s *ExportService) PDF(ctx context.Context, month, year int) ([]byte, string, error) {
	if err := s.requirePublished(ctx, month, year); err != nil {
		return nil, "", err
	}
	view, _, err := s.roster.MonthView(ctx, month, year)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{Headers: []string{"Data", "Culto", "Sala", "Função", "Voluntário"}}
	for _, day := range view.Days {
		for _, a := range day.Assignments {
			data.Rows = append(data.Rows, map[string]string{
				"Data":       day.Event.Date.Format("02/01"),
				"Culto":      eventTypeLabels[day.Event.Type],
				"Sala":       roomLabels[a.AssignedRoom],
				"Função":     roleLabels[a.AssignedRole],
				"Voluntário": a.VolunteerName,
			})
		}
	}

	subtitle := fmt.Sprintf("%02d/%d", month, year)
	body, err := s.pdf.Render(data, s.title, subtitle)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
	}
	filename := fmt.Sprintf("escala-%d-%02d.pdf", year, month)
	return body, filename, nil
}

// WhatsApp renders the month roster as a shareable text message, one section
// per event day.
func (s *ExportService) WhatsApp(ctx context.Context, month, year int) (string, error) {
	if err := s.requirePublished(ctx, month, year); err != nil {
		return "", err
	}
	view, _, err := s.roster.MonthView(ctx, month, year)
	if err != nil {
		return "", err
	}

	sections := make([]export.Section, 0, len(view.Days))
	for _, day := range view.Days {
		section := export.Section{
			Heading: fmt.Sprintf("%s - %s", day.Event.Date.Format("02/01"), eventTypeLabels[day.Event.Type]),
		}
		if len(day.Assignments) == 0 {
			section.Lines = []string{"(sem escalados)"}
		}
		for _, a := range day.Assignments {
			section.Lines = append(section.Lines, fmt.Sprintf("%s (%s): %s", roomLabels[a.AssignedRoom], roleLabels[a.AssignedRole], a.VolunteerName))
		}
		sections = append(sections, section)
	}

	subtitle := fmt.Sprintf("%02d/%d", month, year)
	return s.whatsapp.Render(s.title, subtitle, sections), nil
}
