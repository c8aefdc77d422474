package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	"github.com/medagenda/citas-api/pkg/export"
	"github.com/medagenda/citas-api/pkg/storage"
)

type exportAppointmentReader interface {
	ListDetailsByDoctorAndDate(ctx context.Context, doctorID string, date scheduling.Date) ([]models.AppointmentDetail, error)
	ListOrphans(ctx context.Context, date *scheduling.Date) ([]models.AppointmentDetail, error)
}

type exportDoctorReader interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files with a
// signed download token.
type ExportService struct {
	appointments exportAppointmentReader
	doctors      exportDoctorReader
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	appointments exportAppointmentReader,
	doctors exportDoctorReader,
	store fileStorage,
	signer *storage.SignedURLSigner,
	cfg ExportConfig,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		appointments: appointments,
		doctors:      doctors,
		storage:      store,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		signer:       signer,
		logger:       logger,
		cfg:          cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/reports/download/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	datePart := job.Params.Date
	if datePart == "" {
		datePart = "all"
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, datePart, timestamp, job.Params.Format)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeAgenda:
		return s.buildAgendaDataset(ctx, job.Params)
	case models.ReportTypeOrphans:
		return s.buildOrphansDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildAgendaDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	if params.DoctorID == nil {
		return export.Dataset{}, "", fmt.Errorf("agenda report requires a doctor")
	}
	date, err := scheduling.ParseDate(params.Date)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("agenda report date: %w", err)
	}
	doctor, err := s.doctors.FindByID(ctx, *params.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.Dataset{}, "", fmt.Errorf("doctor %s not found", *params.DoctorID)
		}
		return export.Dataset{}, "", err
	}
	details, err := s.appointments.ListDetailsByDoctorAndDate(ctx, doctor.ID, date)
	if err != nil {
		return export.Dataset{}, "", err
	}
	title := fmt.Sprintf("Agenda %s (%s, %s)", doctor.FullName, date.WeekdayName(), date)
	return agendaDataset(details), title, nil
}

func (s *ExportService) buildOrphansDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	var date *scheduling.Date
	title := "Orphaned appointments"
	if params.Date != "" {
		parsed, err := scheduling.ParseDate(params.Date)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("orphans report date: %w", err)
		}
		date = &parsed
		title = fmt.Sprintf("Orphaned appointments %s", parsed)
	}
	orphans, err := s.appointments.ListOrphans(ctx, date)
	if err != nil {
		return export.Dataset{}, "", err
	}

	data := export.Dataset{
		Headers: []string{"Date", "Start", "End", "Doctor", "Patient", "Specialty"},
	}
	for _, o := range orphans {
		data.Rows = append(data.Rows, map[string]string{
			"Date":      o.Date.String(),
			"Start":     o.Start.String(),
			"End":       o.End.String(),
			"Doctor":    o.DoctorName,
			"Patient":   o.PatientName,
			"Specialty": o.SpecialtyName,
		})
	}
	return data, title, nil
}
