package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Extractor turns document bytes into a draft plus the full document text.
type Extractor interface {
	Extract(ctx context.Context, document []byte) (*Draft, string, error)
}

// Enhancer refines a draft's narrative fields using the full document text.
type Enhancer interface {
	Enhance(ctx context.Context, d *Draft, fullText string) (*Draft, error)
}

// Indexer maintains the vector index view of report text.
type Indexer interface {
	UpsertReport(ctx context.Context, ownerName, reportID, text string) error
	DeleteByReport(ctx context.Context, reportID string)
}

// PatientDirectory resolves patient ids to display names for index scoping.
type PatientDirectory interface {
	NameOf(ctx context.Context, id uuid.UUID) (string, error)
}

// MediaStore persists uploaded report documents.
type MediaStore interface {
	Save(filename string, data []byte) (string, error)
	Remove(ref string) error
}

// ErrPatientNotFound is returned when an ingest targets an unknown patient.
var ErrPatientNotFound = errors.New("patient not found")

type Service struct {
	repo      Repository
	extractor Extractor
	enhancer  Enhancer
	indexer   Indexer
	patients  PatientDirectory
	media     MediaStore
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, extractor Extractor, enhancer Enhancer, indexer Indexer, patients PatientDirectory, media MediaStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		extractor: extractor,
		enhancer:  enhancer,
		indexer:   indexer,
		patients:  patients,
		media:     media,
		logger:    logger.With().Str("component", "report").Logger(),
		now:       time.Now,
	}
}

// Analyze runs extraction and enhancement over document bytes without
// persisting anything. Patient onboarding uses it to read identity fields
// before a patient row exists.
func (s *Service) Analyze(ctx context.Context, document []byte) (*Draft, string, error) {
	draft, content, err := s.extractor.Extract(ctx, document)
	if err != nil {
		return nil, "", fmt.Errorf("analyze document: %w", err)
	}

	enhanced, err := s.enhancer.Enhance(ctx, draft, content)
	if err != nil {
		return nil, "", fmt.Errorf("enhance report: %w", err)
	}
	return enhanced, content, nil
}

// Ingest analyzes a document and absorbs the result into the patient's
// longitudinal record.
func (s *Service) Ingest(ctx context.Context, patientID uuid.UUID, filename string, document []byte) (*StoredReport, error) {
	draft, content, err := s.Analyze(ctx, document)
	if err != nil {
		return nil, err
	}
	return s.Absorb(ctx, patientID, draft, content, filename, document)
}

// Absorb merges an already-analyzed draft into the patient's stored record,
// saves the document to the media store, persists the merged record and
// refreshes the vector index. Index failures are logged, not fatal: the
// relational record is the source of truth.
func (s *Service) Absorb(ctx context.Context, patientID uuid.UUID, draft *Draft, content, filename string, document []byte) (*StoredReport, error) {
	ownerName, err := s.patients.NameOf(ctx, patientID)
	if err != nil {
		return nil, ErrPatientNotFound
	}

	reportType := draft.ReportType
	if reportType == "" {
		reportType = "Unknown"
	}
	date := draft.ReportDate
	if date == "" {
		date = s.now().UTC().Format("2006-01-02")
	}

	existing, err := s.repo.GetByPatientAndType(ctx, patientID, reportType)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load existing report: %w", err)
	}

	draft.ReportType = reportType
	merged := Merge(existing, draft, date)
	merged.PatientID = patientID
	for i := range merged.Parameters {
		if err := merged.Parameters[i].Validate(); err != nil {
			return nil, fmt.Errorf("merged record inconsistent: %w", err)
		}
	}

	ref, err := s.media.Save(filename, document)
	if err != nil {
		return nil, fmt.Errorf("save report file: %w", err)
	}
	merged.LatestFileReference = ref

	if err := s.repo.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	if err := s.indexer.UpsertReport(ctx, ownerName, merged.ID.String(), content); err != nil {
		s.logger.Warn().Err(err).Str("report_id", merged.ID.String()).Msg("report indexing failed")
	}

	return merged, nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*StoredReport, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListReports(ctx context.Context, limit, offset int) ([]*StoredReport, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListReportsByPatient(ctx context.Context, patientID uuid.UUID) ([]*StoredReport, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// DeleteReport removes the stored record, its index chunks and its file.
// Index and file cleanup are best effort.
func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.indexer.DeleteByReport(ctx, id.String())

	if rep.LatestFileReference != "" {
		if err := s.media.Remove(rep.LatestFileReference); err != nil {
			s.logger.Warn().Err(err).Str("file", rep.LatestFileReference).Msg("report file cleanup failed")
		}
	}
	return nil
}
