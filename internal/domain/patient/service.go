package patient

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/report"
)

// ReportPipeline is the slice of the report service onboarding needs:
// analysis without persistence, absorption once the patient row exists, and
// report listing for delete cleanup.
type ReportPipeline interface {
	Analyze(ctx context.Context, document []byte) (*report.Draft, string, error)
	Absorb(ctx context.Context, patientID uuid.UUID, draft *report.Draft, content, filename string, document []byte) (*report.StoredReport, error)
	ListReportsByPatient(ctx context.Context, patientID uuid.UUID) ([]*report.StoredReport, error)
}

// Purger removes a patient's chunks from the vector index.
type Purger interface {
	DeleteByOwner(ctx context.Context, ownerName string)
}

// MediaStore removes stored report documents.
type MediaStore interface {
	Remove(ref string) error
}

// ErrIncompleteExtraction is returned when the onboarding document lacks
// one of the identity fields a patient record requires.
var ErrIncompleteExtraction = errors.New("could not extract all required fields from the report")

type Service struct {
	repo    Repository
	reports ReportPipeline
	purger  Purger
	media   MediaStore
	logger  zerolog.Logger
}

func NewService(repo Repository, reports ReportPipeline, purger Purger, media MediaStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		reports: reports,
		purger:  purger,
		media:   media,
		logger:  logger.With().Str("component", "patient").Logger(),
	}
}

// CreateFromReport onboards a patient from their first report document. The
// document is analyzed before any row exists; name, age and sex must all be
// extractable or the onboarding is rejected. On success the analyzed draft
// is absorbed as the patient's first stored report.
func (s *Service) CreateFromReport(ctx context.Context, mobile, filename string, document []byte) (*Patient, *report.StoredReport, error) {
	draft, content, err := s.reports.Analyze(ctx, document)
	if err != nil {
		return nil, nil, err
	}

	if draft.PatientName == "" || draft.PatientAge == "" || draft.PatientSex == "" {
		return nil, nil, ErrIncompleteExtraction
	}
	age, err := strconv.Atoi(draft.PatientAge)
	if err != nil {
		return nil, nil, ErrIncompleteExtraction
	}

	p := &Patient{
		Name:   draft.PatientName,
		Age:    age,
		Sex:    draft.PatientSex,
		Mobile: mobile,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("create patient: %w", err)
	}

	rep, err := s.reports.Absorb(ctx, p.ID, draft, content, filename, document)
	if err != nil {
		// the row was created for this report; do not leave it orphaned
		if derr := s.repo.Delete(ctx, p.ID); derr != nil {
			s.logger.Warn().Err(derr).Str("patient_id", p.ID.String()).Msg("orphan cleanup failed")
		}
		return nil, nil, err
	}
	return p, rep, nil
}

// NameOf resolves a patient id to the display name used for index scoping.
func (s *Service) NameOf(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPatientByName(ctx context.Context, name string) (*Patient, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListNames returns every patient name, for summary target pickers.
func (s *Service) ListNames(ctx context.Context) ([]string, error) {
	return s.repo.ListNames(ctx)
}

// UpdateProfile applies a partial profile edit and returns the updated
// record.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd *ProfileUpdate) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePatient removes the patient, every stored report with its file, and
// the patient's chunks in the vector index. Index and file cleanup are best
// effort; the relational delete cascades to the report rows.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.purger.DeleteByOwner(ctx, p.Name)

	reps, err := s.reports.ListReportsByPatient(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", id.String()).Msg("report listing for cleanup failed")
	}
	for _, rep := range reps {
		if rep.LatestFileReference == "" {
			continue
		}
		if err := s.media.Remove(rep.LatestFileReference); err != nil {
			s.logger.Warn().Err(err).Str("file", rep.LatestFileReference).Msg("report file cleanup failed")
		}
	}

	return s.repo.Delete(ctx, id)
}
