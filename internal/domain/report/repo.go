package report

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no stored report matches the lookup.
var ErrNotFound = errors.New("report not found")

type Repository interface {
	Save(ctx context.Context, r *StoredReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*StoredReport, error)
	GetByPatientAndType(ctx context.Context, patientID uuid.UUID, reportType string) (*StoredReport, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*StoredReport, error)
	List(ctx context.Context, limit, offset int) ([]*StoredReport, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
