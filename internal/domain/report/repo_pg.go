package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const reportCols = `id, patient_id, report_type, report_date, report_dates,
	parameters, observations, advise, latest_file_reference, created_at, updated_at`

// Save upserts on the (patient_id, report_type) pair: the merge layer hands
// this repo a fully formed next-state record either way.
func (r *repoPG) Save(ctx context.Context, rep *StoredReport) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}

	dates, params, obs, adv, err := marshalJSONB(rep)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO report (
			id, patient_id, report_type, report_date, report_dates,
			parameters, observations, advise, latest_file_reference
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (patient_id, report_type) DO UPDATE SET
			report_date=$4, report_dates=$5, parameters=$6,
			observations=$7, advise=$8, latest_file_reference=$9, updated_at=NOW()`,
		rep.ID, rep.PatientID, rep.ReportType, rep.ReportDate, dates,
		params, obs, adv, rep.LatestFileReference,
	)
	return err
}

func marshalJSONB(rep *StoredReport) (dates, params, obs, adv []byte, err error) {
	if dates, err = json.Marshal(rep.ReportDates); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal report_dates: %w", err)
	}
	if params, err = json.Marshal(rep.Parameters); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal parameters: %w", err)
	}
	if obs, err = json.Marshal(rep.Observations); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal observations: %w", err)
	}
	if adv, err = json.Marshal(rep.Advise); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal advise: %w", err)
	}
	return dates, params, obs, adv, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*StoredReport, error) {
	return scanReport(r.pool.QueryRow(ctx, `SELECT `+reportCols+` FROM report WHERE id = $1`, id))
}

func (r *repoPG) GetByPatientAndType(ctx context.Context, patientID uuid.UUID, reportType string) (*StoredReport, error) {
	return scanReport(r.pool.QueryRow(ctx,
		`SELECT `+reportCols+` FROM report WHERE patient_id = $1 AND report_type = $2`,
		patientID, reportType))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*StoredReport, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reportCols+` FROM report WHERE patient_id = $1 ORDER BY updated_at DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*StoredReport, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM report`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+reportCols+` FROM report ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reps, err := scanReports(rows)
	return reps, total, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM report WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*StoredReport, error) {
	var rep StoredReport
	var dates, params, obs, adv []byte
	err := row.Scan(
		&rep.ID, &rep.PatientID, &rep.ReportType, &rep.ReportDate, &dates,
		&params, &obs, &adv, &rep.LatestFileReference, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(dates, &rep.ReportDates); err != nil {
		return nil, fmt.Errorf("unmarshal report_dates: %w", err)
	}
	if err := json.Unmarshal(params, &rep.Parameters); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	if err := json.Unmarshal(obs, &rep.Observations); err != nil {
		return nil, fmt.Errorf("unmarshal observations: %w", err)
	}
	if err := json.Unmarshal(adv, &rep.Advise); err != nil {
		return nil, fmt.Errorf("unmarshal advise: %w", err)
	}
	return &rep, nil
}

func scanReports(rows pgx.Rows) ([]*StoredReport, error) {
	var reps []*StoredReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}
