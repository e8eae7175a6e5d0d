package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) CountPatients(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n)
	return n, err
}

func (r *repoPG) CountReports(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM report`).Scan(&n)
	return n, err
}

func (r *repoPG) RecentReports(ctx context.Context, limit int) ([]RecentReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.report_type, r.report_date, p.name, r.created_at
		FROM report r JOIN patient p ON p.id = r.patient_id
		ORDER BY r.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecentReport
	for rows.Next() {
		var rec RecentReport
		if err := rows.Scan(&rec.ID, &rec.ReportType, &rec.ReportDate, &rec.PatientName, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repoPG) ReportStats(ctx context.Context) ([]ReportStat, error) {
	rows, err := r.pool.Query(ctx, `SELECT parameters, created_at FROM report`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportStat
	for rows.Next() {
		var stat ReportStat
		var params []byte
		if err := rows.Scan(&params, &stat.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(params, &stat.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}
