package dashboard

import "context"

type Repository interface {
	CountPatients(ctx context.Context) (int, error)
	CountReports(ctx context.Context) (int, error)
	RecentReports(ctx context.Context, limit int) ([]RecentReport, error)
	ReportStats(ctx context.Context) ([]ReportStat, error)
}
