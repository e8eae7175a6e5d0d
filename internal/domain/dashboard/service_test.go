package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/report"
)

type mockRepo struct {
	patients int
	reports  int
	recent   []RecentReport
	stats    []ReportStat
}

func (m *mockRepo) CountPatients(_ context.Context) (int, error) { return m.patients, nil }
func (m *mockRepo) CountReports(_ context.Context) (int, error)  { return m.reports, nil }
func (m *mockRepo) RecentReports(_ context.Context, limit int) ([]RecentReport, error) {
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}
func (m *mockRepo) ReportStats(_ context.Context) ([]ReportStat, error) { return m.stats, nil }

func TestSummary(t *testing.T) {
	now := time.Date(2025, time.April, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		patients: 3,
		reports:  4,
		recent: []RecentReport{
			{ID: uuid.New(), ReportType: "Complete Blood Count", PatientName: "Jane Roe", CreatedAt: now},
		},
		stats: []ReportStat{
			{
				Parameters: []report.Parameter{
					{Name: "Glucose", Status: report.Series("high", "normal", "high")},
					{Name: "Hemoglobin", Status: report.Scalar("normal")},
					{Name: "LDL", Status: report.Scalar("high")},
				},
				CreatedAt: now,
			},
			{
				Parameters: []report.Parameter{
					{Name: "Glucose", Status: report.Scalar("low")},
					{Name: "Appearance"},
				},
				CreatedAt: now.AddDate(0, 0, -40),
			},
		},
	}

	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return now }

	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if got.TotalPatients != 3 || got.TotalReports != 4 {
		t.Errorf("totals = %d patients, %d reports", got.TotalPatients, got.TotalReports)
	}
	if len(got.RecentReports) != 1 || got.RecentReports[0].PatientName != "Jane Roe" {
		t.Errorf("recent = %+v", got.RecentReports)
	}

	// Glucose flagged 3 times, LDL once; normal and empty statuses ignored
	if got.AbnormalCount != 4 {
		t.Errorf("AbnormalCount = %d", got.AbnormalCount)
	}
	if len(got.TopAbnormal) != 2 {
		t.Fatalf("TopAbnormal = %+v", got.TopAbnormal)
	}
	if got.TopAbnormal[0].Name != "Glucose" || got.TopAbnormal[0].Count != 3 {
		t.Errorf("TopAbnormal[0] = %+v", got.TopAbnormal[0])
	}
	if got.TopAbnormal[1].Name != "LDL" || got.TopAbnormal[1].Count != 1 {
		t.Errorf("TopAbnormal[1] = %+v", got.TopAbnormal[1])
	}
}

func TestSummary_MonthBuckets(t *testing.T) {
	now := time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{stats: []ReportStat{
		{CreatedAt: now},
		{CreatedAt: now.AddDate(0, 0, -35)},
		{CreatedAt: now.AddDate(0, 0, -35)},
		{CreatedAt: now.AddDate(-1, 0, 0)},
	}}

	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return now }

	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	months := got.ReportsPerMonth
	if len(months) == 0 || months[len(months)-1].Month != "Jun 2025" {
		t.Fatalf("ReportsPerMonth = %+v", months)
	}
	byMonth := make(map[string]int)
	for _, b := range months {
		byMonth[b.Month] = b.Count
	}
	if byMonth["Jun 2025"] != 1 {
		t.Errorf("Jun 2025 = %d", byMonth["Jun 2025"])
	}
	if byMonth["May 2025"] != 2 {
		t.Errorf("May 2025 = %d", byMonth["May 2025"])
	}
	// a year-old report falls outside the trailing window
	total := 0
	for _, b := range months {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("window total = %d", total)
	}
}

func TestTopAbnormalCapped(t *testing.T) {
	params := make([]report.Parameter, 7)
	for i := range params {
		params[i] = report.Parameter{
			Name:   string(rune('A' + i)),
			Status: report.Scalar("high"),
		}
	}
	count, top := tallyAbnormal([]ReportStat{{Parameters: params}})
	if count != 7 {
		t.Errorf("count = %d", count)
	}
	if len(top) != 5 {
		t.Errorf("top = %+v", top)
	}
}
