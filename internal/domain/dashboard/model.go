// Package dashboard aggregates patient and report data into the operational
// summary the frontend landing page renders.
package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/report"
)

// RecentReport is one row in the recently-updated reports panel.
type RecentReport struct {
	ID          uuid.UUID `json:"id"`
	ReportType  string    `json:"report_type"`
	ReportDate  string    `json:"report_date"`
	PatientName string    `json:"patient_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// AbnormalParam counts how often a parameter was classified outside normal.
type AbnormalParam struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MonthCount is one bucket of the reports-per-month chart, oldest first.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Summary is the full dashboard payload.
type Summary struct {
	TotalPatients   int             `json:"total_patients"`
	TotalReports    int             `json:"total_reports"`
	RecentReports   []RecentReport  `json:"recent_reports"`
	AbnormalCount   int             `json:"abnormal_count"`
	TopAbnormal     []AbnormalParam `json:"top_abnormal"`
	ReportsPerMonth []MonthCount    `json:"reports_per_month"`
}

// ReportStat is the slice of a stored report the aggregation needs.
type ReportStat struct {
	Parameters []report.Parameter
	CreatedAt  time.Time
}
