package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const (
	recentReportLimit = 5
	topAbnormalLimit  = 5
	monthWindow       = 6
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "dashboard").Logger(),
		now:    time.Now,
	}
}

// Summary aggregates the dashboard payload: record counts, the latest
// reports, abnormal classification tallies and a six-month upload chart.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	totalPatients, err := s.repo.CountPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	totalReports, err := s.repo.CountReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	recent, err := s.repo.RecentReports(ctx, recentReportLimit)
	if err != nil {
		return nil, fmt.Errorf("recent reports: %w", err)
	}
	stats, err := s.repo.ReportStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("report stats: %w", err)
	}

	abnormalCount, topAbnormal := tallyAbnormal(stats)

	if recent == nil {
		recent = []RecentReport{}
	}

	return &Summary{
		TotalPatients:   totalPatients,
		TotalReports:    totalReports,
		RecentReports:   recent,
		AbnormalCount:   abnormalCount,
		TopAbnormal:     topAbnormal,
		ReportsPerMonth: s.bucketByMonth(stats),
	}, nil
}

// tallyAbnormal counts every reading whose status is set and not "normal",
// across scalar and series histories alike, and ranks the parameters by how
// often they were flagged.
func tallyAbnormal(stats []ReportStat) (int, []AbnormalParam) {
	total := 0
	perParam := make(map[string]int)
	for _, stat := range stats {
		for _, p := range stat.Parameters {
			for _, status := range p.Status.Values() {
				if status != "" && status != "normal" {
					total++
					perParam[p.Name]++
				}
			}
		}
	}

	top := make([]AbnormalParam, 0, len(perParam))
	for name, count := range perParam {
		top = append(top, AbnormalParam{Name: name, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topAbnormalLimit {
		top = top[:topAbnormalLimit]
	}
	return total, top
}

// bucketByMonth builds the trailing six-month chart, oldest bucket first.
// Reports outside the window are dropped.
func (s *Service) bucketByMonth(stats []ReportStat) []MonthCount {
	today := s.now()
	buckets := make([]MonthCount, 0, monthWindow)
	index := make(map[string]int, monthWindow)
	for i := monthWindow - 1; i >= 0; i-- {
		m := today.AddDate(0, 0, -30*i).Format("Jan 2006")
		if _, ok := index[m]; ok {
			continue
		}
		index[m] = len(buckets)
		buckets = append(buckets, MonthCount{Month: m})
	}

	for _, stat := range stats {
		if i, ok := index[stat.CreatedAt.Format("Jan 2006")]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}
