package report

import "github.com/google/uuid"

// Merge folds a draft into the patient's longitudinal record for the same
// report type and returns the next record value. It is pure; persistence is
// the caller's job.
//
// First report of a type: scalar value/status fields are wrapped into
// single-element series and report_dates is seeded with the one date (or
// left empty when no date was found). Later reports: the date is appended
// unless already present, parameters merge by name with the new value/status
// appended in arrival order, and observations/advise are replaced wholesale
// so the narrative always reflects the latest upload.
func Merge(existing *StoredReport, d *Draft, date string) *StoredReport {
	if existing == nil {
		var dates []string
		if date != "" {
			dates = []string{date}
		}
		return &StoredReport{
			ID:           uuid.New(),
			ReportType:   d.ReportType,
			ReportDate:   date,
			ReportDates:  dates,
			Parameters:   wrapParams(d.Parameters),
			Observations: append([]string(nil), d.Observations...),
			Advise:       append([]string(nil), d.Advise...),
		}
	}

	next := &StoredReport{
		ID:                  existing.ID,
		PatientID:           existing.PatientID,
		ReportType:          existing.ReportType,
		ReportDate:          date,
		ReportDates:         append([]string(nil), existing.ReportDates...),
		Parameters:          append([]Parameter(nil), existing.Parameters...),
		Observations:        append([]string(nil), d.Observations...),
		Advise:              append([]string(nil), d.Advise...),
		LatestFileReference: existing.LatestFileReference,
		CreatedAt:           existing.CreatedAt,
	}

	if date != "" {
		seen := false
		for _, prev := range next.ReportDates {
			if prev == date {
				seen = true
				break
			}
		}
		if !seen {
			next.ReportDates = append(next.ReportDates, date)
		}
	}

	for _, np := range d.Parameters {
		p := next.Param(np.Name)
		if p == nil {
			next.Parameters = append(next.Parameters, wrapParam(np))
			continue
		}
		p.Value = p.Value.Append(np.Value.Latest())
		if !p.Status.IsZero() || !np.Status.IsZero() {
			// readings that predate any classification get an empty
			// status so value and status stay the same length
			for p.Status.Len() < p.Value.Len()-1 {
				p.Status = p.Status.Append("")
			}
			p.Status = p.Status.Append(np.Status.Latest())
		}
		if np.Unit != "" {
			p.Unit = np.Unit
		}
		if np.NormalRange != "" {
			p.NormalRange = np.NormalRange
		}
	}

	return next
}

func wrapParam(p Parameter) Parameter {
	if !p.Value.IsSeries() {
		p.Value = Series(p.Value.Values()...)
	}
	if !p.Status.IsZero() && !p.Status.IsSeries() {
		p.Status = Series(p.Status.Values()...)
	}
	return p
}

func wrapParams(params []Parameter) []Parameter {
	out := make([]Parameter, len(params))
	for i, p := range params {
		out[i] = wrapParam(p)
	}
	return out
}
