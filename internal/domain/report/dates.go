package report

import (
	"regexp"
	"strings"
	"time"
)

// Date patterns tried in order against the full document text. Labelled
// report-time dates win over bare dates, which win over numeric formats.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Report\s*Time|Date\s*of\s*Report)[:\s]*([A-Za-z]{3}\s\d{1,2},\s\d{4}(?:,\s\d{1,2}:\d{2}\s[AP]M)?)`),
	regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s\d{1,2},\s\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),
	regexp.MustCompile(`(?i)(?:Signed|Date|Reported)\s*:\s*([A-Za-z]{3}\s\d{1,2},\s\d{4})`),
}

// NormalizeReportDate scans free-form report text for a date and returns it
// in YYYY-MM-DD form. Month-name dates that fail to parse come back as the
// raw matched substring; text without any recognizable date yields "".
func NormalizeReportDate(text string) string {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		dateStr := m[0]
		if len(m) > 1 && m[1] != "" {
			dateStr = m[1]
		}

		switch {
		case strings.Contains(dateStr, ",") && strings.Contains(dateStr, ":"):
			if t, err := time.Parse("Jan 2, 2006, 3:04 PM", dateStr); err == nil {
				return t.Format("2006-01-02")
			}
		case strings.Contains(dateStr, ","):
			if t, err := time.Parse("Jan 2, 2006", dateStr); err == nil {
				return t.Format("2006-01-02")
			}
		}
		// numeric formats and unparseable matches pass through untouched
		return dateStr
	}
	return ""
}
