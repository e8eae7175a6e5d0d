// Package ingest adapts the document-analysis and text-generation services
// into the extraction and enhancement steps of report ingestion.
package ingest

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/medvault/medvault/internal/domain/report"
	"github.com/medvault/medvault/internal/platform/docintel"
)

// Analyzer is the document-analysis surface the extractor consumes.
type Analyzer interface {
	Analyze(ctx context.Context, document []byte) (*docintel.AnalysisResult, error)
}

// Extractor maps document-analysis output to a report draft.
type Extractor struct {
	analyzer Analyzer
}

func NewExtractor(analyzer Analyzer) *Extractor {
	return &Extractor{analyzer: analyzer}
}

// Extract analyzes document bytes and returns the draft plus the full
// document text.
func (e *Extractor) Extract(ctx context.Context, document []byte) (*report.Draft, string, error) {
	result, err := e.analyzer.Analyze(ctx, document)
	if err != nil {
		return nil, "", err
	}
	return BuildDraft(result), result.Content, nil
}

var numericTokenRe = regexp.MustCompile(`-?\d+\.?\d*`)

var (
	findingKeywords = []string{"finding", "impression", "observation"}
	adviseKeywords  = []string{"advise", "recommendation", "plan"}
)

// BuildDraft is the pure mapping from an analysis result to a draft.
//
// Key/value pairs fill patient identity: keys mentioning "name" give the
// patient name; keys mentioning sex or gender give the sex (and the age too
// when the same key encodes both); remaining keys mentioning "age" give the
// age via the first numeric token. Tables give the report type (first data
// row of the first multi-row table) and the parameter rows. Paragraphs are
// routed by keyword, observations taking priority over advise. The report
// date comes from the full document text as a final step.
func BuildDraft(result *docintel.AnalysisResult) *report.Draft {
	d := &report.Draft{}

	for _, kv := range result.KeyValuePairs {
		key := strings.ToLower(kv.Key)
		switch {
		case strings.Contains(key, "name"):
			d.PatientName = kv.Value
		case strings.Contains(key, "sex") || strings.Contains(key, "gender"):
			d.PatientSex = inferSex(kv.Value)
			if strings.Contains(key, "age") {
				d.PatientAge = firstNumericToken(kv.Value)
			}
		case strings.Contains(key, "age") && d.PatientAge == "":
			d.PatientAge = firstNumericToken(kv.Value)
		}
	}

	typeSet := false
	for _, table := range result.Tables {
		if table.RowCount <= 1 {
			continue
		}
		for rowIdx := 1; rowIdx < table.RowCount; rowIdx++ {
			row := table.Row(rowIdx)
			if row == nil {
				continue
			}
			if !typeSet {
				d.ReportType = row[0]
				typeSet = true
				continue
			}
			if len(row) >= 4 && row[3] != "" {
				d.Parameters = append(d.Parameters, buildParameter(row))
			}
		}
	}

	for _, p := range result.Paragraphs {
		lower := strings.ToLower(p)
		if containsAny(lower, findingKeywords) {
			d.Observations = append(d.Observations, p)
		} else if containsAny(lower, adviseKeywords) {
			d.Advise = append(d.Advise, p)
		}
	}

	d.ReportDate = report.NormalizeReportDate(result.Content)
	return d
}

func buildParameter(row []string) report.Parameter {
	p := report.Parameter{
		Name:        row[0],
		Value:       report.Scalar(row[1]),
		Unit:        row[2],
		NormalRange: row[3],
	}
	if value, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64); err == nil {
		if status, ok := report.ClassifyValue(value, row[3]); ok {
			p.Status = report.Scalar(string(status))
		}
	}
	return p
}

func inferSex(value string) string {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "female") {
		return "Female"
	}
	if strings.Contains(lower, "male") {
		return "Male"
	}
	return "Female"
}

func firstNumericToken(value string) string {
	if tok := numericTokenRe.FindString(value); tok != "" {
		return tok
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ExcerptForPrompt trims text to limit characters for prompt embedding.
func ExcerptForPrompt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
