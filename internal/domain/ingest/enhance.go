package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medvault/medvault/internal/domain/report"
	"github.com/medvault/medvault/internal/platform/jsonrepair"
	"github.com/medvault/medvault/internal/platform/llm"
)

const (
	excerptLimit         = 7500
	enhanceTemperature   = 0.3
	enhanceMaxTokens     = 2500
	enhancePromptPattern = `<s>[INST] <<SYS>>
You are a medical analysis AI. Analyze this report and return JSON with:
1. Parameter analysis (status, normalized values)
2. Observation classification (normal/abnormal)
3. Clinical recommendations
<</SYS>>

Patient Context:
%s

Report Excerpt:
%s

Return ONLY this JSON structure:
{
    "patient_name": null,
    "age": null,
    "sex": null,
    "report_date": null,
    "report_type": null,
    "parameters": [],
    "observations": [],
    "advise": []
}[/INST]`
)

// Generator is the text-generation surface the enhancer consumes. Failures
// propagate: ingestion is not allowed to silently continue with a response
// it never received.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Enhancer asks a generation model to refine a draft's narrative fields.
type Enhancer struct {
	gen   Generator
	model string
}

func NewEnhancer(gen Generator, model string) *Enhancer {
	return &Enhancer{gen: gen, model: model}
}

// Enhance sends the patient context and a bounded excerpt of the document
// text to the model, repairs the structured response, and returns a draft
// that keeps the extracted identity and parameters while replacing
// observations and advise with the model's output.
func (e *Enhancer) Enhance(ctx context.Context, d *report.Draft, fullText string) (*report.Draft, error) {
	patientCtx, err := json.MarshalIndent(map[string]interface{}{
		"name":        d.PatientName,
		"age":         d.PatientAge,
		"sex":         d.PatientSex,
		"report_date": d.ReportDate,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal patient context: %w", err)
	}

	prompt := fmt.Sprintf(enhancePromptPattern, patientCtx, ExcerptForPrompt(fullText, excerptLimit))

	raw, err := e.gen.Generate(ctx, llm.Request{
		Model:       e.model,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: enhanceTemperature,
		MaxTokens:   enhanceMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	span, err := jsonrepair.ExtractSpan(raw)
	if err != nil {
		return nil, fmt.Errorf("locate enhancement JSON: %w", err)
	}
	parsed, err := jsonrepair.Repair(jsonrepair.StripTrailingCommas(span))
	if err != nil {
		return nil, fmt.Errorf("repair enhancement JSON: %w", err)
	}

	fields, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("enhancement JSON is not an object")
	}

	out := *d
	out.Observations = toStringSlice(fields["observations"])
	out.Advise = toStringSlice(fields["advise"])
	return &out, nil
}

func toStringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case map[string]interface{}:
			// models sometimes return structured entries; keep them readable
			b, err := json.Marshal(t)
			if err == nil {
				out = append(out, string(b))
			}
		default:
			out = append(out, fmt.Sprintf("%v", t))
		}
	}
	return out
}
