// Package chat answers conversational queries over indexed report text for
// patients and lab technicians, and renders health summaries.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/llm"
)

// NoReportsAnswer is returned verbatim when a patient has no indexed text.
const NoReportsAnswer = "No reports found for this patient."

// Responder degrades on transport failure: a chat turn never errors, it
// answers with the failure text instead.
type Responder interface {
	Ask(ctx context.Context, req llm.Request) string
}

// ReportSource hands back the concatenated indexed text for an owner.
type ReportSource interface {
	OwnerText(ctx context.Context, ownerName string) (string, error)
}

// PatientDirectory resolves patient ids to display names.
type PatientDirectory interface {
	NameOf(ctx context.Context, id uuid.UUID) (string, error)
}

var ErrPatientNotFound = errors.New("patient not found")

type Service struct {
	responder Responder
	reports   ReportSource
	patients  PatientDirectory
	chatModel string
	labModel  string
	logger    zerolog.Logger
}

func NewService(responder Responder, reports ReportSource, patients PatientDirectory, chatModel, labModel string, logger zerolog.Logger) *Service {
	return &Service{
		responder: responder,
		reports:   reports,
		patients:  patients,
		chatModel: chatModel,
		labModel:  labModel,
		logger:    logger.With().Str("component", "chat").Logger(),
	}
}

func (s *Service) ask(ctx context.Context, model, prompt string) string {
	return s.responder.Ask(ctx, llm.Request{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		MaxTokens: chatMaxTokens,
	})
}

// PatientAssistant answers a patient's question against their own indexed
// report text.
func (s *Service) PatientAssistant(ctx context.Context, patientID uuid.UUID, query string) (string, error) {
	name, err := s.patients.NameOf(ctx, patientID)
	if err != nil {
		return "", ErrPatientNotFound
	}

	text, err := s.reports.OwnerText(ctx, name)
	if err != nil {
		return "", fmt.Errorf("load patient reports: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return NoReportsAnswer, nil
	}

	return s.ask(ctx, s.chatModel, fmt.Sprintf(patientAssistantPromptPattern, text, query)), nil
}

// GeneralLabQuery answers a technician question that is not tied to a
// specific patient.
func (s *Service) GeneralLabQuery(ctx context.Context, query string) string {
	return s.ask(ctx, s.labModel, fmt.Sprintf(generalLabPromptPattern, query))
}

// LabPatientQuery answers a technician question against a named patient's
// indexed report text.
func (s *Service) LabPatientQuery(ctx context.Context, patientName, query string) (string, error) {
	text, err := s.reports.OwnerText(ctx, patientName)
	if err != nil {
		return "", fmt.Errorf("load patient reports: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return NoReportsAnswer, nil
	}

	return s.ask(ctx, s.chatModel, fmt.Sprintf(labPatientPromptPattern, text, query)), nil
}

// HealthSummary renders a markdown health summary over everything indexed
// for the named patient.
func (s *Service) HealthSummary(ctx context.Context, patientName string) (string, error) {
	text, err := s.reports.OwnerText(ctx, patientName)
	if err != nil {
		return "", fmt.Errorf("load patient reports: %w", err)
	}

	return s.ask(ctx, s.chatModel, fmt.Sprintf(healthSummaryPromptPattern, text)), nil
}
