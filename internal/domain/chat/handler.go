package chat

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/chat/patient-assistant", h.PatientAssistant)
	api.POST("/lab/chat/query", h.GeneralLabQuery)
	api.POST("/lab/chat/patient-query", h.LabPatientQuery)
	api.POST("/health-summary", h.HealthSummary)
}

type patientAssistantRequest struct {
	PatientID string `json:"patient_id"`
	Query     string `json:"query"`
}

func (h *Handler) PatientAssistant(c echo.Context) error {
	var req patientAssistantRequest
	if err := c.Bind(&req); err != nil || req.PatientID == "" || req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Both patient_id and query are required.")
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	answer, err := h.svc.PatientAssistant(c.Request().Context(), patientID, req.Query)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Patient not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

type labQueryRequest struct {
	PatientName string `json:"patient_name"`
	Query       string `json:"query"`
}

func (h *Handler) GeneralLabQuery(c echo.Context) error {
	var req labQueryRequest
	if err := c.Bind(&req); err != nil || req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query is required.")
	}
	answer := h.svc.GeneralLabQuery(c.Request().Context(), req.Query)
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

func (h *Handler) LabPatientQuery(c echo.Context) error {
	var req labQueryRequest
	if err := c.Bind(&req); err != nil || req.PatientName == "" || req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Both patient_name and query are required.")
	}
	answer, err := h.svc.LabPatientQuery(c.Request().Context(), req.PatientName, req.Query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

type summaryRequest struct {
	PatientName string `json:"patient_name"`
}

func (h *Handler) HealthSummary(c echo.Context) error {
	var req summaryRequest
	if err := c.Bind(&req); err != nil || req.PatientName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Patient name is required.")
	}
	summary, err := h.svc.HealthSummary(c.Request().Context(), req.PatientName)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}
