package patient

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/names", h.ListNames)
	api.POST("/patients", h.CreatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.GET("/patients/:id/profile", h.GetProfile)
	api.PUT("/patients/:id/profile", h.UpdateProfile)
}

// CreatePatient onboards a patient from a multipart form holding the mobile
// number and the first report document.
func (h *Handler) CreatePatient(c echo.Context) error {
	mobile := c.FormValue("mobile")
	fh, ferr := c.FormFile("report")
	if mobile == "" || ferr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Mobile and report are required.")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read report file")
	}
	defer src.Close()
	document, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read report file")
	}

	p, _, err := h.svc.CreateFromReport(c.Request().Context(), mobile, fh.Filename, document)
	if err != nil {
		if errors.Is(err, ErrIncompleteExtraction) {
			return echo.NewHTTPError(http.StatusBadRequest, "Could not extract all required fields from the report.")
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Patient added successfully!",
		"patient": p,
	})
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListNames(c echo.Context) error {
	names, err := h.svc.ListNames(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, map[string][]string{"names": names})
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found.")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile payload")
	}

	p, err := h.svc.UpdateProfile(c.Request().Context(), id, &upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Patient not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Patient not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Patient and all reports deleted."})
}
