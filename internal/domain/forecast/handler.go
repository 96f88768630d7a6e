package forecast

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emmanuel-123tech/africareai/internal/platform/auth"
	"github.com/emmanuel-123tech/africareai/internal/platform/middleware"
	"github.com/emmanuel-123tech/africareai/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "analyst", "clinician"))
	readGroup.GET("/forecasts", h.ListRuns)
	readGroup.GET("/forecasts/reference", h.GetReference, middleware.ETag(300))
	readGroup.GET("/forecasts/:id", h.GetRun)
	readGroup.GET("/facility-loads", h.GetFacilityLoads)

	writeGroup := api.Group("", auth.RequireRole("admin", "analyst"))
	writeGroup.POST("/forecasts", h.CreateRun)
	writeGroup.DELETE("/forecasts/:id", h.DeleteRun)
	writeGroup.POST("/scenarios", h.RunScenario)
}

func (h *Handler) CreateRun(c echo.Context) error {
	var seed Seed
	if err := c.Bind(&seed); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	run, err := h.svc.CreateRun(ctx, seed, auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, run)
}

func (h *Handler) GetRun(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	run, err := h.svc.GetRun(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "forecast run not found")
	}
	return c.JSON(http.StatusOK, run)
}

func (h *Handler) ListRuns(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"disease", "location", "scenario"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchRuns(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pg.Page(c, items, total))
}

func (h *Handler) DeleteRun(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRun(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetReference(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Reference())
}

func (h *Handler) GetFacilityLoads(c echo.Context) error {
	loads := h.svc.FacilityLoads(c.QueryParam("disease"), Scenario(c.QueryParam("scenario")))
	return c.JSON(http.StatusOK, loads)
}

type scenarioRequest struct {
	Baseline    []Point    `json:"baseline"`
	Adjustments Adjustment `json:"adjustments"`
}

func (h *Handler) RunScenario(c echo.Context) error {
	var req scenarioRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	adjusted, err := h.svc.Simulate(req.Baseline, req.Adjustments)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, adjusted)
}
