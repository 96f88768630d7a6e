package dataset

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/emmanuel-123tech/africareai/internal/domain/forecast"
	"github.com/emmanuel-123tech/africareai/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "analyst"))
	g.POST("/datasets/analyse", h.Analyse)
}

type analyseRequest struct {
	CSV string `json:"csv"`
}

// Analyse accepts either a raw CSV body or a JSON object with a "csv" field.
func (h *Handler) Analyse(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	text := string(body)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req analyseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
		}
		text = req.CSV
	}

	analysis, err := h.svc.AnalyseText(c.Request().Context(), text,
		c.QueryParam("disease"), forecast.Scenario(c.QueryParam("scenario")))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, analysis)
}
