package triage

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
	g := api.Group("", auth.RequireRole("admin", "clinician"))
	g.POST("/triage", h.Assess)
	g.GET("/triage", h.ListAssessments)
	g.GET("/triage/knowledge-base", h.GetKnowledgeBase, middleware.ETag(300))
	g.GET("/triage/:id", h.GetAssessment)
}

func (h *Handler) Assess(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.Symptoms = middleware.SanitizeString(in.Symptoms)
	for i, cm := range in.Comorbidities {
		in.Comorbidities[i] = middleware.SanitizeString(cm)
	}
	ctx := c.Request().Context()
	a, err := h.svc.Assess(ctx, in, auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAssessment(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "triage assessment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAssessments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"severity", "condition"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchAssessments(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pg.Page(c, items, total))
}

type knowledgeSummary struct {
	Name         string            `json:"name"`
	Keywords     []string          `json:"keywords"`
	Thresholds   map[Vital]float64 `json:"thresholds"`
	BaseSeverity Severity          `json:"base_severity"`
	Referral     Referral          `json:"referral"`
}

func (h *Handler) GetKnowledgeBase(c echo.Context) error {
	entries := KnowledgeBase()
	out := make([]knowledgeSummary, len(entries))
	for i, e := range entries {
		out[i] = knowledgeSummary{
			Name:         e.Name,
			Keywords:     e.Keywords,
			Thresholds:   e.Thresholds,
			BaseSeverity: e.BaseSeverity,
			Referral:     e.Referral,
		}
	}
	return c.JSON(http.StatusOK, out)
}
