package transform

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fhirbridge/fhirbridge/internal/platform/fhir"
)

type Handler struct {
	orch *Orchestrator
}

func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.POST("/:resourceType", h.Submit)
}

// Submit accepts a FHIR resource and transforms it synchronously.
func (h *Handler) Submit(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body")
	}
	var res fhir.Resource
	if err := json.Unmarshal(body, &res); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if rt := c.Param("resourceType"); rt != "" && rt != res.ResourceType {
		return echo.NewHTTPError(http.StatusBadRequest, "resourceType does not match request path")
	}

	outcome, err := h.orch.Transform(c.Request().Context(), &res)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if outcome == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"matched": false})
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"matched":      true,
		"rule_id":      outcome.RuleID,
		"tracker_type": outcome.ResourceType,
		"outcome":      outcomeBody(outcome),
	})
}

func outcomeBody(oc *Outcome) interface{} {
	switch {
	case oc.TrackedEntity != nil:
		return oc.TrackedEntity
	case oc.Enrollment != nil:
		return oc.Enrollment
	case oc.Event != nil:
		return oc.Event
	}
	return nil
}
