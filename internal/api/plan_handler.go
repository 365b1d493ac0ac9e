package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/service"
)

// PlanHandler serves the plan store to coaches and, read-only, to clients.
type PlanHandler struct {
	handlerBase
	plans service.PlanService
	coach *CoachHandler
}

func NewPlanHandler(plans service.PlanService, coach *CoachHandler, log *logger.Logger) *PlanHandler {
	return &PlanHandler{handlerBase: handlerBase{log: log}, plans: plans, coach: coach}
}

type PatchPlanRequest struct {
	Content domain.PlanContent `json:"content"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type PDFDownloadResponse struct {
	URL string `json:"url"`
}

// List returns plan summaries of one kind, newest first.
// GET /coach/clients/:clientId/plans?kind=
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.plans.List(c.Request.Context(), c.Param("clientId"), domain.PlanKind(c.Query("kind")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// Get returns the plan with content and resolved lineage.
// GET /coach/plans/:planId
func (h *PlanHandler) Get(c *gin.Context) {
	planID, ok := h.managedPlan(c)
	if !ok {
		return
	}
	detail, err := h.plans.Get(c.Request.Context(), planID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Patch replaces the plan content and marks it edited.
// PATCH /coach/plans/:planId
func (h *PlanHandler) Patch(c *gin.Context) {
	planID, ok := h.managedPlan(c)
	if !ok {
		return
	}
	var req PatchPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if _, err := h.plans.Patch(c.Request.Context(), planID, req.Content); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Delete removes one plan. Plans pointing at it keep their dangling ids.
// DELETE /coach/plans/:planId
func (h *PlanHandler) Delete(c *gin.Context) {
	planID, ok := h.managedPlan(c)
	if !ok {
		return
	}
	if err := h.plans.Delete(c.Request.Context(), planID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// PDFDownload returns a short-lived link to the attached PDF.
// GET /coach/plans/:planId/pdf
func (h *PlanHandler) PDFDownload(c *gin.Context) {
	planID, ok := h.managedPlan(c)
	if !ok {
		return
	}
	url, err := h.plans.PDFDownloadURL(c.Request.Context(), planID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PDFDownloadResponse{URL: url})
}

// MyPlans lists the calling client's own plans.
// GET /client/plans?kind=
func (h *PlanHandler) MyPlans(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	plans, err := h.plans.List(c.Request.Context(), clientID, domain.PlanKind(c.Query("kind")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// MyPlan returns one of the calling client's plans. Plans of other clients
// are reported as missing.
// GET /client/plans/:planId
func (h *PlanHandler) MyPlan(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	detail, err := h.plans.Get(c.Request.Context(), c.Param("planId"))
	if err == nil && detail.ClientID != clientID {
		err = service.ErrPlanNotFound
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *PlanHandler) managedPlan(c *gin.Context) (string, bool) {
	planID := c.Param("planId")
	owner, err := h.plans.Owner(c.Request.Context(), planID)
	if err != nil {
		h.respondError(c, err)
		return "", false
	}
	if !h.coach.ensureManaged(c, owner) {
		return "", false
	}
	return planID, true
}
