package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/service"
)

// WorkerHandler serves the machine-facing routes: generation results from
// the worker and the PDF and delivery collaborator contracts.
type WorkerHandler struct {
	handlerBase
	tracker service.JobTracker
	plans   service.PlanService
}

func NewWorkerHandler(tracker service.JobTracker, plans service.PlanService, log *logger.Logger) *WorkerHandler {
	return &WorkerHandler{handlerBase: handlerBase{log: log}, tracker: tracker, plans: plans}
}

type AttachPDFRequest struct {
	AttachmentID string `json:"attachmentId" binding:"required"`
}

type DeliveryRequest struct {
	Channel domain.DeliveryChannel `json:"channel" binding:"required"`
}

// SubmitResult applies a worker outcome to its job. A result for a job that
// already finished is answered with 409 and discarded.
// POST /worker/generations/:jobId/result
func (h *WorkerHandler) SubmitResult(c *gin.Context) {
	var outcome domain.GenerationOutcome
	if err := c.ShouldBindJSON(&outcome); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	jobID := c.Param("jobId")
	if err := h.tracker.OnWorkerResult(c.Request.Context(), jobID, outcome); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// RequestPDFUpload hands the renderer a presigned upload target.
// POST /collab/plans/:planId/pdf/upload-url
func (h *WorkerHandler) RequestPDFUpload(c *gin.Context) {
	upload, err := h.plans.RequestPDFUpload(c.Request.Context(), c.Param("planId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

// AttachPDF records the uploaded document on the plan.
// PUT /collab/plans/:planId/pdf
func (h *WorkerHandler) AttachPDF(c *gin.Context) {
	var req AttachPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if err := h.plans.AttachPDF(c.Request.Context(), c.Param("planId"), req.AttachmentID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// MarkDelivered flips the delivery flag of one channel.
// POST /collab/plans/:planId/deliveries
func (h *WorkerHandler) MarkDelivered(c *gin.Context) {
	var req DeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if err := h.plans.MarkDelivered(c.Request.Context(), c.Param("planId"), req.Channel); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
