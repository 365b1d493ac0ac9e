package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/service"
)

// GenerationHandler exposes the job tracker to coaches.
type GenerationHandler struct {
	handlerBase
	tracker service.JobTracker
	coach   *CoachHandler
}

func NewGenerationHandler(tracker service.JobTracker, coach *CoachHandler, log *logger.Logger) *GenerationHandler {
	return &GenerationHandler{handlerBase: handlerBase{log: log}, tracker: tracker, coach: coach}
}

type SubmitGenerationRequest struct {
	Mode   domain.JobMode          `json:"mode"`
	Inputs domain.GenerationInputs `json:"inputs"`
}

type SubmitGenerationResponse struct {
	JobID  string           `json:"jobId"`
	Status domain.JobStatus `json:"status"`
}

// Submit godoc
// @Summary Start a plan generation
// @Description Validates the inputs, queues a job and hands it to the worker. Only one job per client may be queued or running.
// @Tags Generations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param request body SubmitGenerationRequest true "Mode and inputs"
// @Success 202 {object} SubmitGenerationResponse "Job queued"
// @Failure 400 {object} ErrorResponse "Invalid inputs (field names the offending input)"
// @Failure 403 {object} ErrorResponse "Client not managed by this coach"
// @Failure 409 {object} ErrorResponse "A job is already active (activeJobId set)"
// @Router /coach/clients/{clientId}/generations [post]
func (h *GenerationHandler) Submit(c *gin.Context) {
	var req SubmitGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	job, err := h.tracker.Submit(c.Request.Context(), c.Param("clientId"), req.Mode, req.Inputs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Location", "/api/v1/coach/generations/"+job.ID)
	c.JSON(http.StatusAccepted, SubmitGenerationResponse{JobID: job.ID, Status: job.Status})
}

// Status godoc
// @Summary Poll a generation job
// @Description Reports status, plus result ids once completed or the worker's error once failed.
// @Tags Generations
// @Produce json
// @Security BearerAuth
// @Param jobId path string true "Job ID"
// @Success 200 {object} domain.JobStatusView
// @Failure 403 {object} ErrorResponse "Job belongs to a client of another coach"
// @Failure 404 {object} ErrorResponse "Unknown job"
// @Router /coach/generations/{jobId} [get]
func (h *GenerationHandler) Status(c *gin.Context) {
	job, err := h.tracker.GetJob(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.coach.ensureManaged(c, job.ClientID) {
		return
	}
	c.JSON(http.StatusOK, job.StatusView())
}

// List returns the client's most recent jobs, newest first.
// GET /coach/clients/:clientId/generations?limit=
func (h *GenerationHandler) List(c *gin.Context) {
	limit := service.RecentJobsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	jobs, err := h.tracker.ListJobs(c.Request.Context(), c.Param("clientId"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}
