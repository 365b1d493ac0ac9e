package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/service"
)

// ClientHandler serves the per-client views of the back office: the
// questionnaire ledger, lineage defaults and the aggregated session.
type ClientHandler struct {
	handlerBase
	questionnaires service.QuestionnaireService
	lineage        service.LineageResolver
	sessions       service.SessionService
}

func NewClientHandler(
	questionnaires service.QuestionnaireService,
	lineage service.LineageResolver,
	sessions service.SessionService,
	log *logger.Logger,
) *ClientHandler {
	return &ClientHandler{
		handlerBase:    handlerBase{log: log},
		questionnaires: questionnaires,
		lineage:        lineage,
		sessions:       sessions,
	}
}

type RecordQuestionnaireRequest struct {
	Kind        domain.QuestionnaireKind `json:"kind"`
	SubmittedAt *time.Time               `json:"submittedAt"`
	Responses   map[string]interface{}   `json:"responses"`
}

// ListQuestionnaires returns the client's submissions, oldest first.
// GET /coach/clients/:clientId/questionnaires
func (h *ClientHandler) ListQuestionnaires(c *gin.Context) {
	list, err := h.questionnaires.List(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// RecordQuestionnaire appends a submission to the ledger.
// POST /coach/clients/:clientId/questionnaires
func (h *ClientHandler) RecordQuestionnaire(c *gin.Context) {
	var req RecordQuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	q, err := h.questionnaires.Record(c.Request.Context(), c.Param("clientId"), req.Kind, req.SubmittedAt, req.Responses)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// LineageDefaults returns the advisory input selections for a new job.
// GET /coach/clients/:clientId/lineage-defaults
func (h *ClientHandler) LineageDefaults(c *gin.Context) {
	defaults, err := h.lineage.Defaults(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, defaults)
}

// Session returns one consistent snapshot of the client.
// GET /coach/clients/:clientId/session
func (h *ClientHandler) Session(c *gin.Context) {
	session, err := h.sessions.LoadClientSession(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
