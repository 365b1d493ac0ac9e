package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/service"
)

type CoachHandler struct {
	handlerBase
	coachService service.CoachService
}

func NewCoachHandler(coachService service.CoachService, log *logger.Logger) *CoachHandler {
	return &CoachHandler{handlerBase: handlerBase{log: log}, coachService: coachService}
}

type AddClientRequest struct {
	ClientEmail string `json:"clientEmail" binding:"required,email"`
}

// AddClientByEmail attaches an existing client account to the calling coach.
// POST /coach/clients
func (h *CoachHandler) AddClientByEmail(c *gin.Context) {
	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	client, err := h.coachService.AddClientByEmail(c.Request.Context(), coachID, req.ClientEmail)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(client))
}

// GetManagedClients lists the calling coach's clients.
// GET /coach/clients
func (h *CoachHandler) GetManagedClients(c *gin.Context) {
	coachID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	clients, err := h.coachService.GetManagedClients(c.Request.Context(), coachID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(clients))
}

// RequireManagedClient rejects requests whose :clientId is not a client of
// the calling coach.
func (h *CoachHandler) RequireManagedClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.ensureManaged(c, c.Param("clientId")) {
			c.Next()
		}
	}
}

// ensureManaged writes the error response and returns false when clientID
// is out of the calling coach's reach.
func (h *CoachHandler) ensureManaged(c *gin.Context, clientID string) bool {
	coachID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return false
	}
	if err := h.coachService.EnsureManaged(c.Request.Context(), coachID, clientID); err != nil {
		h.respondError(c, err)
		return false
	}
	return true
}
