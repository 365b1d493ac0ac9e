package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/service"
)

// Services groups everything the HTTP surface calls into.
type Services struct {
	Auth           service.AuthService
	Coach          service.CoachService
	Tracker        service.JobTracker
	Plans          service.PlanService
	Questionnaires service.QuestionnaireService
	Lineage        service.LineageResolver
	Sessions       service.SessionService
}

func SetupRoutes(router *gin.Engine, jwtSecret, workerToken string, svc Services, log *logger.Logger) {
	authHandler := NewAuthHandler(svc.Auth, log)
	coachHandler := NewCoachHandler(svc.Coach, log)
	generationHandler := NewGenerationHandler(svc.Tracker, coachHandler, log)
	planHandler := NewPlanHandler(svc.Plans, coachHandler, log)
	clientHandler := NewClientHandler(svc.Questionnaires, svc.Lineage, svc.Sessions, log)
	workerHandler := NewWorkerHandler(svc.Tracker, svc.Plans, log)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	// Worker and collaborators authenticate with the shared secret.
	machine := apiV1.Group("")
	machine.Use(WorkerTokenMiddleware(workerToken))
	{
		machine.POST("/worker/generations/:jobId/result", workerHandler.SubmitResult)

		collab := machine.Group("/collab/plans/:planId")
		{
			collab.POST("/pdf/upload-url", workerHandler.RequestPDFUpload)
			collab.PUT("/pdf", workerHandler.AttachPDF)
			collab.POST("/deliveries", workerHandler.MarkDelivered)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID, "role": role})
		})

		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			coachGroup.POST("/clients", coachHandler.AddClientByEmail)
			coachGroup.GET("/clients", coachHandler.GetManagedClients)

			clientGroup := coachGroup.Group("/clients/:clientId")
			clientGroup.Use(coachHandler.RequireManagedClient())
			{
				clientGroup.POST("/generations", generationHandler.Submit)
				clientGroup.GET("/generations", generationHandler.List)
				clientGroup.GET("/plans", planHandler.List)
				clientGroup.GET("/questionnaires", clientHandler.ListQuestionnaires)
				clientGroup.POST("/questionnaires", clientHandler.RecordQuestionnaire)
				clientGroup.GET("/lineage-defaults", clientHandler.LineageDefaults)
				clientGroup.GET("/session", clientHandler.Session)
			}

			coachGroup.GET("/generations/:jobId", generationHandler.Status)

			coachGroup.GET("/plans/:planId", planHandler.Get)
			coachGroup.PATCH("/plans/:planId", planHandler.Patch)
			coachGroup.DELETE("/plans/:planId", planHandler.Delete)
			coachGroup.GET("/plans/:planId/pdf", planHandler.PDFDownload)
		}

		clientSelf := protected.Group("/client")
		clientSelf.Use(RoleMiddleware(domain.RoleClient))
		{
			clientSelf.GET("/plans", planHandler.MyPlans)
			clientSelf.GET("/plans/:planId", planHandler.MyPlan)
		}
	}
}
