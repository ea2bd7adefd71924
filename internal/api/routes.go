package api

import (
	"net/http"

	"habitloop/habit-app/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires every handler into the gin engine. All routes except
// /ping and /auth/* require a valid JWT.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	activityService service.ActivityService,
	planService service.PlanService,
	entryService service.EntryService,
	progressService service.ProgressService,
) {
	authHandler := NewAuthHandler(authService)
	activityHandler := NewActivityHandler(activityService)
	planHandler := NewPlanHandler(planService)
	entryHandler := NewEntryHandler(entryService)
	progressHandler := NewProgressHandler(progressService)

	authMiddleware := AuthMiddleware(jwtSecret)

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

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
		})

		// --- Activity Routes ---
		activityGroup := protected.Group("/activities")
		{
			activityGroup.POST("", activityHandler.CreateActivity)
			activityGroup.GET("", activityHandler.GetMyActivities)
			activityGroup.DELETE("/:activityId", activityHandler.DeleteActivity)
		}

		// --- Plan Routes ---
		planGroup := protected.Group("/plans")
		{
			planGroup.POST("", planHandler.CreatePlan)
			planGroup.GET("", planHandler.GetMyPlans)
			planGroup.GET("/:planId", planHandler.GetPlan)
			planGroup.PATCH("/:planId", planHandler.UpdatePlan)
			planGroup.DELETE("/:planId", planHandler.DeletePlan)

			// Scheduled-session management
			planGroup.POST("/:planId/sessions", planHandler.CreateSession)
			planGroup.GET("/:planId/sessions", planHandler.GetPlanSessions)

			// Progress read path (cached unless ?force=true)
			planGroup.GET("/:planId/progress", progressHandler.GetPlanProgress)
		}
		protected.POST("/sessions/:sessionId/commit", planHandler.CommitSession)

		// --- Entry Routes ---
		entryGroup := protected.Group("/entries")
		{
			entryGroup.POST("", entryHandler.LogEntry)
			entryGroup.GET("", entryHandler.GetMyEntries)
			entryGroup.DELETE("/:entryId", entryHandler.DeleteEntry)
		}

		// --- Progress Batch/Invalidate Routes ---
		progressGroup := protected.Group("/progress")
		{
			progressGroup.POST("/batch", progressHandler.GetBatchProgress)
			progressGroup.POST("/invalidate", progressHandler.InvalidateProgress)
		}
	}
}
