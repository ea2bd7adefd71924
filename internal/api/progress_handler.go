package api

import (
	"errors"
	"net/http"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressHandler holds the progress service dependency.
type ProgressHandler struct {
	progressService service.ProgressService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressService service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// --- DTOs ---

// BatchProgressRequest asks for the progress of several plans at once.
type BatchProgressRequest struct {
	PlanIDs []string `json:"planIds" binding:"required,min=1"`
	Force   bool     `json:"force"`
}

// InvalidateProgressRequest drops cached progress for plans touching the
// given activities.
type InvalidateProgressRequest struct {
	ActivityIDs []string `json:"activityIds" binding:"required,min=1"`
}

// TierAchievementResponse is the DTO for one badge tier.
type TierAchievementResponse struct {
	Tier               string  `json:"tier"`
	ProgressValue      int     `json:"progressValue"`
	MaxValue           int     `json:"maxValue"`
	IsAchieved         bool    `json:"isAchieved"`
	ProgressPercentage float64 `json:"progressPercentage"`
}

// WeekProgressResponse is the DTO for the in-progress week.
type WeekProgressResponse struct {
	IsCompleted    bool `json:"isCompleted"`
	CompletedCount int  `json:"completedCount"`
	RequiredCount  int  `json:"requiredCount"`
}

// AchievementResponse is the DTO for the rolled-up achievement picture.
type AchievementResponse struct {
	Streak          int  `json:"streak"`
	CompletedWeeks  int  `json:"completedWeeks"`
	IncompleteWeeks int  `json:"incompleteWeeks"`
	TotalWeeks      int  `json:"totalWeeks"`
	IsAchieved      bool `json:"isAchieved"`
	WeeksToAchieve  int  `json:"weeksToAchieve"`
}

// PlanProgressResponse is the DTO for one plan's full progress picture.
type PlanProgressResponse struct {
	PlanID      string                  `json:"planId"`
	Achievement AchievementResponse     `json:"achievement"`
	Habit       TierAchievementResponse `json:"habit"`
	Lifestyle   TierAchievementResponse `json:"lifestyle"`
	State       string                  `json:"currentWeekState"`
	Week        WeekProgressResponse    `json:"currentWeek"`
	ComputedAt  time.Time               `json:"computedAt"`
}

// MapProgressToResponse converts a domain.PlanProgress to its DTO.
func MapProgressToResponse(p *domain.PlanProgress) PlanProgressResponse {
	if p == nil {
		return PlanProgressResponse{}
	}
	return PlanProgressResponse{
		PlanID: p.PlanID.Hex(),
		Achievement: AchievementResponse{
			Streak:          p.Achievement.Streak,
			CompletedWeeks:  p.Achievement.CompletedWeeks,
			IncompleteWeeks: p.Achievement.IncompleteWeeks,
			TotalWeeks:      p.Achievement.TotalWeeks,
			IsAchieved:      p.Achievement.IsAchieved,
			WeeksToAchieve:  p.Achievement.WeeksToAchieve,
		},
		Habit:      mapTierToResponse(p.Habit),
		Lifestyle:  mapTierToResponse(p.Lifestyle),
		State:      string(p.State),
		Week: WeekProgressResponse{
			IsCompleted:    p.Week.IsCompleted,
			CompletedCount: p.Week.CompletedCount,
			RequiredCount:  p.Week.RequiredCount,
		},
		ComputedAt: p.ComputedAt,
	}
}

func mapTierToResponse(t domain.TierAchievement) TierAchievementResponse {
	return TierAchievementResponse{
		Tier:               string(t.Tier),
		ProgressValue:      t.ProgressValue,
		MaxValue:           t.MaxValue,
		IsAchieved:         t.IsAchieved,
		ProgressPercentage: t.ProgressPercentage,
	}
}

// --- Handler Methods ---

// GetPlanProgress godoc
// @Summary Get one plan's progress
// @Description Returns the cached progress picture; pass force=true to recompute.
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param force query bool false "Bypass the cache and recompute"
// @Success 200 {object} PlanProgressResponse "Progress details"
// @Failure 400 {object} gin.H "Invalid plan ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not the plan owner)"
// @Failure 404 {object} gin.H "Plan not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /plans/{planId}/progress [get]
func (h *ProgressHandler) GetPlanProgress(c *gin.Context) {
	userID, planID, ok := progressPlanIDFromRequest(c)
	if !ok {
		return
	}
	force := c.Query("force") == "true"

	prog, err := h.progressService.GetPlanProgress(c.Request.Context(), userID, planID, force)
	if err != nil {
		abortProgressError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProgressToResponse(prog))
}

// GetBatchProgress godoc
// @Summary Get progress for several plans
// @Description Resolves each plan's progress independently and returns results in request order.
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param batch body BatchProgressRequest true "Plan IDs to resolve"
// @Success 200 {array} PlanProgressResponse "Progress per plan, in request order"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /progress/batch [post]
func (h *ProgressHandler) GetBatchProgress(c *gin.Context) {
	var req BatchProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planIDs, err := parseObjectIDs(req.PlanIDs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	results, err := h.progressService.GetBatchProgress(c.Request.Context(), userID, planIDs, req.Force)
	if err != nil {
		abortProgressError(c, err)
		return
	}

	responses := make([]PlanProgressResponse, len(results))
	for i, prog := range results {
		responses[i] = MapProgressToResponse(prog)
	}
	c.JSON(http.StatusOK, responses)
}

// InvalidateProgress godoc
// @Summary Invalidate cached progress
// @Description Drops cached progress for every plan of the user touching the given activities.
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invalidation body InvalidateProgressRequest true "Activity IDs whose plans should be invalidated"
// @Success 204 "Cache invalidated"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /progress/invalidate [post]
func (h *ProgressHandler) InvalidateProgress(c *gin.Context) {
	var req InvalidateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	activityIDs, err := parseObjectIDs(req.ActivityIDs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format.")
		return
	}

	h.progressService.InvalidateProgress(c.Request.Context(), userID, activityIDs)
	c.Status(http.StatusNoContent)
}

// --- helpers ---

func progressPlanIDFromRequest(c *gin.Context) (userID, planID primitive.ObjectID, ok bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	planID, err = primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, planID, true
}

func abortProgressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to compute progress.")
	}
}
