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

// ActivityHandler holds the activity service dependency.
type ActivityHandler struct {
	activityService service.ActivityService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// --- DTOs ---

// CreateActivityRequest defines the expected JSON for creating an activity.
type CreateActivityRequest struct {
	Name string `json:"name" binding:"required"`
	Unit string `json:"unit" binding:"omitempty"` // e.g. "km", "minutes"
}

// ActivityResponse is the DTO for returning activity details.
type ActivityResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MapActivityToResponse converts a domain.Activity to ActivityResponse DTO.
func MapActivityToResponse(a *domain.Activity) ActivityResponse {
	if a == nil {
		return ActivityResponse{}
	}
	return ActivityResponse{
		ID:        a.ID.Hex(),
		Name:      a.Name,
		Unit:      a.Unit,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// MapActivitiesToResponse converts a slice of domain.Activity to DTOs.
func MapActivitiesToResponse(activities []domain.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, len(activities))
	for i := range activities {
		responses[i] = MapActivityToResponse(&activities[i])
	}
	return responses
}

// --- Handler Methods ---

// CreateActivity godoc
// @Summary Create a new activity
// @Description Creates a new loggable activity type for the authenticated user.
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param activity body CreateActivityRequest true "Activity details"
// @Success 201 {object} ActivityResponse "Activity created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	activity, err := h.activityService.CreateActivity(c.Request.Context(), userID, req.Name, req.Unit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create activity.")
		return
	}

	c.JSON(http.StatusCreated, MapActivityToResponse(activity))
}

// GetMyActivities godoc
// @Summary Get the authenticated user's activities
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ActivityResponse "List of activities"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /activities [get]
func (h *ActivityHandler) GetMyActivities(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	activities, err := h.activityService.GetMyActivities(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve activities.")
		return
	}
	if activities == nil {
		c.JSON(http.StatusOK, []ActivityResponse{})
		return
	}
	c.JSON(http.StatusOK, MapActivitiesToResponse(activities))
}

// DeleteActivity godoc
// @Summary Delete an activity
// @Description Soft-deletes an activity; plan progress referencing it is invalidated.
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param activityId path string true "Activity's ObjectID Hex"
// @Success 204 "Activity deleted"
// @Failure 400 {object} gin.H "Invalid activity ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Activity not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /activities/{activityId} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	activityID, err := primitive.ObjectIDFromHex(c.Param("activityId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format.")
		return
	}

	if err := h.activityService.DeleteActivity(c.Request.Context(), userID, activityID); err != nil {
		if errors.Is(err, service.ErrActivityNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete activity.")
		}
		return
	}
	c.Status(http.StatusNoContent)
}
