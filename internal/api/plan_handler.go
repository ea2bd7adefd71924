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

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

// CreatePlanRequest defines the expected JSON for creating a plan.
type CreatePlanRequest struct {
	Name         string     `json:"name" binding:"required"`
	ActivityIDs  []string   `json:"activityIds" binding:"required,min=1"`
	OutlineKind  string     `json:"outlineKind" binding:"required,oneof=TIMES_PER_WEEK SCHEDULED_SESSIONS"`
	WeeklyTarget int        `json:"weeklyTarget" binding:"omitempty,min=1"`
	FinishDate   *time.Time `json:"finishDate"`
	IsCoached    bool       `json:"isCoached"`
}

// UpdatePlanRequest defines the expected JSON for a partial plan edit.
type UpdatePlanRequest struct {
	Name         *string    `json:"name"`
	ActivityIDs  []string   `json:"activityIds"`
	WeeklyTarget *int       `json:"weeklyTarget"`
	FinishDate   *time.Time `json:"finishDate"`
	IsCoached    *bool      `json:"isCoached"`
}

// CreateSessionRequest defines the expected JSON for planning a session.
type CreateSessionRequest struct {
	ActivityID       string    `json:"activityId" binding:"required"`
	TargetDate       time.Time `json:"targetDate" binding:"required"`
	TargetQuantity   float64   `json:"targetQuantity" binding:"omitempty,min=0"`
	IsCoachSuggested bool      `json:"isCoachSuggested"`
}

// PlanResponse is the DTO for returning plan details.
type PlanResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ActivityIDs  []string   `json:"activityIds"`
	OutlineKind  string     `json:"outlineKind"`
	WeeklyTarget int        `json:"weeklyTarget,omitempty"`
	FinishDate   *time.Time `json:"finishDate,omitempty"`
	CoachNotes   string     `json:"coachNotes,omitempty"`
	IsCoached    bool       `json:"isCoached"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// SessionResponse is the DTO for returning planned session details.
type SessionResponse struct {
	ID               string    `json:"id"`
	PlanID           string    `json:"planId"`
	ActivityID       string    `json:"activityId"`
	TargetDate       time.Time `json:"targetDate"`
	TargetQuantity   float64   `json:"targetQuantity"`
	IsCoachSuggested bool      `json:"isCoachSuggested"`
}

// MapPlanToResponse converts a domain.Plan to PlanResponse DTO.
func MapPlanToResponse(p *domain.Plan) PlanResponse {
	if p == nil {
		return PlanResponse{}
	}
	activityIDs := make([]string, len(p.ActivityIDs))
	for i, id := range p.ActivityIDs {
		activityIDs[i] = id.Hex()
	}
	return PlanResponse{
		ID:           p.ID.Hex(),
		Name:         p.Name,
		ActivityIDs:  activityIDs,
		OutlineKind:  string(p.OutlineKind),
		WeeklyTarget: p.WeeklyTarget,
		FinishDate:   p.FinishDate,
		CoachNotes:   p.CoachNotes,
		IsCoached:    p.IsCoached,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// MapPlansToResponse converts a slice of domain.Plan to DTOs.
func MapPlansToResponse(plans []domain.Plan) []PlanResponse {
	responses := make([]PlanResponse, len(plans))
	for i := range plans {
		responses[i] = MapPlanToResponse(&plans[i])
	}
	return responses
}

// MapSessionToResponse converts a domain.Session to SessionResponse DTO.
func MapSessionToResponse(s *domain.Session) SessionResponse {
	if s == nil {
		return SessionResponse{}
	}
	return SessionResponse{
		ID:               s.ID.Hex(),
		PlanID:           s.PlanID.Hex(),
		ActivityID:       s.ActivityID.Hex(),
		TargetDate:       s.TargetDate,
		TargetQuantity:   s.TargetQuantity,
		IsCoachSuggested: s.IsCoachSuggested,
	}
}

// MapSessionsToResponse converts a slice of domain.Session to DTOs.
func MapSessionsToResponse(sessions []domain.Session) []SessionResponse {
	responses := make([]SessionResponse, len(sessions))
	for i := range sessions {
		responses[i] = MapSessionToResponse(&sessions[i])
	}
	return responses
}

// --- Handler Methods ---

// CreatePlan godoc
// @Summary Create a new plan
// @Description Creates a recurring or scheduled plan for the authenticated user.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body CreatePlanRequest true "Plan details"
// @Success 201 {object} PlanResponse "Plan created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Activity not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
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

	plan, err := h.planService.CreatePlan(c.Request.Context(), userID, service.CreatePlanInput{
		Name:         req.Name,
		ActivityIDs:  activityIDs,
		OutlineKind:  domain.OutlineKind(req.OutlineKind),
		WeeklyTarget: req.WeeklyTarget,
		FinishDate:   req.FinishDate,
		IsCoached:    req.IsCoached,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrActivityNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrActivityAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrInvalidOutline):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create plan.")
		}
		return
	}
	c.JSON(http.StatusCreated, MapPlanToResponse(plan))
}

// GetMyPlans godoc
// @Summary Get the authenticated user's plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} PlanResponse "List of plans"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /plans [get]
func (h *PlanHandler) GetMyPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	plans, err := h.planService.GetMyPlans(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve plans.")
		return
	}
	if plans == nil {
		c.JSON(http.StatusOK, []PlanResponse{})
		return
	}
	c.JSON(http.StatusOK, MapPlansToResponse(plans))
}

// GetPlan godoc
// @Summary Get one plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 200 {object} PlanResponse "Plan details"
// @Failure 400 {object} gin.H "Invalid plan ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not the plan owner)"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, planID, ok := h.planIDFromRequest(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), userID, planID)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

// UpdatePlan godoc
// @Summary Update a plan
// @Description Applies a partial edit; cached progress is invalidated.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param plan body UpdatePlanRequest true "Fields to update"
// @Success 200 {object} PlanResponse "Updated plan"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [patch]
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	userID, planID, ok := h.planIDFromRequest(c)
	if !ok {
		return
	}
	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	input := service.UpdatePlanInput{
		Name:         req.Name,
		WeeklyTarget: req.WeeklyTarget,
		FinishDate:   req.FinishDate,
		IsCoached:    req.IsCoached,
	}
	if req.ActivityIDs != nil {
		activityIDs, err := parseObjectIDs(req.ActivityIDs)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid activity ID format.")
			return
		}
		input.ActivityIDs = activityIDs
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), userID, planID, input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOutline) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

// DeletePlan godoc
// @Summary Delete a plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 204 "Plan deleted"
// @Failure 400 {object} gin.H "Invalid plan ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [delete]
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	userID, planID, ok := h.planIDFromRequest(c)
	if !ok {
		return
	}
	if err := h.planService.DeletePlan(c.Request.Context(), userID, planID); err != nil {
		h.abortPlanError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateSession godoc
// @Summary Plan a session inside a scheduled plan
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param session body CreateSessionRequest true "Session details"
// @Success 201 {object} SessionResponse "Session created"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Plan or activity not found"
// @Router /plans/{planId}/sessions [post]
func (h *PlanHandler) CreateSession(c *gin.Context) {
	userID, planID, ok := h.planIDFromRequest(c)
	if !ok {
		return
	}
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(req.ActivityID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format.")
		return
	}

	session, err := h.planService.AddSession(c.Request.Context(), userID, planID, service.SessionInput{
		ActivityID:       activityID,
		TargetDate:       req.TargetDate,
		TargetQuantity:   req.TargetQuantity,
		IsCoachSuggested: req.IsCoachSuggested,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionsWrongKind):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrActivityNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		default:
			h.abortPlanError(c, err)
		}
		return
	}
	c.JSON(http.StatusCreated, MapSessionToResponse(session))
}

// GetPlanSessions godoc
// @Summary List a plan's sessions
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 200 {array} SessionResponse "List of sessions"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/sessions [get]
func (h *PlanHandler) GetPlanSessions(c *gin.Context) {
	userID, planID, ok := h.planIDFromRequest(c)
	if !ok {
		return
	}
	sessions, err := h.planService.GetPlanSessions(c.Request.Context(), userID, planID)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}
	if sessions == nil {
		c.JSON(http.StatusOK, []SessionResponse{})
		return
	}
	c.JSON(http.StatusOK, MapSessionsToResponse(sessions))
}

// CommitSession godoc
// @Summary Commit a coach-suggested session
// @Description Turns a provisional session into a user-committed one.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session's ObjectID Hex"
// @Success 200 {object} SessionResponse "Committed session"
// @Failure 400 {object} gin.H "Invalid session ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Session not found"
// @Router /sessions/{sessionId}/commit [post]
func (h *PlanHandler) CommitSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	session, err := h.planService.CommitSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// --- helpers ---

func (h *PlanHandler) planIDFromRequest(c *gin.Context) (userID, planID primitive.ObjectID, ok bool) {
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

func (h *PlanHandler) abortPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to process plan request.")
	}
}

func parseObjectIDs(hexIDs []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, len(hexIDs))
	for i, hex := range hexIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
