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

// EntryHandler holds the entry service dependency.
type EntryHandler struct {
	entryService service.EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryService service.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

// --- DTOs ---

// LogEntryRequest defines the expected JSON for logging an activity entry.
// Date defaults to the current day when omitted.
type LogEntryRequest struct {
	ActivityID string    `json:"activityId" binding:"required"`
	Date       time.Time `json:"date"`
	Quantity   float64   `json:"quantity" binding:"omitempty,min=0"`
	Note       string    `json:"note"`
}

// EntryResponse is the DTO for returning entry details.
type EntryResponse struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activityId"`
	Date       time.Time `json:"date"`
	Quantity   float64   `json:"quantity"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MapEntryToResponse converts a domain.ActivityEntry to EntryResponse DTO.
func MapEntryToResponse(e *domain.ActivityEntry) EntryResponse {
	if e == nil {
		return EntryResponse{}
	}
	return EntryResponse{
		ID:         e.ID.Hex(),
		ActivityID: e.ActivityID.Hex(),
		Date:       e.Date,
		Quantity:   e.Quantity,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
	}
}

// MapEntriesToResponse converts a slice of domain.ActivityEntry to DTOs.
func MapEntriesToResponse(entries []domain.ActivityEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = MapEntryToResponse(&entries[i])
	}
	return responses
}

// --- Handler Methods ---

// LogEntry godoc
// @Summary Log an activity entry
// @Description Records one occurrence of an activity and triggers progress recomputation for affected plans.
// @Tags Entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param entry body LogEntryRequest true "Entry details"
// @Success 201 {object} EntryResponse "Entry logged successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not the activity owner)"
// @Failure 404 {object} gin.H "Activity not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /entries [post]
func (h *EntryHandler) LogEntry(c *gin.Context) {
	var req LogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	activityID, err := primitive.ObjectIDFromHex(req.ActivityID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format.")
		return
	}

	entry, err := h.entryService.LogEntry(c.Request.Context(), userID, activityID, req.Date, req.Quantity, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrActivityNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrActivityAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to log entry.")
		}
		return
	}
	c.JSON(http.StatusCreated, MapEntryToResponse(entry))
}

// GetMyEntries godoc
// @Summary Get the authenticated user's entries
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Success 200 {array} EntryResponse "List of entries"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /entries [get]
func (h *EntryHandler) GetMyEntries(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	entries, err := h.entryService.GetMyEntries(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve entries.")
		return
	}
	if entries == nil {
		c.JSON(http.StatusOK, []EntryResponse{})
		return
	}
	c.JSON(http.StatusOK, MapEntriesToResponse(entries))
}

// DeleteEntry godoc
// @Summary Delete an entry
// @Description Soft-deletes an entry; cached progress of affected plans is invalidated.
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param entryId path string true "Entry's ObjectID Hex"
// @Success 204 "Entry deleted"
// @Failure 400 {object} gin.H "Invalid entry ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Entry not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /entries/{entryId} [delete]
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	entryID, err := primitive.ObjectIDFromHex(c.Param("entryId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid entry ID format.")
		return
	}

	if err := h.entryService.DeleteEntry(c.Request.Context(), userID, entryID); err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete entry.")
		}
		return
	}
	c.Status(http.StatusNoContent)
}
