package handlers

import (
	"encoding/json"
	"net/http"

	"trainbackend/internal/domain/models"
	"trainbackend/internal/http/middleware"
	"trainbackend/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/users/me
func GetCurrentUser(c *gin.Context) {
	rc := middleware.GetAuth(c)
	user, err := repositories.UserRepository{}.GetByID(int64(rc.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type preferencesRequest struct {
	Preferences json.RawMessage `json:"preferences"`
}

// PUT /api/users/me/preferences applies immediately when online; offline
// callers get the change queued for the next sync, last write wins.
func UpdateUserPreferences(c *gin.Context) {
	rc := middleware.GetAuth(c)
	var req preferencesRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if len(req.Preferences) == 0 {
		RespondError(c, http.StatusBadRequest, "preferences required", nil)
		return
	}

	if connectivityMode(c).Offline() {
		payload, err := json.Marshal(models.UpdatePrefsPayload{
			UserID:      int64(rc.UserID),
			Preferences: req.Preferences,
		})
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		if _, err := (repositories.SyncQueueRepository{}).Enqueue(models.SyncOperation{
			ClientOpID: uuid.NewString(),
			Type:       models.OpUpdatePrefs,
			Payload:    payload,
		}); err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "preferences queued for sync"})
		return
	}

	if err := (repositories.UserRepository{}).UpdatePreferences(int64(rc.UserID), req.Preferences); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preferences updated"})
}
