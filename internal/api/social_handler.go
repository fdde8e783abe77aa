package api

import (
	"net/http"

	"reelsapp/reels-api/internal/service"

	"github.com/gin-gonic/gin"
)

// SocialHandler exposes the follow graph.
type SocialHandler struct {
	socialService service.SocialService
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(socialService service.SocialService) *SocialHandler {
	return &SocialHandler{socialService: socialService}
}

// Follow godoc
// @Summary Follow a user
// @Tags Social
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H "User not found"
// @Router /users/{id}/follow [post]
func (h *SocialHandler) Follow(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	followeeID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.socialService.Follow(c.Request.Context(), userID, followeeID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

// Unfollow godoc
// @Summary Unfollow a user
// @Tags Social
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} gin.H
// @Router /users/{id}/follow [delete]
func (h *SocialHandler) Unfollow(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	followeeID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.socialService.Unfollow(c.Request.Context(), userID, followeeID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}
