package api

import (
	"context"
	"net/http"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxLocalUploadBody bounds the JSON body of a local transfer: base64 grows
// the payload by 4/3, plus slack for the envelope fields.
const maxLocalUploadBody = service.MaxLocalUploadBytes/3*4 + 4<<20

type ReelHandler struct {
	reelService       service.ReelService
	feedService       service.FeedService
	engagementService service.EngagementService
}

func NewReelHandler(reelService service.ReelService, feedService service.FeedService, engagementService service.EngagementService) *ReelHandler {
	return &ReelHandler{
		reelService:       reelService,
		feedService:       feedService,
		engagementService: engagementService,
	}
}

// --- DTOs ---

type InitiateUploadRequest struct {
	Caption    string            `json:"caption" binding:"max=2200"`
	Music      string            `json:"music" binding:"max=180"`
	Visibility domain.Visibility `json:"visibility" binding:"omitempty,reelvisibility"`
	FileName   string            `json:"fileName"`
	MimeType   string            `json:"mimeType"`
}

type InitiateUploadResponse struct {
	Reel   service.ReelView            `json:"reel"`
	Upload *service.UploadInstructions `json:"upload"`
}

type LocalUploadRequest struct {
	Base64Data string `json:"base64Data" binding:"required"`
	MimeType   string `json:"mimeType"`
	FileName   string `json:"fileName"`
}

type LocalUploadResponse struct {
	StorageKey string           `json:"storageKey"`
	VideoURL   string           `json:"videoUrl"`
	Reel       service.ReelView `json:"reel"`
}

type CompleteUploadRequest struct {
	StorageKey  string `json:"storageKey"`
	OriginalURL string `json:"originalUrl"`
}

type MarkReadyRequest struct {
	PlaybackURL string   `json:"playbackUrl" binding:"required"`
	ThumbURL    *string  `json:"thumbUrl"`
	Music       *string  `json:"music" binding:"omitempty,max=180"`
	Duration    *float64 `json:"duration" binding:"omitempty,gte=0"`
	Width       *int     `json:"width" binding:"omitempty,gte=0"`
	Height      *int     `json:"height" binding:"omitempty,gte=0"`
}

type MarkFailedRequest struct {
	FailureReason string `json:"failureReason"`
}

type UpdateReelRequest struct {
	Caption    *string            `json:"caption" binding:"omitempty,max=2200"`
	Music      *string            `json:"music" binding:"omitempty,max=180"`
	Visibility *domain.Visibility `json:"visibility" binding:"omitempty,reelvisibility"`
	ThumbURL   *string            `json:"thumbUrl"`
}

type ReelResponse struct {
	Reel service.ReelView `json:"reel"`
}

type ReelListResponse struct {
	Reels []service.ReelView `json:"reels"`
}

// --- Upload orchestration ---

// InitiateUpload godoc
// @Summary Start a reel upload
// @Description Creates the reel in "uploading" and returns where to send the bytes.
// @Tags Reels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param upload body InitiateUploadRequest true "Reel metadata"
// @Success 201 {object} InitiateUploadResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /uploads/initiate [post]
func (h *ReelHandler) InitiateUpload(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req InitiateUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	reel, instructions, err := h.reelService.Initiate(c.Request.Context(), userID, service.InitiateInput{
		Caption:    req.Caption,
		Music:      req.Music,
		Visibility: req.Visibility,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, InitiateUploadResponse{
		Reel:   service.MapReelToView(reel, userID),
		Upload: instructions,
	})
}

// UploadLocal godoc
// @Summary Upload reel bytes through the API
// @Description Accepts raw base64 or a data URL, at most 40 MiB once decoded.
// @Tags Reels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Param upload body LocalUploadRequest true "Base64 payload"
// @Success 200 {object} LocalUploadResponse
// @Failure 400 {object} gin.H "Empty or malformed payload"
// @Failure 403 {object} gin.H "Not the author"
// @Failure 404 {object} gin.H "Reel not found"
// @Failure 413 {object} gin.H "Payload too large"
// @Router /reels/{id}/uploads/local [post]
func (h *ReelHandler) UploadLocal(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLocalUploadBody)
	var req LocalUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	reel, videoURL, err := h.reelService.TransferLocal(c.Request.Context(), userID, reelID, service.LocalTransferInput{
		Base64Data: req.Base64Data,
		MimeType:   req.MimeType,
		FileName:   req.FileName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LocalUploadResponse{
		StorageKey: reel.StorageKey,
		VideoURL:   videoURL,
		Reel:       service.MapReelToView(reel, userID),
	})
}

// CompleteUpload godoc
// @Summary Mark the reel bytes as stored
// @Tags Reels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Param location body CompleteUploadRequest false "Final storage location"
// @Success 200 {object} ReelResponse
// @Failure 409 {object} gin.H "Reel is ready or failed"
// @Router /reels/{id}/uploads/complete [post]
func (h *ReelHandler) CompleteUpload(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req CompleteUploadRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	reel, err := h.reelService.Complete(c.Request.Context(), userID, reelID, service.CompleteInput{
		StorageKey:  req.StorageKey,
		OriginalURL: req.OriginalURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReelResponse{Reel: service.MapReelToView(reel, userID)})
}

// MarkReady godoc
// @Summary Record playback metadata and publish the reel
// @Tags Reels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Param metadata body MarkReadyRequest true "Playback metadata"
// @Success 200 {object} ReelResponse
// @Failure 400 {object} gin.H "playbackUrl missing or negative dimensions"
// @Failure 409 {object} gin.H "Reel has not been completed"
// @Router /reels/{id}/ready [post]
func (h *ReelHandler) MarkReady(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req MarkReadyRequest
	if !bindJSON(c, &req) {
		return
	}

	reel, err := h.reelService.MarkReady(c.Request.Context(), userID, reelID, domain.ReadyMetadata{
		PlaybackURL: req.PlaybackURL,
		ThumbURL:    req.ThumbURL,
		Music:       req.Music,
		Duration:    req.Duration,
		Width:       req.Width,
		Height:      req.Height,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReelResponse{Reel: service.MapReelToView(reel, userID)})
}

// MarkFailed godoc
// @Summary Record that the upload was abandoned
// @Tags Reels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Param reason body MarkFailedRequest false "Failure reason"
// @Success 200 {object} ReelResponse
// @Router /reels/{id}/failed [post]
func (h *ReelHandler) MarkFailed(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req MarkFailedRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	reel, err := h.reelService.MarkFailed(c.Request.Context(), userID, reelID, req.FailureReason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReelResponse{Reel: service.MapReelToView(reel, userID)})
}

// --- Owner management ---

// UpdateReel godoc
// @Summary Edit reel metadata
// @Tags Reels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Param patch body UpdateReelRequest true "Fields to change"
// @Success 200 {object} ReelResponse
// @Router /reels/{id} [patch]
func (h *ReelHandler) UpdateReel(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req UpdateReelRequest
	if !bindJSON(c, &req) {
		return
	}

	reel, err := h.reelService.Update(c.Request.Context(), userID, reelID, domain.ReelPatch{
		Caption:    req.Caption,
		Music:      req.Music,
		Visibility: req.Visibility,
		ThumbURL:   req.ThumbURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReelResponse{Reel: service.MapReelToView(reel, userID)})
}

// DeleteReel godoc
// @Summary Delete a reel
// @Tags Reels
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Success 200 {object} gin.H
// @Router /reels/{id} [delete]
func (h *ReelHandler) DeleteReel(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.reelService.Delete(c.Request.Context(), userID, reelID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reel deleted"})
}

// --- Engagement ---

// ToggleLike godoc
// @Summary Like or unlike a ready reel
// @Tags Engagement
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Success 200 {object} gin.H "{liked, count}"
// @Failure 404 {object} gin.H "Reel not found or not ready"
// @Router /reels/{id}/like [post]
func (h *ReelHandler) ToggleLike(c *gin.Context) {
	h.toggle(c, h.engagementService.ToggleLike, "liked")
}

// ToggleSave godoc
// @Summary Save or unsave a ready reel
// @Tags Engagement
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Success 200 {object} gin.H "{saved, count}"
// @Router /reels/{id}/save [post]
func (h *ReelHandler) ToggleSave(c *gin.Context) {
	h.toggle(c, h.engagementService.ToggleSave, "saved")
}

type toggleFunc func(ctx context.Context, reelID, userID primitive.ObjectID) (service.ToggleResult, error)

func (h *ReelHandler) toggle(c *gin.Context, fn toggleFunc, activeKey string) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), reelID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{activeKey: res.Active, "count": res.Count})
}

// RecordView godoc
// @Summary Record that the caller watched a reel
// @Description Idempotent per user; repeated calls return the current count.
// @Tags Engagement
// @Security BearerAuth
// @Param id path string true "Reel ID"
// @Success 200 {object} gin.H "{viewed, viewsCount}"
// @Router /reels/{id}/view [post]
func (h *ReelHandler) RecordView(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reelID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	count, err := h.engagementService.RecordView(c.Request.Context(), reelID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewed": true, "viewsCount": count})
}

// --- Feeds ---

// ListFeed godoc
// @Summary Reels feed
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Param tab query string false "reels (default) or friends"
// @Success 200 {object} ReelListResponse
// @Failure 400 {object} gin.H "Unknown tab"
// @Router /reels [get]
func (h *ReelHandler) ListFeed(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	views, err := h.feedService.ListFeed(c.Request.Context(), userID, domain.FeedTab(c.Query("tab")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReelListResponse{Reels: views})
}

// ListMine godoc
// @Summary The caller's own reels in every status
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ReelListResponse
// @Router /reels/mine [get]
func (h *ReelHandler) ListMine(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	views, err := h.feedService.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReelListResponse{Reels: views})
}
