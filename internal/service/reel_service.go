package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/logger"
	"reelsapp/reels-api/internal/repository"
	"reelsapp/reels-api/internal/storage"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxLocalUploadBytes is the decoded-size ceiling of the local transfer path.
const MaxLocalUploadBytes = 40 * 1024 * 1024

const defaultFailureReason = "Upload failed"

// --- Inputs / outputs ---

type InitiateInput struct {
	Caption    string
	Music      string
	Visibility domain.Visibility // empty means public
	FileName   string
	MimeType   string
}

// UploadInstructions tells the client where to send the bytes. UploadURL is
// empty when no direct-to-storage upload is available; the client then uses
// the local transfer endpoint.
type UploadInstructions struct {
	StorageKey string            `json:"storageKey"`
	Method     string            `json:"method"`
	UploadURL  string            `json:"uploadUrl"`
	Headers    map[string]string `json:"headers"`
	Note       string            `json:"note"`
}

type LocalTransferInput struct {
	Base64Data string
	MimeType   string
	FileName   string
}

type CompleteInput struct {
	StorageKey  string
	OriginalURL string
}

// ReelService is the upload orchestrator plus owner-side management of reels.
type ReelService interface {
	Initiate(ctx context.Context, authorID primitive.ObjectID, in InitiateInput) (*domain.Reel, *UploadInstructions, error)
	TransferLocal(ctx context.Context, callerID, reelID primitive.ObjectID, in LocalTransferInput) (*domain.Reel, string, error)
	Complete(ctx context.Context, callerID, reelID primitive.ObjectID, in CompleteInput) (*domain.Reel, error)
	MarkReady(ctx context.Context, callerID, reelID primitive.ObjectID, meta domain.ReadyMetadata) (*domain.Reel, error)
	MarkFailed(ctx context.Context, callerID, reelID primitive.ObjectID, reason string) (*domain.Reel, error)
	Update(ctx context.Context, callerID, reelID primitive.ObjectID, patch domain.ReelPatch) (*domain.Reel, error)
	Delete(ctx context.Context, callerID, reelID primitive.ObjectID) error
}

// reelService implements the ReelService interface.
type reelService struct {
	reelRepo    repository.ReelRepository
	fileStorage storage.FileStorage
	now         func() time.Time
}

// NewReelService creates a new instance of reelService.
func NewReelService(reelRepo repository.ReelRepository, fileStorage storage.FileStorage) ReelService {
	return &reelService{
		reelRepo:    reelRepo,
		fileStorage: fileStorage,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Initiate creates the reel in uploading and returns where to put the bytes.
func (s *reelService) Initiate(ctx context.Context, authorID primitive.ObjectID, in InitiateInput) (*domain.Reel, *UploadInstructions, error) {
	if in.Visibility == "" {
		in.Visibility = domain.VisibilityPublic
	}
	if !in.Visibility.Valid() {
		return nil, nil, ErrInvalidVisibility
	}
	if err := validateText(in.Caption, in.Music); err != nil {
		return nil, nil, err
	}
	if in.MimeType != "" && !strings.HasPrefix(strings.ToLower(in.MimeType), "video/") {
		return nil, nil, validationError("mimeType must be a video type, got %q", in.MimeType)
	}

	now := s.now()
	reel := &domain.Reel{
		ID:         primitive.NewObjectID(),
		AuthorID:   authorID,
		Caption:    in.Caption,
		Music:      in.Music,
		FileName:   baseName(in.FileName),
		MimeType:   in.MimeType,
		Visibility: in.Visibility,
		Status:     domain.StatusUploading,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	reel.StorageKey = StorageKey(authorID, reel.ID, in.FileName, in.MimeType)

	if _, err := s.reelRepo.Create(ctx, reel); err != nil {
		return nil, nil, fmt.Errorf("create reel: %w", err)
	}

	instructions := s.uploadInstructions(ctx, reel)
	logger.WithContext(ctx).WithField("reel_id", reel.ID.Hex()).
		WithField("direct", instructions.UploadURL != "").
		Info("reel upload initiated")
	return reel, instructions, nil
}

func (s *reelService) uploadInstructions(ctx context.Context, reel *domain.Reel) *UploadInstructions {
	contentType := reel.MimeType
	if contentType == "" {
		contentType = "video/mp4"
	}
	instructions := &UploadInstructions{
		StorageKey: reel.StorageKey,
		Method:     "PUT",
		Headers:    map[string]string{},
	}

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, reel.StorageKey, contentType, storage.DefaultPresignedURLExpiry)
	switch {
	case err == nil:
		instructions.UploadURL = uploadURL
		instructions.Headers["Content-Type"] = contentType
		instructions.Note = "PUT the video bytes to uploadUrl, then call the complete endpoint."
	case errors.Is(err, storage.ErrPresignUnsupported):
		instructions.Note = "No direct storage upload is configured. Send the video as base64 to the local upload endpoint, then call the complete endpoint."
	default:
		// A presign failure is not fatal: the local path still works.
		logger.WithContext(ctx).WithError(err).Warn("presigned upload URL unavailable, falling back to local transfer")
		instructions.Note = "Direct storage upload is unavailable right now. Send the video as base64 to the local upload endpoint, then call the complete endpoint."
	}
	return instructions
}

// TransferLocal decodes and stores the bytes for a reel that has no direct
// storage upload. Status is left unchanged.
func (s *reelService) TransferLocal(ctx context.Context, callerID, reelID primitive.ObjectID, in LocalTransferInput) (*domain.Reel, string, error) {
	reel, err := s.loadOwned(ctx, callerID, reelID)
	if err != nil {
		return nil, "", err
	}
	if reel.Status != domain.StatusUploading && reel.Status != domain.StatusProcessing {
		return nil, "", fmt.Errorf("%w: cannot upload bytes to a reel that is %s", ErrInvalidState, reel.Status)
	}
	if !ownsStorageKey(reel, reel.StorageKey) {
		return nil, "", ErrForeignStorageKey
	}

	data, mimeType, err := decodePayload(in.Base64Data)
	if err != nil {
		return nil, "", err
	}
	if in.MimeType != "" {
		mimeType = in.MimeType
	}
	if mimeType == "" {
		mimeType = reel.MimeType
	}

	url, err := s.fileStorage.PutObject(ctx, reel.StorageKey, data, mimeType)
	if err != nil {
		return nil, "", fmt.Errorf("store upload: %w", err)
	}

	updated, err := s.reelRepo.RecordStoredObject(ctx, reelID, repository.StoredObject{
		OriginalURL: url,
		MimeType:    mimeType,
		FileName:    baseName(in.FileName),
		SizeBytes:   int64(len(data)),
		At:          s.now(),
	})
	if err != nil {
		return nil, "", s.mapRepoError(err)
	}

	logger.WithContext(ctx).WithField("reel_id", reelID.Hex()).WithField("bytes", len(data)).Info("local upload stored")
	return updated, url, nil
}

// Complete records the final storage location and moves the reel to processing.
func (s *reelService) Complete(ctx context.Context, callerID, reelID primitive.ObjectID, in CompleteInput) (*domain.Reel, error) {
	reel, err := s.loadOwned(ctx, callerID, reelID)
	if err != nil {
		return nil, err
	}

	change := repository.StatusChange{}
	if key := strings.TrimSpace(in.StorageKey); key != "" {
		if !ownsStorageKey(reel, key) {
			return nil, ErrForeignStorageKey
		}
		change.StorageKey = &key
	}
	if url := strings.TrimSpace(in.OriginalURL); url != "" {
		change.OriginalURL = &url
	}
	return s.transition(ctx, reel, domain.EventComplete, change)
}

// MarkReady records the final playback metadata and moves the reel to ready.
func (s *reelService) MarkReady(ctx context.Context, callerID, reelID primitive.ObjectID, meta domain.ReadyMetadata) (*domain.Reel, error) {
	reel, err := s.loadOwned(ctx, callerID, reelID)
	if err != nil {
		return nil, err
	}

	meta.PlaybackURL = strings.TrimSpace(meta.PlaybackURL)
	if meta.PlaybackURL == "" {
		return nil, ErrPlaybackURLNeeded
	}
	if meta.Duration != nil && *meta.Duration < 0 {
		return nil, validationError("duration must not be negative")
	}
	if (meta.Width != nil && *meta.Width < 0) || (meta.Height != nil && *meta.Height < 0) {
		return nil, validationError("width and height must not be negative")
	}
	if meta.Music != nil {
		if err := validateText("", *meta.Music); err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, reel, domain.EventReady, repository.StatusChange{Ready: &meta})
}

// MarkFailed records why the client gave up on the upload.
func (s *reelService) MarkFailed(ctx context.Context, callerID, reelID primitive.ObjectID, reason string) (*domain.Reel, error) {
	reel, err := s.loadOwned(ctx, callerID, reelID)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultFailureReason
	}
	return s.transition(ctx, reel, domain.EventFail, repository.StatusChange{FailureReason: truncateRunes(reason, domain.MaxFailureReasonLength)})
}

// transition runs the state machine and persists the outcome guarded by the
// status it was computed from.
func (s *reelService) transition(ctx context.Context, reel *domain.Reel, event domain.ReelEvent, change repository.StatusChange) (*domain.Reel, error) {
	next, effects, err := domain.Transition(reel.Status, event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	now := s.now()
	change.From = reel.Status
	change.To = next
	change.At = now
	if !effects.SetFailure {
		change.FailureReason = ""
	}
	if effects.StampProcessed && reel.ProcessedAt == nil {
		change.ProcessedAt = &now
	}

	updated, err := s.reelRepo.ApplyTransition(ctx, reel.ID, change)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"reel_id": reel.ID.Hex(),
		"event":   event,
		"from":    reel.Status,
		"to":      next,
	}).Info("reel status changed")
	return updated, nil
}

// Update applies an owner metadata edit in any status.
func (s *reelService) Update(ctx context.Context, callerID, reelID primitive.ObjectID, patch domain.ReelPatch) (*domain.Reel, error) {
	if _, err := s.loadOwned(ctx, callerID, reelID); err != nil {
		return nil, err
	}

	if patch.Visibility != nil && !patch.Visibility.Valid() {
		return nil, ErrInvalidVisibility
	}
	caption, music := "", ""
	if patch.Caption != nil {
		caption = *patch.Caption
	}
	if patch.Music != nil {
		music = *patch.Music
	}
	if err := validateText(caption, music); err != nil {
		return nil, err
	}

	updated, err := s.reelRepo.UpdateMetadata(ctx, reelID, patch, s.now())
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return updated, nil
}

// Delete hard-deletes the reel and then removes its object best-effort.
func (s *reelService) Delete(ctx context.Context, callerID, reelID primitive.ObjectID) error {
	reel, err := s.loadOwned(ctx, callerID, reelID)
	if err != nil {
		return err
	}

	if err := s.reelRepo.Delete(ctx, reelID); err != nil {
		return s.mapRepoError(err)
	}

	if ownsStorageKey(reel, reel.StorageKey) {
		if err := s.fileStorage.DeleteObject(ctx, reel.StorageKey); err != nil {
			logger.WithContext(ctx).WithError(err).WithField("storage_key", reel.StorageKey).Warn("reel deleted but its object could not be removed")
		}
	}
	return nil
}

// loadOwned fetches the reel and enforces ownership before anything is written.
func (s *reelService) loadOwned(ctx context.Context, callerID, reelID primitive.ObjectID) (*domain.Reel, error) {
	reel, err := s.reelRepo.GetByID(ctx, reelID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if !reel.IsOwnedBy(callerID) {
		return nil, ErrNotReelOwner
	}
	return reel, nil
}

func (s *reelService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrReelNotFound
	case errors.Is(err, repository.ErrStaleStatus):
		return ErrConcurrentUpdate
	}
	return err
}

// --- helpers ---

var safeExtension = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

var mimeExtensions = map[string]string{
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/x-msvideo":  ".avi",
	"video/3gpp":       ".3gp",
	"video/mpeg":       ".mpeg",
}

// StorageKey is the stable, namespaced location of a reel's original upload.
// Re-uploads for the same reel always land on the same key.
func StorageKey(authorID, reelID primitive.ObjectID, fileName, mimeType string) string {
	return path.Join("reels", authorID.Hex(), reelID.Hex(), "original"+fileExtension(fileName, mimeType))
}

// ownsStorageKey reports whether key lies under reels/<author>/<reel>/, the
// only namespace a reel may write to or delete from.
func ownsStorageKey(reel *domain.Reel, key string) bool {
	prefix := path.Join("reels", reel.AuthorID.Hex(), reel.ID.Hex()) + "/"
	return path.Clean(key) == key && strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

func fileExtension(fileName, mimeType string) string {
	if ext := strings.ToLower(path.Ext(fileName)); safeExtension.MatchString(ext) {
		return ext
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	if sub := strings.TrimPrefix(mimeType, "video/"); sub != mimeType {
		if ext := "." + sub; safeExtension.MatchString(ext) {
			return ext
		}
	}
	return ".mp4"
}

// decodePayload accepts raw base64 or a data URL and returns the bytes plus
// any mime type the data URL declared.
func decodePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	mimeType := ""
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", ErrMalformedPayload
		}
		header := payload[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", ErrMalformedPayload
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients strip the padding
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", ErrMalformedPayload
		}
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyPayload
	}
	if len(data) > MaxLocalUploadBytes {
		return nil, "", ErrUploadTooLarge
	}
	return data, mimeType, nil
}

func validateText(caption, music string) error {
	if utf8.RuneCountInString(caption) > domain.MaxCaptionLength {
		return validationError("caption must be at most %d characters", domain.MaxCaptionLength)
	}
	if utf8.RuneCountInString(music) > domain.MaxMusicLength {
		return validationError("music must be at most %d characters", domain.MaxMusicLength)
	}
	return nil
}

func baseName(fileName string) string {
	if fileName = strings.TrimSpace(fileName); fileName == "" {
		return ""
	}
	return path.Base(fileName)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
