package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"reelsapp/reels-api/internal/logger"
	"reelsapp/reels-api/internal/service"
)

// ErrTooLargeForLocal is returned before any request is made when the video
// must go through the local transfer path but exceeds its limit.
var ErrTooLargeForLocal = fmt.Errorf("video exceeds the %d byte local upload limit", service.MaxLocalUploadBytes)

// Upload is one video to publish.
type Upload struct {
	Caption    string
	Music      string
	Visibility string
	FileName   string
	MimeType   string
	Data       []byte

	// PlaybackURL defaults to wherever the bytes were stored.
	PlaybackURL string
	ThumbURL    string
	Duration    float64
	Width       int
	Height      int
}

// Uploader drives a reel from initiate to ready. When a step after initiate
// fails, the reel is marked failed with the error text.
type Uploader struct {
	client     *Client
	putClient  *http.Client
	failReport time.Duration
}

func NewUploader(c *Client) *Uploader {
	return &Uploader{
		client:     c,
		putClient:  &http.Client{Timeout: 10 * time.Minute},
		failReport: 10 * time.Second,
	}
}

// Upload publishes u and returns the reel in its final state.
func (u *Uploader) Upload(ctx context.Context, up Upload) (*service.ReelView, error) {
	if len(up.Data) == 0 {
		return nil, errors.New("upload: no video data")
	}

	started, err := u.client.Initiate(ctx, InitiateRequest{
		Caption:    up.Caption,
		Music:      up.Music,
		Visibility: up.Visibility,
		FileName:   up.FileName,
		MimeType:   up.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("initiate: %w", err)
	}

	reel, err := u.finish(ctx, started, up)
	if err != nil {
		u.reportFailure(ctx, started.Reel.ID, err)
		return nil, err
	}
	return reel, nil
}

func (u *Uploader) finish(ctx context.Context, started *InitiateResponse, up Upload) (*service.ReelView, error) {
	reelID := started.Reel.ID

	var videoURL string
	if started.Upload.UploadURL != "" {
		if err := u.put(ctx, started.Upload, up.Data); err != nil {
			return nil, fmt.Errorf("upload to storage: %w", err)
		}
		videoURL = stripQuery(started.Upload.UploadURL)
	} else {
		if len(up.Data) > service.MaxLocalUploadBytes {
			return nil, ErrTooLargeForLocal
		}
		local, err := u.client.UploadLocal(ctx, reelID, base64.StdEncoding.EncodeToString(up.Data), up.MimeType, up.FileName)
		if err != nil {
			return nil, fmt.Errorf("local upload: %w", err)
		}
		videoURL = local.VideoURL
	}

	if _, err := u.client.Complete(ctx, reelID, started.Upload.StorageKey, videoURL); err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	ready := ReadyRequest{PlaybackURL: up.PlaybackURL}
	if ready.PlaybackURL == "" {
		ready.PlaybackURL = videoURL
	}
	if up.ThumbURL != "" {
		ready.ThumbURL = &up.ThumbURL
	}
	if up.Music != "" {
		ready.Music = &up.Music
	}
	if up.Duration > 0 {
		ready.Duration = &up.Duration
	}
	if up.Width > 0 {
		ready.Width = &up.Width
	}
	if up.Height > 0 {
		ready.Height = &up.Height
	}
	reel, err := u.client.MarkReady(ctx, reelID, ready)
	if err != nil {
		return nil, fmt.Errorf("mark ready: %w", err)
	}
	return reel, nil
}

func (u *Uploader) put(ctx context.Context, instructions service.UploadInstructions, data []byte) error {
	method := instructions.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, instructions.UploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, v := range instructions.Headers {
		req.Header.Set(k, v)
	}

	resp, err := u.putClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage responded %s", resp.Status)
	}
	return nil
}

// reportFailure marks the reel failed even when ctx is already cancelled.
func (u *Uploader) reportFailure(ctx context.Context, reelID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.failReport)
	defer cancel()
	if _, err := u.client.MarkFailed(ctx, reelID, cause.Error()); err != nil {
		logger.WithModule("uploader").WithError(err).WithField("reel_id", reelID).Warn("could not mark reel failed")
	}
}

func stripQuery(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}
