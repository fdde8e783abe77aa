// Package client is a typed HTTP client for the reels API. It also adapts the
// API to the playback package's FeedSource, ViewRecorder and Engager.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelsapp/reels-api/internal/playback"
	"reelsapp/reels-api/internal/service"
)

const defaultTimeout = 90 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reels api: %d %s", e.StatusCode, e.Message)
}

// Client talks to one API server. Set the token with WithToken or Login.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- wire types ---

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	Following []string  `json:"following"`
}

type InitiateRequest struct {
	Caption    string `json:"caption,omitempty"`
	Music      string `json:"music,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

type InitiateResponse struct {
	Reel   service.ReelView           `json:"reel"`
	Upload service.UploadInstructions `json:"upload"`
}

type LocalUploadResponse struct {
	StorageKey string           `json:"storageKey"`
	VideoURL   string           `json:"videoUrl"`
	Reel       service.ReelView `json:"reel"`
}

type ReadyRequest struct {
	PlaybackURL string   `json:"playbackUrl"`
	ThumbURL    *string  `json:"thumbUrl,omitempty"`
	Music       *string  `json:"music,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	Width       *int     `json:"width,omitempty"`
	Height      *int     `json:"height,omitempty"`
}

type UpdateRequest struct {
	Caption    *string `json:"caption,omitempty"`
	Music      *string `json:"music,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	ThumbURL   *string `json:"thumbUrl,omitempty"`
}

type reelEnvelope struct {
	Reel service.ReelView `json:"reel"`
}

type reelList struct {
	Reels []service.ReelView `json:"reels"`
}

// --- auth & social ---

func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username, "email": email, "password": password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp.User, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/follow", nil, nil)
}

func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID)+"/follow", nil, nil)
}

// --- upload orchestration ---

func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	var resp InitiateResponse
	if err := c.do(ctx, http.MethodPost, "/uploads/initiate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UploadLocal(ctx context.Context, reelID, base64Data, mimeType, fileName string) (*LocalUploadResponse, error) {
	var resp LocalUploadResponse
	body := map[string]string{"base64Data": base64Data, "mimeType": mimeType, "fileName": fileName}
	if err := c.do(ctx, http.MethodPost, reelPath(reelID, "/uploads/local"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Complete(ctx context.Context, reelID, storageKey, originalURL string) (*service.ReelView, error) {
	body := map[string]string{"storageKey": storageKey, "originalUrl": originalURL}
	return c.reelCall(ctx, http.MethodPost, reelPath(reelID, "/uploads/complete"), body)
}

func (c *Client) MarkReady(ctx context.Context, reelID string, req ReadyRequest) (*service.ReelView, error) {
	return c.reelCall(ctx, http.MethodPost, reelPath(reelID, "/ready"), req)
}

func (c *Client) MarkFailed(ctx context.Context, reelID, reason string) (*service.ReelView, error) {
	return c.reelCall(ctx, http.MethodPost, reelPath(reelID, "/failed"), map[string]string{"failureReason": reason})
}

func (c *Client) Update(ctx context.Context, reelID string, req UpdateRequest) (*service.ReelView, error) {
	return c.reelCall(ctx, http.MethodPatch, reelPath(reelID, ""), req)
}

func (c *Client) Delete(ctx context.Context, reelID string) error {
	return c.do(ctx, http.MethodDelete, reelPath(reelID, ""), nil, nil)
}

// --- engagement ---

func (c *Client) ToggleLike(ctx context.Context, reelID string) (bool, int, error) {
	var resp struct {
		Liked bool `json:"liked"`
		Count int  `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, reelPath(reelID, "/like"), nil, &resp); err != nil {
		return false, 0, err
	}
	return resp.Liked, resp.Count, nil
}

func (c *Client) ToggleSave(ctx context.Context, reelID string) (bool, int, error) {
	var resp struct {
		Saved bool `json:"saved"`
		Count int  `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, reelPath(reelID, "/save"), nil, &resp); err != nil {
		return false, 0, err
	}
	return resp.Saved, resp.Count, nil
}

// ViewCount records a view and returns the reel's view count.
func (c *Client) ViewCount(ctx context.Context, reelID string) (int, error) {
	var resp struct {
		ViewsCount int `json:"viewsCount"`
	}
	if err := c.do(ctx, http.MethodPost, reelPath(reelID, "/view"), nil, &resp); err != nil {
		return 0, err
	}
	return resp.ViewsCount, nil
}

func (c *Client) RecordView(ctx context.Context, reelID string) error {
	_, err := c.ViewCount(ctx, reelID)
	return err
}

// --- feeds ---

func (c *Client) Feed(ctx context.Context, tab string) ([]service.ReelView, error) {
	path := "/reels"
	if tab != "" {
		path += "?tab=" + url.QueryEscape(tab)
	}
	var resp reelList
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reels, nil
}

func (c *Client) Mine(ctx context.Context) ([]service.ReelView, error) {
	var resp reelList
	if err := c.do(ctx, http.MethodGet, "/reels/mine", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reels, nil
}

// FeedItems loads a feed tab as playback items.
func (c *Client) FeedItems(ctx context.Context, tab string) ([]playback.Item, error) {
	reels, err := c.Feed(ctx, tab)
	if err != nil {
		return nil, err
	}
	items := make([]playback.Item, len(reels))
	for i, r := range reels {
		items[i] = playback.Item{ReelID: r.ID, VideoURL: r.VideoURL, ThumbURL: r.ThumbURL}
	}
	return items, nil
}

var (
	_ playback.FeedSource   = (*Client)(nil)
	_ playback.ViewRecorder = (*Client)(nil)
	_ playback.Engager      = (*Client)(nil)
)

// --- transport ---

func (c *Client) reelCall(ctx context.Context, method, path string, body interface{}) (*service.ReelView, error) {
	var resp reelEnvelope
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Reel, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}

func reelPath(reelID, suffix string) string {
	return "/reels/" + url.PathEscape(reelID) + suffix
}
