package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelsapp/reels-api/internal/repository/memory"
	"reelsapp/reels-api/internal/service"
	"reelsapp/reels-api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	mediaDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mediaDir := t.TempDir()
	files, err := storage.NewLocalStorage(mediaDir, "http://test.local/media")
	require.NoError(t, err)

	users := memory.NewUserRepository()
	reels := memory.NewReelRepository()
	router := NewRouter()
	SetupRoutes(router, Services{
		Auth:       service.NewAuthService(users, "test-secret", time.Hour),
		Social:     service.NewSocialService(users),
		Reels:      service.NewReelService(reels, files),
		Feed:       service.NewFeedService(reels, users, 0, 0),
		Engagement: service.NewEngagementService(reels),
	}, mediaDir)
	return &testServer{router: router, mediaDir: mediaDir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns its token and id.
func (s *testServer) signup(t *testing.T, name string) (string, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": name, "email": name + "@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": name + "@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	return login.Token, login.User.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func TestReelEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/reels", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/uploads/initiate", "not-a-jwt", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signup(t, "author")

	w := s.do(t, http.MethodPost, "/api/v1/uploads/initiate", token, gin.H{"caption": "first", "fileName": "a.mp4", "mimeType": "video/mp4"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var initiated InitiateUploadResponse
	decode(t, w, &initiated)
	assert.Equal(t, "uploading", string(initiated.Reel.Status))
	assert.Equal(t, "public", string(initiated.Reel.Visibility))
	assert.Empty(t, initiated.Upload.UploadURL)
	assert.Equal(t, "reels/"+userID+"/"+initiated.Reel.ID+"/original.mp4", initiated.Upload.StorageKey)
	reelPath := "/api/v1/reels/" + initiated.Reel.ID

	w = s.do(t, http.MethodPost, reelPath+"/uploads/local", token, gin.H{"base64Data": base64.StdEncoding.EncodeToString([]byte("video"))})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var local LocalUploadResponse
	decode(t, w, &local)
	assert.Equal(t, "http://test.local/media/"+initiated.Upload.StorageKey, local.VideoURL)
	stored, err := os.ReadFile(filepath.Join(s.mediaDir, filepath.FromSlash(initiated.Upload.StorageKey)))
	require.NoError(t, err)
	assert.Equal(t, "video", string(stored))

	w = s.do(t, http.MethodGet, "/media/"+initiated.Upload.StorageKey, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, reelPath+"/uploads/complete", token, gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, reelPath+"/ready", token, gin.H{"playbackUrl": local.VideoURL, "duration": 3.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ready ReelResponse
	decode(t, w, &ready)
	assert.Equal(t, "ready", string(ready.Reel.Status))
	assert.NotNil(t, ready.Reel.ProcessedAt)

	w = s.do(t, http.MethodPost, reelPath+"/uploads/complete", token, gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, reelPath+"/like", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":true,"count":1}`, w.Body.String())

	w = s.do(t, http.MethodPost, reelPath+"/save", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"saved":true,"count":1}`, w.Body.String())
	w = s.do(t, http.MethodPost, reelPath+"/save", token, nil)
	assert.JSONEq(t, `{"saved":false,"count":0}`, w.Body.String())

	w = s.do(t, http.MethodPost, reelPath+"/view", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, reelPath+"/view", token, nil)
	assert.JSONEq(t, `{"viewed":true,"viewsCount":1}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/reels?tab=reels", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed ReelListResponse
	decode(t, w, &feed)
	require.Len(t, feed.Reels, 1)
	assert.True(t, feed.Reels[0].LikedByMe)
	assert.True(t, feed.Reels[0].OwnedByMe)

	w = s.do(t, http.MethodDelete, reelPath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Reel deleted"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/reels/mine", token, nil)
	decode(t, w, &feed)
	assert.Empty(t, feed.Reels)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup(t, "owner")
	other, _ := s.signup(t, "other")

	w := s.do(t, http.MethodPost, "/api/v1/uploads/initiate", owner, gin.H{"visibility": "everyone"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "visibility must be one of public, followers, private")

	w = s.do(t, http.MethodPost, "/api/v1/uploads/initiate", owner, gin.H{"visibility": "followers"})
	require.Equal(t, http.StatusCreated, w.Code)
	var initiated InitiateUploadResponse
	decode(t, w, &initiated)
	reelPath := "/api/v1/reels/" + initiated.Reel.ID

	w = s.do(t, http.MethodPost, reelPath+"/failed", other, gin.H{"failureReason": "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/reels/not-an-id/failed", owner, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/reels/0123456789abcdef01234567/failed", owner, gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, reelPath+"/ready", owner, gin.H{"playbackUrl": "https://cdn/x.mp4", "width": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, reelPath+"/ready", owner, gin.H{"playbackUrl": "https://cdn/x.mp4"})
	assert.Equal(t, http.StatusConflict, w.Code, "uploading reels cannot become ready")

	w = s.do(t, http.MethodPost, reelPath+"/uploads/local", owner, gin.H{"base64Data": "!!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, reelPath+"/uploads/complete", owner, gin.H{"storageKey": "reels/someone/else/original.mp4"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "storage namespace")

	w = s.do(t, http.MethodPost, reelPath+"/like", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "engagement needs a ready reel")

	w = s.do(t, http.MethodGet, "/api/v1/reels?tab=trending", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "owner", "email": "owner@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFollowShapesFriendsFeed(t *testing.T) {
	s := newTestServer(t)
	author, authorID := s.signup(t, "author")
	fan, _ := s.signup(t, "fan")

	w := s.do(t, http.MethodPost, "/api/v1/uploads/initiate", author, gin.H{"visibility": "followers"})
	require.Equal(t, http.StatusCreated, w.Code)
	var initiated InitiateUploadResponse
	decode(t, w, &initiated)
	reelPath := "/api/v1/reels/" + initiated.Reel.ID
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, reelPath+"/uploads/complete", author, gin.H{"originalUrl": "https://bucket/x.mp4"}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, reelPath+"/ready", author, gin.H{"playbackUrl": "https://cdn/x.mp4"}).Code)

	var feed ReelListResponse
	decode(t, s.do(t, http.MethodGet, "/api/v1/reels?tab=friends", fan, nil), &feed)
	assert.Empty(t, feed.Reels)

	w = s.do(t, http.MethodPost, "/api/v1/users/"+authorID+"/follow", fan, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	decode(t, s.do(t, http.MethodGet, "/api/v1/reels?tab=friends", fan, nil), &feed)
	require.Len(t, feed.Reels, 1)
	assert.Empty(t, feed.Reels[0].StorageKey, "storage key is owner-only")
	assert.False(t, feed.Reels[0].OwnedByMe)

	var me UserResponse
	decode(t, s.do(t, http.MethodGet, "/api/v1/me", fan, nil), &me)
	assert.Equal(t, []string{authorID}, me.Following)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = s.do(t, http.MethodGet, "/ping", "", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}
