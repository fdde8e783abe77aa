package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"reelsapp/reels-api/internal/logger"
	"reelsapp/reels-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constants for context keys
const (
	ContextUserIDKey    = "userID"
	ContextRequestIDKey = "requestID"
	RequestIDHeader     = "X-Request-ID"
)

// TokenParser verifies a bearer token and returns the user it was issued for.
type TokenParser interface {
	ParseToken(tokenString string) (primitive.ObjectID, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		userID, err := tokens.ParseToken(parts[1])
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), userID.Hex()))
		c.Next()
	}
}

// RequestLogger assigns every request an id (honouring an inbound X-Request-ID)
// and logs one line when it finishes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// respondError maps a service error onto its HTTP status. Anything that is
// not a known category is logged and reported as a plain 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPayloadTooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		logger.WithContext(c.Request.Context()).WithError(err).Error("unhandled error")
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (primitive.ObjectID, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return primitive.NilObjectID, errors.New("user ID not found in context")
	}
	id, ok := idRaw.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid user ID type in context")
	}
	return id, nil
}

// mustUserID reads the authenticated user id or aborts with 401.
func mustUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Authentication required")
		return primitive.NilObjectID, false
	}
	return userID, true
}

// pathObjectID parses the named path parameter as an ObjectID or aborts with 400.
func pathObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return primitive.NilObjectID, false
	}
	return id, true
}
