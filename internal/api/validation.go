package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"reelsapp/reels-api/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators adds the custom binding tags to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("reelvisibility", func(fl validator.FieldLevel) bool {
			return domain.Visibility(fl.Field().String()).Valid()
		})
	})
}

// bindJSON binds the request body into req, aborting with 400 (or 413 for an
// oversized body) when it cannot.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortWithError(c, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	abortWithError(c, http.StatusBadRequest, "Validation error: "+describeBindingError(err))
	return false
}

func describeBindingError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "reelvisibility":
			msgs = append(msgs, "visibility must be one of public, followers, private")
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", lowerFirst(fe.Field())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", lowerFirst(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
