package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/invigilation-api/internal/middleware"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

// actorID returns the user id of the authenticated caller, or "" on unauthenticated routes.
func actorID(c *gin.Context) string {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return ""
	}
	return claims.UserID
}

func parsePositiveID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return id, nil
}

func sessionIDParam(c *gin.Context) (int64, error) {
	return parsePositiveID(c.Param("id"), "session id")
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
