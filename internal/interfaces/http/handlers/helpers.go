package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// parseID reads a positive integer path parameter
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("Invalid %s", name)
	}
	return uint(id), nil
}

// parseOptionalID reads an optional positive integer query parameter
func parseOptionalID(c *gin.Context, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, apperror.Validation("Invalid %s", name)
	}
	v := uint(id)
	return &v, nil
}

// queryInt reads an integer query parameter, falling back to def
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
