package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"conciliador/internal/api/dto"
	"conciliador/internal/application/matching"
	"conciliador/internal/infrastructure/storage"
)

const dateLayout = "2006-01-02"

// respondError maps domain errors onto HTTP status codes with the shared
// APIError shape.
func respondError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *storage.NotFoundError:
		c.JSON(http.StatusNotFound, dto.NotFoundError(e.Error()))
	case *storage.ConflictError:
		c.JSON(http.StatusConflict, dto.ConflictAPIError(e.Error()))
	case *matching.InvalidTransitionError:
		c.JSON(http.StatusConflict, dto.InvalidStateError(e.Error()))
	default:
		c.JSON(http.StatusInternalServerError, dto.InternalError())
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// parseDate parses a YYYY-MM-DD value.
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
