package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quantgems/marketbreadth/internal/domain/dto"
	"github.com/quantgems/marketbreadth/internal/logger"
)

// ErrorHandler is a Gin middleware that converts errors attached to the
// context (via c.Error) into a standardized JSON error response.
//
// Behavior:
//   - Runs the rest of the chain first.
//   - If any handler attached errors and no response was written yet,
//     logs the last error and responds with 500 Internal Server Error.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.ErrorHandler)
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	logger.L().Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Msg("unhandled request error")

	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", err))
}

// AbortWithError writes a standardized error response with the given
// status code and stops the handler chain.
//
// Usage:
//
//	middleware.AbortWithError(c, http.StatusBadRequest, "invalid date format", err)
func AbortWithError(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
