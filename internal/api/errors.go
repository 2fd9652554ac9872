package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/visual-inspector/internal/aggregator"
	"github.com/bosocmputer/visual-inspector/internal/coordinator"
	"github.com/bosocmputer/visual-inspector/internal/roi"
	"github.com/bosocmputer/visual-inspector/internal/session"
)

// writeError maps the §7 error taxonomy onto one of {400,404,409,500,503}
// and writes a structured error body. Every non-ROI-local failure the
// coordinator returns lands here; ROI-local failures never reach this
// function because they are folded into the result (§7 "partial success
// is expressed inside the result").
func writeError(c *gin.Context, err error) {
	status, kind := classify(err)
	c.JSON(status, gin.H{"error": kind, "message": err.Error()})
}

func classify(err error) (int, string) {
	var invalidReq *coordinator.InvalidRequest
	var internalErr *aggregator.InternalError
	var invalidROI *roi.InvalidROI
	var invalidConfig *roi.InvalidConfig

	switch {
	case errors.As(err, &invalidReq):
		return http.StatusBadRequest, "invalid_request"
	case errors.As(err, &invalidROI), errors.As(err, &invalidConfig):
		return http.StatusBadRequest, "invalid_config"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &internalErr):
		return http.StatusInternalServerError, "internal_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
