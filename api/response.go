package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/selection"
	"kilnbazaar/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func statusOf(err error) int {
	var v *service.ValidationError
	switch {
	case errors.As(err, &v):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoOrdersToRate),
		errors.Is(err, selection.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBusy),
		errors.Is(err, selection.ErrInProgress),
		errors.Is(err, service.ErrDeleteFailed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *handler) abort(c *gin.Context, err error) {
	code := statusOf(err)
	resp := errorResponse{Error: err.Error()}
	var v *service.ValidationError
	if errors.As(err, &v) {
		resp = errorResponse{Error: v.Message, Field: v.Field}
	}
	if code == http.StatusInternalServerError {
		h.log.Error("request failed", logger.String("request_id", c.GetString(ctxRequestID)), logger.Error(err))
		resp = errorResponse{Error: "something went wrong, please try again"}
	}
	c.AbortWithStatusJSON(code, resp)
}

func (h *handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *handler) idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid " + name, Field: name})
		return 0, false
	}
	return id, true
}
