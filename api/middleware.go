package api

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxKind      = "kind"
	ctxList      = "list"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(log logger.ILogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("request_id", c.GetString(ctxRequestID)),
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		}
		if id := c.GetInt64(ctxUserID); id != 0 {
			fields = append(fields, logger.Int64("user", id))
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			log.Warning("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			h.abort(c, service.ErrUnauthorized)
			return
		}
		claims, err := h.svc.Auth().ParseToken(token)
		if err != nil {
			h.abort(c, service.ErrUnauthorized)
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func (h *handler) requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != role {
			h.abort(c, service.ErrForbidden)
			return
		}
		c.Next()
	}
}

func (h *handler) kind() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := models.ParseKind(c.Param("kind"))
		if err != nil {
			h.abort(c, service.ErrNotFound)
			return
		}
		c.Set(ctxKind, kind)
		c.Next()
	}
}

func (h *handler) list() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := models.ParseList(c.Param("list"))
		if err != nil {
			h.abort(c, service.ErrNotFound)
			return
		}
		c.Set(ctxList, list)
		c.Next()
	}
}

func kindOf(c *gin.Context) models.ProviderKind {
	return c.MustGet(ctxKind).(models.ProviderKind)
}

func listOf(c *gin.Context) models.ListName {
	return c.MustGet(ctxList).(models.ListName)
}

func userOf(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
