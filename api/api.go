// Package api exposes the marketplace over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
)

type Options struct {
	Services       service.IServiceManager
	Log            logger.ILogger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

type handler struct {
	svc service.IServiceManager
	log logger.ILogger
}

func New(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	h := &handler{svc: opts.Services, log: opts.Log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(accessLog(opts.Log))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	if opts.RequestTimeout > 0 {
		r.Use(timeout(opts.RequestTimeout))
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := api.Group("/auth")
	{
		auth.POST("/otp", h.requestOTP)
		auth.POST("/verify", h.verifyOTP)
	}

	providers := api.Group("/providers/:kind", h.kind())
	{
		providers.GET("", h.listProviders)
		providers.GET("/:id", h.getProvider)
		providers.POST("", h.authRequired(), h.requireRole(models.RoleProvider), h.registerProvider)
		providers.PUT("/:id", h.authRequired(), h.requireRole(models.RoleProvider), h.updateProvider)
	}

	me := api.Group("/me", h.authRequired())
	{
		me.GET("", h.me)
		me.GET("/providers/:kind", h.kind(), h.requireRole(models.RoleProvider), h.myProviders)
	}

	m := api.Group("/manufacturer/:kind", h.authRequired(), h.requireRole(models.RoleManufacturer), h.kind())
	{
		m.GET("/requests", h.manufacturerRequests)
		m.GET("/requests/export", h.exportRequests)
		m.POST("/requests/:list", h.list(), h.submitRequest)
		m.DELETE("/requests/:list/:id", h.list(), h.deleteRequest)
		m.POST("/requests/:list/bulk-delete", h.list(), h.bulkDelete)
		m.PATCH("/orders/:id/payment", h.setPaymentStatus)
	}

	p := api.Group("/provider/:kind", h.authRequired(), h.requireRole(models.RoleProvider), h.kind())
	{
		p.GET("/:id/requests", h.providerRequests)
		p.POST("/inquiries/:id/respond", h.respondInquiry)
		p.POST("/quotations/:id/respond", h.respondQuotation)
		p.POST("/orders/:id/confirm", h.confirmOrder)
		p.POST("/orders/:id/deliver", h.markDelivered)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.ExposeHeaders = []string{"Content-Length", "Content-Disposition", requestIDHeader}
	return cfg
}
