package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hotelrides/internal/app"
	"hotelrides/internal/config"
	"hotelrides/internal/middleware"
	"hotelrides/internal/modules/booking"
	"hotelrides/internal/modules/live"
	"hotelrides/internal/modules/notification"
	"hotelrides/internal/modules/payment"
	jwtsvc "hotelrides/internal/pkg/jwt"
)

func newRouter(a *app.App, cfg *config.Config, j *jwtsvc.Service, zl *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorLogger(zl))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	paymentHandler := payment.NewHandler(a.Payment, zl)

	v1 := r.Group("/api/v1")
	// gateway callbacks arrive from a few gateway IPs and are not throttled
	paymentHandler.RegisterPublicRoutes(v1)

	limited := v1.Group("")
	limited.Use(middleware.RateLimit(cfg.RateLimit, zl))
	{
		// the live stream authenticates by query token
		live.NewHandler(a.Hub, a.Booking, j, cfg.CORSOrigins, zl).RegisterRoutes(limited)

		protected := limited.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			booking.NewHandler(a.Booking).RegisterRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)
			notification.NewHandler(a.Notifier).RegisterRoutes(protected)
		}
	}
	return r
}
