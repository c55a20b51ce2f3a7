package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. metrics may be nil.
func New(handler *handlers.CoverageHandler, metrics http.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api")
	api.GET("/summary", handler.Summary)
	api.GET("/diagnostics", handler.Diagnostics)
	api.GET("/regions.geojson", handler.GeoJSON)
	api.GET("/export.xlsx", handler.Export)
	api.GET("/records", handler.ListRecords)
	api.PUT("/records", handler.ReplaceRecords)
	api.POST("/reload", handler.Reload)
	api.DELETE("/cache", handler.Invalidate)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
