package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"choreplan/internal/handler"
	"choreplan/pkg/metrics"
	"choreplan/pkg/mq"
)

func NewRouter(
	scheduleHandler *handler.ScheduleHandler,
	taskHandler *handler.TaskHandler,
	jwtSecret string,
	logger *zap.Logger,
	db *pgxpool.Pool,
	consumer *mq.Consumer,
) *gin.Engine {
	r := gin.Default()

	r.Use(TraceMiddleware())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			latency,
		)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	})

	// Health endpoints stay in front of auth.
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if consumer != nil && !consumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/generate", scheduleHandler.TriggerGeneration)
		auth.POST("/templates/:id/generate", scheduleHandler.GenerateFromTemplate)
		auth.GET("/tasks/urgency", taskHandler.UrgencyView)
		auth.POST("/tasks/:id/defer", taskHandler.DeferTask)
		auth.POST("/tasks/:id/complete", taskHandler.CompleteTask)
	}

	return r
}
