package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/interfaces/http/handlers"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// Router wires the ops HTTP surface: health plus manual billing controls.
type Router struct {
	engine     *gin.Engine
	billingOps *handlers.BillingOpsHandler
	db         *gorm.DB
	logger     logger.Interface
}

func NewRouter(
	billingOps *handlers.BillingOpsHandler,
	db *gorm.DB,
	logger logger.Interface,
) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{
		engine:     engine,
		billingOps: billingOps,
		db:         db,
		logger:     logger,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.Use(r.requestLogger())

	r.engine.GET("/healthz", r.healthz)

	ops := r.engine.Group("/ops")
	{
		ops.POST("/sweeps/renewals", r.billingOps.TriggerRenewalSweep)
		ops.POST("/sweeps/retries", r.billingOps.TriggerRetrySweep)
		ops.GET("/subscriptions/:sid/billing-events", r.billingOps.ListBillingEvents)
		ops.POST("/subscriptions/:sid/payment-method/prepare", r.billingOps.PreparePaymentMethod)
	}
}

// GetEngine returns the underlying gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) healthz(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		r.logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
