package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.ApiService/health"
	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
)

// HealthController handles health and metrics requests
type HealthController struct {
	checker *health.HealthChecker
	logger  *logger.Logger
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.HealthChecker, logger *logger.Logger) *HealthController {
	return &HealthController{
		checker: checker,
		logger:  logger,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
	router.GET("/metrics", c.Metrics)
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	status := c.checker.GetHealthStatus(ctx.Request.Context())
	if status["status"] != "ok" {
		ctx.JSON(http.StatusServiceUnavailable, status)
		return
	}
	ctx.JSON(http.StatusOK, status)
}

func (c *HealthController) Metrics(ctx *gin.Context) {
	storeUp := 1
	if err := c.checker.CheckStoreHealth(ctx.Request.Context()); err != nil {
		storeUp = 0
	}

	ctx.String(http.StatusOK,
		"# HELP iclock_server_health Health status of the iclock server\n"+
			"# TYPE iclock_server_health gauge\n"+
			"iclock_server_health 1\n"+
			"# HELP iclock_store_up Whether the key-value store answers pings\n"+
			"# TYPE iclock_store_up gauge\n"+
			fmt.Sprintf("iclock_store_up %d\n", storeUp))
}
