package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/config"
	"github.com/Mortal/shiftplanner/internal/api/handler"
	"github.com/Mortal/shiftplanner/internal/api/middleware"
)

// 报名 / 备注接口限流：每人每路由每分钟 30 次
const (
	registrationLimit  = 30
	registrationWindow = time.Minute
	maxBodyBytes       = 1 << 20
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流；gatherer 为 nil 时不暴露 /metrics
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		admin := middleware.RequireAdmin()
		limited := middleware.RateLimit(limiter, registrationLimit, registrationWindow, logger)

		// 值班人员
		workers := v1.Group("/workers")
		{
			workers.GET("", h.Worker.List)
			workers.POST("", admin, h.Worker.Create)
			workers.PUT("/:id", admin, h.Worker.Update)
			workers.DELETE("/:id", admin, h.Worker.Delete)
		}

		wp := v1.Group("/workplaces/:workplace")
		{
			wp.GET("", h.Workplace.Get)
			wp.PUT("/settings", admin, h.Workplace.UpdateSettings)

			// 班次与排班
			wp.GET("/shifts", h.Shift.ListWeek)
			wp.POST("/shifts/materialize", admin, h.Shift.Materialize)
			wp.PUT("/shifts/:id/workers", admin, h.Shift.SetWorkers)
			wp.POST("/shifts/:id/register", middleware.RequireIdentity(), limited, h.Shift.Register)
			wp.DELETE("/shifts/:id/register", middleware.RequireIdentity(), limited, h.Shift.Unregister)
			wp.PUT("/shifts/:id/comment", middleware.RequireIdentity(), limited, h.Shift.SetComment)

			// 统计与清理
			wp.GET("/stats", h.Stats.WorkerStats)
			wp.GET("/stats/plan", admin, h.Stats.PreparePlan)
			wp.POST("/stats/flush", admin, h.Stats.Flush)
			wp.POST("/prune", admin, h.Stats.Prune)

			// 变更日志 / 导出
			wp.GET("/changelog", admin, h.Changelog.List)
			wp.GET("/export/stats", admin, h.Export.ExportWorkerStats)
		}
	}

	return r
}
