package app

import (
	"crucible_backend/docs"
	"crucible_backend/internal/config"
	"crucible_backend/internal/middleware"
	"crucible_backend/internal/model"
	"crucible_backend/pkg/monitoring"
	"crucible_backend/pkg/security"
	"crucible_backend/pkg/tracing"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, nil))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.ConfigMiddleware(a.currentConfig))
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		a.registerStudentRoutes(authGroup, c)

		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		a.registerTeacherRoutes(teacher, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/activities", c.activity.List)
	rg.GET("/activities/:id", c.activity.Get)
	rg.GET("/activities/:id/tasks", c.task.List)
	rg.GET("/activities/:id/grade", c.grade.Compute)
	rg.GET("/activities/:id/attempts", c.lab.History)

	// 实验生命周期
	lab := rg.Group("/activities/:id/lab")
	{
		lab.GET("", c.lab.Tick)
		lab.POST("/launch", c.lab.Launch)
		lab.POST("/stop", c.lab.Stop)
		lab.POST("/extend", c.lab.Extend)
		lab.POST("/share", c.lab.ShareCode)
		lab.POST("/join", c.lab.Join)
	}

	rg.POST("/attempts/:attemptId/tasks/:taskId/run", c.lab.RunTask)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/activities", c.activity.Create)
	rg.PUT("/activities/:id", c.activity.Update)
	rg.POST("/activities/:id/tasks/sync", c.task.Sync)
	rg.PUT("/tasks/:id", c.task.Update)

	// 成绩
	rg.GET("/activities/:id/grades", c.grade.List)
	rg.POST("/activities/:id/regrade", c.grade.Regrade)
	rg.POST("/activities/:id/reset", c.grade.Reset)
	rg.PUT("/results/:id", c.grade.Override)
}
