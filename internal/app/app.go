package app

import (
	"context"
	"crucible_backend/internal/config"
	"crucible_backend/internal/controller"
	"crucible_backend/internal/repository"
	"crucible_backend/internal/service"
	"crucible_backend/pkg/alloy"
	"crucible_backend/pkg/apiclient"
	"crucible_backend/pkg/configwatcher"
	"crucible_backend/pkg/database"
	"crucible_backend/pkg/gradebook"
	"crucible_backend/pkg/logger"
	"crucible_backend/pkg/monitoring"
	"crucible_backend/pkg/steamfitter"
	"crucible_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	configPath      string
	current         atomic.Pointer[config.Config]
	services        *services
	tracer          *sdktrace.TracerProvider
	cancelWatch     context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	activity   *repository.ActivityRepository
	attempt    *repository.AttemptRepository
	task       *repository.TaskRepository
	taskResult *repository.TaskResultRepository
	grade      *repository.GradeRepository
	tx         *repository.Transactor
}

type services struct {
	activity *service.ActivityService
	attempt  *service.AttemptService
	grade    *service.GradeService
	task     *service.TaskService
	lab      *service.LabService
}

type controllers struct {
	activity *controller.ActivityController
	lab      *controller.LabController
	grade    *controller.GradeController
	task     *controller.TaskController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// currentConfig 热更新后返回最新配置
func (a *App) currentConfig() *config.Config {
	return a.current.Load()
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		activity:   repository.NewActivityRepository(db),
		attempt:    repository.NewAttemptRepository(db),
		task:       repository.NewTaskRepository(db),
		taskResult: repository.NewTaskResultRepository(db),
		grade:      repository.NewGradeRepository(db),
		tx:         repository.NewTransactor(db),
	}
}

// initClients Alloy 与 Steamfitter 共用同一个 client credentials 令牌源
func (a *App) initClients(cfg *config.Config) (*alloy.Client, *steamfitter.Client, gradebook.Sink) {
	httpClient := apiclient.NewOAuthHTTPClient(context.Background(), apiclient.OAuthConfig{
		TokenURL:     cfg.OAuth.Endpoint(),
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		Scopes:       cfg.OAuth.Scopes,
	})
	timeout := cfg.Lab.CallTimeout()
	alloyClient := alloy.NewClient(cfg.Alloy.BaseURL, httpClient, timeout)
	steamfitterClient := steamfitter.NewClient(cfg.Steamfitter.BaseURL, httpClient, timeout)

	var sink gradebook.Sink = gradebook.NopSink{}
	if cfg.Gradebook.Driver == "http" {
		sink = gradebook.NewHTTPSink(cfg.Gradebook.URL, cfg.Gradebook.Token, timeout)
	}
	return alloyClient, steamfitterClient, sink
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}
	log := logger.Log

	alloyClient, steamfitterClient, sink := a.initClients(cfg)

	var locker service.Locker
	if rdb != nil {
		locker = service.NewRedisLocker(rdb, cfg.Lab.LockTTL())
	} else {
		log.Warn("Redis disabled, attempt locks are local to this instance")
		locker = service.NewLocalLocker()
	}

	s.activity = service.NewActivityService(repos.activity, log)
	s.attempt = service.NewAttemptService(repos.attempt, repos.taskResult, repos.task, repos.tx, log)
	s.grade = service.NewGradeService(repos.activity, repos.attempt, repos.task, repos.taskResult, repos.grade, sink, repos.tx, log)
	s.task = service.NewTaskService(repos.activity, repos.task, steamfitterClient, log)
	s.lab = service.NewLabService(repos.activity, repos.task, repos.taskResult,
		s.attempt, s.grade, alloyClient, steamfitterClient, locker, repos.tx, log)
	s.lab.ApplyConfig(cfg.Lab)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.lab.ApplyConfig(newCfg.Lab)
	})
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		activity: controller.NewActivityController(s.activity),
		lab:      controller.NewLabController(s.lab),
		grade:    controller.NewGradeController(s.grade),
		task:     controller.NewTaskController(s.task),
		health:   controller.NewHealthController(db, rdb),
	}
}

// reload 配置文件变更回调；数据库、Redis、外部服务地址需重启生效
func (a *App) reload(newCfg *config.Config) {
	old := a.current.Swap(newCfg)
	if old != nil && (old.Alloy.BaseURL != newCfg.Alloy.BaseURL ||
		old.Steamfitter.BaseURL != newCfg.Steamfitter.BaseURL ||
		old.Gradebook != newCfg.Gradebook) {
		logger.Log.Warn("External service settings changed, restart required to apply")
	}
	for _, cb := range a.configCallbacks {
		cb(newCfg)
	}
}

func NewApp(cfg *config.Config, configPath string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	app := &App{
		Config:     cfg,
		DB:         db,
		configPath: configPath,
	}
	app.current.Store(cfg)
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis, logger.Log)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, app.Redis)
	controllers := app.initControllers(app.services, db, app.Redis)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("crucible-lab", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancelWatch = cancel
	configFile := filepath.Join(configPath, "config.yaml")
	if err := configwatcher.Watch(ctx, configFile, logger.Log, app.reload); err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.String("file", configFile), zap.Error(err))
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.cancelWatch != nil {
		a.cancelWatch()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
