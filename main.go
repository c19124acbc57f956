// @title Crucible 实验平台 API
// @version 1.0
// @description Crucible 网络安全实验的尝试、任务结果与成绩服务。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"crucible_backend/internal/app"
	"crucible_backend/internal/config"
	"crucible_backend/pkg/logger"
	"flag"
	"log"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "configs", "配置文件所在目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg, *configPath)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		logger.Log.Info("Database migration completed, exiting")
		return
	}

	application.Run()
}
