// 手动重算活动成绩脚本
//
// 修改任务分值或评分方式后，由任务结果流水重新计算活动下全部尝试得分与用户成绩，
// 并推送到成绩册。在线接口 POST /api/teacher/activities/{id}/regrade 做同样的事。
//
// 用法: go run scripts/regrade.go -activity 12 [-config configs]

package main

import (
	"context"
	"crucible_backend/internal/config"
	"crucible_backend/internal/repository"
	"crucible_backend/internal/service"
	"crucible_backend/pkg/database"
	"crucible_backend/pkg/gradebook"
	"crucible_backend/pkg/logger"
	"flag"
	"log"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs", "配置文件所在目录")
	activityID := flag.Uint("activity", 0, "活动ID")
	flag.Parse()

	if *activityID == 0 {
		log.Fatal("-activity is required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	var sink gradebook.Sink = gradebook.NopSink{}
	if cfg.Gradebook.Driver == "http" {
		sink = gradebook.NewHTTPSink(cfg.Gradebook.URL, cfg.Gradebook.Token, cfg.Lab.CallTimeout())
	}

	grades := service.NewGradeService(
		repository.NewActivityRepository(db),
		repository.NewAttemptRepository(db),
		repository.NewTaskRepository(db),
		repository.NewTaskResultRepository(db),
		repository.NewGradeRepository(db),
		sink,
		repository.NewTransactor(db),
		logger.Log,
	)

	users, err := grades.RegradeActivity(context.Background(), uint(*activityID))
	if err != nil {
		logger.Log.Fatal("Regrade failed", zap.Uint("activity_id", uint(*activityID)), zap.Error(err))
	}
	logger.Log.Info("Regrade finished", zap.Uint("activity_id", uint(*activityID)), zap.Int("users", users))
}
