package database

import (
	"crucible_backend/internal/config"
	"crucible_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=UTC",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一索引冲突转换为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")
	return db, nil
}

// Migrate 建表；attempts 上的 (user_id, activity_id, open_slot) 唯一索引保证同一用户同一活动最多一个进行中的尝试
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Activity{},
		&model.Task{},
		&model.Attempt{},
		&model.AttemptUser{},
		&model.TaskResult{},
		&model.Grade{},
	)
	if err != nil {
		return err
	}
	log.Println("Database migration completed")
	return nil
}
