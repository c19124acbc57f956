package logger

import (
	"crucible_backend/internal/config"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 在 InitLogger 之前为 Nop，测试中无需初始化
var Log = zap.NewNop()

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "time",
	LevelKey:       "level",
	NameKey:        "logger",
	CallerKey:      "caller",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Level 显式配置优先；未配置时 debug 模式输出 debug 日志
func Level(cfg *config.Config) (zapcore.Level, error) {
	if cfg.Log.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return zap.InfoLevel, fmt.Errorf("log.level: %w", err)
		}
		return lvl, nil
	}
	if cfg.Server.Mode == "debug" {
		return zap.DebugLevel, nil
	}
	return zap.InfoLevel, nil
}

// New 文件写 JSON，控制台写文本，两者同级别
func New(cfg *config.Config) (*zap.Logger, error) {
	level, err := Level(cfg)
	if err != nil {
		return nil, err
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     30,
		Compress:   true,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(zap.String("service", "crucible"), zap.String("mode", cfg.Server.Mode)),
	), nil
}

// InitLogger 配置无效时退回 info 级别并记录一条警告
func InitLogger(cfg *config.Config) {
	l, err := New(cfg)
	if err != nil {
		fallback := *cfg
		fallback.Log.Level = "info"
		l, _ = New(&fallback)
		l.Warn("Invalid log level, falling back to info", zap.Error(err))
	}
	Log = l
}

// ForLab 带上 (user, activity) 的子 logger，轮询与任务执行日志用
func ForLab(userID, activityID uint) *zap.Logger {
	return Log.With(zap.Uint("user_id", userID), zap.Uint("activity_id", activityID))
}
