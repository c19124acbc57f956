package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/repository"
	"crucible_backend/pkg/alloy"
	"crucible_backend/pkg/steamfitter"
	"time"
)

// 以下接口由 internal/repository 的 gorm 实现满足，测试中用内存实现替换

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ActivityStore interface {
	Create(ctx context.Context, a *model.Activity) error
	Update(ctx context.Context, a *model.Activity) error
	FindByID(ctx context.Context, id uint) (*model.Activity, error)
	ListByCourse(ctx context.Context, courseID uint) ([]model.Activity, error)
}

type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	Update(ctx context.Context, a *model.Attempt) error
	FindByID(ctx context.Context, id uint) (*model.Attempt, error)
	FindOpen(ctx context.Context, userID, activityID uint) ([]model.Attempt, error)
	FindOpenByEvent(ctx context.Context, eventID string) ([]model.Attempt, error)
	FindByEvent(ctx context.Context, activityID uint, eventID string) ([]model.Attempt, error)
	List(ctx context.Context, f repository.AttemptFilter) ([]model.Attempt, error)
	AddUser(ctx context.Context, attemptID, userID uint) error
	UserIDs(ctx context.Context, attemptID uint) ([]uint, error)
	DeleteByActivity(ctx context.Context, activityID uint) error
}

type TaskStore interface {
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	ListByActivity(ctx context.Context, activityID uint) ([]model.Task, error)
	Save(ctx context.Context, task *model.Task) error
}

type TaskResultStore interface {
	Append(ctx context.Context, results ...*model.TaskResult) error
	ForTask(ctx context.Context, attemptID, taskID uint) ([]model.TaskResult, error)
	ForAttempt(ctx context.Context, attemptID uint) ([]model.TaskResult, error)
	FindByID(ctx context.Context, id uint) (*model.TaskResult, error)
	Update(ctx context.Context, result *model.TaskResult) error
	DeleteByActivity(ctx context.Context, activityID uint) error
}

type GradeStore interface {
	Find(ctx context.Context, activityID, userID uint) (*model.Grade, error)
	Upsert(ctx context.Context, g *model.Grade) error
	ListByActivity(ctx context.Context, activityID uint) ([]model.Grade, error)
	DeleteByActivity(ctx context.Context, activityID uint) error
}

// Orchestrator Alloy 事件接口，*alloy.Client 实现
type Orchestrator interface {
	CreateEvent(ctx context.Context, templateID string) (*alloy.Event, error)
	GetEvent(ctx context.Context, eventID string) (*alloy.Event, error)
	ListEvents(ctx context.Context, templateID, userRef string) ([]alloy.Event, error)
	EndEvent(ctx context.Context, eventID string) error
	ExtendEvent(ctx context.Context, eventID string, expiration time.Time) (*alloy.Event, error)
	GenerateShareCode(ctx context.Context, eventID string) (string, error)
	Enlist(ctx context.Context, code string) (string, error)
}

// TaskRunner Steamfitter 任务接口，*steamfitter.Client 实现
type TaskRunner interface {
	ListTemplateTasks(ctx context.Context, templateID string) ([]steamfitter.Task, error)
	ListScenarioTasks(ctx context.Context, scenarioID string) ([]steamfitter.Task, error)
	ExecuteTask(ctx context.Context, taskID string) ([]steamfitter.Result, error)
}

// timeoutSetter 外部客户端支持运行时调整超时
type timeoutSetter interface {
	SetTimeout(d time.Duration)
}
