package repository

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type TaskRepository struct {
	DB *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := conn(ctx, r.DB).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTaskNotFound
		}
		return nil, util.Storage("find task", err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByActivity(ctx context.Context, activityID uint) ([]model.Task, error) {
	var tasks []model.Task
	err := conn(ctx, r.DB).Where("activity_id = ?", activityID).Order("id").Find(&tasks).Error
	return tasks, util.Storage("list tasks", err)
}

// Save 新建或更新
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	var err error
	if task.ID == 0 {
		err = conn(ctx, r.DB).Create(task).Error
	} else {
		err = conn(ctx, r.DB).Save(task).Error
	}
	return util.Storage("save task", err)
}
