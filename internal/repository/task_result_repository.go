package repository

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

// TaskResultRepository 任务结果流水，只追加
type TaskResultRepository struct {
	DB *gorm.DB
}

func NewTaskResultRepository(db *gorm.DB) *TaskResultRepository {
	return &TaskResultRepository{DB: db}
}

func (r *TaskResultRepository) Append(ctx context.Context, results ...*model.TaskResult) error {
	if len(results) == 0 {
		return nil
	}
	err := conn(ctx, r.DB).Create(results).Error
	return util.Storage("append task results", err)
}

// ForTask 按修改时间升序，同一时间按 id 升序
func (r *TaskResultRepository) ForTask(ctx context.Context, attemptID, taskID uint) ([]model.TaskResult, error) {
	var results []model.TaskResult
	err := conn(ctx, r.DB).
		Where("attempt_id = ? AND task_id = ?", attemptID, taskID).
		Order("updated_at, id").
		Find(&results).Error
	return results, util.Storage("list task results", err)
}

func (r *TaskResultRepository) ForAttempt(ctx context.Context, attemptID uint) ([]model.TaskResult, error) {
	var results []model.TaskResult
	err := conn(ctx, r.DB).
		Where("attempt_id = ?", attemptID).
		Order("updated_at, id").
		Find(&results).Error
	return results, util.Storage("list attempt results", err)
}

func (r *TaskResultRepository) FindByID(ctx context.Context, id uint) (*model.TaskResult, error) {
	var result model.TaskResult
	if err := conn(ctx, r.DB).First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrResultNotFound
		}
		return nil, util.Storage("find task result", err)
	}
	return &result, nil
}

// Update 只用于教师改分
func (r *TaskResultRepository) Update(ctx context.Context, result *model.TaskResult) error {
	err := conn(ctx, r.DB).Model(result).
		Select("status", "score", "comment", "updated_at").
		Updates(result).Error
	return util.Storage("update task result", err)
}

func (r *TaskResultRepository) DeleteByActivity(ctx context.Context, activityID uint) error {
	db := conn(ctx, r.DB)
	ids := db.Session(&gorm.Session{NewDB: true}).Model(&model.Attempt{}).Select("id").Where("activity_id = ?", activityID)
	err := db.Where("attempt_id IN (?)", ids).Delete(&model.TaskResult{}).Error
	return util.Storage("delete task results", err)
}
