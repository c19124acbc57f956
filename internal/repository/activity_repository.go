package repository

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) Create(ctx context.Context, a *model.Activity) error {
	return util.Storage("create activity", conn(ctx, r.DB).Create(a).Error)
}

func (r *ActivityRepository) Update(ctx context.Context, a *model.Activity) error {
	return util.Storage("update activity", conn(ctx, r.DB).Save(a).Error)
}

func (r *ActivityRepository) FindByID(ctx context.Context, id uint) (*model.Activity, error) {
	var a model.Activity
	if err := conn(ctx, r.DB).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrActivityNotFound
		}
		return nil, util.Storage("find activity", err)
	}
	return &a, nil
}

func (r *ActivityRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Activity, error) {
	var activities []model.Activity
	db := conn(ctx, r.DB)
	if courseID != 0 {
		db = db.Where("course_id = ?", courseID)
	}
	err := db.Order("id").Find(&activities).Error
	return activities, util.Storage("list activities", err)
}
