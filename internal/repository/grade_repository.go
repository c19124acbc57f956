package repository

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GradeRepository struct {
	DB *gorm.DB
}

func NewGradeRepository(db *gorm.DB) *GradeRepository {
	return &GradeRepository{DB: db}
}

// Find 没有成绩时返回 nil, nil
func (r *GradeRepository) Find(ctx context.Context, activityID, userID uint) (*model.Grade, error) {
	var g model.Grade
	err := conn(ctx, r.DB).Where("activity_id = ? AND user_id = ?", activityID, userID).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, util.Storage("find grade", err)
	}
	return &g, nil
}

// Upsert (activity_id, user_id) 唯一
func (r *GradeRepository) Upsert(ctx context.Context, g *model.Grade) error {
	err := conn(ctx, r.DB).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grade", "updated_at"}),
	}).Create(g).Error
	return util.Storage("upsert grade", err)
}

func (r *GradeRepository) ListByActivity(ctx context.Context, activityID uint) ([]model.Grade, error) {
	var grades []model.Grade
	err := conn(ctx, r.DB).Where("activity_id = ?", activityID).Order("user_id").Find(&grades).Error
	return grades, util.Storage("list grades", err)
}

func (r *GradeRepository) DeleteByActivity(ctx context.Context, activityID uint) error {
	err := conn(ctx, r.DB).Where("activity_id = ?", activityID).Delete(&model.Grade{}).Error
	return util.Storage("delete grades", err)
}
