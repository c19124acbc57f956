package repository

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptFilter 为 0 的字段不参与过滤
type AttemptFilter struct {
	ActivityID uint
	UserID     uint
	// open / closed / all
	State string
}

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Create 唯一索引冲突时返回 util.ErrAttemptAlreadyOpen
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	if attempt.IsOpen() {
		open := true
		attempt.OpenSlot = &open
	}
	err := conn(ctx, r.DB).Create(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrAttemptAlreadyOpen
	}
	return util.Storage("create attempt", err)
}

// Update 结束的尝试清空 open_slot，释放唯一索引
func (r *AttemptRepository) Update(ctx context.Context, attempt *model.Attempt) error {
	if attempt.IsOpen() {
		open := true
		attempt.OpenSlot = &open
	} else {
		attempt.OpenSlot = nil
	}
	err := conn(ctx, r.DB).Omit(clause.Associations).Save(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrAttemptAlreadyOpen
	}
	return util.Storage("update attempt", err)
}

func (r *AttemptRepository) FindByID(ctx context.Context, id uint) (*model.Attempt, error) {
	var a model.Attempt
	db := forUpdate(ctx, conn(ctx, r.DB))
	if err := db.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, util.Storage("find attempt", err)
	}
	return &a, nil
}

// participant 拥有者或通过分享码加入的用户
func participant(db *gorm.DB, userID uint) *gorm.DB {
	return db.Where("user_id = ? OR id IN (?)", userID,
		db.Session(&gorm.Session{NewDB: true}).Model(&model.AttemptUser{}).Select("attempt_id").Where("user_id = ?", userID))
}

// FindOpen 某用户在某活动下进行中的尝试，正常情况下至多一条
func (r *AttemptRepository) FindOpen(ctx context.Context, userID, activityID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	db := conn(ctx, r.DB).Where("activity_id = ? AND state = ?", activityID, model.AttemptInProgress)
	err := participant(db, userID).Order("id").Find(&attempts).Error
	return attempts, util.Storage("find open attempts", err)
}

func (r *AttemptRepository) FindOpenByEvent(ctx context.Context, eventID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := conn(ctx, r.DB).
		Where("event_id = ? AND state = ?", eventID, model.AttemptInProgress).
		Order("id").
		Find(&attempts).Error
	return attempts, util.Storage("find attempts by event", err)
}

// FindByEvent 活动下绑定该事件的全部尝试，包括已结束的
func (r *AttemptRepository) FindByEvent(ctx context.Context, activityID uint, eventID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := conn(ctx, r.DB).
		Where("activity_id = ? AND event_id = ?", activityID, eventID).
		Order("id").
		Find(&attempts).Error
	return attempts, util.Storage("find attempts by event", err)
}

// List 按创建顺序返回；事务内加锁，保证成绩汇总期间尝试分数不被并发修改
func (r *AttemptRepository) List(ctx context.Context, f AttemptFilter) ([]model.Attempt, error) {
	var attempts []model.Attempt
	db := conn(ctx, r.DB).Model(&model.Attempt{})
	if f.ActivityID != 0 {
		db = db.Where("activity_id = ?", f.ActivityID)
	}
	if f.UserID != 0 {
		db = participant(db, f.UserID)
	}
	switch f.State {
	case util.FilterOpen:
		db = db.Where("state = ?", model.AttemptInProgress)
	case util.FilterClosed:
		db = db.Where("state IN ?", []model.AttemptState{model.AttemptFinished, model.AttemptAbandoned})
	}
	err := forUpdate(ctx, db).Order("created_at, id").Find(&attempts).Error
	return attempts, util.Storage("list attempts", err)
}

// AddUser 重复加入忽略
func (r *AttemptRepository) AddUser(ctx context.Context, attemptID, userID uint) error {
	err := conn(ctx, r.DB).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.AttemptUser{AttemptID: attemptID, UserID: userID}).Error
	return util.Storage("add attempt user", err)
}

// UserIDs 拥有者在前，其余按加入顺序
func (r *AttemptRepository) UserIDs(ctx context.Context, attemptID uint) ([]uint, error) {
	a, err := r.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	var joined []uint
	err = conn(ctx, r.DB).Model(&model.AttemptUser{}).
		Where("attempt_id = ? AND user_id <> ?", attemptID, a.UserID).
		Order("id").
		Pluck("user_id", &joined).Error
	if err != nil {
		return nil, util.Storage("list attempt users", err)
	}
	return append([]uint{a.UserID}, joined...), nil
}

// DeleteByActivity 批量重置时使用，连同加入记录一起删除
func (r *AttemptRepository) DeleteByActivity(ctx context.Context, activityID uint) error {
	db := conn(ctx, r.DB)
	ids := db.Session(&gorm.Session{NewDB: true}).Model(&model.Attempt{}).Select("id").Where("activity_id = ?", activityID)
	if err := db.Where("attempt_id IN (?)", ids).Delete(&model.AttemptUser{}).Error; err != nil {
		return util.Storage("delete attempt users", err)
	}
	err := db.Where("activity_id = ?", activityID).Delete(&model.Attempt{}).Error
	return util.Storage("delete attempts", err)
}
