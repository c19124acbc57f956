package model

import "time"

type AttemptState string

const (
	AttemptNotStarted AttemptState = "notstarted"
	AttemptInProgress AttemptState = "inprogress"
	AttemptFinished   AttemptState = "finished"
	AttemptAbandoned  AttemptState = "abandoned"
)

// IsTerminal finished 与 abandoned 之后不再变化
func (s AttemptState) IsTerminal() bool {
	return s == AttemptFinished || s == AttemptAbandoned
}

// CanTransition notstarted -> inprogress -> {finished, abandoned}
func (s AttemptState) CanTransition(to AttemptState) bool {
	switch s {
	case AttemptNotStarted:
		return to == AttemptInProgress || to == AttemptAbandoned
	case AttemptInProgress:
		return to == AttemptFinished || to == AttemptAbandoned
	}
	return false
}

// swagger:model Attempt
type Attempt struct {
	BaseModel

	UserID     uint `gorm:"not null;uniqueIndex:idx_attempt_open,priority:1;index;type:bigint unsigned" json:"userId"`
	ActivityID uint `gorm:"not null;uniqueIndex:idx_attempt_open,priority:2;index;type:bigint unsigned" json:"activityId"`
	// 进行中时为 true，结束后置 NULL。唯一索引里 NULL 不参与比较，
	// 因此同一 (user, activity) 只能有一条进行中的尝试
	OpenSlot *bool `gorm:"uniqueIndex:idx_attempt_open,priority:3" json:"-"`

	EventID    *string      `gorm:"size:36;index" json:"eventId,omitempty"`
	ScenarioID *string      `gorm:"size:36" json:"scenarioId,omitempty"`
	State      AttemptState `gorm:"size:20;not null;index" json:"state"`
	StartedAt  time.Time    `json:"startedAt"`
	EndTime    *time.Time   `json:"endTime,omitempty"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
	Score      *float64     `json:"score,omitempty"`

	Users []AttemptUser `gorm:"foreignKey:AttemptID" json:"users,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) IsOpen() bool {
	return a.State == AttemptInProgress
}

// Expired 会话是否已超过外部事件的过期时间
func (a *Attempt) Expired(now time.Time) bool {
	return a.EndTime != nil && now.After(*a.EndTime)
}

// Provisioned 事件进入 Active 后才会写入结束时间；部署阶段创建的尝试此前为 false
func (a *Attempt) Provisioned() bool {
	return a.EndTime != nil
}

// AttemptUser 加入同一尝试（同一外部事件）的其他用户
type AttemptUser struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AttemptID uint      `gorm:"not null;uniqueIndex:idx_attempt_user,priority:1;type:bigint unsigned" json:"attemptId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_attempt_user,priority:2;index;type:bigint unsigned" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (AttemptUser) TableName() string {
	return "attempt_users"
}
