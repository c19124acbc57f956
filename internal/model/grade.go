package model

// Grade 每个 (activity, user) 一行，由全部尝试重新计算得到
// swagger:model Grade
type Grade struct {
	BaseModel

	ActivityID uint    `gorm:"not null;uniqueIndex:idx_grade_user,priority:1;type:bigint unsigned" json:"activityId"`
	UserID     uint    `gorm:"not null;uniqueIndex:idx_grade_user,priority:2;type:bigint unsigned" json:"userId"`
	Value      float64 `gorm:"column:grade" json:"grade"`
}

func (Grade) TableName() string {
	return "grades"
}
