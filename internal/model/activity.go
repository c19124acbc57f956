package model

import "time"

// GradeMethod 多次尝试合并为一个活动成绩的策略
type GradeMethod int

const (
	GradeHighest GradeMethod = 1
	GradeAverage GradeMethod = 2
	GradeFirst   GradeMethod = 3
	GradeLast    GradeMethod = 4
)

func (m GradeMethod) Valid() bool {
	return m >= GradeHighest && m <= GradeLast
}

func (m GradeMethod) String() string {
	switch m {
	case GradeHighest:
		return "highest"
	case GradeAverage:
		return "average"
	case GradeFirst:
		return "first"
	case GradeLast:
		return "last"
	}
	return "unknown"
}

// 多虚拟机任务的计分方式
const (
	MultiVMProportional = "proportional"
	MultiVMPerVM        = "per_vm"
)

// swagger:model Activity
type Activity struct {
	BaseModel

	CourseID           uint        `gorm:"index;type:bigint unsigned" json:"courseId"`
	Name               string      `gorm:"size:255;not null" json:"name"`
	Intro              string      `gorm:"type:text" json:"intro"`
	EventTemplateID    string      `gorm:"size:36;not null" json:"eventTemplateId"`
	ScenarioTemplateID string      `gorm:"size:36" json:"scenarioTemplateId"`
	MaxGrade           float64     `gorm:"default:100" json:"maxGrade"`
	GradeMethod        GradeMethod `gorm:"default:1" json:"gradeMethod"`
	MultiVMScoring     string      `gorm:"size:20;default:'proportional'" json:"multiVmScoring"`
	ExtendEvent        bool        `gorm:"default:false" json:"extendEvent"`
	TimeOpen           *time.Time  `json:"timeOpen,omitempty"`
	TimeClose          *time.Time  `json:"timeClose,omitempty"`
}

func (Activity) TableName() string {
	return "activities"
}

// IsAvailable 是否处于开放时间窗口内
func (a *Activity) IsAvailable(now time.Time) bool {
	if a.TimeOpen != nil && now.Before(*a.TimeOpen) {
		return false
	}
	if a.TimeClose != nil && now.After(*a.TimeClose) {
		return false
	}
	return true
}
