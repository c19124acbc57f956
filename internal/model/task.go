package model

// Task Steamfitter 任务在本地的镜像，附带上游没有的评分配置
// swagger:model Task
type Task struct {
	BaseModel

	ActivityID         uint    `gorm:"not null;uniqueIndex:idx_task_external,priority:1;type:bigint unsigned" json:"activityId"`
	ExternalTaskID     string  `gorm:"size:36;not null;uniqueIndex:idx_task_external,priority:2" json:"externalTaskId"`
	ScenarioTemplateID string  `gorm:"size:36" json:"scenarioTemplateId"`
	Name               string  `gorm:"size:255" json:"name"`
	Description        string  `gorm:"type:text" json:"description"`
	Points             float64 `gorm:"default:1" json:"points"`
	Visible            bool    `gorm:"default:false" json:"visible"`
	Gradable           bool    `gorm:"default:false" json:"gradable"`
	Multiple           bool    `gorm:"default:false" json:"multiple"`
}

func (Task) TableName() string {
	return "tasks"
}
