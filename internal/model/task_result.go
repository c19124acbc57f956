package model

import "strings"

// SummaryVM 非多虚拟机任务（以及尝试开始时的占位行）使用的虚拟机名
const SummaryVM = "SUMMARY"

type ResultStatus string

const (
	// ResultPending 尝试开始时写入的占位行，不代表执行过
	ResultPending   ResultStatus = "pending"
	ResultSucceeded ResultStatus = "succeeded"
	ResultFailed    ResultStatus = "failed"
	ResultOther     ResultStatus = "other"
)

// NormalizeResultStatus 把 Steamfitter 的各种中间状态（包括它的 pending）归并为 other，
// ResultPending 只用于占位行
func NormalizeResultStatus(s string) ResultStatus {
	status := ResultStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case ResultSucceeded, ResultFailed:
		return status
	}
	return ResultOther
}

// TaskResult 任务执行结果流水，只追加；仅教师改分时原地更新
// swagger:model TaskResult
type TaskResult struct {
	BaseModel

	TaskID    uint         `gorm:"not null;index:idx_result_attempt_task,priority:2;type:bigint unsigned" json:"taskId"`
	AttemptID uint         `gorm:"not null;index:idx_result_attempt_task,priority:1;type:bigint unsigned" json:"attemptId"`
	VMName    string       `gorm:"size:255;not null" json:"vmName"`
	Status    ResultStatus `gorm:"size:20;not null" json:"status"`
	Score     float64      `json:"score"`
	Comment   string       `gorm:"size:255" json:"comment,omitempty"`
}

func (TaskResult) TableName() string {
	return "task_results"
}

// Executed 占位行不算执行
func (r *TaskResult) Executed() bool {
	return r.Status != ResultPending
}
