package service

import (
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"fmt"
)

// TaskScore 单个任务在一次尝试中的得分。Weight 为 0 表示未执行，不计入分母
type TaskScore struct {
	TaskID    uint    `json:"taskId"`
	Earned    float64 `json:"earned"`
	Weight    float64 `json:"weight"`
	VMs       int     `json:"vms"`
	Succeeded int     `json:"succeeded"`
}

func (s TaskScore) Executed() bool {
	return s.VMs > 0
}

// ScoreTask rows 需按修改时间升序；同一虚拟机以最后一行为准，占位行忽略
func ScoreTask(task model.Task, rows []model.TaskResult, mode string) TaskScore {
	latest := make(map[string]model.ResultStatus)
	for _, r := range rows {
		if !r.Executed() {
			continue
		}
		latest[r.VMName] = r.Status
	}

	score := TaskScore{TaskID: task.ID, VMs: len(latest)}
	if score.VMs == 0 {
		return score
	}
	for _, status := range latest {
		if status == model.ResultSucceeded {
			score.Succeeded++
		}
	}

	if mode == model.MultiVMPerVM {
		score.Earned = task.Points * float64(score.Succeeded)
		score.Weight = task.Points * float64(score.VMs)
		return score
	}
	score.Earned = task.Points * float64(score.Succeeded) / float64(score.VMs)
	score.Weight = task.Points
	return score
}

// AttemptScore 只统计可评分任务；总权重为 0 时得 0
func AttemptScore(activity *model.Activity, tasks []model.Task, ledger map[uint][]model.TaskResult) (float64, []TaskScore) {
	var earned, weight float64
	scores := make([]TaskScore, 0, len(tasks))
	for _, task := range tasks {
		if !task.Gradable {
			continue
		}
		s := ScoreTask(task, ledger[task.ID], activity.MultiVMScoring)
		earned += s.Earned
		weight += s.Weight
		scores = append(scores, s)
	}
	if weight == 0 {
		return 0, scores
	}
	return earned / weight * activity.MaxGrade, scores
}

// ApplyGradingMethod scores 按尝试创建顺序排列
func ApplyGradingMethod(method model.GradeMethod, scores []float64) (float64, error) {
	if !method.Valid() {
		return 0, fmt.Errorf("%w: %w: %d", util.ErrConfiguration, util.ErrUnknownGradeMethod, method)
	}
	if len(scores) == 0 {
		return 0, nil
	}

	switch method {
	case model.GradeFirst:
		return scores[0], nil
	case model.GradeLast:
		return scores[len(scores)-1], nil
	case model.GradeAverage:
		var sum float64
		for _, s := range scores {
			sum += s
		}
		return sum / float64(len(scores)), nil
	default:
		best := scores[0]
		for _, s := range scores[1:] {
			if s > best {
				best = s
			}
		}
		return best, nil
	}
}

// summarize 非多虚拟机任务只记一行 SUMMARY：全部成功为成功，有失败为失败，其余为 other
func summarize(results []model.ResultStatus) model.ResultStatus {
	if len(results) == 0 {
		return model.ResultOther
	}
	all := true
	for _, s := range results {
		if s == model.ResultFailed {
			return model.ResultFailed
		}
		if s != model.ResultSucceeded {
			all = false
		}
	}
	if all {
		return model.ResultSucceeded
	}
	return model.ResultOther
}
