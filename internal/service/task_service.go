package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/steamfitter"
	"fmt"

	"go.uber.org/zap"
)

// TaskSettings 教师可修改的评分配置
type TaskSettings struct {
	Points   *float64 `json:"points"`
	Visible  *bool    `json:"visible"`
	Gradable *bool    `json:"gradable"`
	Multiple *bool    `json:"multiple"`
}

type TaskService struct {
	Activities ActivityStore
	Tasks      TaskStore
	Runner     TaskRunner
	Log        *zap.Logger
}

func NewTaskService(activities ActivityStore, tasks TaskStore, runner TaskRunner, log *zap.Logger) *TaskService {
	return &TaskService{Activities: activities, Tasks: tasks, Runner: runner, Log: log}
}

// SyncTasks 拉取模板任务并合并到本地：名称描述以上游为准，评分配置保留本地值。
// 新任务默认不可见、不评分、非多虚拟机、1 分
func (s *TaskService) SyncTasks(ctx context.Context, activityID uint) ([]model.Task, error) {
	activity, err := s.Activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.ScenarioTemplateID == "" {
		return nil, fmt.Errorf("%w: activity %d has no scenario template", util.ErrInvalidInput, activityID)
	}

	upstream, err := s.Runner.ListTemplateTasks(ctx, activity.ScenarioTemplateID)
	if err != nil {
		return nil, externalError("steamfitter", "list_template_tasks", err)
	}

	local, err := s.Tasks.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	byExternal := make(map[string]*model.Task, len(local))
	for i := range local {
		byExternal[local[i].ExternalTaskID] = &local[i]
	}

	created := 0
	for _, ut := range upstream {
		t, ok := byExternal[ut.ID]
		if !ok {
			t = &model.Task{
				ActivityID:     activityID,
				ExternalTaskID: ut.ID,
				Points:         1,
			}
			created++
		}
		t.Name = ut.Name
		t.Description = ut.Description
		t.ScenarioTemplateID = templateOf(ut, activity.ScenarioTemplateID)
		if err := s.Tasks.Save(ctx, t); err != nil {
			return nil, err
		}
	}

	s.Log.Info("Tasks synchronized",
		zap.Uint("activity_id", activityID),
		zap.Int("upstream", len(upstream)),
		zap.Int("created", created))
	return s.Tasks.ListByActivity(ctx, activityID)
}

func templateOf(t steamfitter.Task, fallback string) string {
	if t.ScenarioTemplateID != nil && *t.ScenarioTemplateID != "" {
		return *t.ScenarioTemplateID
	}
	return fallback
}

func (s *TaskService) UpdateTask(ctx context.Context, taskID uint, in TaskSettings) (*model.Task, error) {
	t, err := s.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if in.Points != nil {
		if *in.Points < 0 {
			return nil, fmt.Errorf("%w: points must not be negative", util.ErrInvalidInput)
		}
		t.Points = *in.Points
	}
	if in.Visible != nil {
		t.Visible = *in.Visible
	}
	if in.Gradable != nil {
		t.Gradable = *in.Gradable
	}
	if in.Multiple != nil {
		t.Multiple = *in.Multiple
	}
	if err := s.Tasks.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks visibleOnly 为 true 时只返回学生可见的任务
func (s *TaskService) ListTasks(ctx context.Context, activityID uint, visibleOnly bool) ([]model.Task, error) {
	tasks, err := s.Tasks.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !visibleOnly {
		return tasks, nil
	}
	visible := tasks[:0]
	for _, t := range tasks {
		if t.Visible {
			visible = append(visible, t)
		}
	}
	return visible, nil
}
