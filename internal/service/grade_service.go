package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/repository"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/gradebook"
	"crucible_backend/pkg/monitoring"
	"crucible_backend/pkg/tracing"
	"fmt"

	"go.uber.org/zap"
)

// GradeService 由任务结果流水计算尝试分数与活动成绩。成绩是可重算的缓存，流水才是数据源
type GradeService struct {
	Activities ActivityStore
	Attempts   AttemptStore
	Tasks      TaskStore
	Results    TaskResultStore
	Grades     GradeStore
	Sink       gradebook.Sink
	Tx         Transactor
	Log        *zap.Logger
}

func NewGradeService(activities ActivityStore, attempts AttemptStore, tasks TaskStore, results TaskResultStore,
	grades GradeStore, sink gradebook.Sink, tx Transactor, log *zap.Logger) *GradeService {
	return &GradeService{
		Activities: activities,
		Attempts:   attempts,
		Tasks:      tasks,
		Results:    results,
		Grades:     grades,
		Sink:       sink,
		Tx:         tx,
		Log:        log,
	}
}

// CalculateTaskScore 单个任务在该尝试中的得分
func (s *GradeService) CalculateTaskScore(ctx context.Context, activity *model.Activity, attemptID uint, task *model.Task) (TaskScore, error) {
	rows, err := s.Results.ForTask(ctx, attemptID, task.ID)
	if err != nil {
		return TaskScore{}, err
	}
	return ScoreTask(*task, rows, activity.MultiVMScoring), nil
}

// CalculateAttemptGrade 计算并回写尝试分数。流水不变时结果不变
func (s *GradeService) CalculateAttemptGrade(ctx context.Context, activity *model.Activity, a *model.Attempt) (float64, error) {
	// 以库中最新状态为准，避免用过期的副本覆盖其他请求的状态迁移
	current, err := s.Attempts.FindByID(ctx, a.ID)
	if err != nil {
		return 0, err
	}

	tasks, err := s.Tasks.ListByActivity(ctx, activity.ID)
	if err != nil {
		return 0, err
	}
	rows, err := s.Results.ForAttempt(ctx, a.ID)
	if err != nil {
		return 0, err
	}

	ledger := make(map[uint][]model.TaskResult, len(tasks))
	for _, r := range rows {
		ledger[r.TaskID] = append(ledger[r.TaskID], r)
	}
	if current.IsOpen() {
		if err := s.backfill(ctx, current, tasks, ledger); err != nil {
			return 0, err
		}
	}

	score, _ := AttemptScore(activity, tasks, ledger)

	current.Score = &score
	if err := s.Attempts.Update(ctx, current); err != nil {
		return 0, err
	}
	*a = *current
	return score, nil
}

// backfill 进行中的尝试缺少任务占位行时补写
func (s *GradeService) backfill(ctx context.Context, a *model.Attempt, tasks []model.Task, ledger map[uint][]model.TaskResult) error {
	var missing []*model.TaskResult
	for _, t := range tasks {
		if len(ledger[t.ID]) > 0 {
			continue
		}
		s.Log.Warn("Backfilling missing task result row",
			zap.Uint("attempt_id", a.ID),
			zap.Uint("task_id", t.ID))
		missing = append(missing, &model.TaskResult{
			TaskID:    t.ID,
			AttemptID: a.ID,
			VMName:    model.SummaryVM,
			Status:    model.ResultPending,
		})
	}
	if err := s.Results.Append(ctx, missing...); err != nil {
		return err
	}
	for _, r := range missing {
		ledger[r.TaskID] = append(ledger[r.TaskID], *r)
	}
	return nil
}

// ComputeActivityGrade 按活动的评分方式合并该用户全部有分数的尝试，不写库
func (s *GradeService) ComputeActivityGrade(ctx context.Context, activityID, userID uint) (float64, error) {
	activity, err := s.Activities.FindByID(ctx, activityID)
	if err != nil {
		return 0, err
	}
	return s.activityGrade(ctx, activity, userID)
}

func (s *GradeService) activityGrade(ctx context.Context, activity *model.Activity, userID uint) (float64, error) {
	attempts, err := s.Attempts.List(ctx, repository.AttemptFilter{
		ActivityID: activity.ID,
		UserID:     userID,
		State:      util.FilterAll,
	})
	if err != nil {
		return 0, err
	}

	scores := make([]float64, 0, len(attempts))
	for _, a := range attempts {
		if a.Score == nil || a.State == model.AttemptAbandoned {
			continue
		}
		scores = append(scores, *a.Score)
	}
	return ApplyGradingMethod(activity.GradeMethod, scores)
}

// ProcessAttempt 重算尝试分数，再为该尝试的每个参与者重算活动成绩并推送成绩册。
// 每个用户的成绩写入与推送在同一事务中，推送失败则回滚本地成绩
func (s *GradeService) ProcessAttempt(ctx context.Context, a *model.Attempt) (score float64, err error) {
	ctx, span := tracing.Start(ctx, "grade.process_attempt")
	defer func() { tracing.End(span, err) }()

	activity, err := s.Activities.FindByID(ctx, a.ActivityID)
	if err != nil {
		return 0, err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		score, err = s.CalculateAttemptGrade(ctx, activity, a)
		return err
	})
	if err != nil {
		return 0, err
	}

	users, err := s.Attempts.UserIDs(ctx, a.ID)
	if err != nil {
		return score, err
	}
	for _, userID := range users {
		if _, err := s.pushGrade(ctx, activity, userID); err != nil {
			return score, err
		}
	}
	return score, nil
}

func (s *GradeService) pushGrade(ctx context.Context, activity *model.Activity, userID uint) (float64, error) {
	var value float64
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := s.activityGrade(ctx, activity, userID)
		if err != nil {
			return err
		}
		value = v

		if err := s.Grades.Upsert(ctx, &model.Grade{ActivityID: activity.ID, UserID: userID, Value: v}); err != nil {
			return err
		}
		if err := s.Sink.UpdateGrade(ctx, activity.ID, userID, v); err != nil {
			monitoring.GradePushes.WithLabelValues("failed").Inc()
			return externalError("gradebook", "update_grade", err)
		}
		monitoring.GradePushes.WithLabelValues("ok").Inc()
		return nil
	})
	if err != nil {
		s.Log.Warn("Grade not saved",
			zap.Uint("activity_id", activity.ID),
			zap.Uint("user_id", userID),
			zap.Error(err))
		return 0, err
	}
	return value, nil
}

// OverrideResult 教师改分，唯一的原地修改流水的入口；score 为空时按任务分值推导
func (s *GradeService) OverrideResult(ctx context.Context, resultID uint, status model.ResultStatus, score *float64, comment string) (*model.TaskResult, error) {
	if status != model.ResultSucceeded && status != model.ResultFailed {
		return nil, fmt.Errorf("%w: override status must be %s or %s", util.ErrInvalidInput, model.ResultSucceeded, model.ResultFailed)
	}

	r, err := s.Results.FindByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	task, err := s.Tasks.FindByID(ctx, r.TaskID)
	if err != nil {
		return nil, err
	}

	r.Status = status
	r.Comment = comment
	switch {
	case score != nil:
		r.Score = *score
	case status == model.ResultSucceeded:
		r.Score = task.Points
	default:
		r.Score = 0
	}
	if err := s.Results.Update(ctx, r); err != nil {
		return nil, err
	}

	a, err := s.Attempts.FindByID(ctx, r.AttemptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ProcessAttempt(ctx, a); err != nil {
		return r, err
	}
	return r, nil
}

// RegradeActivity 由流水重算活动下所有尝试分数与用户成绩，返回重算的用户数
func (s *GradeService) RegradeActivity(ctx context.Context, activityID uint) (int, error) {
	activity, err := s.Activities.FindByID(ctx, activityID)
	if err != nil {
		return 0, err
	}
	attempts, err := s.Attempts.List(ctx, repository.AttemptFilter{ActivityID: activityID, State: util.FilterAll})
	if err != nil {
		return 0, err
	}

	seen := make(map[uint]bool)
	var users []uint
	for i := range attempts {
		a := &attempts[i]
		if a.State == model.AttemptAbandoned || a.State == model.AttemptNotStarted {
			continue
		}
		err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.CalculateAttemptGrade(ctx, activity, a)
			return err
		})
		if err != nil {
			return 0, err
		}
		ids, err := s.Attempts.UserIDs(ctx, a.ID)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				users = append(users, id)
			}
		}
	}

	for _, userID := range users {
		if _, err := s.pushGrade(ctx, activity, userID); err != nil {
			return 0, err
		}
	}
	s.Log.Info("Activity regraded", zap.Uint("activity_id", activityID), zap.Int("users", len(users)))
	return len(users), nil
}

// ResetActivity 删除活动下的全部尝试、流水与成绩
func (s *GradeService) ResetActivity(ctx context.Context, activityID uint) error {
	if _, err := s.Activities.FindByID(ctx, activityID); err != nil {
		return err
	}
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Results.DeleteByActivity(ctx, activityID); err != nil {
			return err
		}
		if err := s.Attempts.DeleteByActivity(ctx, activityID); err != nil {
			return err
		}
		return s.Grades.DeleteByActivity(ctx, activityID)
	})
	if err != nil {
		return err
	}
	s.Log.Info("Activity data reset", zap.Uint("activity_id", activityID))
	return nil
}

// ListGrades 活动下全部用户成绩
func (s *GradeService) ListGrades(ctx context.Context, activityID uint) ([]model.Grade, error) {
	return s.Grades.ListByActivity(ctx, activityID)
}
