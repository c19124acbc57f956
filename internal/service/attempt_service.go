package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/repository"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/alloy"
	"crucible_backend/pkg/monitoring"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultSessionDuration = 8 * time.Hour

// AttemptService 尝试状态机：notstarted -> inprogress -> finished / abandoned
type AttemptService struct {
	Attempts AttemptStore
	Results  TaskResultStore
	Tasks    TaskStore
	Tx       Transactor
	Log      *zap.Logger

	now            func() time.Time
	defaultSession atomic.Int64
}

func NewAttemptService(attempts AttemptStore, results TaskResultStore, tasks TaskStore, tx Transactor, log *zap.Logger) *AttemptService {
	s := &AttemptService{
		Attempts: attempts,
		Results:  results,
		Tasks:    tasks,
		Tx:       tx,
		Log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.defaultSession.Store(int64(defaultSessionDuration))
	return s
}

// SetDefaultSession 外部事件没有过期时间时使用的会话时长
func (s *AttemptService) SetDefaultSession(d time.Duration) {
	if d <= 0 {
		d = defaultSessionDuration
	}
	s.defaultSession.Store(int64(d))
}

func (s *AttemptService) DefaultSession() time.Duration {
	return time.Duration(s.defaultSession.Load())
}

// OpenAttempt 返回唯一进行中的尝试。requestedID 非 0 时按 id 查找而不是按用户。
// 查到多条属于数据完整性问题，直接报错而不是任选一条
func (s *AttemptService) OpenAttempt(ctx context.Context, userID, activityID, requestedID uint) (*model.Attempt, error) {
	if requestedID != 0 {
		a, err := s.Attempts.FindByID(ctx, requestedID)
		if err != nil {
			return nil, err
		}
		if a.ActivityID != activityID || !a.IsOpen() {
			return nil, util.ErrAttemptNotFound
		}
		return a, nil
	}

	attempts, err := s.Attempts.FindOpen(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	switch len(attempts) {
	case 0:
		return nil, util.ErrAttemptNotFound
	case 1:
		return &attempts[0], nil
	}

	ids := make([]uint, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.ID)
	}
	s.Log.Warn("Multiple open attempts found",
		zap.Uint("user_id", userID),
		zap.Uint("activity_id", activityID),
		zap.Uints("attempt_ids", ids))
	return nil, util.Integrity(util.ErrDuplicateOpenAttempts, "user %d activity %d has %d open attempts", userID, activityID, len(attempts))
}

// applyEvent 把事件信息写入尝试，返回是否有变化。
// allowDefault 为 true 且事件没有过期时间时，结束时间取 now + 默认时长
func (s *AttemptService) applyEvent(a *model.Attempt, ev *alloy.Event, allowDefault bool) bool {
	changed := false
	if a.EventID == nil && ev.ID != "" {
		id := ev.ID
		a.EventID = &id
		changed = true
	}
	if a.ScenarioID == nil && ev.ScenarioID != nil && *ev.ScenarioID != "" {
		id := *ev.ScenarioID
		a.ScenarioID = &id
		changed = true
	}

	if exp := ev.Expiration(); exp != nil {
		if a.EndTime == nil || !a.EndTime.Equal(*exp) {
			end := *exp
			a.EndTime = &end
			changed = true
		}
	} else if allowDefault && a.EndTime == nil {
		end := s.now().Add(s.DefaultSession())
		a.EndTime = &end
		changed = true
		s.Log.Warn("Event has no expiration, using default session length",
			zap.String("event_id", ev.ID),
			zap.Uint("attempt_id", a.ID),
			zap.Duration("session", s.DefaultSession()))
	}
	return changed
}

// Reconcile 用外部事件补全尝试的事件 id、场景 id 与结束时间。保存失败时尝试恢复原值
func (s *AttemptService) Reconcile(ctx context.Context, a *model.Attempt, ev *alloy.Event) error {
	before := *a
	if !s.applyEvent(a, ev, true) {
		return nil
	}
	if err := s.Attempts.Update(ctx, a); err != nil {
		*a = before
		return err
	}
	return nil
}

// StartAttempt 创建进行中的尝试，并为每个任务写入一行 SUMMARY 占位结果
func (s *AttemptService) StartAttempt(ctx context.Context, userID, activityID uint, ev *alloy.Event) (*model.Attempt, error) {
	a := &model.Attempt{
		UserID:     userID,
		ActivityID: activityID,
		State:      model.AttemptNotStarted,
	}

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		open, err := s.Attempts.FindOpen(ctx, userID, activityID)
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return util.ErrAttemptAlreadyOpen
		}

		if !a.State.CanTransition(model.AttemptInProgress) {
			return util.ErrAttemptClosed
		}
		a.State = model.AttemptInProgress
		a.StartedAt = s.now()
		switch {
		case ev == nil:
		case ev.Status == alloy.StatusActive:
			s.applyEvent(a, ev, false)
		default:
			// 部署中的事件只绑定 id，结束时间等事件进入 Active 后再写入
			s.applyEvent(a, &alloy.Event{ID: ev.ID}, false)
		}
		// 唯一索引兜底并发创建
		if err := s.Attempts.Create(ctx, a); err != nil {
			return err
		}

		tasks, err := s.Tasks.ListByActivity(ctx, activityID)
		if err != nil {
			return err
		}
		placeholders := make([]*model.TaskResult, 0, len(tasks))
		for _, t := range tasks {
			placeholders = append(placeholders, &model.TaskResult{
				TaskID:    t.ID,
				AttemptID: a.ID,
				VMName:    model.SummaryVM,
				Status:    model.ResultPending,
			})
		}
		return s.Results.Append(ctx, placeholders...)
	})
	if err != nil {
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	s.Log.Info("Attempt started",
		zap.Uint("attempt_id", a.ID),
		zap.Uint("user_id", userID),
		zap.Uint("activity_id", activityID))
	return a, nil
}

// CloseAttempt 置为 finished。已经 finished 时不做任何修改
func (s *AttemptService) CloseAttempt(ctx context.Context, a *model.Attempt) error {
	return s.terminate(ctx, a, model.AttemptFinished)
}

// AbandonAttempt 事件丢失且无法恢复的尝试
func (s *AttemptService) AbandonAttempt(ctx context.Context, a *model.Attempt) error {
	return s.terminate(ctx, a, model.AttemptAbandoned)
}

func (s *AttemptService) terminate(ctx context.Context, a *model.Attempt, to model.AttemptState) error {
	var changed bool
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// 重新读取，避免共享同一尝试的其他用户已经关闭
		current, err := s.Attempts.FindByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if current.State == to {
			*a = *current
			return nil
		}
		if !current.State.CanTransition(to) {
			*a = *current
			return util.ErrAttemptClosed
		}

		next := *current
		next.State = to
		if to == model.AttemptFinished {
			now := s.now()
			next.FinishedAt = &now
		}
		if err := s.Attempts.Update(ctx, &next); err != nil {
			return err
		}
		*a = next
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		monitoring.AttemptsClosed.WithLabelValues(string(to)).Inc()
		s.Log.Info("Attempt closed",
			zap.Uint("attempt_id", a.ID),
			zap.String("state", string(to)))
	}
	return nil
}

// History 某活动下的尝试列表，userID 为 0 时返回全部用户
func (s *AttemptService) History(ctx context.Context, activityID, userID uint, filter string) ([]model.Attempt, error) {
	return s.Attempts.List(ctx, repository.AttemptFilter{
		ActivityID: activityID,
		UserID:     userID,
		State:      util.ValidFilter(filter),
	})
}

// IsParticipant 拥有者或加入者
func (s *AttemptService) IsParticipant(ctx context.Context, a *model.Attempt, userID uint) (bool, error) {
	if a.UserID == userID {
		return true, nil
	}
	users, err := s.Attempts.UserIDs(ctx, a.ID)
	if err != nil {
		return false, err
	}
	for _, id := range users {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, util.ErrAttemptNotFound)
}
