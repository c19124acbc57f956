package service

import (
	"context"
	"crucible_backend/internal/config"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/alloy"
	"crucible_backend/pkg/monitoring"
	"crucible_backend/pkg/steamfitter"
	"crucible_backend/pkg/tracing"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// LabStatus tick 返回给轮询端的状态
type LabStatus string

const (
	// LabIdle 没有进行中的尝试，也没有可接管的事件
	LabIdle      LabStatus = "idle"
	LabLaunching LabStatus = "launching"
	LabActive    LabStatus = "active"
	LabEnding    LabStatus = "ending"
	// LabEnded 本次调用关闭了尝试
	LabEnded LabStatus = "ended"
	// LabWait 外部服务暂时不可用，保持当前状态，下次轮询再试
	LabWait LabStatus = "wait"
)

// LabUser 当前请求的用户；Username 是 Alloy 中的用户标识
type LabUser struct {
	ID       uint
	Username string
}

type TickResult struct {
	Status  LabStatus      `json:"status"`
	Attempt *model.Attempt `json:"attempt,omitempty"`
	Event   *alloy.Event   `json:"event,omitempty"`
	Score   *float64       `json:"score,omitempty"`
}

type RunResult struct {
	Status  model.ResultStatus `json:"status"`
	Results []model.TaskResult `json:"results"`
	Score   *float64           `json:"score,omitempty"`
	Task    TaskScore          `json:"task"`
}

// LabService 把 Alloy 事件的生命周期映射到尝试状态机。每次调用只读写持久化状态，不在进程内保留会话
type LabService struct {
	Activities ActivityStore
	Tasks      TaskStore
	Results    TaskResultStore
	Attempts   *AttemptService
	Grades     *GradeService
	Alloy      Orchestrator
	Runner     TaskRunner
	Locker     Locker
	Tx         Transactor
	Log        *zap.Logger

	now      func() time.Time
	extendBy atomic.Int64
	lockWait atomic.Int64
}

func NewLabService(activities ActivityStore, tasks TaskStore, results TaskResultStore,
	attempts *AttemptService, grades *GradeService, orchestrator Orchestrator, runner TaskRunner,
	locker Locker, tx Transactor, log *zap.Logger) *LabService {
	s := &LabService{
		Activities: activities,
		Tasks:      tasks,
		Results:    results,
		Attempts:   attempts,
		Grades:     grades,
		Alloy:      orchestrator,
		Runner:     runner,
		Locker:     locker,
		Tx:         tx,
		Log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.extendBy.Store(int64(time.Hour))
	s.lockWait.Store(int64(15 * time.Second))
	return s
}

// ApplyConfig 启动及配置文件变更时调用
func (s *LabService) ApplyConfig(cfg config.LabConfig) {
	s.Attempts.SetDefaultSession(cfg.DefaultSession())
	if d := cfg.ExtendBy(); d > 0 {
		s.extendBy.Store(int64(d))
	}
	if d := cfg.CallTimeout(); d > 0 {
		s.lockWait.Store(int64(d))
		for _, c := range []interface{}{s.Alloy, s.Runner} {
			if ts, ok := c.(timeoutSetter); ok {
				ts.SetTimeout(d)
			}
		}
	}
	s.Log.Info("Lab settings applied",
		zap.Duration("default_session", s.Attempts.DefaultSession()),
		zap.Duration("call_timeout", cfg.CallTimeout()),
		zap.Duration("extend_by", time.Duration(s.extendBy.Load())))
}

func (s *LabService) lock(ctx context.Context, userID, activityID uint) (func(), error) {
	return s.acquire(ctx, lockKey(userID, activityID))
}

// lockAttempt 在 (user, activity) 锁之内获取，顺序固定
func (s *LabService) lockAttempt(ctx context.Context, attemptID uint) (func(), error) {
	return s.acquire(ctx, attemptLockKey(attemptID))
}

func (s *LabService) acquire(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.lockWait.Load()))
	defer cancel()
	return s.Locker.Lock(ctx, key)
}

// reload 等待尝试锁期间，其他参与者可能已经关闭了该尝试
func (s *LabService) reload(ctx context.Context, a *model.Attempt) error {
	current, err := s.Attempts.Attempts.FindByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = *current
	return nil
}

func (s *LabService) participantAttempt(ctx context.Context, user LabUser, activityID, attemptID uint) (*model.Attempt, error) {
	a, err := s.Attempts.OpenAttempt(ctx, user.ID, activityID, attemptID)
	if err != nil {
		return nil, err
	}
	if attemptID != 0 {
		ok, err := s.Attempts.IsParticipant(ctx, a, user.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrNotParticipant
		}
	}
	return a, nil
}

// Tick 轮询入口，幂等：读取外部事件状态并驱动尝试的状态迁移
func (s *LabService) Tick(ctx context.Context, user LabUser, activityID, attemptID uint) (res *TickResult, err error) {
	ctx, span := tracing.Start(ctx, "lab.tick")
	defer func() { tracing.End(span, err) }()

	activity, err := s.Activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, user.ID, activityID)
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return &TickResult{Status: LabWait}, nil
		}
		return nil, err
	}
	defer unlock()

	res, err = s.tick(ctx, user, activity, attemptID)
	if err != nil && retryLater(err) {
		s.Log.Warn("Tick deferred", zap.Uint("activity_id", activityID), zap.Uint("user_id", user.ID), zap.Error(err))
		if res == nil {
			res = &TickResult{Status: LabWait}
		}
		res.Status = LabWait
		return res, nil
	}
	return res, err
}

func (s *LabService) tick(ctx context.Context, user LabUser, activity *model.Activity, attemptID uint) (*TickResult, error) {
	a, err := s.participantAttempt(ctx, user, activity.ID, attemptID)
	if err != nil {
		if isNotFound(err) && attemptID == 0 {
			return s.discover(ctx, user, activity)
		}
		return nil, err
	}

	release, err := s.lockAttempt(ctx, a.ID)
	if err != nil {
		return &TickResult{Status: LabWait, Attempt: a}, err
	}
	defer release()
	if err := s.reload(ctx, a); err != nil {
		return nil, err
	}
	if !a.IsOpen() {
		return &TickResult{Status: LabEnded, Attempt: a, Score: a.Score}, nil
	}

	if a.EventID == nil {
		return s.rebind(ctx, user, activity, a)
	}

	ev, err := s.Alloy.GetEvent(ctx, *a.EventID)
	if err != nil {
		if errors.Is(err, alloy.ErrNotFound) {
			// 事件已不存在
			return s.finish(ctx, a, nil, false)
		}
		return &TickResult{Status: LabWait, Attempt: a}, externalError("alloy", "get_event", err)
	}
	if ev.Status.IsTerminal() {
		return s.finish(ctx, a, ev, false)
	}
	if ev.Status.IsLaunching() {
		return &TickResult{Status: LabLaunching, Attempt: a, Event: ev}, nil
	}

	if err := s.Attempts.Reconcile(ctx, a, ev); err != nil {
		return nil, err
	}
	if a.Expired(s.now()) {
		return s.finish(ctx, a, ev, true)
	}
	if ev.Status == alloy.StatusEnding {
		return &TickResult{Status: LabEnding, Attempt: a, Event: ev, Score: a.Score}, nil
	}
	return &TickResult{Status: LabActive, Attempt: a, Event: ev, Score: a.Score}, nil
}

// discover 本地没有进行中的尝试时，查找该用户在 Alloy 上的事件
func (s *LabService) discover(ctx context.Context, user LabUser, activity *model.Activity) (*TickResult, error) {
	ev, err := s.liveEvent(ctx, user, activity)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return &TickResult{Status: LabIdle}, nil
	}
	if ev.Status.IsLaunching() {
		return &TickResult{Status: LabLaunching, Event: ev}, nil
	}
	if ev.Status != alloy.StatusActive {
		return &TickResult{Status: LabEnding, Event: ev}, nil
	}

	a, err := s.Attempts.StartAttempt(ctx, user.ID, activity.ID, ev)
	if errors.Is(err, util.ErrAttemptAlreadyOpen) {
		// 其他实例抢先创建
		a, err = s.Attempts.OpenAttempt(ctx, user.ID, activity.ID, 0)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Attempts.Reconcile(ctx, a, ev); err != nil {
		return nil, err
	}
	return &TickResult{Status: LabActive, Attempt: a, Event: ev}, nil
}

// rebind 进行中的尝试没有关联事件：能找到事件则绑定，否则放弃该尝试
func (s *LabService) rebind(ctx context.Context, user LabUser, activity *model.Activity, a *model.Attempt) (*TickResult, error) {
	ev, err := s.liveEvent(ctx, user, activity)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		s.Log.Warn("Open attempt has no event, abandoning", zap.Uint("attempt_id", a.ID))
		if err := s.Attempts.AbandonAttempt(ctx, a); err != nil {
			return nil, err
		}
		return &TickResult{Status: LabIdle, Attempt: a}, nil
	}
	if ev.Status.IsLaunching() {
		return &TickResult{Status: LabLaunching, Attempt: a, Event: ev}, nil
	}
	if err := s.Attempts.Reconcile(ctx, a, ev); err != nil {
		return nil, err
	}
	return &TickResult{Status: LabActive, Attempt: a, Event: ev, Score: a.Score}, nil
}

// liveEvent 优先返回 Active 事件，其次是部署中的事件。不可接管的事件跳过
func (s *LabService) liveEvent(ctx context.Context, user LabUser, activity *model.Activity) (*alloy.Event, error) {
	events, err := s.Alloy.ListEvents(ctx, activity.EventTemplateID, user.Username)
	if err != nil {
		return nil, externalError("alloy", "list_events", err)
	}
	var live *alloy.Event
	for i := range events {
		ev := &events[i]
		if ev.Status.IsTerminal() {
			continue
		}
		ok, err := s.claimable(ctx, activity, ev)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if ev.Status == alloy.StatusActive {
			return ev, nil
		}
		if live == nil {
			live = ev
		}
	}
	return live, nil
}

// claimable 事件未过期，且本活动下没有尝试绑定过它（包括已结束的尝试）
func (s *LabService) claimable(ctx context.Context, activity *model.Activity, ev *alloy.Event) (bool, error) {
	if exp := ev.Expiration(); exp != nil && !exp.After(s.now()) {
		if ev.Status == alloy.StatusActive {
			// 上次结束事件失败，重试
			s.endEvent(ctx, ev.ID)
		}
		return false, nil
	}
	bound, err := s.Attempts.Attempts.FindByEvent(ctx, activity.ID, ev.ID)
	if err != nil {
		return false, err
	}
	return len(bound) == 0, nil
}

// endEvent 结束过期事件，失败只记录，下次轮询重试
func (s *LabService) endEvent(ctx context.Context, eventID string) {
	if err := s.Alloy.EndEvent(ctx, eventID); err != nil && !errors.Is(err, alloy.ErrNotFound) {
		s.Log.Warn("Failed to end expired event", zap.String("event_id", eventID), zap.Error(err))
	}
}

// abandon 事件从未进入 Active 的尝试不评分，置为 abandoned
func (s *LabService) abandon(ctx context.Context, a *model.Attempt, ev *alloy.Event) (*TickResult, error) {
	s.Log.Warn("Event never became active, abandoning attempt",
		zap.Uint("attempt_id", a.ID),
		zap.Stringp("event_id", a.EventID))
	if err := s.Attempts.AbandonAttempt(ctx, a); err != nil {
		return nil, err
	}
	return &TickResult{Status: LabEnded, Attempt: a, Event: ev}, nil
}

// finish 先评分再关闭；endEvent 为 true 时再请求 Alloy 结束事件（会话到期）
func (s *LabService) finish(ctx context.Context, a *model.Attempt, ev *alloy.Event, endEvent bool) (*TickResult, error) {
	if !a.Provisioned() {
		return s.abandon(ctx, a, ev)
	}
	score, err := s.Grades.ProcessAttempt(ctx, a)
	if err != nil {
		return &TickResult{Status: LabWait, Attempt: a, Event: ev}, err
	}
	if err := s.Attempts.CloseAttempt(ctx, a); err != nil {
		return nil, err
	}

	if endEvent && a.EventID != nil {
		s.endEvent(ctx, *a.EventID)
	}
	return &TickResult{Status: LabEnded, Attempt: a, Event: ev, Score: &score}, nil
}

// LaunchLab 创建 Alloy 事件并立即创建绑定该事件的尝试。
// 事件进入 Active 之前就结束或失败的，该尝试按 abandoned 处理，不计入成绩
func (s *LabService) LaunchLab(ctx context.Context, user LabUser, activityID uint) (*TickResult, error) {
	activity, err := s.Activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.IsAvailable(s.now()) {
		return nil, util.ErrActivityNotAvailable
	}

	unlock, err := s.lock(ctx, user.ID, activityID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.Attempts.OpenAttempt(ctx, user.ID, activityID, 0)
	if err == nil {
		return &TickResult{Status: LabActive, Attempt: existing}, util.ErrAttemptAlreadyOpen
	}
	if !isNotFound(err) {
		return nil, err
	}

	ev, err := s.Alloy.CreateEvent(ctx, activity.EventTemplateID)
	if err != nil {
		return nil, externalError("alloy", "create_event", err)
	}

	a, err := s.Attempts.StartAttempt(ctx, user.ID, activityID, ev)
	if err != nil {
		// 不留下没有尝试对应的事件
		if endErr := s.Alloy.EndEvent(ctx, ev.ID); endErr != nil {
			s.Log.Warn("Failed to end orphan event", zap.String("event_id", ev.ID), zap.Error(endErr))
		}
		return nil, err
	}

	if ev.Status != alloy.StatusActive {
		return &TickResult{Status: LabLaunching, Attempt: a, Event: ev}, nil
	}
	if err := s.Attempts.Reconcile(ctx, a, ev); err != nil {
		return nil, err
	}
	return &TickResult{Status: LabActive, Attempt: a, Event: ev}, nil
}

// StopLab 用户主动结束：评分、关闭、结束事件。任何一步失败都返回给调用方
func (s *LabService) StopLab(ctx context.Context, user LabUser, activityID, attemptID uint) (*TickResult, error) {
	unlock, err := s.lock(ctx, user.ID, activityID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, err := s.participantAttempt(ctx, user, activityID, attemptID)
	if err != nil {
		return nil, err
	}
	release, err := s.lockAttempt(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	defer release()
	if err := s.reload(ctx, a); err != nil {
		return nil, err
	}
	if !a.IsOpen() {
		return nil, util.ErrAttemptClosed
	}

	var ev *alloy.Event
	if a.EventID != nil {
		ev, err = s.Alloy.GetEvent(ctx, *a.EventID)
		if err != nil && !errors.Is(err, alloy.ErrNotFound) {
			return nil, externalError("alloy", "get_event", err)
		}
	}

	var res *TickResult
	if !a.Provisioned() && (ev == nil || ev.Status != alloy.StatusActive) {
		if res, err = s.abandon(ctx, a, ev); err != nil {
			return nil, err
		}
	} else {
		score, err := s.Grades.ProcessAttempt(ctx, a)
		if err != nil {
			return nil, err
		}
		if err := s.Attempts.CloseAttempt(ctx, a); err != nil {
			return nil, err
		}
		res = &TickResult{Status: LabEnded, Attempt: a, Event: ev, Score: &score}
	}

	if ev != nil && !ev.Status.IsTerminal() {
		if err := s.Alloy.EndEvent(ctx, ev.ID); err != nil {
			return res, externalError("alloy", "end_event", err)
		}
	}
	return res, nil
}

// ExtendLab 活动允许时延长事件过期时间，并同步尝试的结束时间
func (s *LabService) ExtendLab(ctx context.Context, user LabUser, activityID uint) (*TickResult, error) {
	activity, err := s.Activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.ExtendEvent {
		return nil, util.ErrExtendNotAllowed
	}

	unlock, err := s.lock(ctx, user.ID, activityID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, err := s.Attempts.OpenAttempt(ctx, user.ID, activityID, 0)
	if err != nil {
		return nil, err
	}
	if a.EventID == nil {
		return nil, util.ErrEventNotActive
	}
	ev, err := s.Alloy.GetEvent(ctx, *a.EventID)
	if err != nil {
		return nil, externalError("alloy", "get_event", err)
	}
	if ev.Status != alloy.StatusActive {
		return nil, util.ErrEventNotActive
	}

	base := s.now()
	if exp := ev.Expiration(); exp != nil && exp.After(base) {
		base = *exp
	}
	extended, err := s.Alloy.ExtendEvent(ctx, ev.ID, base.Add(time.Duration(s.extendBy.Load())))
	if err != nil {
		return nil, externalError("alloy", "extend_event", err)
	}
	if err := s.Attempts.Reconcile(ctx, a, extended); err != nil {
		return nil, err
	}
	return &TickResult{Status: LabActive, Attempt: a, Event: extended, Score: a.Score}, nil
}

// ShareCode 为进行中尝试的事件生成分享码
func (s *LabService) ShareCode(ctx context.Context, user LabUser, activityID uint) (string, error) {
	a, err := s.Attempts.OpenAttempt(ctx, user.ID, activityID, 0)
	if err != nil {
		return "", err
	}
	if a.EventID == nil {
		return "", util.ErrEventNotActive
	}
	code, err := s.Alloy.GenerateShareCode(ctx, *a.EventID)
	if err != nil {
		return "", externalError("alloy", "generate_share_code", err)
	}
	return code, nil
}

// JoinLab 通过分享码加入他人的事件，记为该尝试的参与者
func (s *LabService) JoinLab(ctx context.Context, user LabUser, activityID uint, code string) (*model.Attempt, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: share code is required", util.ErrInvalidInput)
	}

	unlock, err := s.lock(ctx, user.ID, activityID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	eventID, err := s.Alloy.Enlist(ctx, code)
	if err != nil {
		return nil, externalError("alloy", "enlist", err)
	}

	attempts, err := s.Attempts.Attempts.FindOpenByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	switch {
	case len(attempts) == 0:
		return nil, util.ErrAttemptNotFound
	case len(attempts) > 1:
		return nil, util.Integrity(util.ErrDuplicateOpenAttempts, "event %s has %d open attempts", eventID, len(attempts))
	}
	a := &attempts[0]
	if a.ActivityID != activityID {
		return nil, util.ErrAttemptNotFound
	}

	own, err := s.Attempts.OpenAttempt(ctx, user.ID, activityID, 0)
	switch {
	case err == nil && own.ID == a.ID:
		return a, nil
	case err == nil:
		return nil, util.ErrAttemptAlreadyOpen
	case !isNotFound(err):
		return nil, err
	}

	if err := s.Attempts.Attempts.AddUser(ctx, a.ID, user.ID); err != nil {
		return nil, err
	}
	s.Log.Info("User joined attempt", zap.Uint("attempt_id", a.ID), zap.Uint("user_id", user.ID))
	return a, nil
}

// RunTaskAndRecord 执行任务，结果追加到流水后重算成绩。
// 尝试只在开始时检查是否进行中；执行期间被关闭的，结果照常记录
func (s *LabService) RunTaskAndRecord(ctx context.Context, user LabUser, attemptID, taskID uint) (res *RunResult, err error) {
	ctx, span := tracing.Start(ctx, "lab.run_task")
	defer func() { tracing.End(span, err) }()

	a, err := s.Attempts.Attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	ok, err := s.Attempts.IsParticipant(ctx, a, user.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotParticipant
	}
	if !a.IsOpen() {
		return nil, util.ErrAttemptClosed
	}

	task, err := s.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ActivityID != a.ActivityID {
		return nil, util.ErrTaskNotFound
	}
	activity, err := s.Activities.FindByID(ctx, a.ActivityID)
	if err != nil {
		return nil, err
	}

	externalID, err := s.scenarioTaskID(ctx, a, task)
	if err != nil {
		return nil, err
	}
	results, err := s.Runner.ExecuteTask(ctx, externalID)
	if err != nil {
		return nil, externalError("steamfitter", "execute_task", err)
	}

	rows, err := s.record(ctx, a, task, results)
	if err != nil {
		return nil, err
	}

	res = &RunResult{Results: rows}
	if task.Multiple {
		statuses := make([]model.ResultStatus, 0, len(rows))
		for _, r := range rows {
			statuses = append(statuses, r.Status)
		}
		res.Status = summarize(statuses)
	} else if len(rows) > 0 {
		res.Status = rows[0].Status
	}

	ts, err := s.Grades.CalculateTaskScore(ctx, activity, a.ID, task)
	if err != nil {
		s.Log.Warn("Task score unavailable after task run",
			zap.Uint("attempt_id", a.ID),
			zap.Uint("task_id", task.ID),
			zap.Error(err))
	}
	res.Task = ts
	// 流水已落库，成绩失败可以之后由流水重算
	score, err := s.Grades.ProcessAttempt(ctx, a)
	if err != nil {
		s.Log.Warn("Grade recomputation failed after task run",
			zap.Uint("attempt_id", a.ID),
			zap.Uint("task_id", task.ID),
			zap.Error(err))
		return res, nil
	}
	res.Score = &score
	return res, nil
}

// scenarioTaskID 模板任务在场景实例中有新的 id，按名称对应
func (s *LabService) scenarioTaskID(ctx context.Context, a *model.Attempt, task *model.Task) (string, error) {
	if a.ScenarioID == nil {
		return task.ExternalTaskID, nil
	}
	tasks, err := s.Runner.ListScenarioTasks(ctx, *a.ScenarioID)
	if err != nil {
		return "", externalError("steamfitter", "list_scenario_tasks", err)
	}
	for _, t := range tasks {
		if t.ID == task.ExternalTaskID || t.Name == task.Name {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s not in scenario %s", util.ErrTaskNotFound, task.Name, *a.ScenarioID)
}

// record 多虚拟机任务每台一行，否则合并为一行 SUMMARY
func (s *LabService) record(ctx context.Context, a *model.Attempt, task *model.Task, results []steamfitter.Result) ([]model.TaskResult, error) {
	var rows []*model.TaskResult
	credit := func(status model.ResultStatus) float64 {
		if status == model.ResultSucceeded {
			return task.Points
		}
		return 0
	}

	if task.Multiple {
		for _, r := range results {
			status := model.NormalizeResultStatus(string(r.Status))
			rows = append(rows, &model.TaskResult{
				TaskID:    task.ID,
				AttemptID: a.ID,
				VMName:    r.VMName,
				Status:    status,
				Score:     credit(status),
			})
		}
	} else {
		statuses := make([]model.ResultStatus, 0, len(results))
		for _, r := range results {
			statuses = append(statuses, model.NormalizeResultStatus(string(r.Status)))
		}
		status := summarize(statuses)
		rows = append(rows, &model.TaskResult{
			TaskID:    task.ID,
			AttemptID: a.ID,
			VMName:    model.SummaryVM,
			Status:    status,
			Score:     credit(status),
		})
	}

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.Results.ForTask(ctx, a.ID, task.ID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			s.Log.Warn("Backfilling missing task result row",
				zap.Uint("attempt_id", a.ID),
				zap.Uint("task_id", task.ID))
		}
		return s.Results.Append(ctx, rows...)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.TaskResult, 0, len(rows))
	for _, r := range rows {
		monitoring.TaskExecutions.WithLabelValues(string(r.Status)).Inc()
		out = append(out, *r)
	}
	return out, nil
}

// History 尝试历史
func (s *LabService) History(ctx context.Context, activityID, userID uint, filter string) ([]model.Attempt, error) {
	return s.Attempts.History(ctx, activityID, userID, filter)
}
