package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/repository"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/alloy"
	"crucible_backend/pkg/apiclient"
	"crucible_backend/pkg/steamfitter"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memDB 内存存储。事务串行执行，出错时恢复快照，用于验证回滚
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq          uint
	clock        time.Time
	activities   map[uint]model.Activity
	attempts     map[uint]model.Attempt
	attemptUsers []model.AttemptUser
	tasks        map[uint]model.Task
	results      []model.TaskResult
	grades       map[[2]uint]model.Grade

	failAttemptUpdate error
	// failForTaskCall 第 n 次 ForTask 调用返回存储错误，0 表示不注入
	failForTaskCall int
	forTaskCalls    int
}

func newMemDB() *memDB {
	return &memDB{
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		activities: make(map[uint]model.Activity),
		attempts:   make(map[uint]model.Attempt),
		tasks:      make(map[uint]model.Task),
		grades:     make(map[[2]uint]model.Grade),
	}
}

// next 调用方持有 mu
func (db *memDB) next() (uint, time.Time) {
	db.seq++
	db.clock = db.clock.Add(time.Second)
	return db.seq, db.clock
}

type memSnapshot struct {
	seq          uint
	clock        time.Time
	activities   map[uint]model.Activity
	attempts     map[uint]model.Attempt
	attemptUsers []model.AttemptUser
	tasks        map[uint]model.Task
	results      []model.TaskResult
	grades       map[[2]uint]model.Grade
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{
		seq:          db.seq,
		clock:        db.clock,
		activities:   make(map[uint]model.Activity, len(db.activities)),
		attempts:     make(map[uint]model.Attempt, len(db.attempts)),
		attemptUsers: append([]model.AttemptUser(nil), db.attemptUsers...),
		tasks:        make(map[uint]model.Task, len(db.tasks)),
		results:      append([]model.TaskResult(nil), db.results...),
		grades:       make(map[[2]uint]model.Grade, len(db.grades)),
	}
	for k, v := range db.activities {
		s.activities[k] = v
	}
	for k, v := range db.attempts {
		s.attempts[k] = v
	}
	for k, v := range db.tasks {
		s.tasks[k] = v
	}
	for k, v := range db.grades {
		s.grades[k] = v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.seq, db.clock = s.seq, s.clock
	db.activities, db.attempts, db.attemptUsers = s.activities, s.attempts, s.attemptUsers
	db.tasks, db.results, db.grades = s.tasks, s.results, s.grades
}

type memTxKey struct{}

type memTx struct{ db *memDB }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	snap := t.db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memActivities struct{ db *memDB }

func (s memActivities) Create(_ context.Context, a *model.Activity) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a.ID, a.CreatedAt = s.db.next()
	a.UpdatedAt = a.CreatedAt
	s.db.activities[a.ID] = *a
	return nil
}

func (s memActivities) Update(_ context.Context, a *model.Activity) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.activities[a.ID] = *a
	return nil
}

func (s memActivities) FindByID(_ context.Context, id uint) (*model.Activity, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.activities[id]
	if !ok {
		return nil, util.ErrActivityNotFound
	}
	return &a, nil
}

func (s memActivities) ListByCourse(_ context.Context, courseID uint) ([]model.Activity, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Activity
	for _, a := range s.db.activities {
		if courseID == 0 || a.CourseID == courseID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memAttempts struct{ db *memDB }

// openConflict 模拟 (user_id, activity_id, open_slot) 唯一索引；调用方持有 mu
func (s memAttempts) openConflict(a *model.Attempt) bool {
	if !a.IsOpen() {
		return false
	}
	for id, other := range s.db.attempts {
		if id != a.ID && other.IsOpen() && other.UserID == a.UserID && other.ActivityID == a.ActivityID {
			return true
		}
	}
	return false
}

func (s memAttempts) Create(_ context.Context, a *model.Attempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.openConflict(a) {
		return util.ErrAttemptAlreadyOpen
	}
	a.ID, a.CreatedAt = s.db.next()
	a.UpdatedAt = a.CreatedAt
	s.db.attempts[a.ID] = *a
	return nil
}

func (s memAttempts) Update(_ context.Context, a *model.Attempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failAttemptUpdate != nil {
		return util.Storage("update attempt", s.db.failAttemptUpdate)
	}
	if s.openConflict(a) {
		return util.ErrAttemptAlreadyOpen
	}
	_, a.UpdatedAt = s.db.next()
	s.db.attempts[a.ID] = *a
	return nil
}

func (s memAttempts) FindByID(_ context.Context, id uint) (*model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[id]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return &a, nil
}

// participates 调用方持有 mu
func (s memAttempts) participates(a model.Attempt, userID uint) bool {
	if a.UserID == userID {
		return true
	}
	for _, u := range s.db.attemptUsers {
		if u.AttemptID == a.ID && u.UserID == userID {
			return true
		}
	}
	return false
}

func (s memAttempts) sorted(keep func(model.Attempt) bool) []model.Attempt {
	var out []model.Attempt
	for _, a := range s.db.attempts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s memAttempts) FindOpen(_ context.Context, userID, activityID uint) ([]model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(a model.Attempt) bool {
		return a.ActivityID == activityID && a.IsOpen() && s.participates(a, userID)
	}), nil
}

func (s memAttempts) FindOpenByEvent(_ context.Context, eventID string) ([]model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(a model.Attempt) bool {
		return a.IsOpen() && a.EventID != nil && *a.EventID == eventID
	}), nil
}

func (s memAttempts) FindByEvent(_ context.Context, activityID uint, eventID string) ([]model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(a model.Attempt) bool {
		return a.ActivityID == activityID && a.EventID != nil && *a.EventID == eventID
	}), nil
}

func (s memAttempts) List(_ context.Context, f repository.AttemptFilter) ([]model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(a model.Attempt) bool {
		if f.ActivityID != 0 && a.ActivityID != f.ActivityID {
			return false
		}
		if f.UserID != 0 && !s.participates(a, f.UserID) {
			return false
		}
		switch f.State {
		case util.FilterOpen:
			return a.IsOpen()
		case util.FilterClosed:
			return a.State.IsTerminal()
		}
		return true
	}), nil
}

func (s memAttempts) AddUser(_ context.Context, attemptID, userID uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.attemptUsers {
		if u.AttemptID == attemptID && u.UserID == userID {
			return nil
		}
	}
	id, now := s.db.next()
	s.db.attemptUsers = append(s.db.attemptUsers, model.AttemptUser{ID: id, AttemptID: attemptID, UserID: userID, CreatedAt: now})
	return nil
}

func (s memAttempts) UserIDs(_ context.Context, attemptID uint) ([]uint, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[attemptID]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	ids := []uint{a.UserID}
	for _, u := range s.db.attemptUsers {
		if u.AttemptID == attemptID && u.UserID != a.UserID {
			ids = append(ids, u.UserID)
		}
	}
	return ids, nil
}

func (s memAttempts) DeleteByActivity(_ context.Context, activityID uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	users := s.db.attemptUsers[:0]
	for _, u := range s.db.attemptUsers {
		if a, ok := s.db.attempts[u.AttemptID]; ok && a.ActivityID == activityID {
			continue
		}
		users = append(users, u)
	}
	s.db.attemptUsers = users
	for id, a := range s.db.attempts {
		if a.ActivityID == activityID {
			delete(s.db.attempts, id)
		}
	}
	return nil
}

type memTasks struct{ db *memDB }

func (s memTasks) FindByID(_ context.Context, id uint) (*model.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tasks[id]
	if !ok {
		return nil, util.ErrTaskNotFound
	}
	return &t, nil
}

func (s memTasks) ListByActivity(_ context.Context, activityID uint) ([]model.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Task
	for _, t := range s.db.tasks {
		if t.ActivityID == activityID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memTasks) Save(_ context.Context, t *model.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if t.ID == 0 {
		t.ID, t.CreatedAt = s.db.next()
	}
	s.db.tasks[t.ID] = *t
	return nil
}

type memResults struct{ db *memDB }

func (s memResults) Append(_ context.Context, results ...*model.TaskResult) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range results {
		r.ID, r.CreatedAt = s.db.next()
		r.UpdatedAt = r.CreatedAt
		s.db.results = append(s.db.results, *r)
	}
	return nil
}

func (s memResults) filter(keep func(model.TaskResult) bool) []model.TaskResult {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.TaskResult
	for _, r := range s.db.results {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s memResults) ForTask(_ context.Context, attemptID, taskID uint) ([]model.TaskResult, error) {
	s.db.mu.Lock()
	s.db.forTaskCalls++
	fail := s.db.forTaskCalls == s.db.failForTaskCall
	s.db.mu.Unlock()
	if fail {
		return nil, util.Storage("list task results", errors.New("connection reset"))
	}
	return s.filter(func(r model.TaskResult) bool { return r.AttemptID == attemptID && r.TaskID == taskID }), nil
}

func (s memResults) ForAttempt(_ context.Context, attemptID uint) ([]model.TaskResult, error) {
	return s.filter(func(r model.TaskResult) bool { return r.AttemptID == attemptID }), nil
}

func (s memResults) FindByID(_ context.Context, id uint) (*model.TaskResult, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.results {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, util.ErrResultNotFound
}

func (s memResults) Update(_ context.Context, result *model.TaskResult) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i, r := range s.db.results {
		if r.ID == result.ID {
			_, result.UpdatedAt = s.db.next()
			s.db.results[i] = *result
			return nil
		}
	}
	return util.ErrResultNotFound
}

func (s memResults) DeleteByActivity(_ context.Context, activityID uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	kept := s.db.results[:0]
	for _, r := range s.db.results {
		if a, ok := s.db.attempts[r.AttemptID]; ok && a.ActivityID == activityID {
			continue
		}
		kept = append(kept, r)
	}
	s.db.results = kept
	return nil
}

type memGrades struct{ db *memDB }

func (s memGrades) Find(_ context.Context, activityID, userID uint) (*model.Grade, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	g, ok := s.db.grades[[2]uint{activityID, userID}]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s memGrades) Upsert(_ context.Context, g *model.Grade) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := [2]uint{g.ActivityID, g.UserID}
	if old, ok := s.db.grades[key]; ok {
		g.ID, g.CreatedAt = old.ID, old.CreatedAt
	} else {
		g.ID, g.CreatedAt = s.db.next()
	}
	_, g.UpdatedAt = s.db.next()
	s.db.grades[key] = *g
	return nil
}

func (s memGrades) ListByActivity(_ context.Context, activityID uint) ([]model.Grade, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Grade
	for _, g := range s.db.grades {
		if g.ActivityID == activityID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s memGrades) DeleteByActivity(_ context.Context, activityID uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k := range s.db.grades {
		if k[0] == activityID {
			delete(s.db.grades, k)
		}
	}
	return nil
}

// fakeAlloy 可控的 Alloy
type fakeAlloy struct {
	mu       sync.Mutex
	seq      int
	events   map[string]*alloy.Event
	getErr   error
	listErr  error
	endErr   error
	ended    []string
	enlisted map[string]string
}

func newFakeAlloy() *fakeAlloy {
	return &fakeAlloy{events: make(map[string]*alloy.Event), enlisted: make(map[string]string)}
}

func (f *fakeAlloy) add(ev alloy.Event) *alloy.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := ev
	f.events[e.ID] = &e
	return &e
}

func (f *fakeAlloy) setStatus(id string, status alloy.EventStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[id].Status = status
}

func (f *fakeAlloy) CreateEvent(_ context.Context, templateID string) (*alloy.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ev := &alloy.Event{
		ID:              fmt.Sprintf("00000000-0000-0000-0000-%012d", f.seq),
		EventTemplateID: templateID,
		Status:          alloy.StatusCreating,
	}
	f.events[ev.ID] = ev
	cp := *ev
	return &cp, nil
}

func (f *fakeAlloy) GetEvent(_ context.Context, id string) (*alloy.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, alloy.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeAlloy) ListEvents(_ context.Context, templateID, userRef string) ([]alloy.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []alloy.Event
	for _, ev := range f.events {
		if ev.EventTemplateID == templateID && ev.Username == userRef {
			out = append(out, *ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAlloy) EndEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endErr != nil {
		return f.endErr
	}
	f.ended = append(f.ended, id)
	if ev, ok := f.events[id]; ok {
		ev.Status = alloy.StatusEnded
	}
	return nil
}

func (f *fakeAlloy) ExtendEvent(_ context.Context, id string, expiration time.Time) (*alloy.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, alloy.ErrNotFound
	}
	exp := expiration.UTC().Format(time.RFC3339)
	ev.ExpirationDate = &exp
	cp := *ev
	return &cp, nil
}

func (f *fakeAlloy) GenerateShareCode(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := "CODE-" + id[len(id)-4:]
	f.enlisted[code] = id
	return code, nil
}

func (f *fakeAlloy) Enlist(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.enlisted[code]
	if !ok {
		return "", alloy.ErrNotFound
	}
	return id, nil
}

func (f *fakeAlloy) endedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ended...)
}

// fakeSteamfitter 按任务 id 返回预设结果
type fakeSteamfitter struct {
	mu            sync.Mutex
	templateTasks []steamfitter.Task
	scenarioTasks []steamfitter.Task
	results       map[string][]steamfitter.Result
	execErr       error
	executed      []string
	// beforeReturn 在执行返回前调用，用于模拟执行期间尝试被关闭
	beforeReturn func()
}

func newFakeSteamfitter() *fakeSteamfitter {
	return &fakeSteamfitter{results: make(map[string][]steamfitter.Result)}
}

func (f *fakeSteamfitter) ListTemplateTasks(context.Context, string) ([]steamfitter.Task, error) {
	return f.templateTasks, nil
}

func (f *fakeSteamfitter) ListScenarioTasks(context.Context, string) ([]steamfitter.Task, error) {
	return f.scenarioTasks, nil
}

func (f *fakeSteamfitter) ExecuteTask(_ context.Context, taskID string) ([]steamfitter.Result, error) {
	f.mu.Lock()
	f.executed = append(f.executed, taskID)
	err, results, hook := f.execErr, f.results[taskID], f.beforeReturn
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return results, err
}

type gradePush struct {
	ActivityID, UserID uint
	Value              float64
}

type fakeSink struct {
	mu     sync.Mutex
	err    error
	pushes []gradePush
}

func (f *fakeSink) UpdateGrade(_ context.Context, activityID, userID uint, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, gradePush{activityID, userID, value})
	return nil
}

func (f *fakeSink) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

var errUnauthorized = &apiclient.APIError{Service: "alloy", Op: "get_event", StatusCode: 401, Message: "token expired"}

var errUnavailable = errors.New("context deadline exceeded")

type fixture struct {
	db     *memDB
	alloy  *fakeAlloy
	runner *fakeSteamfitter
	sink   *fakeSink
	logs   *observer.ObservedLogs

	activities memActivities
	attemptsDB memAttempts
	tasksDB    memTasks
	resultsDB  memResults
	gradesDB   memGrades

	attempts *AttemptService
	grades   *GradeService
	tasks    *TaskService
	lab      *LabService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	f := &fixture{
		db:     newMemDB(),
		alloy:  newFakeAlloy(),
		runner: newFakeSteamfitter(),
		sink:   &fakeSink{},
		logs:   logs,
		now:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.activities = memActivities{f.db}
	f.attemptsDB = memAttempts{f.db}
	f.tasksDB = memTasks{f.db}
	f.resultsDB = memResults{f.db}
	f.gradesDB = memGrades{f.db}
	tx := memTx{f.db}

	f.attempts = NewAttemptService(f.attemptsDB, f.resultsDB, f.tasksDB, tx, log)
	f.attempts.now = func() time.Time { return f.now }
	f.grades = NewGradeService(f.activities, f.attemptsDB, f.tasksDB, f.resultsDB, f.gradesDB, f.sink, tx, log)
	f.tasks = NewTaskService(f.activities, f.tasksDB, f.runner, log)
	f.lab = NewLabService(f.activities, f.tasksDB, f.resultsDB, f.attempts, f.grades, f.alloy, f.runner, NewLocalLocker(), tx, log)
	f.lab.now = func() time.Time { return f.now }
	return f
}

const templateID = "11111111-1111-1111-1111-111111111111"

func (f *fixture) activity(t *testing.T, method model.GradeMethod) *model.Activity {
	t.Helper()
	a := &model.Activity{
		Name:            "Incident response lab",
		EventTemplateID: templateID,
		MaxGrade:        100,
		GradeMethod:     method,
		MultiVMScoring:  model.MultiVMProportional,
	}
	if err := f.activities.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

func (f *fixture) task(t *testing.T, activityID uint, name string, points float64, multiple bool) *model.Task {
	t.Helper()
	task := &model.Task{
		ActivityID:     activityID,
		ExternalTaskID: "task-" + name,
		Name:           name,
		Points:         points,
		Visible:        true,
		Gradable:       true,
		Multiple:       multiple,
	}
	if err := f.tasksDB.Save(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	return task
}

func (f *fixture) record(t *testing.T, attemptID, taskID uint, vm string, status model.ResultStatus) {
	t.Helper()
	err := f.resultsDB.Append(context.Background(), &model.TaskResult{
		AttemptID: attemptID, TaskID: taskID, VMName: vm, Status: status,
	})
	if err != nil {
		t.Fatal(err)
	}
}

// activeEvent 属于 user 的 Active 事件
func (f *fixture) activeEvent(id, user, expiration string) *alloy.Event {
	ev := alloy.Event{
		ID:              id,
		EventTemplateID: templateID,
		Username:        user,
		Status:          alloy.StatusActive,
	}
	if expiration != "" {
		ev.ExpirationDate = &expiration
	}
	return f.alloy.add(ev)
}

func (f *fixture) warnings(msg string) int {
	return f.logs.FilterMessage(msg).FilterLevelExact(zapcore.WarnLevel).Len()
}
