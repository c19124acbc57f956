package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/alloy"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eventA = "aaaaaaaa-0000-0000-0000-000000000001"
	eventB = "bbbbbbbb-0000-0000-0000-000000000002"
)

func TestStartAttemptConcurrent(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				started++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	for _, err := range errs {
		assert.ErrorIs(t, err, util.ErrAttemptAlreadyOpen)
	}
	open, err := f.attemptsDB.FindOpen(ctx, 1, act.ID)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestStartAttemptSeedsPlaceholders(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	t1 := f.task(t, act.ID, "recon", 10, false)
	t2 := f.task(t, act.ID, "harden", 5, true)
	ctx := context.Background()

	exp := "2024-01-01T12:00:00"
	scenario := "cccccccc-0000-0000-0000-000000000003"
	ev := &alloy.Event{ID: eventA, Status: alloy.StatusActive, ExpirationDate: &exp, ScenarioID: &scenario}

	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, ev)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, a.State)
	assert.Equal(t, f.now, a.StartedAt)
	require.NotNil(t, a.EventID)
	assert.Equal(t, eventA, *a.EventID)
	assert.Equal(t, scenario, *a.ScenarioID)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), *a.EndTime)
	assert.Nil(t, a.FinishedAt)
	assert.Nil(t, a.Score)

	for _, task := range []*model.Task{t1, t2} {
		results, err := f.resultsDB.ForTask(ctx, a.ID, task.ID)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.SummaryVM, results[0].VMName)
		assert.Equal(t, model.ResultPending, results[0].Status)
	}
}

func TestStartAttemptWhileProvisioning(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()

	exp := "2024-01-01T12:00:00Z"
	ev := &alloy.Event{ID: eventA, Status: alloy.StatusCreating, ExpirationDate: &exp}
	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, ev)
	require.NoError(t, err)
	require.NotNil(t, a.EventID)
	assert.Equal(t, eventA, *a.EventID)
	assert.Nil(t, a.EndTime)
	assert.False(t, a.Provisioned())
}

func TestOpenAttempt(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()

	_, err := f.attempts.OpenAttempt(ctx, 1, act.ID, 0)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)

	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)

	got, err := f.attempts.OpenAttempt(ctx, 1, act.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	t.Run("by id", func(t *testing.T) {
		got, err := f.attempts.OpenAttempt(ctx, 99, act.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)

		_, err = f.attempts.OpenAttempt(ctx, 1, act.ID+1, a.ID)
		assert.ErrorIs(t, err, util.ErrAttemptNotFound)

		_, err = f.attempts.OpenAttempt(ctx, 1, act.ID, 12345)
		assert.ErrorIs(t, err, util.ErrAttemptNotFound)
	})

	t.Run("duplicates fail loudly", func(t *testing.T) {
		// 绕过唯一约束直接写入第二条进行中的尝试
		f.db.mu.Lock()
		dup := model.Attempt{UserID: 1, ActivityID: act.ID, State: model.AttemptInProgress}
		dup.ID, dup.CreatedAt = f.db.next()
		f.db.attempts[dup.ID] = dup
		f.db.mu.Unlock()

		_, err := f.attempts.OpenAttempt(ctx, 1, act.ID, 0)
		assert.ErrorIs(t, err, util.ErrDataIntegrity)
		assert.ErrorIs(t, err, util.ErrDuplicateOpenAttempts)
		assert.Equal(t, 1, f.warnings("Multiple open attempts found"))
	})
}

func TestReconcileNormalizesExpiration(t *testing.T) {
	ctx := context.Background()
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	for _, exp := range []string{"2024-01-01T10:00:00Z", "2024-01-01T10:00:00"} {
		t.Run(exp, func(t *testing.T) {
			f := newFixture(t)
			act := f.activity(t, model.GradeHighest)
			a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
			require.NoError(t, err)

			value := exp
			scenario := "cccccccc-0000-0000-0000-000000000003"
			err = f.attempts.Reconcile(ctx, a, &alloy.Event{ID: eventA, Status: alloy.StatusActive, ExpirationDate: &value, ScenarioID: &scenario})
			require.NoError(t, err)

			require.NotNil(t, a.EndTime)
			assert.True(t, want.Equal(*a.EndTime))
			assert.Equal(t, eventA, *a.EventID)

			stored, err := f.attemptsDB.FindByID(ctx, a.ID)
			require.NoError(t, err)
			assert.True(t, want.Equal(*stored.EndTime))
		})
	}
}

func TestReconcileDefaultsMissingExpiration(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()
	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)

	err = f.attempts.Reconcile(ctx, a, &alloy.Event{ID: eventA, Status: alloy.StatusActive})
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, f.now.Add(8*time.Hour), *a.EndTime)
	assert.Equal(t, 1, f.warnings("Event has no expiration, using default session length"))

	// 已有结束时间时不再顺延
	f.now = f.now.Add(time.Hour)
	err = f.attempts.Reconcile(ctx, a, &alloy.Event{ID: eventA, Status: alloy.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(7*time.Hour), *a.EndTime)
	assert.Equal(t, 1, f.warnings("Event has no expiration, using default session length"))
}

func TestReconcileStorageFailureRestoresAttempt(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()
	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)

	f.db.failAttemptUpdate = errors.New("disk full")
	exp := "2024-01-01T10:00:00Z"
	err = f.attempts.Reconcile(ctx, a, &alloy.Event{ID: eventA, Status: alloy.StatusActive, ExpirationDate: &exp})
	assert.ErrorIs(t, err, util.ErrStorage)
	assert.Nil(t, a.EventID)
	assert.Nil(t, a.EndTime)
}

func TestCloseAttemptIdempotent(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()
	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.attempts.CloseAttempt(ctx, a))
	assert.Equal(t, model.AttemptFinished, a.State)
	require.NotNil(t, a.FinishedAt)
	first := *a.FinishedAt

	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.attempts.CloseAttempt(ctx, a))
	assert.Equal(t, model.AttemptFinished, a.State)
	assert.Equal(t, first, *a.FinishedAt)

	stored, err := f.attemptsDB.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.FinishedAt)

	// 关闭后可以开始新的尝试
	_, err = f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	assert.NoError(t, err)
}

func TestCloseAttemptStaleCopy(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()
	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)
	stale := *a

	require.NoError(t, f.attempts.CloseAttempt(ctx, a))
	require.NoError(t, f.attempts.CloseAttempt(ctx, &stale))
	assert.Equal(t, *a.FinishedAt, *stale.FinishedAt)
}

func TestAbandonedAttemptCannotFinish(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()
	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)

	require.NoError(t, f.attempts.AbandonAttempt(ctx, a))
	assert.Equal(t, model.AttemptAbandoned, a.State)
	assert.Nil(t, a.FinishedAt)

	assert.ErrorIs(t, f.attempts.CloseAttempt(ctx, a), util.ErrAttemptClosed)
	assert.Equal(t, model.AttemptAbandoned, a.State)
}

func TestCloseAttemptStorageFailure(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()
	a, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)

	f.db.failAttemptUpdate = errors.New("lock wait timeout")
	err = f.attempts.CloseAttempt(ctx, a)
	assert.ErrorIs(t, err, util.ErrStorage)
	assert.Equal(t, model.AttemptInProgress, a.State)
	assert.Nil(t, a.FinishedAt)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	ctx := context.Background()

	first, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)
	require.NoError(t, f.attempts.CloseAttempt(ctx, first))
	second, err := f.attempts.StartAttempt(ctx, 1, act.ID, nil)
	require.NoError(t, err)
	_, err = f.attempts.StartAttempt(ctx, 2, act.ID, nil)
	require.NoError(t, err)

	all, err := f.attempts.History(ctx, act.ID, 1, util.FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	open, err := f.attempts.History(ctx, act.ID, 1, util.FilterOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	closed, err := f.attempts.History(ctx, act.ID, 1, util.FilterClosed)
	require.NoError(t, err)
	assert.Len(t, closed, 1)

	everyone, err := f.attempts.History(ctx, act.ID, 0, "bogus")
	require.NoError(t, err)
	assert.Len(t, everyone, 3)
}
