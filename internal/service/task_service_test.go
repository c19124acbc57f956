package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/steamfitter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncTasks(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	act.ScenarioTemplateID = "22222222-2222-2222-2222-222222222222"
	ctx := context.Background()
	require.NoError(t, f.activities.Update(ctx, act))

	existing := f.task(t, act.ID, "old name", 25, true)
	f.runner.templateTasks = []steamfitter.Task{
		{ID: existing.ExternalTaskID, Name: "recon", Description: "scan the network"},
		{ID: "task-new", Name: "harden", Description: "patch the web server"},
	}

	tasks, err := f.tasks.SyncTasks(ctx, act.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	kept := tasks[0]
	assert.Equal(t, "recon", kept.Name)
	assert.Equal(t, "scan the network", kept.Description)
	assert.Equal(t, 25.0, kept.Points)
	assert.True(t, kept.Gradable)
	assert.True(t, kept.Multiple)

	added := tasks[1]
	assert.Equal(t, "task-new", added.ExternalTaskID)
	assert.Equal(t, 1.0, added.Points)
	assert.False(t, added.Visible)
	assert.False(t, added.Gradable)
	assert.False(t, added.Multiple)
	assert.Equal(t, act.ScenarioTemplateID, added.ScenarioTemplateID)

	// 再次同步不会重复创建
	tasks, err = f.tasks.SyncTasks(ctx, act.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestSyncTasksRequiresTemplate(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	_, err := f.tasks.SyncTasks(context.Background(), act.ID)
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	act := f.activity(t, model.GradeHighest)
	task := f.task(t, act.ID, "recon", 1, false)
	ctx := context.Background()

	points := 15.0
	visible := false
	updated, err := f.tasks.UpdateTask(ctx, task.ID, TaskSettings{Points: &points, Visible: &visible})
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.Points)
	assert.False(t, updated.Visible)
	assert.True(t, updated.Gradable)

	negative := -1.0
	_, err = f.tasks.UpdateTask(ctx, task.ID, TaskSettings{Points: &negative})
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	all, err := f.tasks.ListTasks(ctx, act.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	visibleOnly, err := f.tasks.ListTasks(ctx, act.ID, true)
	require.NoError(t, err)
	assert.Empty(t, visibleOnly)
}
