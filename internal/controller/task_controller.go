package controller

import (
	"crucible_backend/internal/service"
	"crucible_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TaskController struct {
	TaskService TaskAPI
}

func NewTaskController(taskService TaskAPI) *TaskController {
	return &TaskController{TaskService: taskService}
}

// @Summary 活动任务列表
// @Description 学生只能看到可见任务
// @Tags 任务
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response{data=[]model.Task}
// @Router /activities/{id}/tasks [get]
func (c *TaskController) List(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	tasks, err := c.TaskService.ListTasks(ctx.Request.Context(), activityID, !claims.Role.CanManage())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tasks)
}

// @Summary 同步场景模板任务
// @Tags 任务
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response{data=[]model.Task}
// @Router /teacher/activities/{id}/tasks/sync [post]
func (c *TaskController) Sync(ctx *gin.Context) {
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	tasks, err := c.TaskService.SyncTasks(ctx.Request.Context(), activityID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tasks)
}

// @Summary 修改任务评分配置
// @Tags 任务
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "任务ID"
// @Param body body service.TaskSettings true "分值 / 可见 / 计分 / 多虚拟机"
// @Success 200 {object} util.Response{data=model.Task}
// @Router /teacher/tasks/{id} [put]
func (c *TaskController) Update(ctx *gin.Context) {
	taskID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.TaskSettings
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	task, err := c.TaskService.UpdateTask(ctx.Request.Context(), taskID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, task)
}
