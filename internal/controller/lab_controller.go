package controller

import (
	"crucible_backend/internal/util"
	"crucible_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LabController struct {
	LabService LabAPI
}

func NewLabController(labService LabAPI) *LabController {
	return &LabController{LabService: labService}
}

// @Summary 轮询实验状态
// @Description 读取 Alloy 事件状态并推进尝试状态机，前端按固定间隔调用
// @Tags 实验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Param attemptId query int false "尝试ID"
// @Success 200 {object} util.Response{data=service.TickResult}
// @Router /activities/{id}/lab [get]
func (c *LabController) Tick(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	attemptID, ok := queryID(ctx, "attemptId")
	if !ok {
		return
	}

	res, err := c.LabService.Tick(ctx.Request.Context(), labUser(claims), activityID, attemptID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 启动实验
// @Tags 实验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 201 {object} util.Response{data=service.TickResult}
// @Failure 409 {object} util.Response
// @Router /activities/{id}/lab/launch [post]
func (c *LabController) Launch(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	res, err := c.LabService.LaunchLab(ctx.Request.Context(), labUser(claims), activityID)
	if err != nil {
		if errors.Is(err, util.ErrAttemptAlreadyOpen) && res != nil {
			ctx.JSON(http.StatusConflict, util.Response{Code: http.StatusConflict, Message: err.Error(), Data: res})
			return
		}
		util.HandleError(ctx, err)
		return
	}
	logger.ForLab(claims.UserID, activityID).Info("Lab launched",
		zap.Uint("attempt_id", res.Attempt.ID),
		zap.String("status", string(res.Status)))
	util.Created(ctx, res)
}

type stopRequest struct {
	AttemptID uint `json:"attemptId"`
}

// @Summary 结束实验
// @Description 评分、关闭尝试并结束 Alloy 事件
// @Tags 实验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Param body body stopRequest false "尝试ID"
// @Success 200 {object} util.Response{data=service.TickResult}
// @Router /activities/{id}/lab/stop [post]
func (c *LabController) Stop(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req stopRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	res, err := c.LabService.StopLab(ctx.Request.Context(), labUser(claims), activityID, req.AttemptID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	logger.ForLab(claims.UserID, activityID).Info("Lab stopped",
		zap.Uint("attempt_id", res.Attempt.ID),
		zap.String("state", string(res.Attempt.State)))
	util.Success(ctx, res)
}

// @Summary 延长实验
// @Tags 实验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response{data=service.TickResult}
// @Router /activities/{id}/lab/extend [post]
func (c *LabController) Extend(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	res, err := c.LabService.ExtendLab(ctx.Request.Context(), labUser(claims), activityID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 生成分享码
// @Tags 实验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response
// @Router /activities/{id}/lab/share [post]
func (c *LabController) ShareCode(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	code, err := c.LabService.ShareCode(ctx.Request.Context(), labUser(claims), activityID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"code": code})
}

type joinRequest struct {
	Code string `json:"code" binding:"required"`
}

// @Summary 通过分享码加入实验
// @Tags 实验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Param body body joinRequest true "分享码"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Router /activities/{id}/lab/join [post]
func (c *LabController) Join(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req joinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.LabService.JoinLab(ctx.Request.Context(), labUser(claims), activityID, req.Code)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 执行任务并记录结果
// @Tags 实验
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path int true "尝试ID"
// @Param taskId path int true "任务ID"
// @Success 200 {object} util.Response{data=service.RunResult}
// @Router /attempts/{attemptId}/tasks/{taskId}/run [post]
func (c *LabController) RunTask(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "attemptId")
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, "taskId")
	if !ok {
		return
	}

	res, err := c.LabService.RunTaskAndRecord(ctx.Request.Context(), labUser(claims), attemptID, taskID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 尝试历史
// @Tags 实验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Param filter query string false "open / closed / all"
// @Param userId query int false "用户ID（教师）"
// @Success 200 {object} util.Response{data=[]model.Attempt}
// @Router /activities/{id}/attempts [get]
func (c *LabController) History(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := targetUser(ctx, claims)
	if !ok {
		return
	}

	attempts, err := c.LabService.History(ctx.Request.Context(), activityID, userID, util.ValidFilter(ctx.Query("filter")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
