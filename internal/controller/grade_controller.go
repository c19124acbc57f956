package controller

import (
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"crucible_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GradeController struct {
	GradeService GradeAPI
}

func NewGradeController(gradeService GradeAPI) *GradeController {
	return &GradeController{GradeService: gradeService}
}

// @Summary 查询活动成绩
// @Description 按活动的评分方式汇总用户的尝试得分
// @Tags 评分
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Param userId query int false "用户ID（教师）"
// @Success 200 {object} util.Response
// @Router /activities/{id}/grade [get]
func (c *GradeController) Compute(ctx *gin.Context) {
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

	grade, err := c.GradeService.ComputeActivityGrade(ctx.Request.Context(), activityID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"activityId": activityID, "userId": userID, "grade": grade})
}

// @Summary 活动成绩列表
// @Tags 评分
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response{data=[]model.Grade}
// @Router /teacher/activities/{id}/grades [get]
func (c *GradeController) List(ctx *gin.Context) {
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	grades, err := c.GradeService.ListGrades(ctx.Request.Context(), activityID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, grades)
}

type overrideRequest struct {
	Status  model.ResultStatus `json:"status" binding:"required,oneof=succeeded failed"`
	Score   *float64           `json:"score"`
	Comment string             `json:"comment"`
}

// @Summary 教师改分
// @Description 修改单条任务结果并重算所属尝试与成绩
// @Tags 评分
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "结果ID"
// @Param body body overrideRequest true "状态 / 分数 / 评语"
// @Success 200 {object} util.Response{data=model.TaskResult}
// @Router /teacher/results/{id} [put]
func (c *GradeController) Override(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	resultID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req overrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.GradeService.OverrideResult(ctx.Request.Context(), resultID, req.Status, req.Score, req.Comment)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	logger.Log.Info("Task result overridden",
		zap.Uint("result_id", resultID),
		zap.Uint("grader_id", claims.UserID),
		zap.String("status", string(req.Status)))
	util.Success(ctx, result)
}

// @Summary 重算活动成绩
// @Tags 评分
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response
// @Router /teacher/activities/{id}/regrade [post]
func (c *GradeController) Regrade(ctx *gin.Context) {
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	users, err := c.GradeService.RegradeActivity(ctx.Request.Context(), activityID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"activityId": activityID, "users": users})
}

// @Summary 重置活动数据
// @Description 删除活动下的全部尝试、任务结果与成绩
// @Tags 评分
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response
// @Router /teacher/activities/{id}/reset [post]
func (c *GradeController) Reset(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	activityID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.GradeService.ResetActivity(ctx.Request.Context(), activityID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	logger.Log.Warn("Activity reset", zap.Uint("activity_id", activityID), zap.Uint("by", claims.UserID))
	util.Success(ctx, gin.H{"reset": true})
}
