package controller

import (
	"crucible_backend/internal/service"
	"crucible_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ActivityController struct {
	ActivityService ActivityAPI
}

func NewActivityController(activityService ActivityAPI) *ActivityController {
	return &ActivityController{ActivityService: activityService}
}

// @Summary 创建实验活动
// @Tags 活动
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ActivityRequest true "活动配置"
// @Success 201 {object} util.Response{data=model.Activity}
// @Router /teacher/activities [post]
func (c *ActivityController) Create(ctx *gin.Context) {
	var req service.ActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	activity, err := c.ActivityService.Create(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, activity)
}

// @Summary 修改实验活动
// @Tags 活动
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Param body body service.ActivityRequest true "活动配置"
// @Success 200 {object} util.Response{data=model.Activity}
// @Router /teacher/activities/{id} [put]
func (c *ActivityController) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	activity, err := c.ActivityService.Update(ctx.Request.Context(), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, activity)
}

// @Summary 活动详情
// @Tags 活动
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response{data=model.Activity}
// @Router /activities/{id} [get]
func (c *ActivityController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	activity, err := c.ActivityService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, activity)
}

// @Summary 活动列表
// @Tags 活动
// @Produce json
// @Security ApiKeyAuth
// @Param courseId query int false "课程ID"
// @Success 200 {object} util.Response{data=[]model.Activity}
// @Router /activities [get]
func (c *ActivityController) List(ctx *gin.Context) {
	courseID, ok := queryID(ctx, "courseId")
	if !ok {
		return
	}
	activities, err := c.ActivityService.List(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, activities)
}
