package controller

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/service"
	"crucible_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// 控制器依赖的服务能力，由 internal/service 中对应的 *Service 实现

type LabAPI interface {
	Tick(ctx context.Context, user service.LabUser, activityID, attemptID uint) (*service.TickResult, error)
	LaunchLab(ctx context.Context, user service.LabUser, activityID uint) (*service.TickResult, error)
	StopLab(ctx context.Context, user service.LabUser, activityID, attemptID uint) (*service.TickResult, error)
	ExtendLab(ctx context.Context, user service.LabUser, activityID uint) (*service.TickResult, error)
	ShareCode(ctx context.Context, user service.LabUser, activityID uint) (string, error)
	JoinLab(ctx context.Context, user service.LabUser, activityID uint, code string) (*model.Attempt, error)
	RunTaskAndRecord(ctx context.Context, user service.LabUser, attemptID, taskID uint) (*service.RunResult, error)
	History(ctx context.Context, activityID, userID uint, filter string) ([]model.Attempt, error)
}

type GradeAPI interface {
	ComputeActivityGrade(ctx context.Context, activityID, userID uint) (float64, error)
	ListGrades(ctx context.Context, activityID uint) ([]model.Grade, error)
	OverrideResult(ctx context.Context, resultID uint, status model.ResultStatus, score *float64, comment string) (*model.TaskResult, error)
	RegradeActivity(ctx context.Context, activityID uint) (int, error)
	ResetActivity(ctx context.Context, activityID uint) error
}

type TaskAPI interface {
	SyncTasks(ctx context.Context, activityID uint) ([]model.Task, error)
	UpdateTask(ctx context.Context, taskID uint, in service.TaskSettings) (*model.Task, error)
	ListTasks(ctx context.Context, activityID uint, visibleOnly bool) ([]model.Task, error)
}

type ActivityAPI interface {
	Create(ctx context.Context, req service.ActivityRequest) (*model.Activity, error)
	Update(ctx context.Context, id uint, req service.ActivityRequest) (*model.Activity, error)
	Get(ctx context.Context, id uint) (*model.Activity, error)
	List(ctx context.Context, courseID uint) ([]model.Activity, error)
}

// pathID 解析路径中的 id，失败时已写入 400
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		util.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// queryID 可选的查询参数，缺省为 0
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) (*util.Claims, bool) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return nil, false
	}
	return claims, true
}

func labUser(claims *util.Claims) service.LabUser {
	return service.LabUser{ID: claims.UserID, Username: claims.Username}
}

// targetUser 学生只能查看自己；教师可以通过 userId 查看其他用户
func targetUser(c *gin.Context, claims *util.Claims) (uint, bool) {
	userID, ok := queryID(c, "userId")
	if !ok {
		return 0, false
	}
	if userID == 0 || userID == claims.UserID {
		return claims.UserID, true
	}
	if !claims.Role.CanManage() {
		util.Forbidden(c)
		return 0, false
	}
	return userID, true
}
