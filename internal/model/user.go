package model

// UserRole 由 LMS 签发的令牌携带，本服务不保存用户表
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// CanManage 教师与管理员可以配置任务、改分和重置活动
func (r UserRole) CanManage() bool {
	return r == Teacher || r == Admin
}
