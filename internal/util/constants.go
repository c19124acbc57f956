package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// 尝试历史的过滤条件
const (
	FilterOpen   = "open"
	FilterClosed = "closed"
	FilterAll    = "all"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
