package util

import (
	"strconv"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ValidFilter 未知的过滤条件按 all 处理
func ValidFilter(f string) string {
	switch f {
	case FilterOpen, FilterClosed:
		return f
	}
	return FilterAll
}
