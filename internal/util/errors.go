package util

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied      = errors.New("permission denied")
	ErrActivityNotFound      = errors.New("activity not found")
	ErrActivityNotAvailable  = errors.New("activity not available")
	ErrAttemptNotFound       = errors.New("attempt not found")
	ErrAttemptClosed         = errors.New("attempt already closed")
	ErrAttemptAlreadyOpen    = errors.New("an open attempt already exists")
	ErrDuplicateOpenAttempts = errors.New("more than one open attempt")
	ErrNotParticipant        = errors.New("user is not a participant of the attempt")
	ErrTaskNotFound          = errors.New("task not found")
	ErrResultNotFound        = errors.New("task result not found")
	ErrEventNotActive        = errors.New("lab event is not active")
	ErrExtendNotAllowed      = errors.New("extending the lab is not allowed")
	ErrUnknownGradeMethod    = errors.New("unknown grading method")
	ErrInvalidInput          = errors.New("invalid input")
)

// 错误分类，见 ExternalServiceError / StorageError
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrExternalService    = errors.New("external service error")
	ErrDataIntegrity      = errors.New("data integrity error")
	ErrCredentialsExpired = errors.New("credentials expired")
	ErrStorage            = errors.New("storage error")
)

// ExternalServiceError Alloy / Steamfitter / 成绩册调用失败
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

// StorageError 持久化失败
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage 包装数据库错误；nil 原样返回
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Integrity 数据完整性错误
func Integrity(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w: %s", ErrDataIntegrity, err, fmt.Sprintf(format, args...))
}
