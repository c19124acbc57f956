package service

import (
	"crucible_backend/internal/util"
	"crucible_backend/pkg/apiclient"
	"errors"
	"fmt"
)

// externalError 把客户端错误归类：401 视为凭据过期，其余为外部服务错误
func externalError(service, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return fmt.Errorf("%w: %s %s", util.ErrCredentialsExpired, service, op)
	}
	return &util.ExternalServiceError{Service: service, Op: op, Err: err}
}

// retryLater 外部服务暂时不可用，轮询下一次再试。凭据失效需要重新认证，不重试
func retryLater(err error) bool {
	if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, util.ErrCredentialsExpired) {
		return false
	}
	return errors.Is(err, util.ErrExternalService) || errors.Is(err, ErrLockBusy)
}
