package util

import (
	"crucible_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	// 外部服务凭据失效时置 true，前端停止轮询并重新认证
	Reauthenticate bool `json:"reauthenticate,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// Reauthenticate 外部服务返回 401
func Reauthenticate(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:           http.StatusUnauthorized,
		Message:        "credentials expired, please sign in again",
		Reauthenticate: true,
	})
}

// HandleError 按错误分类映射 HTTP 状态码，原始传输错误不返回给前端
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCredentialsExpired):
		Reauthenticate(c)
	case errors.Is(err, ErrInvalidInput):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNotParticipant):
		Forbidden(c)
	case errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrActivityNotFound),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrResultNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDataIntegrity),
		errors.Is(err, ErrAttemptAlreadyOpen),
		errors.Is(err, ErrAttemptClosed),
		errors.Is(err, ErrEventNotActive),
		errors.Is(err, ErrActivityNotAvailable),
		errors.Is(err, ErrExtendNotAllowed):
		if errors.Is(err, ErrDataIntegrity) {
			logger.Log.Warn("Data integrity error", zap.Error(err))
		}
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrExternalService):
		logger.Log.Warn("External service error", zap.Error(err))
		var ext *ExternalServiceError
		if errors.As(err, &ext) {
			Error(c, http.StatusBadGateway, ext.Service+" is unavailable, try again later")
			return
		}
		Error(c, http.StatusBadGateway, "external service unavailable")
	case errors.Is(err, ErrConfiguration):
		logger.Log.Error("Configuration error", zap.Error(err))
		Error(c, http.StatusInternalServerError, err.Error())
	default:
		LogInternalError(c, err)
	}
}
