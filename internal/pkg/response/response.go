package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ngaut/NexusCRM-sub002/internal/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`              // 业务错误码（0表示成功）
	Message string `json:"message,omitempty"` // 提示信息
	Data    any    `json:"data"`
}

func body(code int, message string, data any) Response {
	if data == nil {
		data = struct{}{}
	}
	return Response{Code: code, Message: message, Data: data}
}

// Success 成功响应（200）
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, body(apperrors.Success, "", data))
}

// SuccessWithMessage 带消息的成功响应（200）
func SuccessWithMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, body(apperrors.Success, message, data))
}

// Created 创建资源成功（201）
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, body(apperrors.Success, "", data))
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, body(httpStatus, message, nil))
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// ErrorWithCode 使用错误码的错误响应
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	c.JSON(apperrors.GetHTTPStatus(code), body(code, apperrors.FormatError(code, details...), nil))
}

// HandleError 统一错误处理（使用AppError）
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code := apperrors.ExtractCode(err)
	ErrorWithCode(c, code, apperrors.GetDetails(err))
}
