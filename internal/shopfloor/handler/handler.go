package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/handoff"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/overlay"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Auth       *AuthHandler
	Queue      *QueueHandler
	Order      *OrderHandler
	Status     *StatusHandler
	Workbench  *WorkbenchHandler
	MasterData *MasterDataHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Auth:       NewAuthHandler(svc.Auth),
		Queue:      NewQueueHandler(svc.Queue),
		Order:      NewOrderHandler(svc.Order),
		Status:     NewStatusHandler(svc.Status),
		Workbench:  NewWorkbenchHandler(svc.Handoff, svc.Drawing, svc.Export, logger.Named("workbench")),
		MasterData: NewMasterDataHandler(svc.MasterData),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// handleError 把服务层错误映射为响应；后端错误优先展示后端消息
func handleError(c *gin.Context, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, handoff.ErrEmptySelection):
		BadRequest(c, "Please select at least one row before sending")
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, handoff.ErrInvalidRow),
		errors.Is(err, handoff.ErrNoSelectionColumn):
		BadRequest(c, err.Error())
	case errors.Is(err, auth.ErrSessionExpired):
		Error(c, 40102, "Session expired, please log in again")
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, auth.ErrNoSession):
		Unauthorized(c, "Please log in to continue")
	case errors.Is(err, overlay.ErrPageOutOfRange):
		NotFound(c, "Page not found")
	case errors.Is(err, overlay.ErrDocumentFailed):
		Error(c, 42200, "Failed to load PDF")
	case errors.Is(err, backend.ErrNotFound):
		NotFound(c, backend.UserMessage(err))
	case errors.As(err, &apiErr):
		Error(c, 50200, backend.UserMessage(err))
	default:
		InternalError(c, backend.FallbackMessage)
	}
}

// parseID 解析路径中的数字 ID
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "无效的ID: "+c.Param(name))
		return 0, false
	}
	return id, true
}

// parseDepartment 解析部门参数（大小写不敏感）
func parseDepartment(c *gin.Context, raw string) (entity.Department, bool) {
	dept, ok := entity.ParseDepartment(strings.TrimSpace(raw))
	if !ok {
		BadRequest(c, "unknown department: "+raw)
		return "", false
	}
	return dept, true
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
