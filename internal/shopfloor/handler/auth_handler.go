package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler 登录
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 用户名密码登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "username and password are required")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		// 登录失败展示后端消息（如用户名或密码错误）
		if errors.Is(err, backend.ErrUnauthorized) {
			Unauthorized(c, backend.UserMessage(err))
			return
		}
		handleError(c, err)
		return
	}
	Success(c, resp)
}

// Me 当前会话
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := auth.FromContext(c.Request.Context())
	if !ok {
		Unauthorized(c, "Please log in to continue")
		return
	}
	Success(c, session)
}
