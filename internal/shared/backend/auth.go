package backend

import (
	"context"
	"net/http"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginUser 登录用户信息
type LoginUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// LoginResponse 登录结果
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// Login 登录，返回后端签发的 bearer token
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doPublic(ctx, http.MethodPost, "auth.login", "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
