package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
)

// AuthService 登录转发
type AuthService struct {
	client *backend.Client
}

func NewAuthService(client *backend.Client) *AuthService {
	return &AuthService{client: client}
}

// Login 用户名密码登录，返回后端签发的 token
func (s *AuthService) Login(ctx context.Context, username, password string) (*backend.LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("username and password are required")
	}
	return s.client.Login(ctx, backend.LoginRequest{Username: username, Password: password})
}
