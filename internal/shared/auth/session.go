package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSession 上下文中没有登录会话
	ErrNoSession = errors.New("not authenticated")
	// ErrSessionExpired token 已过期
	ErrSessionExpired = errors.New("session expired")
)

// Session 当前登录会话。
// 由请求携带的 bearer token 构建，作为唯一的 token 来源显式注入到需要访问后端的组件。
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims 后端签发的 token 声明
type Claims struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewSession 从 bearer token 构建会话。
// 签名由后端校验，这里只解析声明并检查过期时间；不是 JWT 的不透明 token 原样透传。
func NewSession(token string, now time.Time) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return &Session{Token: token}, nil
	}

	s := &Session{
		Token:  token,
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   claims.Role,
	}
	if s.UserID == "" {
		s.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(s.ExpiresAt) {
			return nil, ErrSessionExpired
		}
	}
	return s, nil
}

type sessionKey struct{}

// WithSession 把会话放入 context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext 取出会话
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// Token 取出会话 token，没有会话返回 ErrNoSession
func Token(ctx context.Context) (string, error) {
	s, ok := FromContext(ctx)
	if !ok || s.Token == "" {
		return "", ErrNoSession
	}
	return s.Token, nil
}
