package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger 日志中间件
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", c.GetString("request_id")),
		}

		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if role := c.GetString("user_role"); role != "" {
			fields = append(fields, zap.String("role", role))
		}

		if status >= 500 {
			logger.Error("Server error", fields...)
		} else if status >= 400 {
			logger.Warn("Client error", fields...)
		} else {
			logger.Info("Request", fields...)
		}
	}
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// Session 会话中间件：把 bearer token 构建为 auth.Session 放入请求 context。
// 签名校验由 ERP 后端负责，这里只拒绝缺失或已过期的 token。
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}

		// 回退到 query param（图纸 <img> 等无法带 header 的场景）
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		session, err := auth.NewSession(tokenString, time.Now())
		if err != nil {
			code, message := 40100, "Please log in to continue"
			if errors.Is(err, auth.ErrSessionExpired) {
				code, message = 40102, "Session expired, please log in again"
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    code,
				"message": message,
			})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Set("user_id", session.UserID)
		c.Set("user_name", session.Name)
		c.Set("user_role", session.Role)
		c.Next()
	}
}
