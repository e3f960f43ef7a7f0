package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTSecret 测试 token 签名密钥（签名由后端校验，BFF 只解析声明）
const JWTSecret = "nimo-shopfloor-test-secret"

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// GenerateTestToken creates a backend-style bearer token for testing
func GenerateTestToken(userID, name, role string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"uid":  userID,
		"name": name,
		"role": role,
		"iss":  "erp-backend",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default shop-floor test user
func DefaultTestToken() string {
	return GenerateTestToken("7", "Test Operator", "ADMIN", 24*time.Hour)
}

// ExpiredTestToken returns a token that expired an hour ago
func ExpiredTestToken() string {
	return GenerateTestToken("7", "Test Operator", "ADMIN", -time.Hour)
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody io.Reader = bytes.NewBuffer(nil)
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DoRaw executes a request with a prepared body and content type
func DoRaw(r http.Handler, method, path, contentType string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Data returns the "data" object of an envelope response
func Data(w *httptest.ResponseRecorder) map[string]interface{} {
	data, _ := ParseResponse(w)["data"].(map[string]interface{})
	return data
}
