package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"go.uber.org/zap"
)

// =============================================================================
// Client — ERP 后端 REST 客户端
// 所有请求一次性发出，不重试、不轮询；token 取自 context 中的 auth.Session
// =============================================================================

// FallbackMessage 后端未返回错误信息时使用的通用提示
const FallbackMessage = "Something went wrong. Please try again."

var (
	// ErrUnauthorized 后端返回 401（token 无效或过期）
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound 后端返回 404
	ErrNotFound = errors.New("not found")
)

// APIError 后端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap 401/404 可用 errors.Is 判断
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// UserMessage 返回面向用户的提示：后端消息或通用提示
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return FallbackMessage
}

// Observer 请求观测回调（用于指标）
type Observer func(method, route string, status int, elapsed time.Duration)

// Client 后端客户端
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	observe    Observer
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver 设置请求观测回调
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// NewClient 创建后端客户端；timeout 为 0 表示不设超时
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host required", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL 后端地址
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// doRequest 执行 JSON 请求
// route: 用于日志/指标的路由模板（不含 ID），path: 实际路径
// body 为 nil 则不发送请求体；result 为 nil 则忽略响应体
func (c *Client) doRequest(ctx context.Context, method, route, path string, query url.Values, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := c.newRequest(ctx, method, path, query, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	return c.send(req, route, true, result)
}

// doPublic 执行无需登录的 JSON 请求（登录接口）
func (c *Client) doPublic(ctx context.Context, method, route, path string, body, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, nil, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return c.send(req, route, false, result)
}

// doMultipart 执行 multipart/form-data 请求（带文件上传）
func (c *Client) doMultipart(ctx context.Context, route, path string, fields map[string]string, fileField, fileName string, file io.Reader, result interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("写入表单字段失败: %w", err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			return fmt.Errorf("创建文件字段失败: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return fmt.Errorf("写入文件失败: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("关闭表单失败: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, route, true, result)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send 附加 token、发送请求并解析响应
func (c *Client) send(req *http.Request, route string, authRequired bool, result interface{}) error {
	if authRequired {
		token, err := auth.Token(req.Context())
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", req.Method),
			zap.String("route", route),
			zap.Error(err),
		)
		c.record(req.Method, route, 0, start)
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()
	c.record(req.Method, route, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(respBody),
			Method:     req.Method,
			Path:       req.URL.Path,
		}
		c.logger.Warn("backend returned error",
			zap.String("method", req.Method),
			zap.String("route", route),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("解析响应体失败: %w", err)
	}
	return nil
}

func (c *Client) record(method, route string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(method, route, status, time.Since(start))
	}
}

// extractMessage 从错误响应中取出后端消息，支持 message/error 字段或纯文本
func extractMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}
	if body[0] == '<' {
		return ""
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// Download 下载附件。相对地址按后端地址解析；只有同源地址才附带 token。
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment url: %w", err)
	}
	target := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	if target.Host == c.baseURL.Host {
		if token, err := auth.Token(ctx); err == nil {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(http.MethodGet, "attachment", 0, start)
		return nil, fmt.Errorf("下载附件失败: %w", err)
	}
	defer resp.Body.Close()
	c.record(http.MethodGet, "attachment", resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取附件失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(data),
			Method:     http.MethodGet,
			Path:       target.Path,
		}
	}
	return data, nil
}
