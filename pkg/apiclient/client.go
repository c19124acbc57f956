// Package apiclient 是 Alloy、Steamfitter、成绩册客户端共用的 JSON over HTTP 调用层。
// 每次调用都带超时，超时与非 2xx 响应统一返回 *APIError 或已知哨兵错误。
package apiclient

import (
	"bytes"
	"context"
	"crucible_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError 非 2xx 响应
type APIError struct {
	Service    string
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: API error (%d): %s", e.Service, e.Op, e.StatusCode, e.Message)
}

// Unwrap 让 errors.Is(err, ErrNotFound/ErrUnauthorized) 成立
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

type Client struct {
	Service    string
	BaseURL    string
	HTTPClient *http.Client
	Header     http.Header
	timeout    atomic.Int64
}

func New(service, baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		Service:    service,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		Header:     http.Header{},
	}
	c.SetTimeout(timeout)
	return c
}

// SetTimeout 支持配置热更新
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = 15 * time.Second
	}
	c.timeout.Store(int64(d))
}

func (c *Client) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// Do 发送请求并把 JSON 响应解析到 out（out 为 nil 时丢弃响应体）
func (c *Client) Do(ctx context.Context, op, method, path string, in, out interface{}) (err error) {
	start := time.Now()
	defer func() { monitoring.ObserveCall(c.Service, op, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if tokenErr := tokenError(c.Service, op, err); tokenErr != nil {
			return tokenErr
		}
		return fmt.Errorf("%s %s: request failed: %w", c.Service, op, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Service: c.Service, Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: malformed response: %w", c.Service, op, err)
	}
	return nil
}
