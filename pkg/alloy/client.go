package alloy

import (
	"context"
	"crucible_backend/pkg/apiclient"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrNotFound     = apiclient.ErrNotFound
	ErrUnauthorized = apiclient.ErrUnauthorized
)

// Client Alloy 事件编排 API
type Client struct {
	api *apiclient.Client
}

// NewClient httpClient 应为带 OAuth2 token 的客户端
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	return &Client{api: apiclient.New("alloy", baseURL, httpClient, timeout)}
}

func (c *Client) SetTimeout(d time.Duration) {
	c.api.SetTimeout(d)
}

func (c *Client) getEvent(ctx context.Context, op, method, path string, in interface{}) (*Event, error) {
	var ev Event
	if err := c.api.Do(ctx, op, method, path, in, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("alloy %s: %w", op, err)
	}
	return &ev, nil
}

// CreateEvent 按事件模板启动一个新的实验环境
func (c *Client) CreateEvent(ctx context.Context, templateID string) (*Event, error) {
	return c.getEvent(ctx, "create_event", http.MethodPost,
		fmt.Sprintf("/eventTemplates/%s/events", url.PathEscape(templateID)), nil)
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	return c.getEvent(ctx, "get_event", http.MethodGet,
		fmt.Sprintf("/events/%s", url.PathEscape(eventID)), nil)
}

// ListEvents 返回模板下属于 userRef 的事件
func (c *Client) ListEvents(ctx context.Context, templateID, userRef string) ([]Event, error) {
	var events []Event
	path := fmt.Sprintf("/eventTemplates/%s/events?userId=%s", url.PathEscape(templateID), url.QueryEscape(userRef))
	if err := c.api.Do(ctx, "list_events", http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	valid := events[:0]
	for _, ev := range events {
		if ev.Validate() == nil {
			valid = append(valid, ev)
		}
	}
	return valid, nil
}

func (c *Client) EndEvent(ctx context.Context, eventID string) error {
	return c.api.Do(ctx, "end_event", http.MethodDelete,
		fmt.Sprintf("/events/%s", url.PathEscape(eventID)), nil, nil)
}

// ExtendEvent 更新事件的过期时间
func (c *Client) ExtendEvent(ctx context.Context, eventID string, expiration time.Time) (*Event, error) {
	ev, err := c.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	exp := expiration.UTC().Format(time.RFC3339)
	ev.ExpirationDate = &exp
	return c.getEvent(ctx, "extend_event", http.MethodPut,
		fmt.Sprintf("/events/%s", url.PathEscape(eventID)), ev)
}

func (c *Client) GenerateShareCode(ctx context.Context, eventID string) (string, error) {
	ev, err := c.getEvent(ctx, "share_code", http.MethodPost,
		fmt.Sprintf("/events/%s/sharecode", url.PathEscape(eventID)), nil)
	if err != nil {
		return "", err
	}
	if ev.ShareCode == nil || *ev.ShareCode == "" {
		return "", fmt.Errorf("alloy share_code: event %s returned no share code", eventID)
	}
	return *ev.ShareCode, nil
}

// Enlist 使用分享码加入他人的事件，返回事件 id
func (c *Client) Enlist(ctx context.Context, code string) (string, error) {
	ev, err := c.getEvent(ctx, "enlist", http.MethodPost,
		fmt.Sprintf("/events/enlist/%s", url.PathEscape(code)), nil)
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}
