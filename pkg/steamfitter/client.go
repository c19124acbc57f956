package steamfitter

import (
	"context"
	"crucible_backend/pkg/apiclient"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotFound     = apiclient.ErrNotFound
	ErrUnauthorized = apiclient.ErrUnauthorized
)

type ResultStatus string

const (
	StatusSucceeded ResultStatus = "succeeded"
	StatusFailed    ResultStatus = "failed"
	StatusQueued    ResultStatus = "queued"
	StatusSent      ResultStatus = "sent"
	StatusPending   ResultStatus = "pending"
	StatusExpired   ResultStatus = "expired"
	StatusCancelled ResultStatus = "cancelled"
	StatusError     ResultStatus = "error"
)

// Task Steamfitter 场景（模板）中的任务
type Task struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	ScenarioTemplateID *string `json:"scenarioTemplateId"`
	ScenarioID         *string `json:"scenarioId"`
	UserExecutable     bool    `json:"userExecutable"`
}

// Result 一次任务执行在某台虚拟机上的结果
type Result struct {
	ID           string       `json:"id"`
	TaskID       string       `json:"taskId"`
	VMName       string       `json:"vmName"`
	Status       ResultStatus `json:"status"`
	Score        *float64     `json:"score"`
	ActualOutput string       `json:"actualOutput"`
}

func (r Result) Succeeded() bool {
	return strings.EqualFold(string(r.Status), string(StatusSucceeded))
}

func (r Result) Failed() bool {
	return strings.EqualFold(string(r.Status), string(StatusFailed))
}

type Client struct {
	api *apiclient.Client
}

func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	return &Client{api: apiclient.New("steamfitter", baseURL, httpClient, timeout)}
}

func (c *Client) SetTimeout(d time.Duration) {
	c.api.SetTimeout(d)
}

func (c *Client) ListTemplateTasks(ctx context.Context, templateID string) ([]Task, error) {
	return c.listTasks(ctx, "list_template_tasks", fmt.Sprintf("/scenariotemplates/%s/tasks", url.PathEscape(templateID)))
}

func (c *Client) ListScenarioTasks(ctx context.Context, scenarioID string) ([]Task, error) {
	return c.listTasks(ctx, "list_scenario_tasks", fmt.Sprintf("/scenarios/%s/tasks", url.PathEscape(scenarioID)))
}

func (c *Client) listTasks(ctx context.Context, op, path string) ([]Task, error) {
	var tasks []Task
	if err := c.api.Do(ctx, op, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	out := tasks[:0]
	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// ExecuteTask 同步执行任务，返回每台虚拟机的结果
func (c *Client) ExecuteTask(ctx context.Context, taskID string) ([]Result, error) {
	var results []Result
	if err := c.api.Do(ctx, "execute_task", http.MethodPost,
		fmt.Sprintf("/tasks/%s/execute", url.PathEscape(taskID)), nil, &results); err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Status = ResultStatus(strings.ToLower(string(results[i].Status)))
		if results[i].VMName == "" {
			return nil, fmt.Errorf("steamfitter execute_task: result %d of task %s has no vm name", i, taskID)
		}
	}
	return results, nil
}
