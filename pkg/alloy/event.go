package alloy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	StatusCreating EventStatus = "Creating"
	StatusPlanning EventStatus = "Planning"
	StatusApplying EventStatus = "Applying"
	StatusActive   EventStatus = "Active"
	StatusEnding   EventStatus = "Ending"
	StatusEnded    EventStatus = "Ended"
	StatusFailed   EventStatus = "Failed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusCreating, StatusPlanning, StatusApplying, StatusActive, StatusEnding, StatusEnded, StatusFailed:
		return true
	}
	return false
}

// IsTerminal Ended/Failed 之后事件不会再变化
func (s EventStatus) IsTerminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// IsLaunching 事件仍在部署中
func (s EventStatus) IsLaunching() bool {
	return s == StatusCreating || s == StatusPlanning || s == StatusApplying
}

// Event Alloy 返回的事件。时间字段保留原始字符串，读取时通过 ParseTimestamp 归一化
type Event struct {
	ID              string      `json:"id"`
	EventTemplateID string      `json:"eventTemplateId"`
	Name            string      `json:"name"`
	UserID          string      `json:"userId"`
	Username        string      `json:"username"`
	Status          EventStatus `json:"status"`
	ScenarioID      *string     `json:"scenarioId"`
	ViewID          *string     `json:"viewId"`
	LaunchDate      *string     `json:"launchDate"`
	ExpirationDate  *string     `json:"expirationDate"`
	ShareCode       *string     `json:"shareCode"`
}

// Validate 在边界处校验，核心逻辑只处理合法事件
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("event id %q is not a uuid", e.ID)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("event %s has unknown status %q", e.ID, e.Status)
	}
	if e.ExpirationDate != nil && *e.ExpirationDate != "" {
		if _, err := ParseTimestamp(*e.ExpirationDate); err != nil {
			return fmt.Errorf("event %s: %w", e.ID, err)
		}
	}
	return nil
}

// Expiration 没有设置过期时间时返回 nil
func (e *Event) Expiration() *time.Time {
	return parseOptional(e.ExpirationDate)
}

func (e *Event) Launched() *time.Time {
	return parseOptional(e.LaunchDate)
}

func parseOptional(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := ParseTimestamp(*s)
	if err != nil {
		return nil
	}
	return &t
}

// ParseTimestamp Alloy 的时间戳有时不带 UTC 标记（"2024-01-01T10:00:00"），
// 约定按 UTC 处理：没有时区信息时补上 "Z" 再解析
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if !hasZone(s) {
		s += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func hasZone(s string) bool {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return true
	}
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return false
	}
	clock := s[i+1:]
	return strings.ContainsAny(clock, "+-")
}
