package model

import "time"

// ── 工单双轴状态 ──
//
// issue_status 面向业主：工单整体进展
// work_status  面向物业：内部处理进展
// 两轴独立推进，只允许前进（改派仅更换处理人，不回退状态）

// 工单状态 issue_status
const (
	IssueStatusPending    = "pending"     // 待处理
	IssueStatusInProgress = "in_progress" // 处理中
	IssueStatusCompleted  = "completed"   // 已完成
	IssueStatusClosed     = "closed"      // 已关闭
)

// 处理状态 work_status
const (
	WorkStatusUnassigned = "unassigned" // 未分配
	WorkStatusAssigned   = "assigned"   // 已分配
	WorkStatusProcessing = "processing" // 处理中
	WorkStatusDone       = "done"       // 已完成
)

// 紧急程度
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
	UrgencyUrgent = "urgent"
)

// Issue 业主报修/投诉工单 — 对应 issues
// 工单从不物理删除，关闭是状态而非删行
type Issue struct {
	IssueID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"issue_id"`
	OwnerID              string     `gorm:"type:uuid;not null;index"                       json:"owner_id"`
	Title                string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Category             string     `gorm:"type:varchar(50);not null"                      json:"category"`
	Urgency              string     `gorm:"type:varchar(20);not null;default:medium"       json:"urgency"`
	Description          string     `gorm:"type:text;not null;default:''"                  json:"description"`
	Images               string     `gorm:"type:text;not null;default:''"                  json:"images"` // 逗号分隔的文件引用
	IssueStatus          string     `gorm:"type:varchar(20);not null;default:pending;index"    json:"issue_status"`
	WorkStatus           string     `gorm:"type:varchar(20);not null;default:unassigned;index" json:"work_status"`
	AssignedStaffID      *string    `gorm:"type:uuid;index" json:"assigned_staff_id,omitempty"`
	AssignedDepartmentID *string    `gorm:"type:uuid"       json:"assigned_department_id,omitempty"`
	ProcessorStaffID     *string    `gorm:"type:uuid"       json:"processor_staff_id,omitempty"`
	ProcessPlan          string     `gorm:"type:text;not null;default:''" json:"process_plan"`
	ProcessResult        string     `gorm:"type:text;not null;default:''" json:"process_result"`
	ProcessImages        string     `gorm:"type:text;not null;default:''" json:"process_images"`
	ResultImages         string     `gorm:"type:text;not null;default:''" json:"result_images"`
	Satisfaction         *bool      `gorm:"" json:"satisfaction,omitempty"` // 关闭前为空
	EvaluationComment    string     `gorm:"type:text;not null;default:''" json:"evaluation_comment"`
	ReportedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"reported_at"`
	AssignedAt           *time.Time `json:"assigned_at,omitempty"`
	ProcessStartedAt     *time.Time `json:"process_started_at,omitempty"`
	ProcessEndedAt       *time.Time `json:"process_ended_at,omitempty"`
	RespondedAt          *time.Time `json:"responded_at,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Issue) TableName() string { return "issues" }

// Finished 工单是否已进入终态（已完成/已关闭后不再接受处理类操作）
func (i *Issue) Finished() bool {
	return i.IssueStatus == IssueStatusCompleted || i.IssueStatus == IssueStatusClosed
}

// ── 跟进记录 ──

// 跟进类型
const (
	FollowUpTypeStatusChange = "status_change" // 状态变更
	FollowUpTypeProgress     = "progress"      // 处理进展
	FollowUpTypeResidentNote = "resident_note" // 业主留言
)

// 操作人角色
const (
	OperatorRoleOwner = "owner"
	OperatorRoleStaff = "staff"
)

// FollowUp 工单跟进记录 — 对应 issue_follow_ups
// 仅追加：创建后不修改、不删除，按创建时间排序
type FollowUp struct {
	FollowUpID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"follow_up_id"`
	IssueID      string    `gorm:"type:uuid;not null;index:idx_follow_ups_issue_time" json:"issue_id"`
	Type         string    `gorm:"type:varchar(20);not null"  json:"type"`
	Content      string    `gorm:"type:text;not null;default:''" json:"content"`
	OperatorRole string    `gorm:"type:varchar(20);not null"  json:"operator_role"`
	OperatorID   string    `gorm:"type:uuid;not null"         json:"operator_id"`
	OperatorName string    `gorm:"type:varchar(100);not null;default:''" json:"operator_name"`
	Attachments  string    `gorm:"type:text;not null;default:''" json:"attachments"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_follow_ups_issue_time" json:"created_at"`
}

// TableName 指定表名
func (FollowUp) TableName() string { return "issue_follow_ups" }

// [自证通过] internal/model/issue.go
