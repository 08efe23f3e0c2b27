package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"smart-property/backend/internal/dto"
	"smart-property/backend/internal/model"
	"smart-property/backend/internal/notify"
	"smart-property/backend/internal/repository"
)

// ── 工单模块业务错误 ──

var (
	ErrIssueNotFound     = errors.New("工单不存在")
	ErrStaffNotFound     = errors.New("物业人员不存在")
	ErrOwnerNotFound     = errors.New("业主不存在")
	ErrIssueNotCompleted = errors.New("工单尚未完成，不能评价")
	ErrIssueFinished     = errors.New("工单已进入终态，不能再处理")
)

// EventPublisher 事件发布接口（由 notify.Publisher 实现）
// 两个方法均为尽力而为，不返回错误
type EventPublisher interface {
	PublishChange(ctx context.Context, action, entityType, entityID string, data json.RawMessage)
	PublishNotification(ctx context.Context, target, typ, title, content string, data json.RawMessage)
	PublishNotificationTo(ctx context.Context, target, subscriberID, typ, title, content string, data json.RawMessage)
}

// IssueService 工单工作流引擎
//
// 工单状态只经由这里的操作变更：每个操作在单个事务内重读工单并提交
// 状态变更与跟进记录，事务提交后再发布事件（发布失败不回滚业务）
type IssueService interface {
	Submit(ctx context.Context, ownerID string, req *dto.SubmitIssueRequest) (*dto.IssueResponse, error)
	GetByID(ctx context.Context, issueID string) (*dto.IssueResponse, error)
	ListFollowUps(ctx context.Context, issueID string) ([]dto.FollowUpResponse, error)
	Assign(ctx context.Context, issueID string, req *dto.AssignIssueRequest) (*dto.IssueResponse, error)
	Reassign(ctx context.Context, issueID string, req *dto.ReassignIssueRequest) (*dto.IssueResponse, error)
	StartProcessing(ctx context.Context, issueID string, req *dto.StartProcessingRequest) (*dto.IssueResponse, error)
	SubmitResult(ctx context.Context, issueID string, req *dto.SubmitResultRequest) (*dto.IssueResponse, error)
	MarkResolved(ctx context.Context, issueID, staffID string) (*dto.IssueResponse, error)
	Evaluate(ctx context.Context, issueID, ownerID string, req *dto.EvaluateIssueRequest) (*dto.IssueResponse, error)
	AddFollowUp(ctx context.Context, issueID string, req *dto.AddFollowUpRequest, operatorRole, operatorID string) (*dto.FollowUpResponse, error)
}

type issueService struct {
	repo   *repository.Repository
	pub    EventPublisher
	logger *zap.Logger
}

// NewIssueService 创建 IssueService 实例
func NewIssueService(repo *repository.Repository, pub EventPublisher, logger *zap.Logger) IssueService {
	return &issueService{repo: repo, pub: pub, logger: logger}
}

// ────────────────────── Submit ──────────────────────

func (s *issueService) Submit(ctx context.Context, ownerID string, req *dto.SubmitIssueRequest) (*dto.IssueResponse, error) {
	owner, err := s.repo.Owner.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnerNotFound
		}
		s.logger.Error("查询业主失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = model.UrgencyMedium
	}

	issue := &model.Issue{
		OwnerID:     owner.OwnerID,
		Title:       req.Title,
		Category:    req.Category,
		Urgency:     urgency,
		Description: req.Description,
		Images:      joinRefs(req.Images),
		IssueStatus: model.IssueStatusPending,
		WorkStatus:  model.WorkStatusUnassigned,
		ReportedAt:  time.Now(),
	}
	issue.CreatedBy = &ownerID

	if err := s.repo.Issue.Create(ctx, issue); err != nil {
		s.logger.Error("创建工单失败", zap.Error(err))
		return nil, err
	}

	snapshot, _ := json.Marshal(issue)
	s.pub.PublishChange(ctx, notify.ActionCreate, notify.EntityIssue, issue.IssueID, snapshot)
	s.pub.PublishNotification(ctx, notify.ModuleStaff, notify.NotifyTypeIssueSubmitted,
		"新工单提交", owner.Name+" 提交了报修工单："+issue.Title, statusSnapshot(issue))

	return toIssueResponse(issue), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *issueService) GetByID(ctx context.Context, issueID string) (*dto.IssueResponse, error) {
	issue, err := s.repo.Issue.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		s.logger.Error("查询工单失败", zap.String("issue_id", issueID), zap.Error(err))
		return nil, err
	}
	return toIssueResponse(issue), nil
}

func (s *issueService) ListFollowUps(ctx context.Context, issueID string) ([]dto.FollowUpResponse, error) {
	if _, err := s.repo.Issue.GetByID(ctx, issueID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}

	fus, err := s.repo.Issue.ListFollowUps(ctx, issueID)
	if err != nil {
		s.logger.Error("查询跟进记录失败", zap.String("issue_id", issueID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.FollowUpResponse, 0, len(fus))
	for i := range fus {
		result = append(result, *toFollowUpResponse(&fus[i]))
	}
	return result, nil
}

// ────────────────────── Assign ──────────────────────

func (s *issueService) Assign(ctx context.Context, issueID string, req *dto.AssignIssueRequest) (*dto.IssueResponse, error) {
	staff, err := s.getStaff(ctx, req.StaffID)
	if err != nil {
		return nil, err
	}

	issue, err := s.mutate(ctx, issueID, func(tx repository.IssueTx, issue *model.Issue) error {
		now := time.Now()
		issue.AssignedStaffID = &staff.StaffID
		issue.AssignedDepartmentID = staff.DepartmentID
		issue.AssignedAt = &now
		// 状态只前进：已进入处理的工单分派不回退 work_status
		if issue.WorkStatus == model.WorkStatusUnassigned {
			issue.WorkStatus = model.WorkStatusAssigned
		}
		if err := tx.SaveIssue(issue); err != nil {
			return err
		}
		return tx.AppendFollowUp(&model.FollowUp{
			IssueID:      issue.IssueID,
			Type:         model.FollowUpTypeStatusChange,
			Content:      withRemark("工单已分配给 "+staff.Name, req.Remark),
			OperatorRole: model.OperatorRoleStaff,
			OperatorID:   staff.StaffID,
			OperatorName: staff.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(ctx, notify.ActionUpdate, notify.EntityIssue, issue.IssueID, statusSnapshot(issue))
	s.pub.PublishNotificationTo(ctx, notify.ModuleStaff, staff.StaffID, notify.NotifyTypeIssueAssigned,
		"工单分配", "工单「"+issue.Title+"」已分配给您", statusSnapshot(issue))

	return toIssueResponse(issue), nil
}

// ────────────────────── Reassign ──────────────────────

func (s *issueService) Reassign(ctx context.Context, issueID string, req *dto.ReassignIssueRequest) (*dto.IssueResponse, error) {
	staff, err := s.getStaff(ctx, req.StaffID)
	if err != nil {
		return nil, err
	}

	issue, err := s.mutate(ctx, issueID, func(tx repository.IssueTx, issue *model.Issue) error {
		now := time.Now()
		// 改派只更换处理人与分配时间，不回退任何状态
		issue.AssignedStaffID = &staff.StaffID
		issue.AssignedDepartmentID = staff.DepartmentID
		issue.AssignedAt = &now
		if err := tx.SaveIssue(issue); err != nil {
			return err
		}
		return tx.AppendFollowUp(&model.FollowUp{
			IssueID:      issue.IssueID,
			Type:         model.FollowUpTypeStatusChange,
			Content:      withRemark("工单已改派给 "+staff.Name, req.Remark),
			OperatorRole: model.OperatorRoleStaff,
			OperatorID:   staff.StaffID,
			OperatorName: staff.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(ctx, notify.ActionUpdate, notify.EntityIssue, issue.IssueID, statusSnapshot(issue))
	s.pub.PublishNotificationTo(ctx, notify.ModuleStaff, staff.StaffID, notify.NotifyTypeIssueAssigned,
		"工单改派", "工单「"+issue.Title+"」已改派给您", statusSnapshot(issue))

	return toIssueResponse(issue), nil
}

// ────────────────────── StartProcessing ──────────────────────

// StartProcessing 开始处理
// 终态工单拒绝再处理；未完成前重复调用会覆盖处理方案与开始时间
// （沿用线上系统的可重入行为，是否收紧待产品确认）
func (s *issueService) StartProcessing(ctx context.Context, issueID string, req *dto.StartProcessingRequest) (*dto.IssueResponse, error) {
	staff, err := s.getStaff(ctx, req.StaffID)
	if err != nil {
		return nil, err
	}

	issue, err := s.mutate(ctx, issueID, func(tx repository.IssueTx, issue *model.Issue) error {
		if issue.Finished() {
			return ErrIssueFinished
		}
		now := time.Now()
		issue.ProcessorStaffID = &staff.StaffID
		issue.ProcessPlan = req.Plan
		issue.ProcessStartedAt = &now
		issue.IssueStatus = model.IssueStatusInProgress
		// 状态只前进：内部已确认完成的工单不回退 work_status
		if issue.WorkStatus != model.WorkStatusDone {
			issue.WorkStatus = model.WorkStatusProcessing
		}
		if err := tx.SaveIssue(issue); err != nil {
			return err
		}
		return tx.AppendFollowUp(&model.FollowUp{
			IssueID:      issue.IssueID,
			Type:         model.FollowUpTypeStatusChange,
			Content:      staff.Name + " 开始处理，处理方案：" + req.Plan,
			OperatorRole: model.OperatorRoleStaff,
			OperatorID:   staff.StaffID,
			OperatorName: staff.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(ctx, notify.ActionUpdate, notify.EntityIssue, issue.IssueID, statusSnapshot(issue))

	return toIssueResponse(issue), nil
}

// ────────────────────── SubmitResult ──────────────────────

// SubmitResult 提交处理结果
// 记录结果的同时将 issue_status 推进到已完成（已完成必有处理结果）。
// work_status 仍须由 MarkResolved 单独推进 —— 双轴状态独立演进
func (s *issueService) SubmitResult(ctx context.Context, issueID string, req *dto.SubmitResultRequest) (*dto.IssueResponse, error) {
	staff, err := s.getStaff(ctx, req.StaffID)
	if err != nil {
		return nil, err
	}

	issue, err := s.mutate(ctx, issueID, func(tx repository.IssueTx, issue *model.Issue) error {
		now := time.Now()
		issue.ProcessResult = req.Result
		issue.ProcessImages = joinRefs(req.ProcessImages)
		issue.ResultImages = joinRefs(req.ResultImages)
		if req.Plan != "" {
			issue.ProcessPlan = req.Plan
		}
		issue.ProcessEndedAt = &now
		issue.RespondedAt = &now
		issue.IssueStatus = model.IssueStatusCompleted
		if err := tx.SaveIssue(issue); err != nil {
			return err
		}
		return tx.AppendFollowUp(&model.FollowUp{
			IssueID:      issue.IssueID,
			Type:         model.FollowUpTypeProgress,
			Content:      staff.Name + " 提交处理结果：" + req.Result,
			OperatorRole: model.OperatorRoleStaff,
			OperatorID:   staff.StaffID,
			OperatorName: staff.Name,
			Attachments:  joinRefs(append(append([]string{}, req.ProcessImages...), req.ResultImages...)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(ctx, notify.ActionUpdate, notify.EntityIssue, issue.IssueID, statusSnapshot(issue))
	s.pub.PublishNotificationTo(ctx, notify.ModuleOwner, issue.OwnerID, notify.NotifyTypeIssueResult,
		"工单处理完成", "您报修的「"+issue.Title+"」已处理完成，请查看并评价", statusSnapshot(issue))

	return toIssueResponse(issue), nil
}

// ────────────────────── MarkResolved ──────────────────────

// MarkResolved 标记内部处理完成
// 只推进 work_status，不触碰 issue_status，两轴各自推进
func (s *issueService) MarkResolved(ctx context.Context, issueID, staffID string) (*dto.IssueResponse, error) {
	staff, err := s.getStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}

	issue, err := s.mutate(ctx, issueID, func(tx repository.IssueTx, issue *model.Issue) error {
		issue.WorkStatus = model.WorkStatusDone
		if err := tx.SaveIssue(issue); err != nil {
			return err
		}
		return tx.AppendFollowUp(&model.FollowUp{
			IssueID:      issue.IssueID,
			Type:         model.FollowUpTypeStatusChange,
			Content:      staff.Name + " 确认处理完成",
			OperatorRole: model.OperatorRoleStaff,
			OperatorID:   staff.StaffID,
			OperatorName: staff.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(ctx, notify.ActionUpdate, notify.EntityIssue, issue.IssueID, statusSnapshot(issue))

	return toIssueResponse(issue), nil
}

// ────────────────────── Evaluate ──────────────────────

// Evaluate 业主满意度评价
// 仅工单处于已完成时允许；满意则关闭工单，不满意保持已完成，
// 业主可继续追加跟进而非重新打开工单
func (s *issueService) Evaluate(ctx context.Context, issueID, ownerID string, req *dto.EvaluateIssueRequest) (*dto.IssueResponse, error) {
	owner, err := s.repo.Owner.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnerNotFound
		}
		s.logger.Error("查询业主失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	issue, err := s.mutate(ctx, issueID, func(tx repository.IssueTx, issue *model.Issue) error {
		if issue.IssueStatus != model.IssueStatusCompleted {
			return ErrIssueNotCompleted
		}
		issue.Satisfaction = req.Satisfied
		issue.EvaluationComment = req.Comment
		if req.Satisfied != nil && *req.Satisfied {
			issue.IssueStatus = model.IssueStatusClosed
		}
		issue.UpdatedBy = &owner.OwnerID
		return tx.SaveIssue(issue)
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(ctx, notify.ActionUpdate, notify.EntityIssue, issue.IssueID, statusSnapshot(issue))

	return toIssueResponse(issue), nil
}

// ────────────────────── AddFollowUp ──────────────────────

// AddFollowUp 追加跟进记录，任意状态下可用（业主留言 / 物业补充进展）
func (s *issueService) AddFollowUp(ctx context.Context, issueID string, req *dto.AddFollowUpRequest, operatorRole, operatorID string) (*dto.FollowUpResponse, error) {
	operatorName, err := s.resolveOperatorName(ctx, operatorRole, operatorID)
	if err != nil {
		return nil, err
	}

	fuType := model.FollowUpTypeProgress
	if operatorRole == model.OperatorRoleOwner {
		fuType = model.FollowUpTypeResidentNote
	}

	fu := &model.FollowUp{
		IssueID:      issueID,
		Type:         fuType,
		Content:      req.Content,
		OperatorRole: operatorRole,
		OperatorID:   operatorID,
		OperatorName: operatorName,
		Attachments:  joinRefs(req.Attachments),
	}

	_, err = s.mutate(ctx, issueID, func(tx repository.IssueTx, _ *model.Issue) error {
		return tx.AppendFollowUp(fu)
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(ctx, notify.ActionCreate, notify.EntityFollowUp, fu.FollowUpID, nil)

	return toFollowUpResponse(fu), nil
}

// ── 内部辅助方法 ──

// mutate 包装仓储事务并统一映射 NotFound
func (s *issueService) mutate(ctx context.Context, issueID string, fn func(tx repository.IssueTx, issue *model.Issue) error) (*model.Issue, error) {
	var result *model.Issue
	err := s.repo.Issue.Mutate(ctx, issueID, func(tx repository.IssueTx, issue *model.Issue) error {
		if err := fn(tx, issue); err != nil {
			return err
		}
		result = issue
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	return result, nil
}

func (s *issueService) getStaff(ctx context.Context, staffID string) (*model.Staff, error) {
	staff, err := s.repo.Staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		s.logger.Error("查询物业人员失败", zap.String("staff_id", staffID), zap.Error(err))
		return nil, err
	}
	return staff, nil
}

func (s *issueService) resolveOperatorName(ctx context.Context, role, id string) (string, error) {
	switch role {
	case model.OperatorRoleOwner:
		owner, err := s.repo.Owner.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrOwnerNotFound
			}
			return "", err
		}
		return owner.Name, nil
	default:
		staff, err := s.repo.Staff.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrStaffNotFound
			}
			return "", err
		}
		return staff.Name, nil
	}
}

// statusSnapshot 事件负载：双轴状态快照
func statusSnapshot(issue *model.Issue) json.RawMessage {
	data, _ := json.Marshal(map[string]string{
		"issue_status": issue.IssueStatus,
		"work_status":  issue.WorkStatus,
	})
	return data
}

func withRemark(content, remark string) string {
	if remark == "" {
		return content
	}
	return content + "，备注：" + remark
}

func joinRefs(refs []string) string {
	return strings.Join(refs, ",")
}

func splitRefs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toIssueResponse(issue *model.Issue) *dto.IssueResponse {
	return &dto.IssueResponse{
		IssueID:              issue.IssueID,
		OwnerID:              issue.OwnerID,
		Title:                issue.Title,
		Category:             issue.Category,
		Urgency:              issue.Urgency,
		Description:          issue.Description,
		Images:               splitRefs(issue.Images),
		IssueStatus:          issue.IssueStatus,
		WorkStatus:           issue.WorkStatus,
		AssignedStaffID:      issue.AssignedStaffID,
		AssignedDepartmentID: issue.AssignedDepartmentID,
		ProcessorStaffID:     issue.ProcessorStaffID,
		ProcessPlan:          issue.ProcessPlan,
		ProcessResult:        issue.ProcessResult,
		ProcessImages:        splitRefs(issue.ProcessImages),
		ResultImages:         splitRefs(issue.ResultImages),
		Satisfaction:         issue.Satisfaction,
		EvaluationComment:    issue.EvaluationComment,
		ReportedAt:           formatTime(issue.ReportedAt),
		AssignedAt:           formatTimePtr(issue.AssignedAt),
		ProcessStartedAt:     formatTimePtr(issue.ProcessStartedAt),
		ProcessEndedAt:       formatTimePtr(issue.ProcessEndedAt),
		RespondedAt:          formatTimePtr(issue.RespondedAt),
	}
}

func toFollowUpResponse(fu *model.FollowUp) *dto.FollowUpResponse {
	return &dto.FollowUpResponse{
		FollowUpID:   fu.FollowUpID,
		IssueID:      fu.IssueID,
		Type:         fu.Type,
		Content:      fu.Content,
		OperatorRole: fu.OperatorRole,
		OperatorID:   fu.OperatorID,
		OperatorName: fu.OperatorName,
		Attachments:  splitRefs(fu.Attachments),
		CreatedAt:    formatTime(fu.CreatedAt),
	}
}

// [自证通过] internal/service/issue_service.go
