package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"smart-property/backend/internal/dto"
	"smart-property/backend/internal/model"
	"smart-property/backend/internal/service"
	"smart-property/backend/pkg/response"
)

// IssueHandler 工单模块 HTTP 处理器
type IssueHandler struct {
	issueSvc service.IssueService
}

// NewIssueHandler 创建 IssueHandler
func NewIssueHandler(issueSvc service.IssueService) *IssueHandler {
	return &IssueHandler{issueSvc: issueSvc}
}

// SubmitIssue 业主提交工单
// POST /api/v1/issues
func (h *IssueHandler) SubmitIssue(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	issue, err := h.issueSvc.Submit(c.Request.Context(), ownerID, &req)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.Created(c, issue)
}

// GetIssue 获取工单详情
// GET /api/v1/issues/:id
func (h *IssueHandler) GetIssue(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	issue, err := h.issueSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, issue)
}

// ListFollowUps 获取工单跟进记录（按时间正序）
// GET /api/v1/issues/:id/follow-ups
func (h *IssueHandler) ListFollowUps(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	fus, err := h.issueSvc.ListFollowUps(c.Request.Context(), id)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, gin.H{"list": fus})
}

// AssignIssue 分配工单
// POST /api/v1/issues/:id/assign
func (h *IssueHandler) AssignIssue(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.AssignIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	issue, err := h.issueSvc.Assign(c.Request.Context(), id, &req)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, issue)
}

// ReassignIssue 改派工单
// POST /api/v1/issues/:id/reassign
func (h *IssueHandler) ReassignIssue(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.ReassignIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	issue, err := h.issueSvc.Reassign(c.Request.Context(), id, &req)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, issue)
}

// StartProcessing 开始处理工单
// POST /api/v1/issues/:id/start
func (h *IssueHandler) StartProcessing(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.StartProcessingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	issue, err := h.issueSvc.StartProcessing(c.Request.Context(), id, &req)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, issue)
}

// SubmitResult 提交处理结果
// POST /api/v1/issues/:id/result
func (h *IssueHandler) SubmitResult(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	issue, err := h.issueSvc.SubmitResult(c.Request.Context(), id, &req)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, issue)
}

// MarkResolved 物业确认处理完成
// POST /api/v1/issues/:id/resolve
func (h *IssueHandler) MarkResolved(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.MarkResolvedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	issue, err := h.issueSvc.MarkResolved(c.Request.Context(), id, req.StaffID)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, issue)
}

// EvaluateIssue 业主满意度评价
// POST /api/v1/issues/:id/evaluate
func (h *IssueHandler) EvaluateIssue(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.EvaluateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	issue, err := h.issueSvc.Evaluate(c.Request.Context(), id, ownerID, &req)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.OK(c, issue)
}

// AddFollowUp 追加跟进记录
// POST /api/v1/issues/:id/follow-ups
func (h *IssueHandler) AddFollowUp(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.AddFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	// 跟进记录的操作人角色只区分业主/物业，管理员按物业记录
	operatorRole := model.OperatorRoleStaff
	if role == "owner" {
		operatorRole = model.OperatorRoleOwner
	}

	fu, err := h.issueSvc.AddFollowUp(c.Request.Context(), id, &req, operatorRole, userID)
	if err != nil {
		h.handleIssueError(c, err)
		return
	}

	response.Created(c, fu)
}

// handleIssueError 统一处理工单模块业务错误
func (h *IssueHandler) handleIssueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrIssueNotFound):
		response.NotFound(c, 20001, "工单不存在")
	case errors.Is(err, service.ErrStaffNotFound):
		response.NotFound(c, 20002, "物业人员不存在")
	case errors.Is(err, service.ErrOwnerNotFound):
		response.NotFound(c, 20003, "业主不存在")
	case errors.Is(err, service.ErrIssueNotCompleted):
		response.BadRequest(c, 20004, "工单尚未完成，不能评价")
	case errors.Is(err, service.ErrIssueFinished):
		response.BadRequest(c, 20005, "工单已进入终态，不能再处理")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/issue_handler.go
