package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"smart-property/backend/config"
	"smart-property/backend/internal/dto"
	"smart-property/backend/internal/model"
	"smart-property/backend/internal/notify"
	"smart-property/backend/internal/repository"
	"smart-property/backend/pkg/bus"
)

const (
	testOwnerID  = "11111111-1111-1111-1111-111111111111"
	testStaffID  = "22222222-2222-2222-2222-222222222222"
	testStaffID2 = "33333333-3333-3333-3333-333333333333"
	testDeptID   = "44444444-4444-4444-4444-444444444444"
)

func setupIssueService() (IssueService, *mockIssueRepo, *capturePublisher) {
	deptID := testDeptID
	issueRepo := newMockIssueRepo()
	repo := &repository.Repository{
		Issue: issueRepo,
		Owner: newMockOwnerRepo(&model.Owner{OwnerID: testOwnerID, Name: "张三", HouseNo: "3-201"}),
		Staff: newMockStaffRepo(
			&model.Staff{StaffID: testStaffID, Name: "李四", DepartmentID: &deptID},
			&model.Staff{StaffID: testStaffID2, Name: "王五", DepartmentID: &deptID},
		),
	}
	pub := &capturePublisher{}
	return NewIssueService(repo, pub, zap.NewNop()), issueRepo, pub
}

func submitTestIssue(t *testing.T, svc IssueService) *dto.IssueResponse {
	t.Helper()
	issue, err := svc.Submit(context.Background(), testOwnerID, &dto.SubmitIssueRequest{
		Title:       "厨房水管漏水",
		Category:    "repair",
		Urgency:     model.UrgencyHigh,
		Description: "水管接口处持续渗水",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return issue
}

func TestIssueService_Submit(t *testing.T) {
	svc, _, pub := setupIssueService()

	issue := submitTestIssue(t, svc)

	if issue.IssueStatus != model.IssueStatusPending {
		t.Errorf("IssueStatus = %s, want %s", issue.IssueStatus, model.IssueStatusPending)
	}
	if issue.WorkStatus != model.WorkStatusUnassigned {
		t.Errorf("WorkStatus = %s, want %s", issue.WorkStatus, model.WorkStatusUnassigned)
	}
	if issue.IssueID == "" {
		t.Error("IssueID 不应为空")
	}

	if len(pub.changes) != 1 {
		t.Fatalf("变更事件数 = %d, want 1", len(pub.changes))
	}
	if pub.changes[0].Action != notify.ActionCreate || pub.changes[0].EntityType != notify.EntityIssue {
		t.Errorf("变更事件 = %s/%s, want create/issue", pub.changes[0].Action, pub.changes[0].EntityType)
	}
	if len(pub.notifications) != 1 || pub.notifications[0].Target != notify.ModuleStaff {
		t.Errorf("提交后应向物业端推送一条通知, got %+v", pub.notifications)
	}
}

func TestIssueService_Submit_OwnerNotFound(t *testing.T) {
	svc, _, _ := setupIssueService()

	_, err := svc.Submit(context.Background(), "99999999-9999-9999-9999-999999999999", &dto.SubmitIssueRequest{
		Title:    "测试",
		Category: "repair",
	})
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("error = %v, want ErrOwnerNotFound", err)
	}
}

func TestIssueService_Assign(t *testing.T) {
	svc, _, pub := setupIssueService()
	issue := submitTestIssue(t, svc)

	updated, err := svc.Assign(context.Background(), issue.IssueID, &dto.AssignIssueRequest{
		StaffID: testStaffID,
		Remark:  "优先处理",
	})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	if updated.WorkStatus != model.WorkStatusAssigned {
		t.Errorf("WorkStatus = %s, want %s", updated.WorkStatus, model.WorkStatusAssigned)
	}
	if updated.IssueStatus != model.IssueStatusPending {
		t.Errorf("分配不应推进 issue_status, got %s", updated.IssueStatus)
	}
	if updated.AssignedStaffID == nil || *updated.AssignedStaffID != testStaffID {
		t.Errorf("AssignedStaffID = %v, want %s", updated.AssignedStaffID, testStaffID)
	}
	if updated.AssignedAt == nil {
		t.Error("AssignedAt 不应为空")
	}

	fus, err := svc.ListFollowUps(context.Background(), issue.IssueID)
	if err != nil {
		t.Fatalf("ListFollowUps() error = %v", err)
	}
	if len(fus) != 1 {
		t.Fatalf("跟进记录数 = %d, want 1", len(fus))
	}
	if fus[0].Type != model.FollowUpTypeStatusChange {
		t.Errorf("跟进类型 = %s, want %s", fus[0].Type, model.FollowUpTypeStatusChange)
	}

	// 分配产生变更事件 + 定向投递给被分配人的通知
	last := pub.notifications[len(pub.notifications)-1]
	if last.Target != notify.ModuleStaff || last.Type != notify.NotifyTypeIssueAssigned {
		t.Errorf("通知 = %+v, want staff/issue_assigned", last)
	}
	if last.Subscriber != testStaffID {
		t.Errorf("通知订阅者 = %s, want %s（不应广播给全体物业）", last.Subscriber, testStaffID)
	}
}

func TestIssueService_Assign_StaffNotFound(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	_, err := svc.Assign(context.Background(), issue.IssueID, &dto.AssignIssueRequest{
		StaffID: "99999999-9999-9999-9999-999999999999",
	})
	if !errors.Is(err, ErrStaffNotFound) {
		t.Errorf("error = %v, want ErrStaffNotFound", err)
	}
}

func TestIssueService_Assign_IssueNotFound(t *testing.T) {
	svc, _, _ := setupIssueService()

	_, err := svc.Assign(context.Background(), "99999999-9999-9999-9999-999999999999", &dto.AssignIssueRequest{
		StaffID: testStaffID,
	})
	if !errors.Is(err, ErrIssueNotFound) {
		t.Errorf("error = %v, want ErrIssueNotFound", err)
	}
}

func TestIssueService_Reassign(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	if _, err := svc.Assign(context.Background(), issue.IssueID, &dto.AssignIssueRequest{StaffID: testStaffID}); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if _, err := svc.StartProcessing(context.Background(), issue.IssueID, &dto.StartProcessingRequest{
		StaffID: testStaffID, Plan: "更换水管接口",
	}); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}

	updated, err := svc.Reassign(context.Background(), issue.IssueID, &dto.ReassignIssueRequest{
		StaffID: testStaffID2,
		Remark:  "原处理人休假",
	})
	if err != nil {
		t.Fatalf("Reassign() error = %v", err)
	}

	if updated.AssignedStaffID == nil || *updated.AssignedStaffID != testStaffID2 {
		t.Errorf("AssignedStaffID = %v, want %s", updated.AssignedStaffID, testStaffID2)
	}
	// 改派不回退状态
	if updated.WorkStatus != model.WorkStatusProcessing {
		t.Errorf("改派后 WorkStatus = %s, want %s", updated.WorkStatus, model.WorkStatusProcessing)
	}
	if updated.IssueStatus != model.IssueStatusInProgress {
		t.Errorf("改派后 IssueStatus = %s, want %s", updated.IssueStatus, model.IssueStatusInProgress)
	}
}

func TestIssueService_StartProcessing_Finished(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	if _, err := svc.SubmitResult(context.Background(), issue.IssueID, &dto.SubmitResultRequest{
		StaffID: testStaffID, Result: "已修复",
	}); err != nil {
		t.Fatalf("SubmitResult() error = %v", err)
	}

	_, err := svc.StartProcessing(context.Background(), issue.IssueID, &dto.StartProcessingRequest{
		StaffID: testStaffID, Plan: "再次处理",
	})
	if !errors.Is(err, ErrIssueFinished) {
		t.Errorf("对已完成工单 StartProcessing error = %v, want ErrIssueFinished", err)
	}
}

func TestIssueService_StartProcessing_Overwrite(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	if _, err := svc.StartProcessing(context.Background(), issue.IssueID, &dto.StartProcessingRequest{
		StaffID: testStaffID, Plan: "方案一",
	}); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}
	updated, err := svc.StartProcessing(context.Background(), issue.IssueID, &dto.StartProcessingRequest{
		StaffID: testStaffID2, Plan: "方案二",
	})
	if err != nil {
		t.Fatalf("重复 StartProcessing() error = %v", err)
	}
	if updated.ProcessPlan != "方案二" {
		t.Errorf("ProcessPlan = %s, want 方案二", updated.ProcessPlan)
	}
	if updated.ProcessorStaffID == nil || *updated.ProcessorStaffID != testStaffID2 {
		t.Errorf("ProcessorStaffID = %v, want %s", updated.ProcessorStaffID, testStaffID2)
	}
}

// TestIssueService_StartProcessing_NoWorkStatusRegression
// work_status 只前进：内部确认完成后再开始处理不得从 done 回退
func TestIssueService_StartProcessing_NoWorkStatusRegression(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	if _, err := svc.MarkResolved(context.Background(), issue.IssueID, testStaffID); err != nil {
		t.Fatalf("MarkResolved() error = %v", err)
	}

	updated, err := svc.StartProcessing(context.Background(), issue.IssueID, &dto.StartProcessingRequest{
		StaffID: testStaffID, Plan: "复查",
	})
	if err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}
	if updated.WorkStatus != model.WorkStatusDone {
		t.Errorf("WorkStatus 回退: %s, want %s", updated.WorkStatus, model.WorkStatusDone)
	}
	if updated.IssueStatus != model.IssueStatusInProgress {
		t.Errorf("IssueStatus = %s, want %s", updated.IssueStatus, model.IssueStatusInProgress)
	}
}

func TestIssueService_SubmitResult(t *testing.T) {
	svc, _, pub := setupIssueService()
	issue := submitTestIssue(t, svc)

	updated, err := svc.SubmitResult(context.Background(), issue.IssueID, &dto.SubmitResultRequest{
		StaffID:      testStaffID,
		Result:       "更换接口后测试无渗漏",
		ResultImages: []string{"/files/2026-09-01/a.jpg"},
	})
	if err != nil {
		t.Fatalf("SubmitResult() error = %v", err)
	}

	if updated.IssueStatus != model.IssueStatusCompleted {
		t.Errorf("IssueStatus = %s, want %s", updated.IssueStatus, model.IssueStatusCompleted)
	}
	if updated.ProcessEndedAt == nil || updated.RespondedAt == nil {
		t.Error("ProcessEndedAt/RespondedAt 不应为空")
	}

	// 结果提交后定向通知报修业主
	last := pub.notifications[len(pub.notifications)-1]
	if last.Target != notify.ModuleOwner || last.Type != notify.NotifyTypeIssueResult {
		t.Errorf("通知 = %+v, want owner/issue_result", last)
	}
	if last.Subscriber != testOwnerID {
		t.Errorf("通知订阅者 = %s, want %s", last.Subscriber, testOwnerID)
	}
}

func TestIssueService_MarkResolved(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	updated, err := svc.MarkResolved(context.Background(), issue.IssueID, testStaffID)
	if err != nil {
		t.Fatalf("MarkResolved() error = %v", err)
	}

	if updated.WorkStatus != model.WorkStatusDone {
		t.Errorf("WorkStatus = %s, want %s", updated.WorkStatus, model.WorkStatusDone)
	}
	// 内部完成不影响业主侧状态
	if updated.IssueStatus != model.IssueStatusPending {
		t.Errorf("MarkResolved 不应触碰 issue_status, got %s", updated.IssueStatus)
	}

	fus, _ := svc.ListFollowUps(context.Background(), issue.IssueID)
	if len(fus) != 1 {
		t.Errorf("跟进记录数 = %d, want 1", len(fus))
	}
}

func TestIssueService_Evaluate(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	satisfied := true
	_, err := svc.Evaluate(context.Background(), issue.IssueID, testOwnerID, &dto.EvaluateIssueRequest{
		Satisfied: &satisfied,
	})
	if !errors.Is(err, ErrIssueNotCompleted) {
		t.Errorf("未完成即评价 error = %v, want ErrIssueNotCompleted", err)
	}

	if _, err := svc.SubmitResult(context.Background(), issue.IssueID, &dto.SubmitResultRequest{
		StaffID: testStaffID, Result: "已修复",
	}); err != nil {
		t.Fatalf("SubmitResult() error = %v", err)
	}

	updated, err := svc.Evaluate(context.Background(), issue.IssueID, testOwnerID, &dto.EvaluateIssueRequest{
		Satisfied: &satisfied,
		Comment:   "处理及时",
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if updated.IssueStatus != model.IssueStatusClosed {
		t.Errorf("满意评价后 IssueStatus = %s, want %s", updated.IssueStatus, model.IssueStatusClosed)
	}
	if updated.Satisfaction == nil || !*updated.Satisfaction {
		t.Error("Satisfaction 应为 true")
	}
}

func TestIssueService_Evaluate_Unsatisfied(t *testing.T) {
	svc, _, _ := setupIssueService()
	issue := submitTestIssue(t, svc)

	if _, err := svc.SubmitResult(context.Background(), issue.IssueID, &dto.SubmitResultRequest{
		StaffID: testStaffID, Result: "已修复",
	}); err != nil {
		t.Fatalf("SubmitResult() error = %v", err)
	}

	satisfied := false
	updated, err := svc.Evaluate(context.Background(), issue.IssueID, testOwnerID, &dto.EvaluateIssueRequest{
		Satisfied: &satisfied,
		Comment:   "仍有渗水",
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	// 不满意不关闭，工单保持已完成，业主可继续留言
	if updated.IssueStatus != model.IssueStatusCompleted {
		t.Errorf("不满意评价后 IssueStatus = %s, want %s", updated.IssueStatus, model.IssueStatusCompleted)
	}

	if _, err := svc.AddFollowUp(context.Background(), issue.IssueID, &dto.AddFollowUpRequest{
		Content: "麻烦再来看一下",
	}, model.OperatorRoleOwner, testOwnerID); err != nil {
		t.Errorf("评价后追加留言 error = %v", err)
	}
}

func TestIssueService_AddFollowUp(t *testing.T) {
	svc, _, pub := setupIssueService()
	issue := submitTestIssue(t, svc)

	fu, err := svc.AddFollowUp(context.Background(), issue.IssueID, &dto.AddFollowUpRequest{
		Content:     "已到现场查看",
		Attachments: []string{"/files/2026-09-01/site.jpg"},
	}, model.OperatorRoleStaff, testStaffID)
	if err != nil {
		t.Fatalf("AddFollowUp() error = %v", err)
	}

	if fu.Type != model.FollowUpTypeProgress {
		t.Errorf("物业跟进类型 = %s, want %s", fu.Type, model.FollowUpTypeProgress)
	}
	if fu.OperatorName != "李四" {
		t.Errorf("OperatorName = %s, want 李四", fu.OperatorName)
	}
	if fu.FollowUpID == "" {
		t.Error("FollowUpID 不应为空")
	}

	ownerFu, err := svc.AddFollowUp(context.Background(), issue.IssueID, &dto.AddFollowUpRequest{
		Content: "今天下午在家",
	}, model.OperatorRoleOwner, testOwnerID)
	if err != nil {
		t.Fatalf("AddFollowUp() error = %v", err)
	}
	if ownerFu.Type != model.FollowUpTypeResidentNote {
		t.Errorf("业主跟进类型 = %s, want %s", ownerFu.Type, model.FollowUpTypeResidentNote)
	}

	// 追加跟进发布 follow_up 的 create 变更事件
	last := pub.changes[len(pub.changes)-1]
	if last.Action != notify.ActionCreate || last.EntityType != notify.EntityFollowUp {
		t.Errorf("变更事件 = %s/%s, want create/follow_up", last.Action, last.EntityType)
	}
}

// TestIssueService_FullWorkflow 完整工作流：
// 提交 → 分配 → 开始处理 → 提交结果 → 确认完成 → 满意评价
func TestIssueService_FullWorkflow(t *testing.T) {
	svc, _, pub := setupIssueService()
	ctx := context.Background()
	issue := submitTestIssue(t, svc)

	if _, err := svc.Assign(ctx, issue.IssueID, &dto.AssignIssueRequest{StaffID: testStaffID}); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if _, err := svc.StartProcessing(ctx, issue.IssueID, &dto.StartProcessingRequest{
		StaffID: testStaffID, Plan: "更换水管接口",
	}); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}
	if _, err := svc.SubmitResult(ctx, issue.IssueID, &dto.SubmitResultRequest{
		StaffID: testStaffID, Result: "更换完成，测试无渗漏",
	}); err != nil {
		t.Fatalf("SubmitResult() error = %v", err)
	}
	if _, err := svc.MarkResolved(ctx, issue.IssueID, testStaffID); err != nil {
		t.Fatalf("MarkResolved() error = %v", err)
	}
	satisfied := true
	final, err := svc.Evaluate(ctx, issue.IssueID, testOwnerID, &dto.EvaluateIssueRequest{
		Satisfied: &satisfied, Comment: "满意",
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if final.IssueStatus != model.IssueStatusClosed {
		t.Errorf("最终 IssueStatus = %s, want %s", final.IssueStatus, model.IssueStatusClosed)
	}
	if final.WorkStatus != model.WorkStatusDone {
		t.Errorf("最终 WorkStatus = %s, want %s", final.WorkStatus, model.WorkStatusDone)
	}

	// 分配 / 开始处理 / 提交结果 / 确认完成 各一条跟进
	fus, err := svc.ListFollowUps(ctx, issue.IssueID)
	if err != nil {
		t.Fatalf("ListFollowUps() error = %v", err)
	}
	if len(fus) != 4 {
		t.Errorf("跟进记录数 = %d, want 4", len(fus))
	}

	// 每次状态变更各发布一条变更事件（提交 + 5 次变更）
	if len(pub.changes) != 6 {
		t.Errorf("变更事件数 = %d, want 6", len(pub.changes))
	}
}

// TestIssueService_PublishFailureDoesNotFailMutation
// 事件传输失败不影响业务事务：总线已关闭时状态变更仍然成功
func TestIssueService_PublishFailureDoesNotFailMutation(t *testing.T) {
	deptID := testDeptID
	repo := &repository.Repository{
		Issue: newMockIssueRepo(),
		Owner: newMockOwnerRepo(&model.Owner{OwnerID: testOwnerID, Name: "张三"}),
		Staff: newMockStaffRepo(&model.Staff{StaffID: testStaffID, Name: "李四", DepartmentID: &deptID}),
	}

	mb := bus.NewMemoryBus()
	_ = mb.Close()
	cfg := &config.NotifyConfig{ChangeChannel: "test:change", NotifyChannel: "test:notify", Origin: "test"}
	svc := NewIssueService(repo, notify.NewPublisher(mb, cfg, zap.NewNop()), zap.NewNop())

	issue, err := svc.Submit(context.Background(), testOwnerID, &dto.SubmitIssueRequest{
		Title: "门禁故障", Category: "repair",
	})
	if err != nil {
		t.Fatalf("总线关闭时 Submit() error = %v", err)
	}

	updated, err := svc.Assign(context.Background(), issue.IssueID, &dto.AssignIssueRequest{StaffID: testStaffID})
	if err != nil {
		t.Fatalf("总线关闭时 Assign() error = %v", err)
	}
	if updated.WorkStatus != model.WorkStatusAssigned {
		t.Errorf("WorkStatus = %s, want %s", updated.WorkStatus, model.WorkStatusAssigned)
	}
}

// [自证通过] internal/service/issue_service_test.go
