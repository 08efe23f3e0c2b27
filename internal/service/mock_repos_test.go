package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smart-property/backend/internal/model"
	"smart-property/backend/internal/repository"
)

// ── 内存版 Repository，供 Service 单元测试使用 ──

type mockIssueRepo struct {
	mu        sync.Mutex
	issues    map[string]*model.Issue
	followUps []model.FollowUp
}

func newMockIssueRepo() *mockIssueRepo {
	return &mockIssueRepo{issues: make(map[string]*model.Issue)}
}

func (m *mockIssueRepo) Create(_ context.Context, issue *model.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if issue.IssueID == "" {
		issue.IssueID = uuid.NewString()
	}
	cp := *issue
	m.issues[issue.IssueID] = &cp
	return nil
}

func (m *mockIssueRepo) GetByID(_ context.Context, id string) (*model.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *issue
	return &cp, nil
}

func (m *mockIssueRepo) ListFollowUps(_ context.Context, issueID string) ([]model.FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.FollowUp
	for _, fu := range m.followUps {
		if fu.IssueID == issueID {
			result = append(result, fu)
		}
	}
	return result, nil
}

// Mutate 模拟事务语义：在副本上执行 fn，成功才写回
func (m *mockIssueRepo) Mutate(_ context.Context, issueID string, fn func(tx repository.IssueTx, issue *model.Issue) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.issues[issueID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *stored
	tx := &mockIssueTx{}
	if err := fn(tx, &cp); err != nil {
		return err
	}
	m.issues[issueID] = &cp
	for i := range tx.appended {
		fu := tx.appended[i]
		if fu.FollowUpID == "" {
			fu.FollowUpID = uuid.NewString()
		}
		tx.origins[i].FollowUpID = fu.FollowUpID
		m.followUps = append(m.followUps, fu)
	}
	return nil
}

type mockIssueTx struct {
	appended []model.FollowUp
	origins  []*model.FollowUp
}

func (t *mockIssueTx) SaveIssue(_ *model.Issue) error { return nil }

func (t *mockIssueTx) AppendFollowUp(fu *model.FollowUp) error {
	t.appended = append(t.appended, *fu)
	t.origins = append(t.origins, fu)
	return nil
}

type mockOwnerRepo struct {
	owners map[string]*model.Owner
}

func newMockOwnerRepo(owners ...*model.Owner) *mockOwnerRepo {
	m := &mockOwnerRepo{owners: make(map[string]*model.Owner)}
	for _, o := range owners {
		m.owners[o.OwnerID] = o
	}
	return m
}

func (m *mockOwnerRepo) GetByID(_ context.Context, id string) (*model.Owner, error) {
	owner, ok := m.owners[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return owner, nil
}

type mockStaffRepo struct {
	staff map[string]*model.Staff
}

func newMockStaffRepo(staff ...*model.Staff) *mockStaffRepo {
	m := &mockStaffRepo{staff: make(map[string]*model.Staff)}
	for _, s := range staff {
		m.staff[s.StaffID] = s
	}
	return m
}

func (m *mockStaffRepo) GetByID(_ context.Context, id string) (*model.Staff, error) {
	s, ok := m.staff[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

// ── 事件发布记录器 ──

type publishedChange struct {
	Action     string
	EntityType string
	EntityID   string
	Data       json.RawMessage
}

type publishedNotification struct {
	Target     string
	Subscriber string
	Type       string
	Title      string
	Content    string
}

type capturePublisher struct {
	mu            sync.Mutex
	changes       []publishedChange
	notifications []publishedNotification
}

func (p *capturePublisher) PublishChange(_ context.Context, action, entityType, entityID string, data json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, publishedChange{Action: action, EntityType: entityType, EntityID: entityID, Data: data})
}

func (p *capturePublisher) PublishNotification(_ context.Context, target, typ, title, content string, _ json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, publishedNotification{Target: target, Type: typ, Title: title, Content: content})
}

func (p *capturePublisher) PublishNotificationTo(_ context.Context, target, subscriberID, typ, title, content string, _ json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, publishedNotification{Target: target, Subscriber: subscriberID, Type: typ, Title: title, Content: content})
}

// [自证通过] internal/service/mock_repos_test.go
