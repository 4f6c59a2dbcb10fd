package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"admitflow/internal/importer"
)

// Import 上传表格并解析校验 (SSE 流式响应)
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, 1001, "未找到上传文件")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, 5001, fmt.Sprintf("读取上传文件失败: %v", err))
		return
	}
	defer src.Close()

	// 上限 +1 字节读入，由协调器的大小闸门做判定
	maxBytes := h.cfg.MaxSpreadsheetBytes()
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		errorResponse(c, 5002, fmt.Sprintf("读取上传文件失败: %v", err))
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		errorResponse(c, 5003, "不支持流式响应")
		return
	}

	events := h.coordinator.Import(importer.ImportOptions{
		Filename: fileHeader.Filename,
		Data:     data,
		MaxBytes: maxBytes,
	})

	for event := range events {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
