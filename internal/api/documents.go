package api

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"admitflow/internal/document"
	"admitflow/internal/model"
	"admitflow/internal/service/excel"
)

// ListRowDocuments 行的材料栏位与分配情况
// GET /api/rows/:rowNumber/documents
func (h *Handler) ListRowDocuments(c *gin.Context) {
	rowNumber, err := strconv.Atoi(c.Param("rowNumber"))
	if err != nil {
		errorResponse(c, 1001, "行号无效")
		return
	}

	slots, err := h.session.SlotsFor(rowNumber)
	if err != nil {
		errorResponse(c, sessionErrorCode(err), err.Error())
		return
	}

	assignments := h.session.Assignments(rowNumber)
	success(c, gin.H{
		"slots":       slots,
		"assignments": assignments,
		"missing":     document.MissingRequired(slots, assignments),
	})
}

// UploadRowDocument 手动上传单个材料
// POST /api/rows/:rowNumber/documents?slot=student/photo
func (h *Handler) UploadRowDocument(c *gin.Context) {
	rowNumber, err := strconv.Atoi(c.Param("rowNumber"))
	if err != nil {
		errorResponse(c, 1001, "行号无效")
		return
	}
	slotID := c.Query("slot")
	if slotID == "" {
		errorResponse(c, 1002, "缺少 slot 参数")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, 1003, "未找到上传文件")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, 5001, fmt.Sprintf("读取上传文件失败: %v", err))
		return
	}
	defer src.Close()

	ref, err := h.sink.Store(c.Request.Context(), fileHeader.Filename, src)
	if err != nil {
		errorResponse(c, 5002, err.Error())
		return
	}

	// 手动上传总是生效，允许覆盖既有分配
	if err := h.session.AssignDocument(rowNumber, slotID, ref, true); err != nil {
		errorResponse(c, sessionErrorCode(err), err.Error())
		return
	}

	success(c, gin.H{"ref": ref})
}

// ClearRowDocument 清除行栏位的材料分配
// DELETE /api/rows/:rowNumber/documents?slot=student/photo
func (h *Handler) ClearRowDocument(c *gin.Context) {
	rowNumber, err := strconv.Atoi(c.Param("rowNumber"))
	if err != nil {
		errorResponse(c, 1001, "行号无效")
		return
	}
	slotID := c.Query("slot")
	if slotID == "" {
		errorResponse(c, 1002, "缺少 slot 参数")
		return
	}

	if err := h.session.ClearDocument(rowNumber, slotID); err != nil {
		errorResponse(c, sessionErrorCode(err), err.Error())
		return
	}
	success(c, nil)
}

// MatchArchive 上传材料压缩包并按命名规则匹配到各行栏位
// POST /api/archive
func (h *Handler) MatchArchive(c *gin.Context) {
	if !h.session.Active() {
		errorResponse(c, 4001, "没有进行中的导入会话")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, 1001, "未找到上传文件")
		return
	}

	if err := excel.CheckSize("archive", fileHeader.Size, h.cfg.MaxArchiveBytes()); err != nil {
		errorResponse(c, 4013, err.Error())
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, 5001, fmt.Sprintf("读取上传文件失败: %v", err))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		errorResponse(c, 5002, fmt.Sprintf("读取上传文件失败: %v", err))
		return
	}

	archive, err := document.OpenArchive(data)
	if err != nil {
		errorResponse(c, 5003, err.Error())
		return
	}

	rows := h.session.Rows()
	slotsByRow := make(map[int][]model.DocumentSlot, len(rows))
	for _, row := range rows {
		slotsByRow[row.RowNumber] = document.ResolveSlots(row.Data)
	}

	result := document.Match(archive.Entries(), rows, slotsByRow, h.session.AllAssignments())

	// 命中的条目先入库再分配；入库失败的条目转入未匹配列表回报
	applied := make([]document.MatchedEntry, 0, len(result.Matched))
	for _, m := range result.Matched {
		ref, err := h.storeArchiveEntry(c, archive, m.Entry)
		if err != nil {
			result.Unmatched = append(result.Unmatched, document.UnmatchedEntry{
				Entry:  m.Entry,
				Reason: fmt.Sprintf("入库失败: %v", err),
			})
			continue
		}
		if err := h.session.AssignDocument(m.RowNumber, m.SlotID, ref, false); err != nil {
			result.Unmatched = append(result.Unmatched, document.UnmatchedEntry{
				Entry:  m.Entry,
				Reason: err.Error(),
			})
			continue
		}
		applied = append(applied, m)
	}
	result.Matched = applied

	success(c, gin.H{
		"matched":   result.Matched,
		"unmatched": result.Unmatched,
		"summary":   h.session.Summary(),
	})
}

// storeArchiveEntry 解压单个条目并写入文件入库协作方
func (h *Handler) storeArchiveEntry(c *gin.Context, archive *document.Archive, entry string) (model.FileRef, error) {
	rc, _, err := archive.Open(entry)
	if err != nil {
		return model.FileRef{}, err
	}
	defer rc.Close()
	return h.sink.Store(c.Request.Context(), entry, rc)
}
