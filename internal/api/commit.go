package api

import (
	"github.com/gin-gonic/gin"

	"admitflow/internal/commit"
)

// Commit 提交当前会话的可提交行
// POST /api/commit
func (h *Handler) Commit(c *gin.Context) {
	if !h.session.Active() {
		errorResponse(c, 4001, "没有进行中的导入会话")
		return
	}

	items, excluded := commit.Eligible(h.session.Rows(), h.session.AllAssignments())
	if len(items) == 0 {
		success(c, gin.H{
			"summary":  nil,
			"excluded": excluded,
		})
		return
	}

	summary := h.pipeline.RunAndCollect(c.Request.Context(), items)

	success(c, gin.H{
		"summary":  summary,
		"excluded": excluded,
	})
}
