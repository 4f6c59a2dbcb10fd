package api

import (
	"github.com/gin-gonic/gin"
)

// GetStatus 系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	studentCount := 0
	if h.students != nil {
		if n, err := h.students.Count(c.Request.Context()); err == nil {
			studentCount = n
		}
	}

	data := gin.H{
		"sessionActive": h.session.Active(),
		"studentCount":  studentCount,
	}
	if h.session.Active() {
		summary := h.session.Summary()
		data["sourceName"] = h.session.SourceName()
		data["totalRows"] = summary.TotalRows
		data["validRows"] = summary.ValidRows
		data["warningRows"] = summary.WarningRows
		data["invalidRows"] = summary.InvalidRows
	}

	success(c, data)
}
