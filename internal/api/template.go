package api

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"admitflow/internal/service/excel"
)

// DownloadTemplate 下载导入模板
// GET /api/template?examples=true
func (h *Handler) DownloadTemplate(c *gin.Context) {
	includeExample := c.DefaultQuery("examples", "false") == "true"

	wb, err := h.template.Generate(excel.TemplateOptions{IncludeExample: includeExample})
	if err != nil {
		errorResponse(c, 5001, fmt.Sprintf("生成模板失败: %v", err))
		return
	}
	defer wb.Close()

	buf, err := wb.WriteToBuffer()
	if err != nil {
		errorResponse(c, 5002, fmt.Sprintf("序列化模板失败: %v", err))
		return
	}

	filename := h.template.SuggestedFilename(time.Now())
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
