package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"admitflow/internal/session"
)

// ListRows 当前会话的行列表与汇总
// GET /api/rows
func (h *Handler) ListRows(c *gin.Context) {
	if !h.session.Active() {
		errorResponse(c, 4001, "没有进行中的导入会话")
		return
	}

	success(c, gin.H{
		"sessionId":   h.session.ID(),
		"sourceName":  h.session.SourceName(),
		"summary":     h.session.Summary(),
		"assignments": h.session.AllAssignments(),
	})
}

// EditRowRequest 行编辑请求
type EditRowRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// EditRow 编辑单行字段并同步重校验
// PATCH /api/rows/:rowNumber
func (h *Handler) EditRow(c *gin.Context) {
	rowNumber, err := strconv.Atoi(c.Param("rowNumber"))
	if err != nil {
		errorResponse(c, 1001, "行号无效")
		return
	}

	var req EditRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, 1002, "参数错误")
		return
	}
	if _, ok := h.registry.FieldByKey(req.Field); !ok {
		errorResponse(c, 1003, "字段不存在: "+req.Field)
		return
	}

	row, err := h.session.EditField(rowNumber, req.Field, req.Value)
	if err != nil {
		errorResponse(c, sessionErrorCode(err), err.Error())
		return
	}

	slots, _ := h.session.SlotsFor(rowNumber)
	success(c, gin.H{
		"row":         row,
		"slots":       slots,
		"assignments": h.session.Assignments(rowNumber),
		"summary":     h.session.Summary(),
	})
}

// sessionErrorCode 会话错误到响应码
func sessionErrorCode(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return 4001
	case errors.Is(err, session.ErrRowNotFound):
		return 4004
	case errors.Is(err, session.ErrSlotNotFound):
		return 4005
	case errors.Is(err, session.ErrSlotOccupied):
		return 4006
	default:
		return 5000
	}
}
