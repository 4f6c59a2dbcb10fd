package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"admitflow/internal/commit"
	"admitflow/internal/config"
	"admitflow/internal/importer"
	"admitflow/internal/schema"
	"admitflow/internal/service/excel"
	"admitflow/internal/session"
	"admitflow/internal/store"
	"admitflow/internal/upload"
)

// Handler API 处理器
type Handler struct {
	cfg         *config.AppConfig
	registry    *schema.Registry
	template    *excel.TemplateGenerator
	coordinator *importer.Coordinator
	session     *session.Session
	sink        upload.Sink
	pipeline    *commit.Pipeline
	students    *store.StudentStore
}

// NewHandler 创建 API 处理器
func NewHandler(
	cfg *config.AppConfig,
	registry *schema.Registry,
	template *excel.TemplateGenerator,
	coordinator *importer.Coordinator,
	sess *session.Session,
	sink upload.Sink,
	pipeline *commit.Pipeline,
	students *store.StudentStore,
) *Handler {
	return &Handler{
		cfg:         cfg,
		registry:    registry,
		template:    template,
		coordinator: coordinator,
		session:     sess,
		sink:        sink,
		pipeline:    pipeline,
		students:    students,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 模板下载
	router.GET("/template", h.DownloadTemplate)

	// 表格导入（SSE 流式进度）
	router.POST("/import", h.Import)

	// 行查询与编辑
	router.GET("/rows", h.ListRows)
	router.PATCH("/rows/:rowNumber", h.EditRow)

	// 行材料
	router.GET("/rows/:rowNumber/documents", h.ListRowDocuments)
	router.POST("/rows/:rowNumber/documents", h.UploadRowDocument)
	router.DELETE("/rows/:rowNumber/documents", h.ClearRowDocument)

	// 材料压缩包匹配
	router.POST("/archive", h.MatchArchive)

	// 批次提交
	router.POST("/commit", h.Commit)
}

// Response 通用响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}
