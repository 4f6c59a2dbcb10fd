package server

import (
	"log"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"admitflow/internal/api"
	"admitflow/internal/commit"
	"admitflow/internal/config"
	"admitflow/internal/importer"
	"admitflow/internal/schema"
	"admitflow/internal/service/excel"
	"admitflow/internal/session"
	"admitflow/internal/store"
	"admitflow/internal/upload"
	"admitflow/internal/validate"
)

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	store   *store.Store
	session *session.Session
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	dbPath := filepath.Join(dataDir, "admitflow.db")

	sqliteStore, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	// 文件入库协作方：本地 uploads 目录
	sink, err := upload.NewDiskSink(filepath.Join(dataDir, "uploads"), "/files")
	if err != nil {
		log.Fatalf("初始化上传目录失败: %v", err)
	}

	registry := schema.NewRegistry()
	validator := validate.NewValidator(registry)
	parser := excel.NewParser(registry)
	template := excel.NewTemplateGenerator(registry)

	// 会话：尝试恢复上次未完成的导入
	sess := session.NewSession(validator, store.NewSnapshotStore(sqliteStore))
	if resumed, err := sess.Resume(); err != nil {
		log.Printf("恢复会话失败，按空会话启动: %v", err)
	} else if resumed {
		log.Printf("已恢复上次导入会话: %s", sess.SourceName())
	}

	coordinator := importer.NewCoordinator(parser, validator, sess, sqliteStore)

	students := store.NewStudentStore(sqliteStore)
	pipeline := commit.NewPipeline(students,
		cfg.Commit.Workers,
		time.Duration(cfg.Commit.TimeoutSeconds)*time.Second)

	handler := api.NewHandler(cfg, registry, template, coordinator, sess, sink, pipeline, students)

	s := &Server{
		router:  gin.Default(),
		store:   sqliteStore,
		session: sess,
	}
	s.setupRoutes(handler, filepath.Join(dataDir, "uploads"))

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(handler *api.Handler, uploadsDir string) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// API 路由
	apiGroup := s.router.Group("/api")
	{
		handler.RegisterRoutes(apiGroup)
	}

	// 已入库材料文件
	s.router.Static("/files", uploadsDir)
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 释放资源
func (s *Server) Close() error {
	return s.store.Close()
}
