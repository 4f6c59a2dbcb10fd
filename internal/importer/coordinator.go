package importer

import (
	"errors"
	"fmt"
	"time"

	"admitflow/internal/model"
	"admitflow/internal/service/excel"
	"admitflow/internal/session"
	"admitflow/internal/store"
	"admitflow/internal/validate"
)

// Coordinator 导入协调器：大小闸门 → 解析 → 校验 → 开启会话 → 导入日志
type Coordinator struct {
	parser    *excel.Parser
	validator *validate.Validator
	session   *session.Session
	store     *store.Store // 可为 nil（纯内存运行/测试）
}

// NewCoordinator 创建导入协调器
func NewCoordinator(parser *excel.Parser, validator *validate.Validator, sess *session.Session, st *store.Store) *Coordinator {
	return &Coordinator{
		parser:    parser,
		validator: validator,
		session:   sess,
		store:     st,
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	Filename string
	Data     []byte
	MaxBytes int64 // 表格大小上限，0 为不限
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"` // start/parsed/validated/done/error
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorInfo 错误事件附加信息
type ErrorInfo struct {
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(opts ImportOptions) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 16)

	go func() {
		defer close(events)
		c.doImport(opts, events)
	}()

	return events
}

// ImportAndCollect 同步执行导入，返回汇总（失败返回错误）
func (c *Coordinator) ImportAndCollect(opts ImportOptions) (*model.ParseResult, error) {
	var (
		result  *model.ParseResult
		lastErr error
	)
	for event := range c.Import(opts) {
		switch event.Type {
		case "done":
			if r, ok := event.Data.(*model.ParseResult); ok {
				result = r
			}
		case "error":
			lastErr = fmt.Errorf("%s", event.Message)
		}
	}
	if result == nil {
		if lastErr == nil {
			lastErr = errors.New("导入未产生结果")
		}
		return nil, lastErr
	}
	return result, nil
}

func (c *Coordinator) doImport(opts ImportOptions, events chan<- ProgressEvent) {
	c.send(events, ProgressEvent{
		Type:      "start",
		Message:   fmt.Sprintf("开始导入: %s", opts.Filename),
		Timestamp: time.Now(),
	})

	var logID int64
	if c.store != nil {
		id, err := c.store.CreateImportLog(opts.Filename, int64(len(opts.Data)))
		if err == nil {
			logID = id
		}
	}

	// 大小闸门先于一切解析动作
	if err := excel.CheckSize("spreadsheet", int64(len(opts.Data)), opts.MaxBytes); err != nil {
		c.fail(events, logID, err)
		return
	}

	records, err := c.parser.Parse(opts.Filename, opts.Data)
	if err != nil {
		c.fail(events, logID, err)
		return
	}

	c.send(events, ProgressEvent{
		Type:      "parsed",
		Message:   fmt.Sprintf("解析完成: %d 行数据", len(records)),
		Data:      map[string]int{"rows": len(records)},
		Timestamp: time.Now(),
	})

	rows := c.validator.ValidateAll(records)
	summary := model.Summarize(rows)

	c.send(events, ProgressEvent{
		Type: "validated",
		Message: fmt.Sprintf("校验完成: 通过 %d 行, 警告 %d 行, 错误 %d 行",
			summary.ValidRows, summary.WarningRows, summary.InvalidRows),
		Data: map[string]int{
			"valid":   summary.ValidRows,
			"warning": summary.WarningRows,
			"invalid": summary.InvalidRows,
		},
		Timestamp: time.Now(),
	})

	// 开启新会话，旧工作集与快照同时作废
	c.session.Begin(opts.Filename, rows)
	summary = c.session.Summary()

	if c.store != nil && logID > 0 {
		_ = c.store.UpdateImportLog(logID,
			summary.TotalRows, summary.ValidRows, summary.WarningRows, summary.InvalidRows,
			"done", "")
	}

	c.send(events, ProgressEvent{
		Type:      "done",
		Message:   "导入完成",
		Data:      &summary,
		Timestamp: time.Now(),
	})
}

// fail 记录失败并发出错误事件
func (c *Coordinator) fail(events chan<- ProgressEvent, logID int64, err error) {
	if c.store != nil && logID > 0 {
		_ = c.store.UpdateImportLog(logID, 0, 0, 0, 0, "error", err.Error())
	}
	c.send(events, ProgressEvent{
		Type:      "error",
		Message:   err.Error(),
		Data:      classify(err),
		Timestamp: time.Now(),
	})
}

// classify 归类文件级错误，供前端区分提示
func classify(err error) ErrorInfo {
	var (
		mismatch *excel.SchemaMismatchError
		size     *excel.SizeExceededError
	)
	switch {
	case errors.As(err, &size):
		return ErrorInfo{Kind: "size_exceeded"}
	case errors.As(err, &mismatch):
		return ErrorInfo{Kind: "schema_mismatch"}
	case excel.IsRetryable(err):
		return ErrorInfo{Kind: "file_unreadable", Retryable: true}
	case errors.Is(err, excel.ErrUnsupportedFormat):
		return ErrorInfo{Kind: "unsupported_format"}
	case errors.Is(err, excel.ErrEmptySheet):
		return ErrorInfo{Kind: "empty_sheet"}
	default:
		return ErrorInfo{Kind: "parse_error"}
	}
}

// send 发送进度事件（通道满则丢弃，不阻塞导入）
func (c *Coordinator) send(ch chan<- ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}
