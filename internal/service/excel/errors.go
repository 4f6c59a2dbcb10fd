package excel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat 文件格式不受支持
	ErrUnsupportedFormat = errors.New("不支持的文件格式")
	// ErrEmptySheet 工作表无数据行
	ErrEmptySheet = errors.New("工作表没有数据")
)

// SchemaMismatchError 表头与模板不兼容，整体中止解析（不是行级错误）
type SchemaMismatchError struct {
	MissingLabels []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("表头缺少必填列: %s", strings.Join(e.MissingLabels, "、"))
}

// FileUnreadableError 文件损坏/被占用/未同步完成，可重试
//
// 解析器失败后不保留文件句柄，调用方重新选择文件即可重试。
type FileUnreadableError struct {
	Err error
}

func (e *FileUnreadableError) Error() string {
	return fmt.Sprintf("文件暂时无法读取: %v", e.Err)
}

func (e *FileUnreadableError) Unwrap() error {
	return e.Err
}

// SizeExceededError 文件超过大小上限，解析开始前即拒绝
type SizeExceededError struct {
	Kind  string // spreadsheet / archive
	Size  int64
	Limit int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("文件超过大小限制: %d 字节 (上限 %d 字节)", e.Size, e.Limit)
}

// IsRetryable 判断错误是否属于可重试类别
func IsRetryable(err error) bool {
	var unreadable *FileUnreadableError
	return errors.As(err, &unreadable)
}
