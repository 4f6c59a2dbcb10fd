package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"admitflow/internal/model"
)

// Sink 文件入库协作方
//
// 成功返回稳定引用（URL + 回显的文件名与大小）；失败必须是带类型的错误。
type Sink interface {
	Store(ctx context.Context, filename string, r io.Reader) (model.FileRef, error)
}

// StoreError 文件入库失败
type StoreError struct {
	Filename string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("文件入库失败: %s: %v", e.Filename, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// DiskSink 本地磁盘实现：落在数据目录 uploads 子目录下，uuid 前缀防撞名
type DiskSink struct {
	dir     string
	urlBase string
}

// NewDiskSink 创建磁盘入库器
func NewDiskSink(dir, urlBase string) (*DiskSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &DiskSink{dir: dir, urlBase: urlBase}, nil
}

// Store 写入文件并返回稳定引用
func (s *DiskSink) Store(ctx context.Context, filename string, r io.Reader) (model.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return model.FileRef{}, &StoreError{Filename: filename, Err: err}
	}

	stored := uuid.New().String() + "_" + filepath.Base(filename)
	dst, err := os.Create(filepath.Join(s.dir, stored))
	if err != nil {
		return model.FileRef{}, &StoreError{Filename: filename, Err: err}
	}

	size, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// 半截文件不保留
		_ = os.Remove(filepath.Join(s.dir, stored))
		return model.FileRef{}, &StoreError{Filename: filename, Err: err}
	}

	return model.FileRef{
		URL:      s.urlBase + "/" + stored,
		Filename: filename,
		Size:     size,
	}, nil
}
