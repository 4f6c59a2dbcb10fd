package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// Archive 材料压缩包（zip）
type Archive struct {
	reader *zip.Reader
	files  map[string]*zip.File
}

// OpenArchive 从内存字节打开压缩包
func OpenArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("打开压缩包失败: %w", err)
	}

	a := &Archive{
		reader: zr,
		files:  make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		if skipEntry(f) {
			continue
		}
		a.files[f.Name] = f
	}
	return a, nil
}

// Entries 文件条目名列表，顺序与包内一致
func (a *Archive) Entries() []string {
	entries := make([]string, 0, len(a.files))
	for _, f := range a.reader.File {
		if _, ok := a.files[f.Name]; ok {
			entries = append(entries, f.Name)
		}
	}
	return entries
}

// Open 打开单个条目，返回读取器与解压后大小
func (a *Archive) Open(name string) (io.ReadCloser, int64, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, 0, fmt.Errorf("压缩包内不存在条目: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, 0, fmt.Errorf("读取压缩包条目失败: %w", err)
	}
	return rc, int64(f.UncompressedSize64), nil
}

// skipEntry 过滤目录与系统垃圾条目（macOS 资源目录、隐藏文件）
func skipEntry(f *zip.File) bool {
	if f.FileInfo().IsDir() {
		return true
	}
	name := strings.ReplaceAll(f.Name, "\\", "/")
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	base := path.Base(name)
	return base == "" || strings.HasPrefix(base, ".")
}
