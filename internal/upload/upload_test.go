package upload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskSinkStore(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir, "/files")
	if err != nil {
		t.Fatalf("创建入库器失败: %v", err)
	}

	ref, err := sink.Store(context.Background(), "BM2025001_学生照片.jpg", strings.NewReader("photo"))
	if err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	if ref.Filename != "BM2025001_学生照片.jpg" || ref.Size != 5 {
		t.Errorf("引用回显错误: %+v", ref)
	}
	if !strings.HasPrefix(ref.URL, "/files/") {
		t.Errorf("URL 前缀错误: %s", ref.URL)
	}

	// 落盘文件确实存在且内容一致
	stored := strings.TrimPrefix(ref.URL, "/files/")
	content, err := os.ReadFile(filepath.Join(dir, stored))
	if err != nil {
		t.Fatalf("读取落盘文件失败: %v", err)
	}
	if string(content) != "photo" {
		t.Errorf("落盘内容错误: %q", content)
	}
}

func TestDiskSinkUniqueNames(t *testing.T) {
	sink, err := NewDiskSink(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("创建入库器失败: %v", err)
	}

	// 同名文件两次入库不互相覆盖
	a, err := sink.Store(context.Background(), "photo.jpg", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	b, err := sink.Store(context.Background(), "photo.jpg", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	if a.URL == b.URL {
		t.Errorf("同名文件应得到不同 URL: %s", a.URL)
	}
}

func TestDiskSinkCancelled(t *testing.T) {
	sink, err := NewDiskSink(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("创建入库器失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sink.Store(ctx, "photo.jpg", strings.NewReader("a")); err == nil {
		t.Errorf("已取消的上下文应拒绝入库")
	}
}
