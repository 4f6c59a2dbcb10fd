package importer

import (
	"strings"
	"testing"

	"admitflow/internal/schema"
	"admitflow/internal/service/excel"
	"admitflow/internal/session"
	"admitflow/internal/validate"
)

// memStore 内存快照存储
type memStore struct {
	data []byte
	ok   bool
}

func (m *memStore) Save(data []byte) error {
	m.data = append([]byte(nil), data...)
	m.ok = true
	return nil
}

func (m *memStore) Load() ([]byte, bool, error) {
	return m.data, m.ok, nil
}

func (m *memStore) Clear() error {
	m.data = nil
	m.ok = false
	return nil
}

func newCoordinator() (*Coordinator, *session.Session) {
	registry := schema.NewRegistry()
	validator := validate.NewValidator(registry)
	sess := session.NewSession(validator, &memStore{})
	c := NewCoordinator(excel.NewParser(registry), validator, sess, nil)
	return c, sess
}

func csvData() []byte {
	labels := schema.NewRegistry().Labels()
	var b strings.Builder
	b.WriteString(strings.Join(labels, ","))
	b.WriteString("\nBM2025001,王小明,男,2018-09-01,一年级,,,13800001111,,王大明,13800002222,李小红,13800003333,否,,,否,,,\n")
	return []byte(b.String())
}

func TestImportAndCollect(t *testing.T) {
	c, sess := newCoordinator()

	result, err := c.ImportAndCollect(ImportOptions{
		Filename: "students.csv",
		Data:     csvData(),
	})
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if result.TotalRows != 1 || result.ValidRows != 1 {
		t.Errorf("汇总错误: %+v", result)
	}

	// 导入完成即开启会话
	if !sess.Active() {
		t.Errorf("导入后应有活动会话")
	}
	if sess.SourceName() != "students.csv" {
		t.Errorf("会话来源错误: %s", sess.SourceName())
	}
}

func TestImportEventsSequence(t *testing.T) {
	c, _ := newCoordinator()

	var types []string
	for event := range c.Import(ImportOptions{Filename: "students.csv", Data: csvData()}) {
		types = append(types, event.Type)
	}

	want := []string{"start", "parsed", "validated", "done"}
	if len(types) != len(want) {
		t.Fatalf("事件序列错误: %v", types)
	}
	for i, ty := range want {
		if types[i] != ty {
			t.Errorf("第 %d 个事件应为 %s, 实际 %s", i, ty, types[i])
		}
	}
}

func TestImportSizeGate(t *testing.T) {
	c, sess := newCoordinator()

	info := importError(t, c, ImportOptions{
		Filename: "students.csv",
		Data:     csvData(),
		MaxBytes: 10,
	})
	if info.Kind != "size_exceeded" {
		t.Errorf("错误类别应为 size_exceeded: %+v", info)
	}
	if sess.Active() {
		t.Errorf("导入失败不应开启会话")
	}
}

func TestImportErrorClassification(t *testing.T) {
	c, _ := newCoordinator()

	cases := []struct {
		name      string
		opts      ImportOptions
		kind      string
		retryable bool
	}{
		{"不支持的格式", ImportOptions{Filename: "x.pdf", Data: []byte("x")}, "unsupported_format", false},
		{"损坏的工作簿", ImportOptions{Filename: "x.xlsx", Data: []byte("坏数据")}, "file_unreadable", true},
		{"缺必填列", ImportOptions{Filename: "x.csv", Data: []byte("报名号,性别\nBM2025001,男\n")}, "schema_mismatch", false},
	}
	for _, tc := range cases {
		info := importError(t, c, tc.opts)
		if info.Kind != tc.kind {
			t.Errorf("%s: 类别应为 %s, 实际 %s", tc.name, tc.kind, info.Kind)
		}
		if info.Retryable != tc.retryable {
			t.Errorf("%s: 可重试标记应为 %v", tc.name, tc.retryable)
		}
	}
}

// importError 收集错误事件的分类信息
func importError(t *testing.T, c *Coordinator, opts ImportOptions) ErrorInfo {
	t.Helper()
	for event := range c.Import(opts) {
		if event.Type == "error" {
			info, ok := event.Data.(ErrorInfo)
			if !ok {
				t.Fatalf("错误事件缺少分类信息: %+v", event)
			}
			return info
		}
	}
	t.Fatalf("未收到错误事件")
	return ErrorInfo{}
}
