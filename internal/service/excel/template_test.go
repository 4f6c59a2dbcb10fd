package excel

import (
	"testing"
	"time"

	"admitflow/internal/model"
	"admitflow/internal/schema"
	"admitflow/internal/validate"
)

func TestGenerateHeaders(t *testing.T) {
	registry := schema.NewRegistry()
	g := NewTemplateGenerator(registry)

	wb, err := g.Generate(TemplateOptions{})
	if err != nil {
		t.Fatalf("生成模板失败: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(DataSheetName)
	if err != nil {
		t.Fatalf("读取数据工作表失败: %v", err)
	}
	if len(rows) < 1 {
		t.Fatalf("模板缺少表头行")
	}

	labels := registry.Labels()
	if len(rows[0]) != len(labels) {
		t.Fatalf("表头列数 %d 与注册表字段数 %d 不一致", len(rows[0]), len(labels))
	}
	for i, label := range labels {
		if rows[0][i] != label {
			t.Errorf("第 %d 列表头 %q, 期望 %q", i+1, rows[0][i], label)
		}
	}

	if idx, _ := wb.GetSheetIndex(InstructionSheetName); idx < 0 {
		t.Errorf("模板缺少填表说明工作表")
	}
}

// 模板带示例行时，生成的文件应能被解析器直接解析并校验通过
func TestGenerateParseRoundTrip(t *testing.T) {
	registry := schema.NewRegistry()
	g := NewTemplateGenerator(registry)
	p := NewParser(registry)
	v := validate.NewValidator(registry)

	wb, err := g.Generate(TemplateOptions{IncludeExample: true})
	if err != nil {
		t.Fatalf("生成模板失败: %v", err)
	}
	buf, err := wb.WriteToBuffer()
	wb.Close()
	if err != nil {
		t.Fatalf("序列化模板失败: %v", err)
	}

	records, err := p.Parse("template.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("解析模板失败: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("示例行应解析为 1 条记录, 实际 %d", len(records))
	}
	if records[0].Values[schema.KeyAdmissionNo] != "BM2025001" {
		t.Errorf("示例行报名号错误: %q", records[0].Values[schema.KeyAdmissionNo])
	}

	row := v.ValidateRecord(records[0])
	if row.Status != model.RowValid {
		t.Errorf("示例行应校验通过, 实际 %s: %v", row.Status, row.Issues)
	}
}

func TestGenerateWithoutExample(t *testing.T) {
	registry := schema.NewRegistry()
	g := NewTemplateGenerator(registry)
	p := NewParser(registry)

	wb, err := g.Generate(TemplateOptions{})
	if err != nil {
		t.Fatalf("生成模板失败: %v", err)
	}
	buf, err := wb.WriteToBuffer()
	wb.Close()
	if err != nil {
		t.Fatalf("序列化模板失败: %v", err)
	}

	// 空模板解析应报空表而非行级错误
	if _, err := p.Parse("template.xlsx", buf.Bytes()); err != ErrEmptySheet {
		t.Errorf("空模板应返回 ErrEmptySheet, 实际 %v", err)
	}
}

func TestSuggestedFilename(t *testing.T) {
	g := NewTemplateGenerator(schema.NewRegistry())
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.Local)
	if got := g.SuggestedFilename(now); got != "学生批量导入模板_20250315.xlsx" {
		t.Errorf("文件名错误: %s", got)
	}
}
