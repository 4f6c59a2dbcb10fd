package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"admitflow/internal/model"
	"admitflow/internal/schema"
)

const (
	// DataSheetName 数据工作表名，解析时优先按该名称定位
	DataSheetName = "学生信息"
	// InstructionSheetName 填写说明工作表名
	InstructionSheetName = "填表说明"

	// 下拉约束覆盖的最大数据行数
	dropListRows = 2000
)

// TemplateOptions 模板生成选项
type TemplateOptions struct {
	IncludeExample bool // 是否附带一条完整示例数据
}

// TemplateGenerator 导入模板生成器
//
// 列头文本与注册表字段标签严格一致，保证模板与解析器不会漂移。
type TemplateGenerator struct {
	registry *schema.Registry
}

// NewTemplateGenerator 创建模板生成器
func NewTemplateGenerator(registry *schema.Registry) *TemplateGenerator {
	return &TemplateGenerator{registry: registry}
}

// Generate 生成模板工作簿
func (g *TemplateGenerator) Generate(opts TemplateOptions) (*excelize.File, error) {
	wb := excelize.NewFile()
	wb.SetSheetName("Sheet1", DataSheetName)

	fields := g.registry.Fields()

	// 表头行
	headers := make([]interface{}, len(fields))
	for i, f := range fields {
		headers[i] = f.Label
	}
	if err := wb.SetSheetRow(DataSheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("写入表头失败: %w", err)
	}

	// 枚举/布尔列加下拉约束
	for i, f := range fields {
		values := f.AllowedValues
		if f.Type == model.FieldBoolean {
			values = []string{"是", "否"}
		}
		if len(values) == 0 {
			continue
		}

		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, dropListRows+1)
		if err := dv.SetDropList(values); err != nil {
			return nil, fmt.Errorf("设置下拉约束失败: %w", err)
		}
		if err := wb.AddDataValidation(DataSheetName, dv); err != nil {
			return nil, fmt.Errorf("添加下拉约束失败: %w", err)
		}
	}

	// 列宽：按标签长度给个可读的默认值
	lastCol, err := excelize.ColumnNumberToName(len(fields))
	if err != nil {
		return nil, err
	}
	if err := wb.SetColWidth(DataSheetName, "A", lastCol, 16); err != nil {
		return nil, err
	}

	// 示例行
	if opts.IncludeExample {
		example := make([]interface{}, len(fields))
		for i, f := range fields {
			example[i] = f.Example
		}
		if err := wb.SetSheetRow(DataSheetName, "A2", &example); err != nil {
			return nil, fmt.Errorf("写入示例行失败: %w", err)
		}
	}

	if err := g.writeInstructions(wb); err != nil {
		return nil, err
	}

	wb.SetActiveSheet(0)
	return wb, nil
}

// writeInstructions 写入填表说明工作表
func (g *TemplateGenerator) writeInstructions(wb *excelize.File) error {
	if _, err := wb.NewSheet(InstructionSheetName); err != nil {
		return err
	}

	lines := []string{
		"批量入学导入填表说明",
		"",
		"1. 请勿修改「学生信息」工作表的列头文字，列头用于系统识别字段。",
		"2. 报名号为每名学生的唯一标识，不可重复。",
		"3. 带下拉选项的列请从下拉中选择，不要手工输入其他值。",
		"4. 出生日期格式：2018-09-01（年-月-日）。",
		"5. 「有无转学」填「是」时，原就读学校、转学证明编号为必填，并需提供转学证明材料。",
		"6. 「有无监护人」填「是」时，监护人姓名、电话、关系为必填。",
		"7. 证件材料可打包为一个压缩包上传，压缩包内文件按以下规则命名：",
		"   报名号_材料名称.扩展名，例如 BM2025001_学生照片.jpg",
		"8. 材料名称对照：学生照片、出生证明、父亲身份证、母亲身份证、",
		"   监护人身份证、监护委托书、转学证明。",
	}
	for i, line := range lines {
		cell := fmt.Sprintf("A%d", i+1)
		if err := wb.SetCellValue(InstructionSheetName, cell, line); err != nil {
			return err
		}
	}
	return wb.SetColWidth(InstructionSheetName, "A", "A", 80)
}

// SuggestedFilename 模板下载文件名（带日期戳）
func (g *TemplateGenerator) SuggestedFilename(now time.Time) string {
	return fmt.Sprintf("学生批量导入模板_%s.xlsx", now.Format("20060102"))
}
