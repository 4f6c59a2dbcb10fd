package excel

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"admitflow/internal/model"
	"admitflow/internal/schema"
)

// CheckSize 解析前的大小闸门，超限返回 SizeExceededError（与解析错误区分）
func CheckSize(kind string, size, limit int64) error {
	if limit > 0 && size > limit {
		return &SizeExceededError{Kind: kind, Size: size, Limit: limit}
	}
	return nil
}

// Parser 表格解析器
//
// 支持 xlsx / 旧版 xls / 分隔文本。列到字段的映射优先按表头文本匹配注册表
// 标签，表头完全无法识别时退回按注册表列序定位。解析失败不保留文件句柄，
// 全部输入走内存字节，调用方重选文件即可重试。
type Parser struct {
	registry *schema.Registry
}

// NewParser 创建解析器
func NewParser(registry *schema.Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse 解析上传文件，按扩展名选择格式
func (p *Parser) Parse(filename string, data []byte) ([]model.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return p.parseXLSX(data)
	case ".xls":
		return p.parseXLS(data)
	case ".csv":
		return p.parseDelimited(data, ',')
	case ".tsv", ".txt":
		return p.parseDelimited(data, '\t')
	default:
		return nil, ErrUnsupportedFormat
	}
}

// parseXLSX 解析 OpenXML 工作簿
func (p *Parser) parseXLSX(data []byte) ([]model.RawRecord, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		// 打不开多半是损坏或云同步未完成，归类为可重试
		return nil, &FileUnreadableError{Err: err}
	}
	defer wb.Close()

	sheet := DataSheetName
	if idx, _ := wb.GetSheetIndex(sheet); idx < 0 {
		list := wb.GetSheetList()
		if len(list) == 0 {
			return nil, ErrEmptySheet
		}
		sheet = list[0]
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, &FileUnreadableError{Err: err}
	}
	return p.buildRecords(rows)
}

// parseXLS 解析旧版二进制工作簿
func (p *Parser) parseXLS(data []byte) ([]model.RawRecord, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &FileUnreadableError{Err: err}
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptySheet
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return p.buildRecords(rows)
}

// parseDelimited 解析分隔文本（csv 逗号 / tsv、txt 制表符）
func (p *Parser) parseDelimited(data []byte, comma rune) ([]model.RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &FileUnreadableError{Err: err}
	}
	return p.buildRecords(rows)
}

// buildRecords 统一的行切分与列映射
func (p *Parser) buildRecords(rows [][]string) ([]model.RawRecord, error) {
	// 跳过前导空行，找到候选表头
	start := 0
	for start < len(rows) && isBlankRow(rows[start]) {
		start++
	}
	if start >= len(rows) {
		return nil, ErrEmptySheet
	}

	header := rows[start]
	colToKey, headerMatched := p.mapHeader(header)

	dataStart := start
	if headerMatched {
		// 表头模式：缺无条件必填列则整体中止（模板不兼容，不是行级错误）
		if missing := p.registry.MissingRequiredLabels(header); len(missing) > 0 {
			return nil, &SchemaMismatchError{MissingLabels: missing}
		}
		dataStart = start + 1
	}

	records := make([]model.RawRecord, 0, len(rows)-dataStart)
	for _, row := range rows[dataStart:] {
		if isBlankRow(row) {
			continue
		}
		values := make(map[string]string)
		for idx, key := range colToKey {
			if idx < len(row) {
				values[key] = strings.TrimSpace(row[idx])
			} else {
				values[key] = ""
			}
		}
		records = append(records, model.RawRecord{
			// 行号按数据行 1 起计数，表头与说明行不占号
			RowNumber: len(records) + 1,
			Values:    values,
		})
	}

	if len(records) == 0 {
		return nil, ErrEmptySheet
	}
	return records, nil
}

// mapHeader 表头到字段键的映射
//
// 至少命中一个注册表标签即视为表头模式；一个标签也未命中时退回位置映射
// （列序 = 注册表字段序），首行按数据处理。未知列一律忽略。
func (p *Parser) mapHeader(header []string) (map[int]string, bool) {
	colToKey := make(map[int]string)
	for idx, cell := range header {
		if f, ok := p.registry.FieldByLabel(cell); ok {
			colToKey[idx] = f.Key
		}
	}
	if len(colToKey) > 0 {
		return colToKey, true
	}

	fields := p.registry.Fields()
	for i := range fields {
		colToKey[i] = fields[i].Key
	}
	return colToKey, false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
