package model

// Severity 校验问题严重级别
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// RowStatus 行状态
type RowStatus string

const (
	RowValid   RowStatus = "valid"
	RowWarning RowStatus = "warning"
	RowInvalid RowStatus = "invalid"
)

// RawRecord 解析器产出的原始行：字段键 -> 单元格文本
//
// RowNumber 为 1 起的数据行号（不含表头行），用于错误回报定位。
type RawRecord struct {
	RowNumber int               `json:"rowNumber"`
	Values    map[string]string `json:"values"`
}

// ValidationIssue 字段级校验问题，同一字段可同时存在多条
type ValidationIssue struct {
	FieldKey string   `json:"fieldKey"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ParsedRow 校验后的行
//
// Status 由 Issues 推导：存在 error 即 invalid，否则存在 warning 即 warning。
type ParsedRow struct {
	RowNumber int               `json:"rowNumber"`
	Data      map[string]string `json:"data"`
	Status    RowStatus         `json:"status"`
	Issues    []ValidationIssue `json:"issues"`
}

// DeriveStatus 根据问题列表推导行状态
func DeriveStatus(issues []ValidationIssue) RowStatus {
	status := RowValid
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return RowInvalid
		}
		if issue.Severity == SeverityWarning {
			status = RowWarning
		}
	}
	return status
}

// RecomputeStatus 重新推导自身状态
func (r *ParsedRow) RecomputeStatus() {
	r.Status = DeriveStatus(r.Issues)
}

// ParseResult 解析汇总快照，任何行变更后重新计算
type ParseResult struct {
	TotalRows   int          `json:"totalRows"`
	ValidRows   int          `json:"validRows"`
	WarningRows int          `json:"warningRows"`
	InvalidRows int          `json:"invalidRows"`
	Rows        []*ParsedRow `json:"rows"`
}

// Summarize 根据行列表生成汇总
func Summarize(rows []*ParsedRow) ParseResult {
	result := ParseResult{
		TotalRows: len(rows),
		Rows:      rows,
	}
	for _, row := range rows {
		switch row.Status {
		case RowValid:
			result.ValidRows++
		case RowWarning:
			result.WarningRows++
		case RowInvalid:
			result.InvalidRows++
		}
	}
	return result
}
