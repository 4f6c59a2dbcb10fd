package validate

import (
	"fmt"
	"strings"
	"time"

	"admitflow/internal/model"
	"admitflow/internal/schema"
)

// 出生日期等日期字段接受的固定格式列表（均为年在前，不存在日月歧义）
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

// 报名号重复的提示文案，重查重复时按此识别既有问题
const duplicateMessage = "报名号与其他行重复"

// Validator 行校验器
//
// ValidateRecord 为纯函数：同一输入必然产出相同的状态与问题列表，
// 单行重校验不会影响其他行。
type Validator struct {
	registry *schema.Registry
}

// NewValidator 创建校验器
func NewValidator(registry *schema.Registry) *Validator {
	return &Validator{registry: registry}
}

// ValidateRecord 校验单条原始记录
func (v *Validator) ValidateRecord(rec model.RawRecord) *model.ParsedRow {
	row := &model.ParsedRow{
		RowNumber: rec.RowNumber,
		Data:      make(map[string]string, len(rec.Values)),
		Issues:    []model.ValidationIssue{},
	}
	for k, val := range rec.Values {
		row.Data[k] = val
	}

	for _, f := range v.registry.Fields() {
		// 条件字段未生效时整组跳过，填了也不校验
		if !f.AppliesTo(row.Data) {
			continue
		}
		row.Issues = append(row.Issues, v.checkField(&f, row.Data[f.Key])...)
	}

	row.RecomputeStatus()
	return row
}

// checkField 单字段的类型/格式/必填检查
func (v *Validator) checkField(f *model.FieldSpec, value string) []model.ValidationIssue {
	var issues []model.ValidationIssue

	if value == "" {
		if f.Required {
			issues = append(issues, model.ValidationIssue{
				FieldKey: f.Key,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("%s为必填项", f.Label),
			})
		}
		return issues
	}

	switch f.Type {
	case model.FieldDate:
		if !parseableDate(value) {
			issues = append(issues, model.ValidationIssue{
				FieldKey: f.Key,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("%s不是有效日期（应为 2018-09-01 格式）", f.Label),
			})
		}
	case model.FieldEnum:
		if !f.Allows(value) {
			issues = append(issues, model.ValidationIssue{
				FieldKey: f.Key,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("%s取值无效: %s（可选: %s）", f.Label, value, strings.Join(f.AllowedValues, "/")),
			})
		} else if f.IsDiscouraged(value) {
			issues = append(issues, model.ValidationIssue{
				FieldKey: f.Key,
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("%s取值「%s」需人工确认", f.Label, value),
			})
		}
	case model.FieldBoolean:
		if value != "是" && value != "否" {
			issues = append(issues, model.ValidationIssue{
				FieldKey: f.Key,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("%s只能填「是」或「否」", f.Label),
			})
		}
	}

	return issues
}

// ValidateAll 校验整批记录并标记报名号重复
func (v *Validator) ValidateAll(records []model.RawRecord) []*model.ParsedRow {
	rows := make([]*model.ParsedRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, v.ValidateRecord(rec))
	}
	MarkDuplicates(rows)
	return rows
}

// MarkDuplicates 重算整批行的报名号重复问题
//
// 先剥离既有的重复问题再重新标记，可在报名号编辑后安全重跑；
// 只有重复状态发生变化的行，其状态才会改变。
func MarkDuplicates(rows []*model.ParsedRow) {
	seen := make(map[string][]*model.ParsedRow)
	for _, row := range rows {
		kept := row.Issues[:0]
		for _, issue := range row.Issues {
			if issue.FieldKey == schema.KeyAdmissionNo && issue.Message == duplicateMessage {
				continue
			}
			kept = append(kept, issue)
		}
		row.Issues = kept

		no := strings.ToLower(strings.TrimSpace(row.Data[schema.KeyAdmissionNo]))
		if no != "" {
			seen[no] = append(seen[no], row)
		}
	}

	for _, group := range seen {
		if len(group) < 2 {
			continue
		}
		for _, row := range group {
			row.Issues = append(row.Issues, model.ValidationIssue{
				FieldKey: schema.KeyAdmissionNo,
				Severity: model.SeverityError,
				Message:  duplicateMessage,
			})
		}
	}

	for _, row := range rows {
		row.RecomputeStatus()
	}
}

func parseableDate(value string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
