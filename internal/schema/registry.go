package schema

import (
	"strings"

	"admitflow/internal/model"
)

// 关键字段键，解析、材料匹配与提交环节都会引用
const (
	KeyAdmissionNo       = "admission_no"
	KeyStudentName       = "student_name"
	KeyHasPreviousSchool = "has_previous_school"
	KeyHasGuardian       = "has_guardian"
)

// Registry 模板字段注册表
//
// 模板生成器与行校验器共用的唯一字段来源。构造后不可变。
type Registry struct {
	fields  []model.FieldSpec
	byKey   map[string]*model.FieldSpec
	byLabel map[string]*model.FieldSpec
}

// NewRegistry 创建注册表（内置批量入学导入的标准字段集）
func NewRegistry() *Registry {
	fields := []model.FieldSpec{
		{Key: KeyAdmissionNo, Label: "报名号", Type: model.FieldString, Required: true, Example: "BM2025001"},
		{Key: KeyStudentName, Label: "学生姓名", Type: model.FieldString, Required: true, Example: "王小明"},
		{Key: "gender", Label: "性别", Type: model.FieldEnum, Required: true,
			AllowedValues: []string{"男", "女"}, Example: "男"},
		{Key: "birth_date", Label: "出生日期", Type: model.FieldDate, Required: true, Example: "2018-09-01"},
		{Key: "class_applied", Label: "报读年级", Type: model.FieldEnum, Required: true,
			AllowedValues: []string{"一年级", "二年级", "三年级", "四年级", "五年级", "六年级", "七年级", "八年级", "九年级"},
			Example:       "一年级"},
		{Key: "student_type", Label: "学生类别", Type: model.FieldEnum, Required: false,
			AllowedValues:     []string{"普通", "借读", "国际"},
			DiscouragedValues: []string{"借读"},
			Example:           "普通"},
		{Key: "id_number", Label: "身份证件号", Type: model.FieldString, Required: false, Example: "330102201809010011"},
		{Key: "contact_phone", Label: "联系电话", Type: model.FieldString, Required: true, Example: "13800001111"},
		{Key: "home_address", Label: "家庭住址", Type: model.FieldString, Required: false, Example: "杭州市西湖区文一路1号"},

		{Key: "father_name", Label: "父亲姓名", Type: model.FieldString, Required: true, Example: "王大明"},
		{Key: "father_phone", Label: "父亲电话", Type: model.FieldString, Required: true, Example: "13800002222"},
		{Key: "mother_name", Label: "母亲姓名", Type: model.FieldString, Required: true, Example: "李小红"},
		{Key: "mother_phone", Label: "母亲电话", Type: model.FieldString, Required: true, Example: "13800003333"},

		{Key: KeyHasPreviousSchool, Label: "有无转学", Type: model.FieldBoolean, Required: true, Example: "否"},
		{Key: "previous_school", Label: "原就读学校", Type: model.FieldString, Required: true,
			AppliesWhenField: KeyHasPreviousSchool, AppliesWhenEquals: "是"},
		{Key: "transfer_cert_no", Label: "转学证明编号", Type: model.FieldString, Required: true,
			AppliesWhenField: KeyHasPreviousSchool, AppliesWhenEquals: "是"},

		{Key: KeyHasGuardian, Label: "有无监护人", Type: model.FieldBoolean, Required: true, Example: "否"},
		{Key: "guardian_name", Label: "监护人姓名", Type: model.FieldString, Required: true,
			AppliesWhenField: KeyHasGuardian, AppliesWhenEquals: "是"},
		{Key: "guardian_phone", Label: "监护人电话", Type: model.FieldString, Required: true,
			AppliesWhenField: KeyHasGuardian, AppliesWhenEquals: "是"},
		{Key: "guardian_relation", Label: "监护人关系", Type: model.FieldEnum, Required: true,
			AllowedValues:     []string{"祖父母", "外祖父母", "其他亲属", "其他"},
			DiscouragedValues: []string{"其他"},
			AppliesWhenField:  KeyHasGuardian, AppliesWhenEquals: "是"},
	}

	r := &Registry{
		fields:  fields,
		byKey:   make(map[string]*model.FieldSpec, len(fields)),
		byLabel: make(map[string]*model.FieldSpec, len(fields)),
	}
	for i := range r.fields {
		f := &r.fields[i]
		r.byKey[f.Key] = f
		r.byLabel[NormalizeLabel(f.Label)] = f
	}
	return r
}

// Fields 全部字段，按模板列顺序
func (r *Registry) Fields() []model.FieldSpec {
	return r.fields
}

// FieldByKey 按字段键查找
func (r *Registry) FieldByKey(key string) (*model.FieldSpec, bool) {
	f, ok := r.byKey[key]
	return f, ok
}

// FieldByLabel 按列头文本查找（归一化后比较）
func (r *Registry) FieldByLabel(label string) (*model.FieldSpec, bool) {
	f, ok := r.byLabel[NormalizeLabel(label)]
	return f, ok
}

// Labels 模板列头文本，顺序与 Fields 一致
func (r *Registry) Labels() []string {
	labels := make([]string, len(r.fields))
	for i, f := range r.fields {
		labels[i] = f.Label
	}
	return labels
}

// MissingRequiredLabels 返回表头中缺失的无条件必填列
//
// 条件必填字段（如转学、监护人组）缺列不算模板错误，整列缺失时按空值校验。
func (r *Registry) MissingRequiredLabels(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[NormalizeLabel(h)] = true
	}

	var missing []string
	for _, f := range r.fields {
		if !f.Required || f.AppliesWhenField != "" {
			continue
		}
		if !present[NormalizeLabel(f.Label)] {
			missing = append(missing, f.Label)
		}
	}
	return missing
}

// NormalizeLabel 列头归一化：去首尾空白、压缩内部空白、小写化
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.Join(strings.Fields(label), "")
	return strings.ToLower(label)
}
