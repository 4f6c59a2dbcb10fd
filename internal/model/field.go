package model

// FieldType 字段类型
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldDate    FieldType = "date"
	FieldEnum    FieldType = "enum"
	FieldBoolean FieldType = "boolean"
)

// FieldSpec 模板字段定义
//
// 由 schema.Registry 独占持有，运行期不可变。模板生成与行校验共用同一份定义，
// 保证“模板列头 = 校验字段”不会漂移。
type FieldSpec struct {
	Key      string    `json:"key"`      // 字段键（内部标识）
	Label    string    `json:"label"`    // 模板列头文本
	Type     FieldType `json:"type"`     // 字段类型
	Required bool      `json:"required"` // 是否必填

	// 枚举字段取值范围；Discouraged 为“可识别但不建议”的取值，命中记警告
	AllowedValues     []string `json:"allowedValues,omitempty"`
	DiscouragedValues []string `json:"discouragedValues,omitempty"`

	// 条件适用：当 AppliesWhenField 字段取值为 AppliesWhenEquals 时本字段才生效。
	// 为空表示无条件适用。
	AppliesWhenField  string `json:"appliesWhenField,omitempty"`
	AppliesWhenEquals string `json:"appliesWhenEquals,omitempty"`

	// 模板示例行取值
	Example string `json:"example,omitempty"`
}

// AppliesTo 判断字段在给定行数据下是否生效
func (f *FieldSpec) AppliesTo(row map[string]string) bool {
	if f.AppliesWhenField == "" {
		return true
	}
	return row[f.AppliesWhenField] == f.AppliesWhenEquals
}

// Allows 判断取值是否在枚举范围内（非枚举字段恒为 true）
func (f *FieldSpec) Allows(value string) bool {
	if len(f.AllowedValues) == 0 {
		return true
	}
	for _, v := range f.AllowedValues {
		if v == value {
			return true
		}
	}
	return false
}

// IsDiscouraged 判断取值是否为不建议取值
func (f *FieldSpec) IsDiscouraged(value string) bool {
	for _, v := range f.DiscouragedValues {
		if v == value {
			return true
		}
	}
	return false
}
