package model

// Section 材料所属板块
type Section string

const (
	SectionStudent  Section = "student"
	SectionFather   Section = "father"
	SectionMother   Section = "mother"
	SectionGuardian Section = "guardian"
)

// DocumentSlot 单个材料栏位（按行计算得出，不落库，行数据变化后重算）
type DocumentSlot struct {
	Section     Section `json:"section"`
	SlotKey     string  `json:"slotKey"`
	DisplayName string  `json:"displayName"` // 压缩包命名规则里的材料名称
	Required    bool    `json:"required"`
}

// ID 栏位唯一标识，作为分配表的键。始终由栏位派生，禁止手拼字符串。
func (s DocumentSlot) ID() string {
	return string(s.Section) + "/" + s.SlotKey
}

// FileRef 已入库文件的稳定引用
type FileRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// DocumentAssignment 栏位的文件分配
//
// Manual 标记手动上传：匹配器不得覆盖任何已有分配，手动分配则总是允许覆盖。
type DocumentAssignment struct {
	Ref    FileRef `json:"ref"`
	Manual bool    `json:"manual"`
}
