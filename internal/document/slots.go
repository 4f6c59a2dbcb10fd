package document

import (
	"admitflow/internal/model"
	"admitflow/internal/schema"
)

// ResolveSlots 根据行数据计算材料栏位集合
//
// 对同一行数据结果确定：学生/父亲/母亲固定栏位始终存在；监护人栏位仅在
// 「有无监护人」为是时出现；转学证明栏位仅在「有无转学」为是时出现，且为
// 必交（未分配文件的行不允许提交）。行数据中影响栏位的字段被编辑后必须
// 重新调用并对账既有分配。
func ResolveSlots(rowData map[string]string) []model.DocumentSlot {
	slots := []model.DocumentSlot{
		{Section: model.SectionStudent, SlotKey: "photo", DisplayName: "学生照片", Required: true},
		{Section: model.SectionStudent, SlotKey: "birth_cert", DisplayName: "出生证明", Required: true},
		{Section: model.SectionFather, SlotKey: "id_card", DisplayName: "父亲身份证", Required: true},
		{Section: model.SectionMother, SlotKey: "id_card", DisplayName: "母亲身份证", Required: true},
	}

	if rowData[schema.KeyHasGuardian] == "是" {
		slots = append(slots,
			model.DocumentSlot{Section: model.SectionGuardian, SlotKey: "id_card", DisplayName: "监护人身份证", Required: true},
			model.DocumentSlot{Section: model.SectionGuardian, SlotKey: "authorization", DisplayName: "监护委托书", Required: true},
		)
	}

	if rowData[schema.KeyHasPreviousSchool] == "是" {
		slots = append(slots,
			model.DocumentSlot{Section: model.SectionStudent, SlotKey: "transfer_cert", DisplayName: "转学证明", Required: true},
		)
	}

	return slots
}

// SlotByID 在栏位集合中按 ID 查找
func SlotByID(slots []model.DocumentSlot, id string) (model.DocumentSlot, bool) {
	for _, s := range slots {
		if s.ID() == id {
			return s, true
		}
	}
	return model.DocumentSlot{}, false
}

// MissingRequired 返回尚未分配文件的必交栏位
func MissingRequired(slots []model.DocumentSlot, assignments map[string]model.DocumentAssignment) []model.DocumentSlot {
	var missing []model.DocumentSlot
	for _, s := range slots {
		if !s.Required {
			continue
		}
		if _, ok := assignments[s.ID()]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
