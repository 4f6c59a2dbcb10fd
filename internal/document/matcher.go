package document

import (
	"path"
	"strings"
	"unicode"

	"admitflow/internal/model"
	"admitflow/internal/schema"
)

// 未匹配原因文案
const (
	ReasonBadName      = "文件名不符合「报名号_材料名称」规则"
	ReasonNoRow        = "未找到对应报名号的行"
	ReasonManyRows     = "报名号对应多行，无法归属"
	ReasonNoSlot       = "材料名称未匹配到任何栏位"
	ReasonAmbiguous    = "材料名称匹配到多个栏位，放弃猜测"
	ReasonSlotOccupied = "栏位已有文件，不覆盖"
)

// MatchedEntry 压缩包条目到栏位的一次命中
type MatchedEntry struct {
	Entry     string `json:"entry"`
	RowNumber int    `json:"rowNumber"`
	SlotID    string `json:"slotId"`
}

// UnmatchedEntry 未能归属的条目，连同原因回报，绝不静默丢弃
type UnmatchedEntry struct {
	Entry  string `json:"entry"`
	Reason string `json:"reason"`
}

// MatchResult 匹配结果
type MatchResult struct {
	Matched   []MatchedEntry   `json:"matched"`
	Unmatched []UnmatchedEntry `json:"unmatched"`
}

// Match 将压缩包条目按「报名号_材料名称.扩展名」归属到各行的材料栏位
//
// 报名号按去空白小写后精确比对；材料名称分两档显式匹配：第一档为归一化后
// 完全相等，第二档为归一化后的包含关系。第一档永远优先；同档出现多个候选
// 时宁可回报未匹配也不猜测。已有分配（无论手动还是此前匹配）一律不覆盖。
func Match(
	entries []string,
	rows []*model.ParsedRow,
	slotsByRow map[int][]model.DocumentSlot,
	assignments map[int]map[string]model.DocumentAssignment,
) MatchResult {
	byAdmissionNo := make(map[string][]*model.ParsedRow)
	for _, row := range rows {
		no := normalizeAdmissionNo(row.Data[schema.KeyAdmissionNo])
		if no != "" {
			byAdmissionNo[no] = append(byAdmissionNo[no], row)
		}
	}

	// 本轮内先到先得：已占用的栏位对后续条目视同已分配
	claimed := make(map[int]map[string]bool)
	for rowNumber, bySlot := range assignments {
		claimed[rowNumber] = make(map[string]bool, len(bySlot))
		for slotID := range bySlot {
			claimed[rowNumber][slotID] = true
		}
	}

	var result MatchResult
	for _, entry := range entries {
		admissionNo, label, ok := splitEntryName(entry)
		if !ok {
			result.Unmatched = append(result.Unmatched, UnmatchedEntry{Entry: entry, Reason: ReasonBadName})
			continue
		}

		candidates := byAdmissionNo[normalizeAdmissionNo(admissionNo)]
		if len(candidates) == 0 {
			result.Unmatched = append(result.Unmatched, UnmatchedEntry{Entry: entry, Reason: ReasonNoRow})
			continue
		}
		if len(candidates) > 1 {
			result.Unmatched = append(result.Unmatched, UnmatchedEntry{Entry: entry, Reason: ReasonManyRows})
			continue
		}
		row := candidates[0]

		slot, reason := pickSlot(label, slotsByRow[row.RowNumber])
		if reason != "" {
			result.Unmatched = append(result.Unmatched, UnmatchedEntry{Entry: entry, Reason: reason})
			continue
		}

		if claimed[row.RowNumber][slot.ID()] {
			result.Unmatched = append(result.Unmatched, UnmatchedEntry{Entry: entry, Reason: ReasonSlotOccupied})
			continue
		}
		if claimed[row.RowNumber] == nil {
			claimed[row.RowNumber] = make(map[string]bool)
		}
		claimed[row.RowNumber][slot.ID()] = true

		result.Matched = append(result.Matched, MatchedEntry{
			Entry:     entry,
			RowNumber: row.RowNumber,
			SlotID:    slot.ID(),
		})
	}
	return result
}

// pickSlot 两档栏位匹配，reason 非空表示未命中
func pickSlot(label string, slots []model.DocumentSlot) (model.DocumentSlot, string) {
	normalized := normalizeDocLabel(label)
	if normalized == "" {
		return model.DocumentSlot{}, ReasonNoSlot
	}

	var exact, fuzzy []model.DocumentSlot
	for _, s := range slots {
		name := normalizeDocLabel(s.DisplayName)
		switch {
		case name == normalized:
			exact = append(exact, s)
		case strings.Contains(name, normalized) || strings.Contains(normalized, name):
			fuzzy = append(fuzzy, s)
		}
	}

	if len(exact) == 1 {
		return exact[0], ""
	}
	if len(exact) > 1 {
		return model.DocumentSlot{}, ReasonAmbiguous
	}
	if len(fuzzy) == 1 {
		return fuzzy[0], ""
	}
	if len(fuzzy) > 1 {
		return model.DocumentSlot{}, ReasonAmbiguous
	}
	return model.DocumentSlot{}, ReasonNoSlot
}

// splitEntryName 拆分条目名：目录前缀和扩展名剥掉，按第一个下划线切分
func splitEntryName(entry string) (admissionNo, label string, ok bool) {
	base := path.Base(strings.ReplaceAll(entry, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}

	idx := strings.Index(base, "_")
	if idx <= 0 || idx == len(base)-1 {
		return "", "", false
	}
	return base[:idx], base[idx+1:], true
}

func normalizeAdmissionNo(no string) string {
	return strings.ToLower(strings.TrimSpace(no))
}

// normalizeDocLabel 材料名称归一化：小写化并去掉空白、标点与连接符
func normalizeDocLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
