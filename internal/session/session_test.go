package session

import (
	"errors"
	"testing"

	"admitflow/internal/model"
	"admitflow/internal/schema"
	"admitflow/internal/validate"
)

// memStore 内存快照存储
type memStore struct {
	data []byte
	ok   bool
}

func (m *memStore) Save(data []byte) error {
	m.data = append([]byte(nil), data...)
	m.ok = true
	return nil
}

func (m *memStore) Load() ([]byte, bool, error) {
	return m.data, m.ok, nil
}

func (m *memStore) Clear() error {
	m.data = nil
	m.ok = false
	return nil
}

func rowValues(admissionNo string) map[string]string {
	return map[string]string{
		"admission_no":        admissionNo,
		"student_name":        "王小明",
		"gender":              "男",
		"birth_date":          "2018-09-01",
		"class_applied":       "一年级",
		"contact_phone":       "13800001111",
		"father_name":         "王大明",
		"father_phone":        "13800002222",
		"mother_name":         "李小红",
		"mother_phone":        "13800003333",
		"has_previous_school": "否",
		"has_guardian":        "否",
	}
}

func newTestSession(store SnapshotStore) (*Session, *validate.Validator) {
	v := validate.NewValidator(schema.NewRegistry())
	return NewSession(v, store), v
}

func validatedRows(v *validate.Validator, admissionNos ...string) []*model.ParsedRow {
	records := make([]model.RawRecord, 0, len(admissionNos))
	for i, no := range admissionNos {
		records = append(records, model.RawRecord{RowNumber: i + 1, Values: rowValues(no)})
	}
	return v.ValidateAll(records)
}

func TestBeginAndSummary(t *testing.T) {
	store := &memStore{}
	sess, v := newTestSession(store)

	if sess.Active() {
		t.Fatalf("新建容器不应有活动会话")
	}

	id := sess.Begin("students.xlsx", validatedRows(v, "BM2025001", "BM2025002"))
	if id == "" || !sess.Active() {
		t.Fatalf("Begin 后应有活动会话")
	}
	if sess.SourceName() != "students.xlsx" {
		t.Errorf("来源文件名错误: %s", sess.SourceName())
	}

	summary := sess.Summary()
	if summary.TotalRows != 2 || summary.ValidRows != 2 {
		t.Errorf("汇总错误: %+v", summary)
	}
	if !store.ok {
		t.Errorf("Begin 应落盘快照")
	}
}

func TestBeginReplacesSession(t *testing.T) {
	store := &memStore{}
	sess, v := newTestSession(store)

	sess.Begin("first.xlsx", validatedRows(v, "BM2025001"))
	firstID := sess.ID()

	sess.Begin("second.xlsx", validatedRows(v, "BM2025009", "BM2025010"))
	if sess.ID() == firstID {
		t.Errorf("新会话应有新标识")
	}
	if sess.Summary().TotalRows != 2 {
		t.Errorf("旧工作集应被替换")
	}
}

func TestEditFieldRevalidates(t *testing.T) {
	sess, v := newTestSession(&memStore{})

	rows := validatedRows(v, "BM2025001")
	rows[0].Data["birth_date"] = "不是日期"
	rows[0] = v.ValidateRecord(model.RawRecord{RowNumber: 1, Values: rows[0].Data})
	sess.Begin("students.xlsx", rows)

	row, ok := sess.Row(1)
	if !ok || row.Status != model.RowInvalid {
		t.Fatalf("初始应为 invalid")
	}

	// 修正日期后同步恢复 valid
	edited, err := sess.EditField(1, "birth_date", "2018-09-01")
	if err != nil {
		t.Fatalf("编辑失败: %v", err)
	}
	if edited.Status != model.RowValid {
		t.Errorf("修正后应为 valid: %v", edited.Issues)
	}
	if sess.Summary().ValidRows != 1 {
		t.Errorf("汇总应同步更新: %+v", sess.Summary())
	}
}

func TestEditAdmissionNoRechecksDuplicates(t *testing.T) {
	sess, v := newTestSession(&memStore{})

	sess.Begin("students.xlsx", validatedRows(v, "BM2025001", "BM2025001"))
	if row, _ := sess.Row(1); row.Status != model.RowInvalid {
		t.Fatalf("重复报名号初始应为 invalid")
	}

	if _, err := sess.EditField(2, schema.KeyAdmissionNo, "BM2025002"); err != nil {
		t.Fatalf("编辑失败: %v", err)
	}
	row1, _ := sess.Row(1)
	row2, _ := sess.Row(2)
	if row1.Status != model.RowValid || row2.Status != model.RowValid {
		t.Errorf("报名号修正后两行应恢复: %s %s", row1.Status, row2.Status)
	}
}

func TestEditOtherFieldKeepsDuplicateError(t *testing.T) {
	sess, v := newTestSession(&memStore{})

	sess.Begin("students.xlsx", validatedRows(v, "BM2025001", "BM2025001"))

	// 编辑与报名号无关的字段，重复问题必须保留
	edited, err := sess.EditField(2, "student_name", "张三")
	if err != nil {
		t.Fatalf("编辑失败: %v", err)
	}
	if edited.Status != model.RowInvalid {
		t.Fatalf("被编辑行的重复问题不应丢失: %s %v", edited.Status, edited.Issues)
	}
	if edited.Data["student_name"] != "张三" {
		t.Errorf("编辑值未生效: %q", edited.Data["student_name"])
	}

	row1, _ := sess.Row(1)
	row2, _ := sess.Row(2)
	if row1.Status != model.RowInvalid || row2.Status != model.RowInvalid {
		t.Errorf("两行重复状态应保持一致: %s %s", row1.Status, row2.Status)
	}
	if sess.Summary().InvalidRows != 2 {
		t.Errorf("汇总应仍为 2 行错误: %+v", sess.Summary())
	}
}

func TestReadCopiesIsolated(t *testing.T) {
	sess, v := newTestSession(&memStore{})
	sess.Begin("students.xlsx", validatedRows(v, "BM2025001"))

	// 篡改读取到的行不影响内部工作集
	rows := sess.Rows()
	rows[0].Data["student_name"] = "被篡改"
	rows[0].Status = model.RowInvalid
	rows[0].Issues = append(rows[0].Issues, model.ValidationIssue{
		FieldKey: "student_name", Severity: model.SeverityError, Message: "x",
	})

	fresh, _ := sess.Row(1)
	if fresh.Data["student_name"] != "王小明" || fresh.Status != model.RowValid || len(fresh.Issues) != 0 {
		t.Errorf("内部行被外部修改污染: %+v", fresh)
	}

	summary := sess.Summary()
	summary.Rows[0].Data["student_name"] = "又被篡改"
	fresh, _ = sess.Row(1)
	if fresh.Data["student_name"] != "王小明" {
		t.Errorf("汇总中的行不应与内部行共享: %q", fresh.Data["student_name"])
	}
}

func TestEditFieldErrors(t *testing.T) {
	sess, v := newTestSession(&memStore{})

	if _, err := sess.EditField(1, "student_name", "x"); !errors.Is(err, ErrNoSession) {
		t.Errorf("无会话应返回 ErrNoSession, 实际 %v", err)
	}

	sess.Begin("students.xlsx", validatedRows(v, "BM2025001"))
	if _, err := sess.EditField(99, "student_name", "x"); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("行号不存在应返回 ErrRowNotFound, 实际 %v", err)
	}
}

func TestAssignDocument(t *testing.T) {
	sess, v := newTestSession(&memStore{})
	sess.Begin("students.xlsx", validatedRows(v, "BM2025001"))

	ref := model.FileRef{URL: "/files/a.jpg", Filename: "a.jpg", Size: 10}
	if err := sess.AssignDocument(1, "student/photo", ref, false); err != nil {
		t.Fatalf("首次分配失败: %v", err)
	}

	// 匹配器来源的分配不覆盖既有分配
	other := model.FileRef{URL: "/files/b.jpg", Filename: "b.jpg", Size: 20}
	if err := sess.AssignDocument(1, "student/photo", other, false); !errors.Is(err, ErrSlotOccupied) {
		t.Errorf("自动分配不应覆盖, 实际 %v", err)
	}

	// 手动分配总是生效
	if err := sess.AssignDocument(1, "student/photo", other, true); err != nil {
		t.Fatalf("手动分配应覆盖: %v", err)
	}
	got := sess.Assignments(1)["student/photo"]
	if got.Ref.Filename != "b.jpg" || !got.Manual {
		t.Errorf("手动分配未生效: %+v", got)
	}

	// 不适用的栏位拒绝分配
	if err := sess.AssignDocument(1, "guardian/id_card", ref, true); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("无监护人的行不应有监护人栏位, 实际 %v", err)
	}
}

func TestClearDocument(t *testing.T) {
	sess, v := newTestSession(&memStore{})
	sess.Begin("students.xlsx", validatedRows(v, "BM2025001"))

	ref := model.FileRef{Filename: "a.jpg"}
	if err := sess.AssignDocument(1, "student/photo", ref, true); err != nil {
		t.Fatalf("分配失败: %v", err)
	}
	if err := sess.ClearDocument(1, "student/photo"); err != nil {
		t.Fatalf("清除失败: %v", err)
	}
	if _, ok := sess.Assignments(1)["student/photo"]; ok {
		t.Errorf("分配应已清除")
	}
}

func TestEditReconcilesAssignments(t *testing.T) {
	sess, v := newTestSession(&memStore{})

	values := rowValues("BM2025001")
	values["has_guardian"] = "是"
	values["guardian_name"] = "王奶奶"
	values["guardian_phone"] = "13800007777"
	values["guardian_relation"] = "祖父母"
	rows := []*model.ParsedRow{v.ValidateRecord(model.RawRecord{RowNumber: 1, Values: values})}
	sess.Begin("students.xlsx", rows)

	ref := model.FileRef{Filename: "g.jpg"}
	if err := sess.AssignDocument(1, "guardian/id_card", ref, true); err != nil {
		t.Fatalf("分配监护人材料失败: %v", err)
	}
	if err := sess.AssignDocument(1, "student/photo", ref, true); err != nil {
		t.Fatalf("分配学生照片失败: %v", err)
	}

	// 改为无监护人：监护人栏位消失，其分配一并丢弃，其余保留
	if _, err := sess.EditField(1, schema.KeyHasGuardian, "否"); err != nil {
		t.Fatalf("编辑失败: %v", err)
	}
	assignments := sess.Assignments(1)
	if _, ok := assignments["guardian/id_card"]; ok {
		t.Errorf("消失栏位的分配应被丢弃")
	}
	if _, ok := assignments["student/photo"]; !ok {
		t.Errorf("仍然适用的分配应保留")
	}
}

func TestResume(t *testing.T) {
	store := &memStore{}
	sess, v := newTestSession(store)

	sess.Begin("students.xlsx", validatedRows(v, "BM2025001", "BM2025002"))
	ref := model.FileRef{URL: "/files/a.jpg", Filename: "a.jpg"}
	if err := sess.AssignDocument(2, "student/photo", ref, true); err != nil {
		t.Fatalf("分配失败: %v", err)
	}
	originalID := sess.ID()

	// 模拟重启：新容器从同一存储恢复
	fresh, _ := newTestSession(store)
	resumed, err := fresh.Resume()
	if err != nil {
		t.Fatalf("恢复失败: %v", err)
	}
	if !resumed {
		t.Fatalf("应恢复出会话")
	}
	if fresh.ID() != originalID {
		t.Errorf("会话标识应保持: %s != %s", fresh.ID(), originalID)
	}
	if fresh.Summary().TotalRows != 2 {
		t.Errorf("行数应保持: %+v", fresh.Summary())
	}
	got := fresh.Assignments(2)["student/photo"]
	if got.Ref.Filename != "a.jpg" || !got.Manual {
		t.Errorf("材料分配应保持: %+v", got)
	}
}

func TestResumeEmpty(t *testing.T) {
	sess, _ := newTestSession(&memStore{})

	resumed, err := sess.Resume()
	if err != nil {
		t.Fatalf("空存储恢复不应报错: %v", err)
	}
	if resumed || sess.Active() {
		t.Errorf("空存储不应恢复出会话")
	}
}

func TestResumeCorruptedSnapshot(t *testing.T) {
	store := &memStore{data: []byte("{broken"), ok: true}
	sess, _ := newTestSession(store)

	if _, err := sess.Resume(); err == nil {
		t.Errorf("损坏快照应报错")
	}
}

func TestReset(t *testing.T) {
	store := &memStore{}
	sess, v := newTestSession(store)

	sess.Begin("students.xlsx", validatedRows(v, "BM2025001"))
	sess.Reset()

	if sess.Active() {
		t.Errorf("Reset 后不应有活动会话")
	}
	if store.ok {
		t.Errorf("Reset 应清除快照")
	}
}
