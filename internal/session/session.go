package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"admitflow/internal/document"
	"admitflow/internal/model"
	"admitflow/internal/validate"
)

// SnapshotStore 会话快照持久化
//
// 单槽位键值存储，生命周期显式：每次变更写入、恢复时读取一次、
// 新导入开始时清空。
type SnapshotStore interface {
	Save(data []byte) error
	Load() ([]byte, bool, error)
	Clear() error
}

// Snapshot 可序列化的会话快照
type Snapshot struct {
	ID          string                                     `json:"id"`
	SourceName  string                                     `json:"sourceName"`
	CreatedAt   time.Time                                  `json:"createdAt"`
	Rows        []*model.ParsedRow                         `json:"rows"`
	Assignments map[int]map[string]model.DocumentAssignment `json:"assignments"`
}

var (
	// ErrNoSession 尚无活动会话
	ErrNoSession = errors.New("没有进行中的导入会话")
	// ErrRowNotFound 行号不存在
	ErrRowNotFound = errors.New("行号不存在")
	// ErrSlotNotFound 栏位对该行不适用
	ErrSlotNotFound = errors.New("材料栏位不存在")
	// ErrSlotOccupied 栏位已有分配（非手动操作不覆盖）
	ErrSlotOccupied = errors.New("材料栏位已有文件")
)

// Session 评审会话：一次导入尝试的权威工作集
//
// 所有变更同步完成，返回时汇总已一致。同一时刻只有一个活动会话，
// Begin 原子替换整个工作集，旧会话的快照随之清除。
type Session struct {
	mu        sync.RWMutex
	validator *validate.Validator
	store     SnapshotStore

	id          string
	sourceName  string
	createdAt   time.Time
	rows        []*model.ParsedRow
	byNumber    map[int]*model.ParsedRow
	assignments map[int]map[string]model.DocumentAssignment
}

// NewSession 创建会话容器（尚无工作集）
func NewSession(validator *validate.Validator, store SnapshotStore) *Session {
	return &Session{
		validator: validator,
		store:     store,
	}
}

// Begin 以一批校验后的行开启新会话，替换并丢弃旧工作集
func (s *Session) Begin(sourceName string, rows []*model.ParsedRow) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = uuid.New().String()
	s.sourceName = sourceName
	s.createdAt = time.Now()
	s.rows = make([]*model.ParsedRow, len(rows))
	copy(s.rows, rows)
	sort.Slice(s.rows, func(i, j int) bool { return s.rows[i].RowNumber < s.rows[j].RowNumber })

	s.byNumber = make(map[int]*model.ParsedRow, len(rows))
	for _, row := range s.rows {
		s.byNumber[row.RowNumber] = row
	}
	s.assignments = make(map[int]map[string]model.DocumentAssignment)

	// 旧快照立即失效，再落新快照
	_ = s.store.Clear()
	s.persistLocked()
	return s.id
}

// Reset 丢弃当前会话
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.sourceName = ""
	s.rows = nil
	s.byNumber = nil
	s.assignments = nil
	_ = s.store.Clear()
}

// Active 是否存在进行中的会话
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id != ""
}

// ID 当前会话标识
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SourceName 来源文件名
func (s *Session) SourceName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceName
}

// Summary 当前汇总快照
func (s *Session) Summary() model.ParseResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Summarize(s.copyRowsLocked())
}

// Rows 当前行列表（按行号升序）
func (s *Session) Rows() []*model.ParsedRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyRowsLocked()
}

// Row 按行号取单行
func (s *Session) Row(rowNumber int) (*model.ParsedRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.byNumber[rowNumber]
	if !ok {
		return nil, false
	}
	return copyRow(row), true
}

// SlotsFor 行的材料栏位集合（随行数据实时计算）
func (s *Session) SlotsFor(rowNumber int) ([]model.DocumentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.byNumber[rowNumber]
	if !ok {
		return nil, ErrRowNotFound
	}
	return document.ResolveSlots(row.Data), nil
}

// Assignments 行的材料分配副本
func (s *Session) Assignments(rowNumber int) map[string]model.DocumentAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.DocumentAssignment, len(s.assignments[rowNumber]))
	for k, v := range s.assignments[rowNumber] {
		out[k] = v
	}
	return out
}

// AllAssignments 全部行的材料分配副本
func (s *Session) AllAssignments() map[int]map[string]model.DocumentAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]map[string]model.DocumentAssignment, len(s.assignments))
	for rowNumber, bySlot := range s.assignments {
		m := make(map[string]model.DocumentAssignment, len(bySlot))
		for k, v := range bySlot {
			m[k] = v
		}
		out[rowNumber] = m
	}
	return out
}

// EditField 修改单行字段并同步重校验
//
// 字段级校验只重算被编辑的行；重算会丢掉批量层面的重复问题，因此每次
// 编辑后都重标整批（幂等，只有重复状态变化的行受影响）。字段变化可能
// 影响栏位集合，随后对账分配：消失的栏位连同其分配一起丢弃。
func (s *Session) EditField(rowNumber int, fieldKey, value string) (*model.ParsedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id == "" {
		return nil, ErrNoSession
	}
	row, ok := s.byNumber[rowNumber]
	if !ok {
		return nil, ErrRowNotFound
	}

	values := make(map[string]string, len(row.Data))
	for k, v := range row.Data {
		values[k] = v
	}
	values[fieldKey] = value

	fresh := s.validator.ValidateRecord(model.RawRecord{RowNumber: rowNumber, Values: values})
	*row = *fresh
	s.byNumber[rowNumber] = row
	validate.MarkDuplicates(s.rows)

	s.reconcileAssignmentsLocked(rowNumber)
	s.persistLocked()
	return copyRow(row), nil
}

// AssignDocument 给行的栏位分配文件
//
// manual 为 false 表示来自匹配器：已有分配（无论来源）一律不覆盖；
// 手动分配总是生效。
func (s *Session) AssignDocument(rowNumber int, slotID string, ref model.FileRef, manual bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id == "" {
		return ErrNoSession
	}
	row, ok := s.byNumber[rowNumber]
	if !ok {
		return ErrRowNotFound
	}
	if _, ok := document.SlotByID(document.ResolveSlots(row.Data), slotID); !ok {
		return ErrSlotNotFound
	}

	if _, ok := s.assignments[rowNumber][slotID]; ok && !manual {
		return ErrSlotOccupied
	}

	if s.assignments[rowNumber] == nil {
		s.assignments[rowNumber] = make(map[string]model.DocumentAssignment)
	}
	s.assignments[rowNumber][slotID] = model.DocumentAssignment{Ref: ref, Manual: manual}
	s.persistLocked()
	return nil
}

// ClearDocument 清除行栏位的文件分配
func (s *Session) ClearDocument(rowNumber int, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id == "" {
		return ErrNoSession
	}
	if _, ok := s.byNumber[rowNumber]; !ok {
		return ErrRowNotFound
	}
	delete(s.assignments[rowNumber], slotID)
	s.persistLocked()
	return nil
}

// Resume 从快照恢复上次会话（仅在启动时调用一次）
func (s *Session) Resume() (bool, error) {
	data, ok, err := s.store.Load()
	if err != nil {
		return false, fmt.Errorf("读取会话快照失败: %w", err)
	}
	if !ok {
		return false, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("会话快照损坏: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = snap.ID
	s.sourceName = snap.SourceName
	s.createdAt = snap.CreatedAt
	s.rows = snap.Rows
	sort.Slice(s.rows, func(i, j int) bool { return s.rows[i].RowNumber < s.rows[j].RowNumber })
	s.byNumber = make(map[int]*model.ParsedRow, len(s.rows))
	for _, row := range s.rows {
		s.byNumber[row.RowNumber] = row
	}
	s.assignments = snap.Assignments
	if s.assignments == nil {
		s.assignments = make(map[int]map[string]model.DocumentAssignment)
	}
	return true, nil
}

// copyRowsLocked 读取侧行列表深拷贝
func (s *Session) copyRowsLocked() []*model.ParsedRow {
	out := make([]*model.ParsedRow, len(s.rows))
	for i, row := range s.rows {
		out[i] = copyRow(row)
	}
	return out
}

// copyRow 行的深拷贝，读取方持有的行与内部工作集互不影响
func copyRow(row *model.ParsedRow) *model.ParsedRow {
	out := &model.ParsedRow{
		RowNumber: row.RowNumber,
		Data:      make(map[string]string, len(row.Data)),
		Status:    row.Status,
		Issues:    append([]model.ValidationIssue(nil), row.Issues...),
	}
	for k, v := range row.Data {
		out.Data[k] = v
	}
	return out
}

// reconcileAssignmentsLocked 行数据变化后对账材料分配
func (s *Session) reconcileAssignmentsLocked(rowNumber int) {
	row := s.byNumber[rowNumber]
	slots := document.ResolveSlots(row.Data)
	valid := make(map[string]bool, len(slots))
	for _, slot := range slots {
		valid[slot.ID()] = true
	}
	for slotID := range s.assignments[rowNumber] {
		if !valid[slotID] {
			delete(s.assignments[rowNumber], slotID)
		}
	}
}

// persistLocked 落盘快照；持久层故障不阻塞内存工作集
func (s *Session) persistLocked() {
	snap := Snapshot{
		ID:          s.id,
		SourceName:  s.sourceName,
		CreatedAt:   s.createdAt,
		Rows:        s.rows,
		Assignments: s.assignments,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = s.store.Save(data)
}
