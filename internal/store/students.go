package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"admitflow/internal/commit"
	"admitflow/internal/schema"
)

// StudentStore 学籍创建协作方的本地实现（实现 commit.StudentCreator）
type StudentStore struct {
	store *Store
}

// NewStudentStore 创建学籍存储
func NewStudentStore(store *Store) *StudentStore {
	return &StudentStore{store: store}
}

// Create 落库一条学籍记录，返回新建记录 ID
//
// 报名号唯一约束冲突转为 DuplicateError；上下文取消/超时与数据库繁忙
// 转为可重试的 TransportError。
func (s *StudentStore) Create(ctx context.Context, rec *commit.StudentRecord) (string, error) {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return "", fmt.Errorf("序列化学生字段失败: %w", err)
	}
	docsJSON, err := json.Marshal(rec.Documents)
	if err != nil {
		return "", fmt.Errorf("序列化材料引用失败: %w", err)
	}

	id := uuid.New().String()
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO students (id, admission_no, student_name, fields_json, documents_json)
		VALUES (?, ?, ?, ?, ?)
	`, id, rec.AdmissionNo, rec.Fields[schema.KeyStudentName], string(fieldsJSON), string(docsJSON))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return "", &commit.DuplicateError{AdmissionNo: rec.AdmissionNo}
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", &commit.TransportError{Err: err}
		}
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			return "", &commit.TransportError{Err: err}
		}
		return "", fmt.Errorf("写入学籍记录失败: %w", err)
	}

	return id, nil
}

// StudentRow 已落库的学籍记录
type StudentRow struct {
	ID          string            `json:"id"`
	AdmissionNo string            `json:"admissionNo"`
	StudentName string            `json:"studentName"`
	Fields      map[string]string `json:"fields"`
	CreatedAt   string            `json:"createdAt"`
}

// GetByAdmissionNo 按报名号查询
func (s *StudentStore) GetByAdmissionNo(ctx context.Context, admissionNo string) (*StudentRow, error) {
	var (
		row        StudentRow
		fieldsJSON string
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT id, admission_no, student_name, fields_json, created_at
		FROM students WHERE admission_no = ?
	`, admissionNo).Scan(&row.ID, &row.AdmissionNo, &row.StudentName, &fieldsJSON, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("学籍记录不存在: %s", admissionNo)
		}
		return nil, fmt.Errorf("查询学籍记录失败: %w", err)
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &row.Fields); err != nil {
		return nil, fmt.Errorf("学籍字段数据损坏: %w", err)
	}
	return &row, nil
}

// Count 学籍记录总数
func (s *StudentStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("统计学籍记录失败: %w", err)
	}
	return n, nil
}
