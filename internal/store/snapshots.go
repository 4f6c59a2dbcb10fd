package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// 会话快照固定槽位：同一时刻只有一个活动会话
const snapshotSlot = "current"

// SnapshotStore 会话快照的 SQLite 实现（实现 session.SnapshotStore）
type SnapshotStore struct {
	store *Store
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(store *Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// Save 写入当前会话快照（覆盖旧值）
func (s *SnapshotStore) Save(data []byte) error {
	_, err := s.store.db.Exec(`
		INSERT INTO session_snapshots (slot, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, snapshotSlot, string(data))
	if err != nil {
		return fmt.Errorf("写入会话快照失败: %w", err)
	}
	return nil
}

// Load 读取当前会话快照；不存在时 ok 为 false
func (s *SnapshotStore) Load() ([]byte, bool, error) {
	var data string
	err := s.store.db.QueryRow(`
		SELECT data FROM session_snapshots WHERE slot = ?
	`, snapshotSlot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取会话快照失败: %w", err)
	}
	return []byte(data), true, nil
}

// Clear 清除会话快照（新导入开始时调用）
func (s *SnapshotStore) Clear() error {
	_, err := s.store.db.Exec(`DELETE FROM session_snapshots WHERE slot = ?`, snapshotSlot)
	if err != nil {
		return fmt.Errorf("清除会话快照失败: %w", err)
	}
	return nil
}
