package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/models"
)

func errSnapshotMissing(sessionID string) error {
	return apperrors.Newf(apperrors.ErrNotFound, "session %s has no snapshot", sessionID)
}

// MemoryStatePersister 进程内快照，按值保存
type MemoryStatePersister struct {
	mu        sync.RWMutex
	snapshots map[string]StateMachineData
}

// NewMemoryStatePersister 创建内存快照存储
func NewMemoryStatePersister() *MemoryStatePersister {
	return &MemoryStatePersister{snapshots: make(map[string]StateMachineData)}
}

func (p *MemoryStatePersister) Save(_ context.Context, sessionID string, state *StateMachineData) error {
	if state == nil {
		return apperrors.New(apperrors.ErrInvalidParam, "nil snapshot")
	}
	p.mu.Lock()
	p.snapshots[sessionID] = *state
	p.mu.Unlock()
	return nil
}

func (p *MemoryStatePersister) Load(_ context.Context, sessionID string) (*StateMachineData, error) {
	p.mu.RLock()
	snap, ok := p.snapshots[sessionID]
	p.mu.RUnlock()
	if !ok {
		return nil, errSnapshotMissing(sessionID)
	}
	return &snap, nil
}

func (p *MemoryStatePersister) Delete(_ context.Context, sessionID string) error {
	p.mu.Lock()
	delete(p.snapshots, sessionID)
	p.mu.Unlock()
	return nil
}

// DatabaseStatePersister 快照写入 game_states，每个会话一行
type DatabaseStatePersister struct {
	db *gorm.DB
}

// NewDatabaseStatePersister 创建数据库快照存储
func NewDatabaseStatePersister(db *gorm.DB) *DatabaseStatePersister {
	return &DatabaseStatePersister{db: db}
}

// Save 按 session_id 覆盖写入
func (p *DatabaseStatePersister) Save(ctx context.Context, sessionID string, state *StateMachineData) error {
	if state == nil {
		return apperrors.New(apperrors.ErrInvalidParam, "nil snapshot")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrGameStateError, "encode snapshot")
	}

	row := models.GameState{
		SessionID:    sessionID,
		CurrentState: string(state.CurrentState),
		StateData:    string(raw),
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_state", "state_data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrDatabaseInsert, "save snapshot %s", sessionID)
	}
	return nil
}

func (p *DatabaseStatePersister) Load(ctx context.Context, sessionID string) (*StateMachineData, error) {
	var row models.GameState
	err := p.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errSnapshotMissing(sessionID)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrDatabaseQuery, "load snapshot %s", sessionID)
	}

	var snap StateMachineData
	if err := json.Unmarshal([]byte(row.StateData), &snap); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGameStateError, "decode snapshot")
	}
	return &snap, nil
}

// Delete 删除不存在的快照返回 ErrNotFound
func (p *DatabaseStatePersister) Delete(ctx context.Context, sessionID string) error {
	res := p.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.GameState{})
	if res.Error != nil {
		return apperrors.Wrapf(res.Error, apperrors.ErrDatabaseQuery, "delete snapshot %s", sessionID)
	}
	if res.RowsAffected == 0 {
		return errSnapshotMissing(sessionID)
	}
	return nil
}

// CacheStatePersister 内存在前、存储在后，以存储为准
//
// 写入先落存储再更新前端；读取前端未命中时回源并回填。
type CacheStatePersister struct {
	front StatePersister
	back  StatePersister
}

// NewCacheStatePersister 创建两级快照存储
func NewCacheStatePersister(front, back StatePersister) *CacheStatePersister {
	return &CacheStatePersister{front: front, back: back}
}

func (p *CacheStatePersister) Save(ctx context.Context, sessionID string, state *StateMachineData) error {
	if err := p.back.Save(ctx, sessionID, state); err != nil {
		return err
	}
	_ = p.front.Save(ctx, sessionID, state)
	return nil
}

func (p *CacheStatePersister) Load(ctx context.Context, sessionID string) (*StateMachineData, error) {
	if snap, err := p.front.Load(ctx, sessionID); err == nil {
		return snap, nil
	}
	snap, err := p.back.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_ = p.front.Save(ctx, sessionID, snap)
	return snap, nil
}

func (p *CacheStatePersister) Delete(ctx context.Context, sessionID string) error {
	_ = p.front.Delete(ctx, sessionID)
	return p.back.Delete(ctx, sessionID)
}
