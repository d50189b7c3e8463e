package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
)

// GameState 会话状态
type GameState string

const (
	StateIdle       GameState = "idle"       // 待机，可以开始新一局
	StateDrawing    GameState = "drawing"    // 已扣注，正在生成网格
	StateEvaluating GameState = "evaluating" // 判奖中
	StateResolved   GameState = "resolved"   // 结果已出，展示中
	StateError      GameState = "error"      // 错误状态
)

// 事件
const (
	EventSpin     = "spin"
	EventEvaluate = "evaluate"
	EventResolve  = "resolve"
	EventFinish   = "finish"
	EventCancel   = "cancel"
	EventError    = "error"
	EventRecover  = "recover"
)

// StateTransition 状态转换定义
type StateTransition struct {
	From   GameState
	Event  string
	To     GameState
	Action func(ctx context.Context, sm *StateMachine) error
}

// StateMachine 会话状态机
type StateMachine struct {
	mu           sync.RWMutex
	currentState GameState
	sessionID    string
	transitions  map[string][]StateTransition
	logger       *zap.Logger

	// 当前局数据
	roundID    string
	stake      decimal.Decimal
	winAmount  decimal.Decimal
	startTime  time.Time
	lastUpdate time.Time
	errorMsg   string

	onStateChange func(from, to GameState)
	onError       func(err error)

	persister StatePersister
}

// StatePersister 状态持久化接口
type StatePersister interface {
	Save(ctx context.Context, sessionID string, state *StateMachineData) error
	Load(ctx context.Context, sessionID string) (*StateMachineData, error)
	Delete(ctx context.Context, sessionID string) error
}

// StateMachineData 状态机数据（用于持久化）
type StateMachineData struct {
	SessionID    string          `json:"session_id"`
	CurrentState GameState       `json:"current_state"`
	RoundID      string          `json:"round_id,omitempty"`
	Stake        decimal.Decimal `json:"stake"`
	WinAmount    decimal.Decimal `json:"win_amount"`
	StartTime    time.Time       `json:"start_time"`
	LastUpdate   time.Time       `json:"last_update"`
	ErrorMsg     string          `json:"error_msg,omitempty"`
}

// NewStateMachine 创建状态机
func NewStateMachine(sessionID string, logger *zap.Logger, persister StatePersister) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &StateMachine{
		currentState: StateIdle,
		sessionID:    sessionID,
		transitions:  make(map[string][]StateTransition),
		logger:       logger,
		stake:        decimal.Zero,
		winAmount:    decimal.Zero,
		lastUpdate:   time.Now(),
		persister:    persister,
	}

	sm.initTransitions()

	return sm
}

// initTransitions 初始化状态转换规则
func (sm *StateMachine) initTransitions() {
	// 待机 -> 出图（扣注后开始）
	sm.addTransition(StateTransition{
		From:  StateIdle,
		Event: EventSpin,
		To:    StateDrawing,
		Action: func(ctx context.Context, sm *StateMachine) error {
			if !sm.stake.IsPositive() {
				return apperrors.New(apperrors.ErrInvalidBet, "stake must be positive")
			}
			sm.startTime = time.Now()
			sm.winAmount = decimal.Zero
			sm.logger.Debug("开始新一局",
				zap.String("session_id", sm.sessionID),
				zap.String("round_id", sm.roundID),
				zap.String("stake", sm.stake.String()))
			return nil
		},
	})

	// 出图 -> 待机（扣注失败或余额不足）
	sm.addTransition(StateTransition{
		From:  StateDrawing,
		Event: EventCancel,
		To:    StateIdle,
		Action: func(ctx context.Context, sm *StateMachine) error {
			sm.logger.Info("取消本局",
				zap.String("session_id", sm.sessionID),
				zap.String("round_id", sm.roundID))
			sm.resetRound()
			return nil
		},
	})

	// 出图 -> 判奖
	sm.addTransition(StateTransition{
		From:  StateDrawing,
		Event: EventEvaluate,
		To:    StateEvaluating,
	})

	// 判奖 -> 已出结果
	sm.addTransition(StateTransition{
		From:  StateEvaluating,
		Event: EventResolve,
		To:    StateResolved,
		Action: func(ctx context.Context, sm *StateMachine) error {
			if sm.winAmount.IsNegative() {
				return apperrors.New(apperrors.ErrGameStateError, "negative win amount")
			}
			return nil
		},
	})

	// 已出结果 -> 待机
	sm.addTransition(StateTransition{
		From:  StateResolved,
		Event: EventFinish,
		To:    StateIdle,
		Action: func(ctx context.Context, sm *StateMachine) error {
			sm.logger.Debug("本局结束",
				zap.String("session_id", sm.sessionID),
				zap.String("round_id", sm.roundID),
				zap.Duration("duration", time.Since(sm.startTime)),
				zap.String("stake", sm.stake.String()),
				zap.String("win", sm.winAmount.String()))
			sm.resetRound()
			return nil
		},
	})

	// 任何状态 -> 错误
	for _, state := range []GameState{StateIdle, StateDrawing, StateEvaluating, StateResolved} {
		sm.addTransition(StateTransition{
			From:  state,
			Event: EventError,
			To:    StateError,
			Action: func(ctx context.Context, sm *StateMachine) error {
				sm.logger.Error("会话出错",
					zap.String("session_id", sm.sessionID),
					zap.String("round_id", sm.roundID),
					zap.String("error", sm.errorMsg))
				return nil
			},
		})
	}

	// 错误 -> 待机
	sm.addTransition(StateTransition{
		From:  StateError,
		Event: EventRecover,
		To:    StateIdle,
		Action: func(ctx context.Context, sm *StateMachine) error {
			sm.logger.Info("从错误恢复", zap.String("session_id", sm.sessionID))
			sm.errorMsg = ""
			sm.resetRound()
			return nil
		},
	})
}

// addTransition 添加状态转换
func (sm *StateMachine) addTransition(transition StateTransition) {
	key := sm.transitionKey(transition.From, transition.Event)
	sm.transitions[key] = append(sm.transitions[key], transition)
}

// transitionKey 生成转换键
func (sm *StateMachine) transitionKey(state GameState, event string) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// resetRound 清空当前局数据
func (sm *StateMachine) resetRound() {
	sm.roundID = ""
	sm.stake = decimal.Zero
	sm.winAmount = decimal.Zero
	sm.startTime = time.Time{}
}

// Trigger 触发事件
func (sm *StateMachine) Trigger(ctx context.Context, event string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.trigger(ctx, event)
}

// Begin 在待机状态下登记新一局并进入出图状态，非待机时拒绝
func (sm *StateMachine) Begin(ctx context.Context, roundID string, stake decimal.Decimal) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.currentState != StateIdle {
		return apperrors.Newf(apperrors.ErrSpinInProgress, "session %s is %s", sm.sessionID, sm.currentState)
	}
	sm.roundID = roundID
	sm.stake = stake
	if err := sm.trigger(ctx, EventSpin); err != nil {
		sm.resetRound()
		return err
	}
	return nil
}

// trigger 调用方需持有锁
func (sm *StateMachine) trigger(ctx context.Context, event string) error {
	key := sm.transitionKey(sm.currentState, event)
	transitions, exists := sm.transitions[key]
	if !exists || len(transitions) == 0 {
		return apperrors.Newf(apperrors.ErrGameStateError, "无效的状态转换: 状态=%s, 事件=%s", sm.currentState, event)
	}

	transition := transitions[0]
	oldState := sm.currentState

	if transition.Action != nil {
		if err := transition.Action(ctx, sm); err != nil {
			// 转换失败，保持原状态
			if sm.onError != nil {
				sm.onError(err)
			}
			return apperrors.Wrap(err, apperrors.ErrGameStateError, "状态转换失败")
		}
	}

	sm.currentState = transition.To
	sm.lastUpdate = time.Now()

	if sm.onStateChange != nil {
		sm.onStateChange(oldState, sm.currentState)
	}

	if sm.persister != nil {
		if err := sm.persister.Save(ctx, sm.sessionID, sm.toData()); err != nil {
			sm.logger.Error("持久化状态失败",
				zap.Error(err),
				zap.String("session_id", sm.sessionID))
		}
	}

	sm.logger.Debug("状态转换",
		zap.String("session_id", sm.sessionID),
		zap.String("from", string(oldState)),
		zap.String("to", string(sm.currentState)),
		zap.String("event", event))

	return nil
}

// GetState 获取当前状态
func (sm *StateMachine) GetState() GameState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// RoundID 当前局ID
func (sm *StateMachine) RoundID() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.roundID
}

// Stake 当前局已扣下注额
func (sm *StateMachine) Stake() decimal.Decimal {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stake
}

// SetWinAmount 设置本局派彩
func (sm *StateMachine) SetWinAmount(amount decimal.Decimal) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.winAmount = amount
}

// WinAmount 本局派彩
func (sm *StateMachine) WinAmount() decimal.Decimal {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.winAmount
}

// SetError 设置错误信息
func (sm *StateMachine) SetError(err string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.errorMsg = err
}

// ErrorMsg 错误信息
func (sm *StateMachine) ErrorMsg() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.errorMsg
}

// OnStateChange 设置状态变更回调
func (sm *StateMachine) OnStateChange(fn func(from, to GameState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStateChange = fn
}

// OnError 设置错误回调
func (sm *StateMachine) OnError(fn func(err error)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onError = fn
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(event string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	key := sm.transitionKey(sm.currentState, event)
	transitions, exists := sm.transitions[key]
	return exists && len(transitions) > 0
}

// GetValidEvents 获取当前状态下的有效事件（按名称排序）
func (sm *StateMachine) GetValidEvents() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var events []string
	prefix := string(sm.currentState) + ":"

	for key := range sm.transitions {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			events = append(events, key[len(prefix):])
		}
	}
	sort.Strings(events)

	return events
}

// toData 转换为持久化数据
func (sm *StateMachine) toData() *StateMachineData {
	return &StateMachineData{
		SessionID:    sm.sessionID,
		CurrentState: sm.currentState,
		RoundID:      sm.roundID,
		Stake:        sm.stake,
		WinAmount:    sm.winAmount,
		StartTime:    sm.startTime,
		LastUpdate:   sm.lastUpdate,
		ErrorMsg:     sm.errorMsg,
	}
}

// Snapshot 当前状态快照
func (sm *StateMachine) Snapshot() *StateMachineData {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.toData()
}

// LoadFromData 从持久化数据加载
func (sm *StateMachine) LoadFromData(data *StateMachineData) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessionID = data.SessionID
	sm.currentState = data.CurrentState
	sm.roundID = data.RoundID
	sm.stake = data.Stake
	sm.winAmount = data.WinAmount
	sm.startTime = data.StartTime
	sm.lastUpdate = data.LastUpdate
	sm.errorMsg = data.ErrorMsg
}

// Reset 重置状态机
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.currentState = StateIdle
	sm.resetRound()
	sm.lastUpdate = time.Now()
	sm.errorMsg = ""
}
