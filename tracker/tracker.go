package tracker

import (
	"context"
	"sync"
)

// Instance 维护运行中任务的上下文与取消句柄。
type Instance struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// Manager 运行中任务跟踪器，按任务ID索引。
type Manager struct {
	mu      sync.RWMutex
	running map[string]*Instance
}

// NewManager 构造。
func NewManager() *Manager { return &Manager{running: map[string]*Instance{}} }

// Start 注册一个运行实例，上下文派生自 parent。
func (m *Manager) Start(parent context.Context, jobID string) *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, cancel := context.WithCancel(parent)
	ins := &Instance{Ctx: ctx, Cancel: cancel}
	m.running[jobID] = ins
	return ins
}

// Stop 取消并移除实例；不存在返回 false。
func (m *Manager) Stop(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ins, ok := m.running[jobID]; ok {
		ins.Cancel()
		delete(m.running, jobID)
		return true
	}
	return false
}

// Get 查询实例。
func (m *Manager) Get(jobID string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ins, ok := m.running[jobID]
	return ins, ok
}

// Count 返回当前运行实例数。
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.running)
}

// ListIDs 返回当前运行任务ID集合。
func (m *Manager) ListIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	return ids
}
