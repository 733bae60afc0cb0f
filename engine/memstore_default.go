package engine

import (
	"context"
	"sync"
	"time"

	"github.com/mengeric/jobengine-go/job"
)

// inMemoryStore 是包内置的线程安全内存存储，仅用于默认与测试场景。
// 设计：为了避免 import cycle，不依赖外部子包，实现最小的 Storage 接口。
// 内部保存任务快照（值语义），读写互不共享实体。
type inMemoryStore struct {
	mu     sync.RWMutex
	m      map[string]job.Snapshot
	order  []string        // 插入序，FetchNextEnqueued 按此做 FIFO
	claims map[string]bool // 已认领未重存的任务
	events []TransitionEvent
}

// newDefaultMemStore 创建内置内存存储实现。
func newDefaultMemStore() *inMemoryStore {
	return &inMemoryStore{m: map[string]job.Snapshot{}, claims: map[string]bool{}}
}

// Save 插入或整体覆盖任务快照；重存即释放认领。
func (s *inMemoryStore) Save(ctx context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := j.Snapshot()
	snap.Version = len(snap.States) // 持久化即提交全部历史
	if _, ok := s.m[snap.ID]; !ok {
		s.order = append(s.order, snap.ID)
	}
	s.m[snap.ID] = snap
	delete(s.claims, snap.ID)
	return nil
}

// Get 按任务ID读取。
func (s *inMemoryStore) Get(ctx context.Context, id string) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.FromSnapshot(snap)
}

// FetchNextEnqueued 按插入序认领第一个未被认领的 Enqueued 任务。
func (s *inMemoryStore) FetchNextEnqueued(ctx context.Context) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		snap := s.m[id]
		if snap.CurrentState() != job.StateEnqueued || s.claims[id] {
			continue
		}
		s.claims[id] = true
		return job.FromSnapshot(snap)
	}
	return nil, nil
}

// ListDueScheduled 列出到期的 Scheduled 任务。
func (s *inMemoryStore) ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*job.Job, 0)
	for _, id := range s.order {
		snap := s.m[id]
		if snap.CurrentState() != job.StateScheduled {
			continue
		}
		j, err := job.FromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		sch, ok := j.LastState().(job.ScheduledState)
		if !ok || sch.ScheduledAt.After(before) {
			continue
		}
		out = append(out, j)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CountByState 按当前状态统计。
func (s *inMemoryStore) CountByState(ctx context.Context) (map[job.StateName]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[job.StateName]int{}
	for _, snap := range s.m {
		out[snap.CurrentState()]++
	}
	return out, nil
}

// AppendEvents 追加审计记录。
func (s *inMemoryStore) AppendEvents(ctx context.Context, evs []TransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evs...)
	return nil
}

// Events 返回审计记录副本，测试用。
func (s *inMemoryStore) Events() []TransitionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TransitionEvent, len(s.events))
	copy(out, s.events)
	return out
}

// NewMemStore 导出内置内存存储，便于测试与简单部署显式注入。
func NewMemStore() *inMemoryStore { return newDefaultMemStore() }
