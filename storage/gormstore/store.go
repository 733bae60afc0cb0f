package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mengeric/jobengine-go/engine"
	"github.com/mengeric/jobengine-go/job"
)

// model 任务表映射。Snapshot 列保存任务完整快照 JSON，
// 其余列为查询冗余（当前状态、计划时间、认领标记）。
type model struct {
	ID          uint       `gorm:"primaryKey"`
	JobID       string     `gorm:"uniqueIndex;size:64"`
	Name        string     `gorm:"size:255"`
	Processor   string     `gorm:"size:255"`
	State       string     `gorm:"index;size:32"`
	ScheduledAt *time.Time `gorm:"index"`
	Claimed     bool       `gorm:"index;default:false"`
	Version     int        `gorm:"default:0"`
	Snapshot    string     `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

// eventModel 状态转换审计表映射。
type eventModel struct {
	ID        uint      `gorm:"primaryKey"`
	JobID     string    `gorm:"index;size:64"`
	FromState string    `gorm:"size:32"`
	ToState   string    `gorm:"size:32"`
	At        time.Time `gorm:"index"`
}

// Store 基于 GORM 的 engine.Storage 实现。
type Store struct{ db *gorm.DB }

// New 创建 Store 并迁移表结构。
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&model{}, &eventModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save 插入或整体覆盖任务快照；重存即释放认领。
func (s *Store) Save(ctx context.Context, j *job.Job) error {
	m, err := toModel(j)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("job_id = ?", m.JobID).
		Assign(map[string]any{
			"name":         m.Name,
			"processor":    m.Processor,
			"state":        m.State,
			"scheduled_at": m.ScheduledAt,
			"claimed":      false,
			"version":      m.Version,
			"snapshot":     m.Snapshot,
		}).
		FirstOrCreate(&model{JobID: m.JobID}).Error
}

// Get 按任务ID读取；不存在返回 engine.ErrNotFound。
func (s *Store) Get(ctx context.Context, id string) (*job.Job, error) {
	var m model
	if err := s.db.WithContext(ctx).Where("job_id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	return fromModel(m)
}

// FetchNextEnqueued 在事务内认领最早入库的 Enqueued 任务；无任务返回 (nil, nil)。
func (s *Store) FetchNextEnqueued(ctx context.Context) (*job.Job, error) {
	var out *job.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model
		err := tx.Where("state = ? AND claimed = ?", string(job.StateEnqueued), false).
			Order("id").First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res := tx.Model(&model{}).
			Where("id = ? AND claimed = ?", m.ID, false).
			Update("claimed", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 并发认领竞争失败，当作本轮无任务
			return nil
		}
		j, err := fromModel(m)
		if err != nil {
			return err
		}
		out = j
		return nil
	})
	return out, err
}

// ListDueScheduled 列出计划时间早于 before 的 Scheduled 任务。
func (s *Store) ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]*job.Job, error) {
	var list []model
	q := s.db.WithContext(ctx).
		Where("state = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", string(job.StateScheduled), before).
		Order("scheduled_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]*job.Job, 0, len(list))
	for _, m := range list {
		j, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// CountByState 按当前状态统计任务数。
func (s *Store) CountByState(ctx context.Context) (map[job.StateName]int, error) {
	type row struct {
		State string
		N     int
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&model{}).
		Select("state, count(*) as n").Group("state").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[job.StateName]int{}
	for _, r := range rows {
		out[job.StateName(r.State)] = r.N
	}
	return out, nil
}

// AppendEvents 批量追加状态转换审计记录。
func (s *Store) AppendEvents(ctx context.Context, evs []engine.TransitionEvent) error {
	if len(evs) == 0 {
		return nil
	}
	rows := make([]eventModel, 0, len(evs))
	for _, ev := range evs {
		rows = append(rows, eventModel{
			JobID:     ev.JobID,
			FromState: string(ev.From),
			ToState:   string(ev.To),
			At:        ev.At,
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func toModel(j *job.Job) (model, error) {
	snap := j.Snapshot()
	snap.Version = len(snap.States) // 持久化即提交全部历史
	b, err := json.Marshal(snap)
	if err != nil {
		return model{}, err
	}
	m := model{
		JobID:     snap.ID,
		Name:      snap.Name,
		Processor: snap.Details.Processor,
		State:     string(snap.CurrentState()),
		Version:   snap.Version,
		Snapshot:  string(b),
	}
	if sch, ok := j.LastState().(job.ScheduledState); ok {
		at := sch.ScheduledAt
		m.ScheduledAt = &at
	}
	return m, nil
}

func fromModel(m model) (*job.Job, error) {
	var snap job.Snapshot
	if err := json.Unmarshal([]byte(m.Snapshot), &snap); err != nil {
		return nil, err
	}
	return job.FromSnapshot(snap)
}
