package job

// Versioner 包装一次"提交窗口"：存储层保存成功后调用 Commit，
// 将任务当前历史整体推进为已提交版本。未 Commit 即丢弃等价于保存失败。
type Versioner struct {
	j         *Job
	committed bool
}

// NewVersioner 创建提交窗口。
func NewVersioner(j *Job) *Versioner { return &Versioner{j: j} }

// Commit 标记当前历史已全部持久化；重复调用无副作用。
func (v *Versioner) Commit() {
	if v.committed {
		return
	}
	v.j.markSaved()
	v.committed = true
}

// Committed 返回是否已提交。
func (v *Versioner) Committed() bool { return v.committed }
