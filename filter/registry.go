package filter

import "github.com/mengeric/jobengine-go/job"

// Registry 全局注册过滤器的有序集合：注册顺序即调用顺序。
// 引擎启动时构造一次，此后只读，可被多个 worker 协程安全共享。
type Registry struct {
	filters []Filter
}

// NewRegistry 构造注册表，并将内置默认选举过滤器（RetryFilter）置于首位，
// 这样调用方提供的选举过滤器仍会运行，且后运行者的提案覆盖默认决定；
// 默认过滤器保证失败任务总有一个终态决定（重试或保持终止失败）。
// 构造不会失败。
func NewRegistry(fs ...Filter) *Registry {
	all := make([]Filter, 0, len(fs)+1)
	all = append(all, NewRetryFilter(job.DefaultMaxRetries))
	all = append(all, fs...)
	return &Registry{filters: all}
}

// NewRegistryWithoutDefault 构造不含默认选举过滤器的注册表：
// 显式替换默认策略，调用方提供的过滤器成为唯一决策者。
func NewRegistryWithoutDefault(fs ...Filter) *Registry {
	all := make([]Filter, len(fs))
	copy(all, fs)
	return &Registry{filters: all}
}

// All 返回过滤器列表副本。
func (r *Registry) All() []Filter {
	out := make([]Filter, len(r.filters))
	copy(out, r.filters)
	return out
}

// forStage 返回实现指定阶段能力的过滤器，保持注册顺序。
func (r *Registry) forStage(s Stage) []Filter {
	out := make([]Filter, 0, len(r.filters))
	for _, f := range r.filters {
		if implementsStage(f, s) {
			out = append(out, f)
		}
	}
	return out
}
