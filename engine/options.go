package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/mengeric/jobengine-go/config"
	"github.com/mengeric/jobengine-go/filter"
	"github.com/mengeric/jobengine-go/job"
)

// Options 引擎运行参数。
type Options struct {
	ListenAddr     string        // HTTP 监听地址，如 ":27777"、"127.0.0.1:0"（0 表示随机端口）
	WorkerID       string        // 实例标识，写入 Processing 状态；留空自动生成
	Workers        int           // 并发 worker 数
	PollEvery      time.Duration // worker 拉取 Enqueued 任务的周期
	PromoteEvery   time.Duration // Scheduled→Enqueued 晋升检查周期
	HeartbeatEvery time.Duration // 健康心跳日志周期
	MaxRetries     int           // 新任务的默认重试上限
	EventBatchMax  int           // 转换审计单批最大条数
}

// withDefaults 填充默认值。
func (o *Options) withDefaults() {
	if o.ListenAddr == "" {
		o.ListenAddr = ":27777"
	}
	if o.WorkerID == "" {
		o.WorkerID = "worker-" + uuid.NewString()[:8]
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.PollEvery <= 0 {
		o.PollEvery = time.Second
	}
	if o.PromoteEvery <= 0 {
		o.PromoteEvery = 5 * time.Second
	}
	if o.HeartbeatEvery <= 0 {
		o.HeartbeatEvery = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = job.DefaultMaxRetries
	}
	if o.EventBatchMax <= 0 {
		o.EventBatchMax = 256
	}
}

// engineConfig 聚合 With... 可选项。
type engineConfig struct {
	opt            Options
	store          Storage
	filters        []filter.Filter
	replaceDefault bool
	targets        filter.TargetResolver
	activator      filter.Activator
}

// Option 引擎构造可选项。
type Option func(*engineConfig)

// WithListenAddr 设置 HTTP 监听地址。
func WithListenAddr(addr string) Option { return func(c *engineConfig) { c.opt.ListenAddr = addr } }

// WithWorkerID 设置实例标识。
func WithWorkerID(id string) Option { return func(c *engineConfig) { c.opt.WorkerID = id } }

// WithWorkers 设置并发 worker 数。
func WithWorkers(n int) Option { return func(c *engineConfig) { c.opt.Workers = n } }

// WithPollEvery 设置任务拉取周期。
func WithPollEvery(d time.Duration) Option { return func(c *engineConfig) { c.opt.PollEvery = d } }

// WithPromoteEvery 设置晋升检查周期。
func WithPromoteEvery(d time.Duration) Option {
	return func(c *engineConfig) { c.opt.PromoteEvery = d }
}

// WithHeartbeatEvery 设置心跳周期。
func WithHeartbeatEvery(d time.Duration) Option {
	return func(c *engineConfig) { c.opt.HeartbeatEvery = d }
}

// WithMaxRetries 设置新任务默认重试上限。
func WithMaxRetries(n int) Option { return func(c *engineConfig) { c.opt.MaxRetries = n } }

// WithStorage 注入持久化实现；未注入时默认使用内置内存存储。
func WithStorage(s Storage) Option { return func(c *engineConfig) { c.store = s } }

// WithFilters 追加全局注册过滤器（默认选举过滤器仍在首位）。
func WithFilters(fs ...filter.Filter) Option {
	return func(c *engineConfig) { c.filters = append(c.filters, fs...) }
}

// WithoutDefaultElection 显式替换默认选举过滤器：注册表只含调用方提供的过滤器。
func WithoutDefaultElection() Option { return func(c *engineConfig) { c.replaceDefault = true } }

// WithTargetResolver 注入任务目标解析器；默认使用 processor.Targets()。
func WithTargetResolver(t filter.TargetResolver) Option {
	return func(c *engineConfig) { c.targets = t }
}

// WithFilterActivator 注入依赖注入能力，启用注入型任务过滤器。
func WithFilterActivator(a filter.Activator) Option {
	return func(c *engineConfig) { c.activator = a }
}

// WithConfig 由配置文件映射运行参数（显式 With... 可再覆盖）。
func WithConfig(c config.Config) Option {
	return func(ec *engineConfig) {
		if c.Host != "" || c.Port > 0 {
			host := c.Host
			ec.opt.ListenAddr = host + ":" + itoa(c.Port)
		}
		if c.Workers > 0 {
			ec.opt.Workers = c.Workers
		}
		if c.PollSeconds > 0 {
			ec.opt.PollEvery = time.Duration(c.PollSeconds) * time.Second
		}
		if c.PromoteSeconds > 0 {
			ec.opt.PromoteEvery = time.Duration(c.PromoteSeconds) * time.Second
		}
		if c.HeartbeatSeconds > 0 {
			ec.opt.HeartbeatEvery = time.Duration(c.HeartbeatSeconds) * time.Second
		}
		if c.MaxRetries > 0 {
			ec.opt.MaxRetries = c.MaxRetries
		}
		if c.WorkerID != "" {
			ec.opt.WorkerID = c.WorkerID
		}
	}
}

// itoa 简化版整型转字符串。
func itoa(x int) string {
	if x == 0 {
		return "0"
	}
	b := [12]byte{}
	i := len(b)
	neg := x < 0
	if neg {
		x = -x
	}
	for x > 0 {
		i--
		b[i] = byte('0' + x%10)
		x /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
