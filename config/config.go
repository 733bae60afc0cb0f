package config

// Config 引擎运行所需的完整配置（可选）。
// 功能：承载 HTTP 监听、数据库与后台任务周期等配置；全部字段均有引擎默认值兜底。
type Config struct {
	Host string `yaml:"host"` // 服务监听地址，例如 0.0.0.0
	Port int    `yaml:"port"` // 服务监听端口，例如 27777

	Mysql struct {
		DataSource string `yaml:"dataSource"` // 形如 user:pass@tcp(127.0.0.1:3306)/db?charset=utf8mb4&parseTime=true&loc=Local
	} `yaml:"mysql"`

	Workers          int    `yaml:"workers"`          // 并发 worker 数
	PollSeconds      int    `yaml:"pollSeconds"`      // worker 拉取 Enqueued 任务的周期
	PromoteSeconds   int    `yaml:"promoteSeconds"`   // Scheduled→Enqueued 晋升检查周期
	HeartbeatSeconds int    `yaml:"heartbeatSeconds"` // 健康心跳日志周期
	MaxRetries       int    `yaml:"maxRetries"`       // 默认重试上限
	WorkerID         string `yaml:"workerId"`         // 实例标识（留空自动生成）
}
