package models

import (
	"fmt"
	"net/url"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending     TaskStatus = "pending"     // 待执行
	TaskStatusRunning     TaskStatus = "running"     // 执行中
	TaskStatusCompleted   TaskStatus = "completed"   // 已完成
	TaskStatusInterrupted TaskStatus = "interrupted" // 被信号中断
)

const (
	// DefaultMaxPages 默认最大访问页面数
	DefaultMaxPages = 10000

	// DefaultTimeout 单个请求超时(GET与HEAD各自独立计时)
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize 页面响应体读取上限
	DefaultMaxBodySize = 10 * 1024 * 1024

	// MaxWorkersLimit 并发数硬上限
	MaxWorkersLimit = 64
)

// TaskStats 任务统计
type TaskStats struct {
	VisitedPages  int     `json:"visited_pages" yaml:"visited_pages"`   // 已访问页面数
	FetchFailures int     `json:"fetch_failures" yaml:"fetch_failures"` // GET网络失败数
	BrokenPages   int     `json:"broken_pages" yaml:"broken_pages"`     // 直接访问即失效的页面数
	LinksChecked  int     `json:"links_checked" yaml:"links_checked"`   // HEAD校验次数
	BrokenLinks   int     `json:"broken_links" yaml:"broken_links"`     // 校验失败的链接次数
	BrokenTargets int     `json:"broken_targets" yaml:"broken_targets"` // 失效目标(去重)数
	Duration      float64 `json:"duration" yaml:"duration"`             // 总耗时(秒)
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	MaxPages           int           `mapstructure:"max_pages" json:"max_pages" yaml:"max_pages"`                                  // 最大访问页面数 (默认:10000)
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`                                        // 单请求超时 (默认:10s)
	Workers            int           `mapstructure:"workers" json:"workers" yaml:"workers"`                                        // 并发页面数 (默认:1,即顺序广度优先)
	RequestsPerSecond  float64       `mapstructure:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second"`    // 每秒请求上限,0表示不限
	CacheChecks        bool          `mapstructure:"cache_checks" json:"cache_checks" yaml:"cache_checks"`                         // 复用同一目标的HEAD校验结果
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify" yaml:"insecure_skip_verify"` // 跳过TLS证书校验
	HeadersFile        string        `mapstructure:"headers_file" json:"headers_file" yaml:"headers_file"`                         // HTTP头部配置文件
	MaxBodySize        int           `mapstructure:"max_body_size" json:"max_body_size" yaml:"max_body_size"`                      // 响应体读取上限(字节)
}

// DefaultCrawlConfig 默认爬取配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxPages:    DefaultMaxPages,
		Timeout:     DefaultTimeout,
		Workers:     1,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxPages < 1 {
		return fmt.Errorf("最大页面数必须大于0,当前值: %d", c.MaxPages)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("请求超时必须大于0,当前值: %s", c.Timeout)
	}
	if c.Workers < 1 || c.Workers > MaxWorkersLimit {
		return fmt.Errorf("并发数必须在1-%d之间,当前值: %d", MaxWorkersLimit, c.Workers)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("每秒请求数不能为负数,当前值: %.2f", c.RequestsPerSecond)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("响应体上限不能为负数,当前值: %d", c.MaxBodySize)
	}
	return nil
}

// CrawlTask 爬取任务
type CrawlTask struct {
	ID          string     `json:"id"`                     // 任务唯一ID (UUID)
	StartURL    string     `json:"start_url"`              // 起始URL
	Domain      string     `json:"domain"`                 // 起始URL的主机(scheme之后的authority)
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	StartedAt   *time.Time `json:"started_at,omitempty"`   // 开始时间
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间

	Config CrawlConfig `json:"config"`
	Status TaskStatus  `json:"status"`
	Stats  TaskStats   `json:"stats"`
}

// NewCrawlTask 创建新任务
func NewCrawlTask(startURL string, config CrawlConfig) (*CrawlTask, error) {
	if err := ValidateURL(startURL); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	parsed, _ := url.Parse(startURL)

	return &CrawlTask{
		ID:        generateID(),
		StartURL:  startURL,
		Domain:    parsed.Host,
		CreatedAt: time.Now(),
		Config:    config,
		Status:    TaskStatusPending,
	}, nil
}

// Start 标记任务开始
func (t *CrawlTask) Start() {
	now := time.Now()
	t.StartedAt = &now
	t.Status = TaskStatusRunning
}

// Finish 标记任务结束
func (t *CrawlTask) Finish(interrupted bool) {
	now := time.Now()
	t.CompletedAt = &now
	if interrupted {
		t.Status = TaskStatusInterrupted
		return
	}
	t.Status = TaskStatusCompleted
}
