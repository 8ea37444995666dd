package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/sitecheck/internal/crawlers"
	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀,如 SITECHECK_CRAWL_MAX_PAGES
const EnvPrefix = "SITECHECK"

// Config 应用程序配置
type Config struct {
	Crawl    models.CrawlConfig `mapstructure:"crawl"`
	Logging  utils.LogConfig    `mapstructure:"logging"`
	Output   OutputConfig       `mapstructure:"output"`
	Resource ResourceConfig     `mapstructure:"resource"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	ReportPath string `mapstructure:"report_path"` // 为空时不写报告
	Color      string `mapstructure:"color"`       // auto, always, never
	Progress   bool   `mapstructure:"progress"`
}

// ResourceConfig 资源限制配置
type ResourceConfig struct {
	SafetyReserveMemory int64 `mapstructure:"safety_reserve_memory"` // MB
	WorkerMemoryUsage   int64 `mapstructure:"worker_memory_usage"`   // MB
	CPULoadThreshold    int   `mapstructure:"cpu_load_threshold"`    // %
	MaxWorkersLimit     int   `mapstructure:"max_workers_limit"`
}

// flagKeys 命令行参数 -> 配置键
var flagKeys = map[string]string{
	"max-pages":    "crawl.max_pages",
	"timeout":      "crawl.timeout",
	"workers":      "crawl.workers",
	"rps":          "crawl.requests_per_second",
	"cache-checks": "crawl.cache_checks",
	"insecure":     "crawl.insecure_skip_verify",
	"headers-file": "crawl.headers_file",
	"log-level":    "logging.level",
	"report":       "output.report_path",
}

// LoadConfig 加载配置
// 优先级: 命令行参数 > 环境变量 > 配置文件 > 默认值
// configPath为空时搜索 ./configs/config.yaml, ./config.yaml, ~/.sitecheck/config.yaml,都不存在时只用默认值
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sitecheck"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("绑定参数 --%s 失败: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if _, err := utils.ParseColorMode(config.Output.Color); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	crawl := models.DefaultCrawlConfig()
	v.SetDefault("crawl.max_pages", crawl.MaxPages)
	v.SetDefault("crawl.timeout", crawl.Timeout)
	v.SetDefault("crawl.workers", crawl.Workers)
	v.SetDefault("crawl.requests_per_second", crawl.RequestsPerSecond)
	v.SetDefault("crawl.cache_checks", crawl.CacheChecks)
	v.SetDefault("crawl.insecure_skip_verify", crawl.InsecureSkipVerify)
	v.SetDefault("crawl.headers_file", "configs/headers.yaml")
	v.SetDefault("crawl.max_body_size", crawl.MaxBodySize)

	logging := utils.DefaultLogConfig()
	v.SetDefault("logging.level", logging.Level)
	v.SetDefault("logging.log_dir", logging.LogDir)
	v.SetDefault("logging.max_size", logging.MaxSize)
	v.SetDefault("logging.max_backups", logging.MaxBackups)
	v.SetDefault("logging.max_age", logging.MaxAge)
	v.SetDefault("logging.compress", logging.Compress)

	v.SetDefault("output.report_path", "")
	v.SetDefault("output.color", string(utils.ColorAuto))
	v.SetDefault("output.progress", true)

	v.SetDefault("resource.safety_reserve_memory", 512)
	v.SetDefault("resource.worker_memory_usage", 32)
	v.SetDefault("resource.cpu_load_threshold", 90)
	v.SetDefault("resource.max_workers_limit", models.MaxWorkersLimit)
}

// MonitorConfig 转换为资源监控器配置(MB -> 字节)
func (r ResourceConfig) MonitorConfig() crawlers.ResourceMonitorConfig {
	const mb = 1024 * 1024
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMemory: r.SafetyReserveMemory * mb,
		WorkerMemoryUsage:   r.WorkerMemoryUsage * mb,
		CPULoadThreshold:    r.CPULoadThreshold,
		MaxWorkersLimit:     r.MaxWorkersLimit,
	}
}
