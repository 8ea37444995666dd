package core

import (
	"net/http"
	"sort"

	"github.com/RecoveryAshes/sitecheck/internal/config"
	"github.com/RecoveryAshes/sitecheck/internal/crawlers"
	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
)

// HeaderManager 管理出站请求头部
// 合并优先级: 内置默认 < 配置文件 < 命令行,实现 models.HeaderProvider
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	loaded bool
}

// NewHeaderManager 创建头部管理器
// 参数:
//   - configFile: 头部配置文件路径 (为空时使用 configs/headers.yaml)
//   - cliHeaders: -H 传入的 "Name: Value" 列表
//
// 返回:
//   - error: 命令行头部格式错误
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		defaults:     DefaultHeaders(),
		config:       make(http.Header),
		cli:          cli,
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}, nil
}

// DefaultHeaders 每个请求都携带的内置头部
func DefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{crawlers.DefaultUserAgent},
		"Accept":          []string{"*/*"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// LoadConfig 加载头部配置文件,只加载一次
func (hm *HeaderManager) LoadConfig() error {
	if hm.loaded {
		return nil
	}

	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		return err
	}

	// viper返回小写键名,Set负责规范化
	hm.config = make(http.Header, len(headerConfig.Headers))
	for name, value := range headerConfig.Headers {
		hm.config.Set(name, value)
	}
	hm.loaded = true

	if len(hm.config) > 0 {
		utils.Debugf("从 %s 加载了 %d 个HTTP头部: %s",
			hm.configLoader.Path(), len(hm.config), hm.redactor.RedactToString(hm.config))
	}
	return nil
}

// Validate 依次校验默认、配置文件和命令行头部
func (hm *HeaderManager) Validate() error {
	sources := []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"命令行", hm.cli},
	}
	for _, src := range sources {
		if err := hm.validator.Validate(src.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", src.name, err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部,同名头部整体覆盖
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = values
		}
	}
	return result
}

// GetSafeHeaders 脱敏后的合并头部,用于日志和 --validate-config
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// SafeHeaderLines 按名称排序的 "Name: Value" 行
func (hm *HeaderManager) SafeHeaderLines() []string {
	safe := hm.GetSafeHeaders()
	lines := make([]string, 0, len(safe))
	for name, value := range safe {
		lines = append(lines, name+": "+value)
	}
	sort.Strings(lines)
	return lines
}

// GetHeaders 实现 models.HeaderProvider
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}
