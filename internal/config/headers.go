package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultHeadersFile 默认的HTTP头部配置文件
	DefaultHeadersFile = "configs/headers.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

// HeaderConfigLoader 加载并解析 headers.yaml
type HeaderConfigLoader struct {
	configPath string
	explicit   bool // 用户显式指定的路径,文件缺失时报错
}

// NewHeaderConfigLoader 创建加载器,路径为空时使用默认路径
func NewHeaderConfigLoader(configPath string) *HeaderConfigLoader {
	if configPath == "" {
		return &HeaderConfigLoader{configPath: DefaultHeadersFile}
	}
	return &HeaderConfigLoader{
		configPath: configPath,
		explicit:   configPath != DefaultHeadersFile,
	}
}

// Path 配置文件路径
func (hcl *HeaderConfigLoader) Path() string {
	return hcl.configPath
}

// ValidateFileSize 拒绝超过 MaxConfigFileSize 的文件
func (hcl *HeaderConfigLoader) ValidateFileSize() error {
	info, err := os.Stat(hcl.configPath)
	if err != nil {
		return &models.ConfigError{FilePath: hcl.configPath, Cause: err}
	}
	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxConfigFileSize),
		}
	}
	return nil
}

// LoadConfig 读取头部配置
//   - 默认路径下没有文件: 返回空配置,只使用内置默认头部
//   - 显式指定的文件不存在、过大或YAML无效: 返回 *models.ConfigError
//
// 注意viper会把键名转为小写,调用方应通过http.Header.Set规范化
func (hcl *HeaderConfigLoader) LoadConfig() (*models.HeaderConfig, error) {
	empty := &models.HeaderConfig{Headers: make(map[string]string)}

	if _, err := os.Stat(hcl.configPath); errors.Is(err, fs.ErrNotExist) {
		if hcl.explicit {
			return nil, &models.ConfigError{FilePath: hcl.configPath, Cause: err}
		}
		utils.Debugf("未找到头部配置文件 [%s], 使用默认头部", hcl.configPath)
		return empty, nil
	}

	if err := hcl.ValidateFileSize(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(hcl.configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// 文件被其他进程锁定时降级为默认头部
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("配置文件被锁定 [%s], 使用默认头部", hcl.configPath)
			return empty, nil
		}
		return nil, &models.ConfigError{FilePath: hcl.configPath, Cause: err}
	}

	var cfg models.HeaderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	return &cfg, nil
}
