package main

import (
	"errors"
	"fmt"

	"github.com/RecoveryAshes/sitecheck/internal/models"
)

var errMissingURL = errors.New("缺少起始URL (用法: sitecheck <url> 或 sitecheck --url-file <file>)")

// resolveTarget 从位置参数取起始URL;批量模式下返回空串
func resolveTarget(args []string, urlFile string) (string, error) {
	switch {
	case len(args) > 0 && urlFile != "":
		return "", fmt.Errorf("不能同时指定起始URL和 --url-file")
	case len(args) > 0:
		return args[0], nil
	case urlFile != "":
		return "", nil
	default:
		return "", errMissingURL
	}
}

// ValidateFlags 在开始爬取前校验起始URL和爬取配置
func ValidateFlags(targetURL string, cfg models.CrawlConfig) error {
	if targetURL != "" {
		if err := models.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的起始URL: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("无效的参数: %w", err)
	}
	return nil
}
