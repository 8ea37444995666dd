package models

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ValidateURL 验证起始URL: 必须是带主机名的 http/https 绝对地址
func ValidateURL(urlStr string) error {
	if strings.TrimSpace(urlStr) == "" {
		return &ValidationError{Field: "url", Reason: "缺少起始URL", Suggestion: "sitecheck https://example.com"}
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "url", Reason: "URL必须是HTTP或HTTPS协议"}
	}
	if parsed.Host == "" {
		return &ValidationError{Field: "url", Reason: "URL必须包含主机名"}
	}
	return nil
}

// generateID 生成任务ID
func generateID() string {
	return uuid.New().String()
}
