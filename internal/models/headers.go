package models

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderConfig headers.yaml 的结构
type HeaderConfig struct {
	// Headers 头部名称 -> 头部值,如 "User-Agent" -> "sitecheck/1.0"
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

// CliHeaders 命令行 -H 传入的头部,每项形如 "Name: Value"
type CliHeaders []string

// Parse 解析为 http.Header,同名头部后者覆盖前者
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header, len(ch))
	for i, s := range ch {
		name, value, err := SplitHeaderLine(s)
		if err != nil {
			return nil, fmt.Errorf("参数 -H 第%d项 %q 无效: %w", i+1, s, err)
		}
		result.Set(name, value)
	}
	return result, nil
}

// SplitHeaderLine 拆分 "Name: Value",只在第一个冒号处切分
func SplitHeaderLine(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("缺少冒号分隔符,应为 'Name: Value'")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("头部名称不能为空")
	}
	return name, strings.TrimSpace(value), nil
}

// HeaderProvider 为每个出站请求(GET页面与HEAD校验)提供头部
type HeaderProvider interface {
	// GetHeaders 返回合并后的头部(默认 < 配置文件 < 命令行)
	GetHeaders() (http.Header, error)
}

// StaticHeaders 固定头部集合,测试和批量模式下复用已合并的结果
type StaticHeaders http.Header

// GetHeaders 返回副本,调用方可以随意修改
func (s StaticHeaders) GetHeaders() (http.Header, error) {
	return http.Header(s).Clone(), nil
}

// ValidationError 头部或参数验证错误
type ValidationError struct {
	Field      string // "name"、"value" 或参数名
	HeaderName string
	Reason     string
	Suggestion string // 可选
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.HeaderName != "" {
		fmt.Fprintf(&b, "头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	} else {
		fmt.Fprintf(&b, "参数 %s 无效: %s", e.Field, e.Reason)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (建议: %s)", e.Suggestion)
	}
	return b.String()
}

// ConfigError 配置文件读取或解析失败
type ConfigError struct {
	FilePath string
	Cause    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
