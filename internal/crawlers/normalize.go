package crawlers

import "strings"

// NormalizeURL 生成页面键: 去掉所有末尾的 "/",结果为空时返回 "/"
// 裸的 "http://" 和 "https://" 原样返回
func NormalizeURL(raw string) string {
	if raw == "http://" || raw == "https://" {
		return raw
	}
	if trimmed := strings.TrimRight(raw, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}
