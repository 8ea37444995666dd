package models

import (
	"encoding/json"
	"time"
)

// PageRecord 已访问页面的记录
type PageRecord struct {
	URL       string    `json:"url" yaml:"url"`                         // 规范化后的页面URL
	Depth     int       `json:"depth" yaml:"depth"`                     // 广度优先层级,起始页为0
	Status    int       `json:"status,omitempty" yaml:"status,omitempty"` // HTTP状态码
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`   // <title>文本
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`   // 网络错误
	Links     int       `json:"links" yaml:"links"`                     // 站内链接数
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Broken 页面自身是否失效
func (p *PageRecord) Broken() bool {
	return p.Error != "" || p.Status >= 400
}

// ToJSON 序列化为JSON
func (p *PageRecord) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
