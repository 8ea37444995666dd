package models

import (
	"encoding/json"
	"time"
)

// CrawlReport 爬取报告
type CrawlReport struct {
	// 任务信息
	TaskID   string     `json:"task_id" yaml:"task_id"`
	StartURL string     `json:"start_url" yaml:"start_url"`
	Domain   string     `json:"domain" yaml:"domain"`
	Status   TaskStatus `json:"status" yaml:"status"`

	// 时间信息
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time" yaml:"end_time"`
	Duration  float64   `json:"duration" yaml:"duration"` // 秒

	Stats TaskStats `json:"stats" yaml:"stats"`

	Pages  []PageRecord  `json:"pages" yaml:"pages"`   // 按访问顺序
	Broken []BrokenEntry `json:"broken" yaml:"broken"` // 按首次记录顺序

	// 配置快照
	Config CrawlConfig `json:"config" yaml:"config"`
}

// ToJSON 序列化为JSON
func (r *CrawlReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *CrawlReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
