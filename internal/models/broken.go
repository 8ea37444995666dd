package models

import "strconv"

const (
	// SourceFetchFailed 页面自身GET请求网络失败时的来源标记
	SourceFetchFailed = "(fetch failed)"

	// SourceDirectVisit 页面自身GET返回失效状态码时的来源标记
	SourceDirectVisit = "(direct visit)"
)

// BrokenDescriptor 失效描述符: 目标URL + 失效原因
// 作为账本的map键使用,因此所有字段必须可比较
type BrokenDescriptor struct {
	Target string // 规范化后的目标URL
	Status int    // HTTP状态码;0表示没有拿到响应
	Reason string // 网络错误文本,仅在Status为0时有意义
}

// Cause 返回人类可读的失效原因
func (d BrokenDescriptor) Cause() string {
	if d.Status != 0 {
		return strconv.Itoa(d.Status)
	}
	if d.Reason == "" {
		return "NETWORK ERROR"
	}
	return "NETWORK ERROR: " + d.Reason
}

// String 返回 "<target> (<cause>)" 形式
func (d BrokenDescriptor) String() string {
	return d.Target + " (" + d.Cause() + ")"
}

// BrokenEntry 账本中的一条记录(用于输出与报告)
type BrokenEntry struct {
	Target  string   `json:"target" yaml:"target"`
	Status  int      `json:"status,omitempty" yaml:"status,omitempty"`
	Cause   string   `json:"cause" yaml:"cause"`
	Sources []string `json:"sources" yaml:"sources"` // 已按字典序排列
}
