package models

// URLItem 表示前沿队列中的一个URL项
type URLItem struct {
	// URL 规范化后的页面键
	URL string

	// Depth 广度优先层级
	//   - 0: 起始URL
	//   - 1: 从起始页面发现的链接
	//   - 以此类推...
	Depth int

	// SourceURL 首次发现此URL的页面(起始URL为空)
	SourceURL string
}
