// Package crawlers 实现单站点广度优先爬取与失效链接检测
//
// # 概述
//
// 从起始URL出发,沿 <a href> 链接访问同一主机下的页面,记录每个被访问的页面,
// 并对每个发现的站内链接发起HEAD校验。页面自身失效或链接校验失败都会记入失效账本。
//
// # 核心组件
//
// ## Engine
//
// 协调者独占前沿队列(URLQueue)和已访问集合,每轮取出至多 workers 个页面并发处理,
// 结果按出队顺序合并,因此并发数不影响输出。
//
//	fetcher, _ := NewCollyFetcher(FetcherOptions{Timeout: 10 * time.Second})
//	engine, _ := NewEngine(models.DefaultCrawlConfig(), fetcher)
//	result, err := engine.Run(ctx, "https://example.com")
//
// ## CollyFetcher
//
// 基于Colly的同步抓取器,负责GET页面与HEAD校验,支持限速和响应解压。
// 任何HTTP状态码都作为结果返回,只有网络层失败才返回error。
//
// ## BrokenLedger
//
// 失效描述符(目标 + 原因) -> 来源页面集合,按首次记录顺序输出。
// 来源可能是页面键,或特殊标记 "(fetch failed)" / "(direct visit)"。
//
// ## ResourceMonitor
//
// 通过gopsutil读取系统内存和CPU负载,资源紧张时降低每轮的并发数。
//
// # URL处理
//
//   - NormalizeURL: 去掉末尾的 "/",作为已访问集合和账本中的键
//   - InScope: authority为空或与起始主机完全一致才属于站内
//   - ExtractLinks: 跳过 "#"、"mailto:"、"javascript:"、"tel:" 开头的href,去掉片段后解析为绝对URL
//   - IsBroken: 没有响应或状态码 >= 400
package crawlers
