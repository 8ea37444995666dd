package crawlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc 每标记一个页面为已访问时调用,只用于展示
type ProgressFunc func(visited int, current string)

// CrawlResult 一次爬取的完整结果
type CrawlResult struct {
	StartURL    string
	BaseHost    string
	Visited     []string             // 按访问顺序
	Pages       []models.PageRecord  // 与Visited一一对应(被取消的页面除外)
	Broken      []models.BrokenEntry // 按首次记录顺序
	Stats       models.TaskStats
	Interrupted bool
}

// Engine 单站点广度优先爬取引擎
//
// 协调者独占前沿队列和已访问集合: 每轮最多取出workers个未访问页面,
// 先全部标记为已访问再并发处理,处理结果按出队顺序合并回队列和账本。
// workers为1时与顺序广度优先爬取完全一致。
type Engine struct {
	config   models.CrawlConfig
	fetcher  Fetcher
	monitor  *ResourceMonitor
	progress ProgressFunc

	queue  *URLQueue
	ledger *BrokenLedger
}

// EngineOption 引擎可选项
type EngineOption func(*Engine)

// WithProgress 设置进度观察者
func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) { e.progress = fn }
}

// WithResourceMonitor 用资源监控器限制每轮的并发数
func WithResourceMonitor(rm *ResourceMonitor) EngineOption {
	return func(e *Engine) { e.monitor = rm }
}

// NewEngine 创建引擎
func NewEngine(config models.CrawlConfig, fetcher Fetcher, opts ...EngineOption) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errors.New("fetcher不能为空")
	}

	e := &Engine{
		config:  config,
		fetcher: fetcher,
		queue:   NewURLQueue(),
		ledger:  NewBrokenLedger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// pageOutcome 单个页面的处理结果,由worker产生、协调者合并
type pageOutcome struct {
	record    models.PageRecord
	links     []string
	broken    []brokenRecord
	cancelled bool

	fetchFailed  bool
	directBroken bool
	linksChecked int
	brokenLinks  int
}

type brokenRecord struct {
	desc   models.BrokenDescriptor
	source string
}

// Run 从startURL开始爬取,直到队列为空、达到max_pages或ctx被取消
// 只有起始URL无法解析时才返回error;单个请求的失败都记入账本
func (e *Engine) Run(ctx context.Context, startURL string) (*CrawlResult, error) {
	parsed, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("无效的起始URL: %w", err)
	}
	baseHost := Authority(parsed)

	verifier, err := newLinkVerifier(ctx, e.fetcher, e.config.CacheChecks)
	if err != nil {
		return nil, fmt.Errorf("创建校验缓存失败: %w", err)
	}
	defer verifier.Close()

	e.queue.Reset()
	e.ledger = NewBrokenLedger()

	start := time.Now()
	result := &CrawlResult{StartURL: startURL, BaseHost: baseHost}

	e.queue.Push(models.URLItem{URL: NormalizeURL(startURL)})

	utils.Infof("开始爬取: %s (主机=%s, 最大页面数=%d, 并发=%d)", startURL, baseHost, e.config.MaxPages, e.config.Workers)

	for {
		if ctx.Err() != nil {
			result.Interrupted = true
			utils.Warnf("爬取被中断,已访问 %d 个页面", e.queue.VisitedCount())
			break
		}

		remaining := e.config.MaxPages - e.queue.VisitedCount()
		if remaining <= 0 {
			utils.Infof("已达到最大页面数 %d,停止爬取", e.config.MaxPages)
			break
		}

		batch := e.nextBatch(min(e.batchSize(), remaining))
		if len(batch) == 0 {
			break
		}

		outcomes := make([]pageOutcome, len(batch))
		var g errgroup.Group
		g.SetLimit(len(batch))
		for i, item := range batch {
			g.Go(func() error {
				outcomes[i] = e.processPage(ctx, verifier, item, baseHost)
				return nil
			})
		}
		_ = g.Wait()

		for i, out := range outcomes {
			e.merge(batch[i], out, result)
		}
	}

	result.Visited = e.queue.Visited()
	result.Broken = e.ledger.Entries()
	result.Stats.VisitedPages = len(result.Visited)
	result.Stats.BrokenTargets = len(result.Broken)
	result.Stats.Duration = time.Since(start).Seconds()

	utils.Infof("爬取完成: 访问 %d 个页面, 失效目标 %d 个, 耗时 %.2f秒",
		result.Stats.VisitedPages, result.Stats.BrokenTargets, result.Stats.Duration)
	return result, nil
}

// batchSize 本轮并发数
func (e *Engine) batchSize() int {
	if e.monitor != nil {
		return e.monitor.CalculateMaxWorkers(e.config.Workers)
	}
	return e.config.Workers
}

// nextBatch 出队最多n个未访问页面并立即标记为已访问
func (e *Engine) nextBatch(n int) []models.URLItem {
	batch := make([]models.URLItem, 0, n)
	for len(batch) < n {
		item, ok := e.queue.Pop()
		if !ok {
			break
		}
		if !e.queue.MarkVisited(item.URL) {
			continue
		}
		batch = append(batch, item)
		if e.progress != nil {
			e.progress(e.queue.VisitedCount(), item.URL)
		}
	}
	return batch
}

// processPage 抓取一个页面并校验其中的站内链接
// 不修改任何共享状态,结果由merge按顺序合并
func (e *Engine) processPage(ctx context.Context, verifier *linkVerifier, item models.URLItem, baseHost string) pageOutcome {
	key := item.URL
	out := pageOutcome{record: models.PageRecord{URL: key, Depth: item.Depth, FetchedAt: time.Now()}}

	page, err := e.fetcher.Get(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			out.cancelled = true
			return out
		}
		utils.Warnf("抓取页面失败 [%s]: %v", key, err)
		out.record.Error = err.Error()
		out.fetchFailed = true
		out.broken = append(out.broken, brokenRecord{
			desc:   models.BrokenDescriptor{Target: key, Reason: err.Error()},
			source: models.SourceFetchFailed,
		})
		return out
	}

	out.record.Status = page.Status
	if IsBroken(page.Status) {
		utils.Debugf("页面失效 [%s]: %d", key, page.Status)
		out.directBroken = true
		out.broken = append(out.broken, brokenRecord{
			desc:   models.BrokenDescriptor{Target: key, Status: page.Status},
			source: models.SourceDirectVisit,
		})
		return out
	}

	root, err := ParseHTML(page.Body)
	if err != nil {
		utils.Debugf("解析HTML失败 [%s]: %v", key, err)
		return out
	}
	out.record.Title = PageTitle(root)

	for link := range LinksFromNode(root, key) {
		if !InScope(link, baseHost) {
			continue
		}
		if ctx.Err() != nil {
			out.cancelled = true
			break
		}

		link = NormalizeURL(link)
		out.links = append(out.links, link)

		status := verifier.Check(ctx, link)
		if ctx.Err() != nil {
			out.cancelled = true
			break
		}
		out.linksChecked++
		if IsBroken(status) {
			out.brokenLinks++
			out.broken = append(out.broken, brokenRecord{
				desc:   models.BrokenDescriptor{Target: link, Status: status},
				source: key,
			})
		}
	}
	out.record.Links = len(out.links)
	return out
}

// merge 由协调者按出队顺序调用
func (e *Engine) merge(item models.URLItem, out pageOutcome, result *CrawlResult) {
	for _, b := range out.broken {
		e.ledger.Record(b.desc, b.source)
	}
	for _, link := range out.links {
		if !e.queue.IsVisited(link) {
			e.queue.Push(models.URLItem{URL: link, Depth: item.Depth + 1, SourceURL: item.URL})
		}
	}

	if out.cancelled && out.record.Status == 0 && out.record.Error == "" {
		return
	}
	result.Pages = append(result.Pages, out.record)

	if out.fetchFailed {
		result.Stats.FetchFailures++
	}
	if out.directBroken {
		result.Stats.BrokenPages++
	}
	result.Stats.LinksChecked += out.linksChecked
	result.Stats.BrokenLinks += out.brokenLinks
}

// Ledger 当前账本,供测试和报告读取
func (e *Engine) Ledger() *BrokenLedger {
	return e.ledger
}
