package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/crawlers"
	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
)

// CrawlerOptions 单站点爬取的全部设置
type CrawlerOptions struct {
	Crawl    models.CrawlConfig
	Resource ResourceConfig
	Headers  models.HeaderProvider

	Stdout io.Writer // 目录树和失效列表,默认os.Stdout
	Stderr io.Writer // 统计表和进度条,默认os.Stderr

	Color      utils.ColorMode
	Progress   bool
	ReportPath string
}

func (o CrawlerOptions) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// Crawler 串起头部、抓取器、资源监控和引擎,并负责输出
type Crawler struct {
	targetURL string
	opts      CrawlerOptions

	task   *models.CrawlTask
	result *crawlers.CrawlResult
}

// NewCrawler 创建单站点爬取器,URL或配置无效时返回错误
func NewCrawler(targetURL string, opts CrawlerOptions) (*Crawler, error) {
	task, err := models.NewCrawlTask(targetURL, opts.Crawl)
	if err != nil {
		return nil, err
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Headers == nil {
		opts.Headers = models.StaticHeaders(DefaultHeaders())
	}
	return &Crawler{targetURL: targetURL, opts: opts, task: task}, nil
}

// Crawl 执行爬取并输出结果
// 中断时同样输出已访问部分的目录树和账本,不返回错误
func (c *Crawler) Crawl(ctx context.Context) error {
	cfg := c.opts.Crawl

	fetcher, err := crawlers.NewCollyFetcher(crawlers.FetcherOptions{
		Timeout:            cfg.Timeout,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MaxBodySize:        cfg.MaxBodySize,
		Parallelism:        cfg.Workers,
		HeaderProvider:     c.opts.Headers,
	})
	if err != nil {
		return fmt.Errorf("创建抓取器失败: %w", err)
	}

	monitor := crawlers.NewResourceMonitor(c.opts.Resource.MonitorConfig())
	if cfg.Workers > 1 {
		monitor.StartMonitoring(2 * time.Second)
		defer monitor.StopMonitoring()
		status := monitor.GetMemoryStatus()
		utils.Debugf("CPU核心: %d, 可用内存: %d MB (%s)",
			crawlers.NumCPU(), status.AvailableMemory/(1024*1024), status.MemoryPressure)
	}

	progress, finish := c.progressFunc()
	engine, err := crawlers.NewEngine(cfg, fetcher,
		crawlers.WithProgress(progress),
		crawlers.WithResourceMonitor(monitor),
	)
	if err != nil {
		return err
	}

	c.task.Start()
	result, err := engine.Run(ctx, c.targetURL)
	finish()
	if err != nil {
		return fmt.Errorf("爬取失败: %w", err)
	}
	c.result = result
	c.task.Stats = result.Stats
	c.task.Finish(result.Interrupted)

	printer := utils.NewPrinter(c.opts.Stdout, c.opts.Color)
	if err := printer.PrintResults(utils.BuildTree(result.Visited, c.targetURL), result.Broken); err != nil {
		return fmt.Errorf("输出结果失败: %w", err)
	}

	utils.PrintStats(c.opts.Stderr, result.Stats)

	if c.opts.ReportPath != "" {
		if err := utils.NewReporter(c.opts.ReportPath).GenerateReport(c.Report()); err != nil {
			utils.Warnf("生成报告失败: %v", err)
		}
	}
	return nil
}

// progressFunc 进度条或debug日志
func (c *Crawler) progressFunc() (crawlers.ProgressFunc, func()) {
	if !c.opts.Progress {
		return func(visited int, current string) {
			utils.Debugf("[%d] 访问 %s", visited, current)
		}, func() {}
	}

	bar := utils.NewProgressBar(c.opts.Crawl.MaxPages, "爬取页面")
	return func(visited int, current string) {
			_ = bar.Set(visited)
		}, func() {
			_ = bar.Finish()
		}
}

// Report 本次爬取的报告,Crawl之前调用返回nil
func (c *Crawler) Report() *models.CrawlReport {
	if c.result == nil {
		return nil
	}

	report := &models.CrawlReport{
		TaskID:   c.task.ID,
		StartURL: c.task.StartURL,
		Domain:   c.task.Domain,
		Status:   c.task.Status,
		Duration: c.result.Stats.Duration,
		Stats:    c.result.Stats,
		Pages:    c.result.Pages,
		Broken:   c.result.Broken,
		Config:   c.task.Config,
	}
	if c.task.StartedAt != nil {
		report.StartTime = *c.task.StartedAt
	}
	if c.task.CompletedAt != nil {
		report.EndTime = *c.task.CompletedAt
	}
	return report
}

// Result 引擎结果,Crawl之前为nil
func (c *Crawler) Result() *crawlers.CrawlResult {
	return c.result
}

// GetStats 获取统计信息
func (c *Crawler) GetStats() models.TaskStats {
	if c.result == nil {
		return models.TaskStats{}
	}
	return c.result.Stats
}
