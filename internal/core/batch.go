package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
)

// BatchCrawler 依次爬取多个站点
type BatchCrawler struct {
	opts          CrawlerOptions
	batchDelay    time.Duration
	continueOnErr bool
}

// BatchResult 单个站点的结果
type BatchResult struct {
	URL         string
	Success     bool
	Interrupted bool
	Error       error
	Stats       models.TaskStats
	ProcessedAt time.Time
	Duration    float64
}

// BatchSummary 批量爬取摘要
type BatchSummary struct {
	TotalURLs     int
	SuccessCount  int
	FailCount     int
	TotalPages    int
	TotalBroken   int
	TotalDuration float64
	Results       []BatchResult
}

// NewBatchCrawler 创建批量爬取器
// 有报告路径时每个站点写入 <name>_<n>.<ext>
func NewBatchCrawler(opts CrawlerOptions, batchDelay time.Duration, continueOnErr bool) *BatchCrawler {
	return &BatchCrawler{
		opts:          opts,
		batchDelay:    batchDelay,
		continueOnErr: continueOnErr,
	}
}

// CrawlBatch 按顺序爬取urls,每个站点的输出前打印一行 "### <url>"
// ctx被取消后不再开始新的站点
func (bc *BatchCrawler) CrawlBatch(ctx context.Context, urls []string) (*BatchSummary, error) {
	utils.Infof("开始批量爬取: %d个URL", len(urls))

	summary := &BatchSummary{
		TotalURLs: len(urls),
		Results:   make([]BatchResult, 0, len(urls)),
	}
	startTime := time.Now()

	for i, targetURL := range urls {
		if ctx.Err() != nil {
			utils.Warnf("批量爬取被中断,剩余 %d 个URL未处理", len(urls)-i)
			break
		}

		utils.Infof("[%d/%d] %s", i+1, len(urls), targetURL)
		result := bc.crawlSingleURL(ctx, i, targetURL)
		summary.Results = append(summary.Results, result)

		if result.Success {
			summary.SuccessCount++
			summary.TotalPages += result.Stats.VisitedPages
			summary.TotalBroken += result.Stats.BrokenTargets
		} else {
			summary.FailCount++
			utils.Errorf("爬取失败 [%s]: %v", targetURL, result.Error)
			if !bc.continueOnErr {
				utils.Warn("批量爬取中止 (--continue-on-error=false)")
				break
			}
		}

		if i < len(urls)-1 && bc.batchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(bc.batchDelay):
			}
		}
	}

	summary.TotalDuration = time.Since(startTime).Seconds()
	bc.logSummary(summary)
	return summary, nil
}

func (bc *BatchCrawler) crawlSingleURL(ctx context.Context, index int, targetURL string) BatchResult {
	result := BatchResult{URL: targetURL, ProcessedAt: time.Now()}
	startTime := time.Now()

	if _, err := fmt.Fprintf(bc.opts.stdout(), "### %s\n", targetURL); err != nil {
		result.Error = err
		return result
	}

	opts := bc.opts
	if opts.ReportPath != "" {
		opts.ReportPath = utils.IndexedPath(opts.ReportPath, index+1)
	}

	crawler, err := NewCrawler(targetURL, opts)
	if err != nil {
		result.Error = fmt.Errorf("创建爬取器失败: %w", err)
		result.Duration = time.Since(startTime).Seconds()
		return result
	}

	if err := crawler.Crawl(ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(startTime).Seconds()
		return result
	}

	result.Success = true
	result.Interrupted = crawler.Result().Interrupted
	result.Stats = crawler.GetStats()
	result.Duration = time.Since(startTime).Seconds()
	return result
}

func (bc *BatchCrawler) logSummary(summary *BatchSummary) {
	utils.Infof("批量爬取完成: 共 %d 个, 成功 %d, 失败 %d, 访问页面 %d, 失效目标 %d, 耗时 %.2f秒",
		summary.TotalURLs, summary.SuccessCount, summary.FailCount,
		summary.TotalPages, summary.TotalBroken, summary.TotalDuration)

	for _, result := range summary.Results {
		if !result.Success {
			utils.Warnf("  - %s: %v", result.URL, result.Error)
		}
	}
}
