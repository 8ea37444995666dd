package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
)

// Reporter 把爬取报告写入文件
// 扩展名为 .yaml/.yml 时输出YAML,否则输出JSON
type Reporter struct {
	path string
}

// NewReporter 创建报告生成器
func NewReporter(path string) *Reporter {
	return &Reporter{path: path}
}

// Format 报告格式: "json" 或 "yaml"
func (r *Reporter) Format() string {
	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// IndexedPath 批量模式下给第n个站点的报告加序号: report.json -> report_2.json
func IndexedPath(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// GenerateReport 序列化并写入报告,必要时创建目录
func (r *Reporter) GenerateReport(report *models.CrawlReport) error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建报告目录失败: %w", err)
		}
	}

	var (
		data []byte
		err  error
	)
	if r.Format() == "yaml" {
		data, err = yaml.Marshal(report)
	} else {
		data, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Infof("✅ 报告已生成: %s", r.path)
	return nil
}

// NewProgressBar 创建写到stderr的进度条
// max未知时传-1,显示为旋转指示器
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// PrintStats 以表格形式输出统计信息
func PrintStats(w io.Writer, stats models.TaskStats) {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()

	tbl := table.New("指标", "数值").
		WithWriter(w).
		WithHeaderFormatter(headerFmt)

	tbl.AddRow("已访问页面", stats.VisitedPages)
	tbl.AddRow("抓取失败", stats.FetchFailures)
	tbl.AddRow("失效页面", stats.BrokenPages)
	tbl.AddRow("校验链接", stats.LinksChecked)
	tbl.AddRow("失效链接", stats.BrokenLinks)
	tbl.AddRow("失效目标", stats.BrokenTargets)
	tbl.AddRow("耗时", fmt.Sprintf("%.2fs", stats.Duration))
	tbl.Print()
}
