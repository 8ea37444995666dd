package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/config"
	"github.com/RecoveryAshes/sitecheck/internal/core"
	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string
	noColor    bool
	noProgress bool

	// HTTP头部参数
	headers        []string
	headersFile    string
	validateConfig bool

	// 爬取参数
	maxPages    int
	workers     int
	timeout     time.Duration
	rps         float64
	cacheChecks bool
	insecure    bool
	reportPath  string

	// 批量处理参数
	urlFile         string
	batchDelay      int
	continueOnError bool

	// init 子命令
	forceInit bool
)

// appConfig 由PreRunE加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "sitecheck [url]",
	Short: "单站点失效链接检查工具",
	Long: `sitecheck - 单站点广度优先爬取与失效链接检查

从起始URL开始按广度优先访问同一主机下的页面,对每个站内链接发送HEAD请求校验,
最后输出已访问页面的目录树和失效目标及其来源页面。

示例:
  sitecheck https://example.com
  sitecheck https://example.com --max-pages 500 --workers 4
  sitecheck https://example.com -H "Authorization: Bearer token" --report report.json
  sitecheck --url-file sites.txt --batch-delay 2
  sitecheck init configs

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadConfig(configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = cfg

		logConfig := cfg.Logging
		if verbose {
			logConfig.Level = "debug"
		}
		logConfig.NoColor = noColor
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		headerManager, err := core.NewHeaderManager(appConfig.Crawl.HeadersFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(cmd, headerManager)
		}

		targetURL, err := resolveTarget(args, urlFile)
		if err != nil {
			return err
		}
		if err := ValidateFlags(targetURL, appConfig.Crawl); err != nil {
			return err
		}

		// 头部在爬取开始前合并并校验一次,之后每个请求复用
		merged, err := headerManager.GetHeaders()
		if err != nil {
			return fmt.Errorf("HTTP头部配置无效: %w", err)
		}
		utils.Debugf("HTTP头部: %s", utils.NewHeaderRedactor().RedactToString(merged))

		colorMode, err := utils.ParseColorMode(appConfig.Output.Color)
		if err != nil {
			return err
		}
		if noColor {
			colorMode = utils.ColorNever
		}

		opts := core.CrawlerOptions{
			Crawl:      appConfig.Crawl,
			Resource:   appConfig.Resource,
			Headers:    models.StaticHeaders(merged),
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
			Color:      colorMode,
			Progress:   appConfig.Output.Progress && !noProgress,
			ReportPath: appConfig.Output.ReportPath,
		}

		// Ctrl+C 停止出队,已访问部分照常输出
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if urlFile != "" {
			urls, err := utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return fmt.Errorf("读取URL文件失败: %w", err)
			}
			batch := core.NewBatchCrawler(opts, time.Duration(batchDelay)*time.Second, continueOnError)
			_, err = batch.CrawlBatch(ctx, urls)
			return err
		}

		crawler, err := core.NewCrawler(targetURL, opts)
		if err != nil {
			return err
		}
		return crawler.Crawl(ctx)
	},
}

// runValidateConfig 校验头部配置并输出脱敏后的结果
func runValidateConfig(cmd *cobra.Command, hm *core.HeaderManager) error {
	if err := hm.LoadConfig(); err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if err := hm.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	out := cmd.OutOrStdout()
	lines := hm.SafeHeaderLines()
	fmt.Fprintf(out, "✅ 配置验证通过, 当前有效的HTTP头部 (%d个):\n", len(lines))
	for _, line := range lines {
		fmt.Fprintf(out, "  %s\n", line)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sitecheck %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "构建时间: %s\n", BuildTime)
	},
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "生成 config.yaml 和 headers.yaml 模板 (默认目录 configs)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "configs"
		if len(args) == 1 {
			dir = args[0]
		}

		written, err := config.WriteTemplates(dir, forceInit)
		if err != nil {
			return err
		}
		if len(written) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "配置文件已存在于 %s,使用 --force 覆盖\n", dir)
			return nil
		}
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "已生成: %s\n", path)
		}
		return nil
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式 (等同 --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "禁用彩色输出")

	// HTTP头部参数
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().StringVar(&headersFile, "headers-file", config.DefaultHeadersFile, "HTTP头部配置文件")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证HTTP头部配置并输出后退出")

	// 爬取参数
	rootCmd.Flags().IntVar(&maxPages, "max-pages", models.DefaultMaxPages, "最多访问的页面数")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 1, fmt.Sprintf("并发处理的页面数 (1-%d)", models.MaxWorkersLimit))
	rootCmd.Flags().DurationVar(&timeout, "timeout", models.DefaultTimeout, "单个请求超时")
	rootCmd.Flags().Float64Var(&rps, "rps", 0, "每秒请求上限,0表示不限")
	rootCmd.Flags().BoolVar(&cacheChecks, "cache-checks", false, "同一目标的HEAD校验只发送一次")
	rootCmd.Flags().BoolVar(&insecure, "insecure", false, "跳过TLS证书校验")
	rootCmd.Flags().StringVarP(&reportPath, "report", "o", "", "报告文件路径 (.json 或 .yaml)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	// 批量处理参数
	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径")
	rootCmd.Flags().IntVar(&batchDelay, "batch-delay", 1, "批量处理站点间延迟(秒)")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理下一个站点")

	initCmd.Flags().BoolVar(&forceInit, "force", false, "覆盖已存在的配置文件")

	rootCmd.AddCommand(versionCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
