package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/RecoveryAshes/sitecheck/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// DefaultUserAgent 标识本工具的User-Agent
const DefaultUserAgent = "sitecheck/1.0"

// responseKey colly.Context 中保存响应的键
const responseKey = "sitecheck.response"

// maxRedirects 单个请求最多跟随的重定向次数,超过即视为网络失败
const maxRedirects = 10

// errNoResponse colly没有报错但也没有触发OnResponse(请求被中止)
var errNoResponse = errors.New("没有收到响应")

// Fetcher 执行页面GET和链接HEAD校验
// 网络层失败以error返回;任何HTTP状态码(包括4xx/5xx)都不是error
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*FetchedPage, error)
	Head(ctx context.Context, rawURL string) (int, error)
}

// FetchedPage GET请求的结果,Body已按Content-Encoding解码
type FetchedPage struct {
	Status    int
	Header    http.Header
	Body      []byte
	Truncated bool // 响应体达到max_body_size被截断
}

// FetcherOptions CollyFetcher的配置
type FetcherOptions struct {
	Timeout            time.Duration
	RequestsPerSecond  float64 // 0 表示不限速
	InsecureSkipVerify bool
	MaxBodySize        int // 0 表示不限
	Parallelism        int
	HeaderProvider     models.HeaderProvider
	Transport          http.RoundTripper // 为空时使用内置的http.Transport
}

// CollyFetcher 基于Colly的同步抓取器
// 每个请求使用独立的colly.Context,可被多个worker并发调用
type CollyFetcher struct {
	collector *colly.Collector
	headers     http.Header
	limiter     *rate.Limiter
	maxBodySize int
}

// NewCollyFetcher 创建抓取器
func NewCollyFetcher(opts FetcherOptions) (*CollyFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = models.DefaultTimeout
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	var headers http.Header
	if opts.HeaderProvider != nil {
		h, err := opts.HeaderProvider.GetHeaders()
		if err != nil {
			return nil, fmt.Errorf("获取HTTP头部失败: %w", err)
		}
		headers = h
	}

	// 页面和链接都需要反复请求,colly自带的去重必须关闭
	c := colly.NewCollector(
		colly.UserAgent(DefaultUserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(opts.MaxBodySize),
	)

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: opts.InsecureSkipVerify,
			},
			MaxIdleConnsPerHost: opts.Parallelism * 2,
		}
		if opts.InsecureSkipVerify {
			utils.Debugf("抓取器: TLS证书校验已关闭")
		}
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(opts.Timeout)

	// colly默认在第10跳返回最后一个3xx,重定向环会被当成正常响应
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("重定向次数过多: %d", len(via))
		}
		return nil
	})

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: opts.Parallelism,
	}); err != nil {
		utils.Warnf("设置并发限制失败: %v", err)
	}

	f := &CollyFetcher{
		collector:   c,
		headers:     headers,
		maxBodySize: opts.MaxBodySize,
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(opts.RequestsPerSecond))
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	f.setupCallbacks()

	utils.Debugf("抓取器: 超时=%s, 并发=%d, 限速=%.2f/s", opts.Timeout, opts.Parallelism, opts.RequestsPerSecond)
	return f, nil
}

// setupCallbacks 设置Colly回调
func (f *CollyFetcher) setupCallbacks() {
	f.collector.OnRequest(func(r *colly.Request) {
		for name, values := range f.headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
		utils.Debugf("%s %s", r.Method, r.URL.String())
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})
}

// Get 抓取页面
func (f *CollyFetcher) Get(ctx context.Context, rawURL string) (*FetchedPage, error) {
	resp, err := f.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}

	page := &FetchedPage{
		Status: resp.StatusCode,
		Body:   resp.Body,
	}
	if resp.Headers != nil {
		page.Header = *resp.Headers
	}

	// colly按max_body_size截断原始响应体,截断处之后的链接会丢失
	if f.maxBodySize > 0 && len(page.Body) >= f.maxBodySize {
		page.Truncated = true
		utils.Warnf("响应体达到上限 %d 字节,已截断 [%s]", f.maxBodySize, rawURL)
	}

	if encoding := page.Header.Get("Content-Encoding"); encoding != "" {
		decoded, err := decompressResponse(encoding, page.Body)
		if err != nil {
			utils.Warnf("解压响应失败 [%s] (编码=%s): %v", rawURL, encoding, err)
		} else {
			page.Body = decoded
		}
	}
	return page, nil
}

// Head 校验链接,跟随重定向,返回最终状态码
func (f *CollyFetcher) Head(ctx context.Context, rawURL string) (int, error) {
	resp, err := f.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return NoResponse, err
	}
	return resp.StatusCode, nil
}

func (f *CollyFetcher) do(ctx context.Context, method, rawURL string) (*colly.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cctx := colly.NewContext()
	if err := f.collector.Request(method, rawURL, nil, cctx, nil); err != nil {
		return nil, err
	}
	resp, ok := cctx.GetAny(responseKey).(*colly.Response)
	if !ok || resp == nil {
		return nil, errNoResponse
	}
	return resp, nil
}

// decompressResponse 根据Content-Encoding解压响应体
// Colly已经处理过gzip,只有仍带gzip魔数的内容才再次解压
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip", "x-gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)

	case "deflate":
		// 多数服务器发送zlib封装的deflate,少数发送裸deflate
		if reader, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer reader.Close()
			return io.ReadAll(reader)
		}
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
