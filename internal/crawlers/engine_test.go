package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/models"
)

// testPage 测试站点中的一个页面
type testPage struct {
	status   int
	body     string
	redirect string // 非空时302跳转到该路径
}

// newTestSite 启动测试站点,body中的 {{base}} 替换为站点地址
// 未登记的路径返回404;"/reset" 对HEAD请求直接断开连接
func newTestSite(t *testing.T, pages map[string]testPage) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var heads atomic.Int64
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
			if r.URL.Path == "/reset" {
				conn, _, err := w.(http.Hijacker).Hijack()
				if err == nil {
					conn.Close()
				}
				return
			}
		}
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if page.redirect != "" {
			http.Redirect(w, r, page.redirect, http.StatusFound)
			return
		}
		status := page.status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, strings.ReplaceAll(page.body, "{{base}}", server.URL))
	}))
	t.Cleanup(server.Close)
	return server, &heads
}

func newTestEngine(t *testing.T, cfg models.CrawlConfig, opts ...EngineOption) *Engine {
	t.Helper()
	fetcher, err := NewCollyFetcher(FetcherOptions{Timeout: 5 * time.Second, Parallelism: cfg.Workers})
	if err != nil {
		t.Fatalf("NewCollyFetcher() error = %v", err)
	}
	engine, err := NewEngine(cfg, fetcher, opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func testConfig(maxPages, workers int) models.CrawlConfig {
	cfg := models.DefaultCrawlConfig()
	cfg.MaxPages = maxPages
	cfg.Workers = workers
	cfg.Timeout = 5 * time.Second
	return cfg
}

func basicSite() map[string]testPage {
	return map[string]testPage{
		"/":  {body: `<title>Home</title><a href="/a">A</a> <a href="/b/">B</a> <a href="/missing">M</a> <a href="http://other.test/x">X</a> <a href="mailto:me@ex.test">mail</a>`},
		"/a": {body: `<a href="/">home</a> <a href="{{base}}/missing#frag">M</a>`},
		"/b": {body: `<p>leaf</p>`},
	}
}

func TestEngine_BasicSite(t *testing.T) {
	server, _ := newTestSite(t, basicSite())
	engine := newTestEngine(t, testConfig(100, 1))

	result, err := engine.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	base := server.URL
	wantVisited := []string{base, base + "/a", base + "/b", base + "/missing"}
	if !slices.Equal(result.Visited, wantVisited) {
		t.Errorf("Visited = %v, want %v", result.Visited, wantVisited)
	}

	if len(result.Broken) != 1 {
		t.Fatalf("Broken = %+v, want 1 entry", result.Broken)
	}
	entry := result.Broken[0]
	if entry.Target != base+"/missing" || entry.Cause != "404" {
		t.Errorf("失效条目 = %+v", entry)
	}
	wantSources := []string{"(direct visit)", base, base + "/a"}
	if !slices.Equal(entry.Sources, wantSources) {
		t.Errorf("Sources = %v, want %v", entry.Sources, wantSources)
	}

	if result.Stats.VisitedPages != 4 || result.Stats.BrokenPages != 1 || result.Stats.BrokenTargets != 1 {
		t.Errorf("Stats = %+v", result.Stats)
	}
	// 首页3个站内链接 + /a 的2个
	if result.Stats.LinksChecked != 5 || result.Stats.BrokenLinks != 2 {
		t.Errorf("LinksChecked = %d, BrokenLinks = %d", result.Stats.LinksChecked, result.Stats.BrokenLinks)
	}
	if result.Pages[0].Title != "Home" || result.Pages[0].Links != 3 {
		t.Errorf("首页记录 = %+v", result.Pages[0])
	}
}

func TestEngine_MaxPages(t *testing.T) {
	server, _ := newTestSite(t, basicSite())

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			engine := newTestEngine(t, testConfig(2, workers))
			result, err := engine.Run(context.Background(), server.URL)
			if err != nil {
				t.Fatal(err)
			}
			if len(result.Visited) != 2 {
				t.Errorf("Visited = %v, want 2 pages", result.Visited)
			}
		})
	}
}

func TestEngine_MaxPagesOne(t *testing.T) {
	server, heads := newTestSite(t, basicSite())
	engine := newTestEngine(t, testConfig(1, 1))

	result, err := engine.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(result.Visited, []string{server.URL}) {
		t.Errorf("Visited = %v", result.Visited)
	}
	// 起始页的链接仍然会被校验
	if heads.Load() != 3 {
		t.Errorf("HEAD次数 = %d, want 3", heads.Load())
	}
}

func TestEngine_Cycle(t *testing.T) {
	server, _ := newTestSite(t, map[string]testPage{
		"/":  {body: `<a href="/x">x</a>`},
		"/x": {body: `<a href="/y/">y</a><a href="/">home</a>`},
		"/y": {body: `<a href="/x">x</a><a href="/">home</a><a href="/y">self</a>`},
	})
	engine := newTestEngine(t, testConfig(100, 1))

	result, err := engine.Run(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Visited) != 3 || len(result.Broken) != 0 {
		t.Errorf("Visited = %v, Broken = %v", result.Visited, result.Broken)
	}
	if result.Visited[0] != server.URL {
		t.Errorf("起始页键应去掉末尾斜杠: %q", result.Visited[0])
	}
	// max_pages大于页面数时,结束时前沿队列必须为空
	if n := engine.queue.PendingCount(); n != 0 {
		t.Errorf("PendingCount() = %d, want 0", n)
	}
}

func TestEngine_RedirectLoop(t *testing.T) {
	server, _ := newTestSite(t, map[string]testPage{
		"/":      {body: `<a href="/loop">loop</a><a href="/moved">moved</a>`},
		"/loop":  {redirect: "/loop"},
		"/moved": {redirect: "/gone"},
	})
	engine := newTestEngine(t, testConfig(10, 1))

	result, err := engine.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}

	base := server.URL
	causes := make(map[string][]string)
	for _, entry := range result.Broken {
		key := entry.Target + " (" + entry.Cause + ")"
		if strings.HasPrefix(entry.Cause, "NETWORK ERROR: ") {
			key = entry.Target + " (NETWORK ERROR: ...)"
		}
		causes[key] = entry.Sources
	}

	want := map[string][]string{
		base + "/loop (NETWORK ERROR)":      {base},
		base + "/loop (NETWORK ERROR: ...)": {models.SourceFetchFailed},
		base + "/moved (404)":               {models.SourceDirectVisit, base},
	}
	if len(causes) != len(want) {
		t.Fatalf("Broken = %+v", result.Broken)
	}
	for key, sources := range want {
		if !slices.Equal(causes[key], sources) {
			t.Errorf("%s: Sources = %v, want %v", key, causes[key], sources)
		}
	}
	if result.Stats.FetchFailures != 1 {
		t.Errorf("FetchFailures = %d, want 1", result.Stats.FetchFailures)
	}
}

func TestEngine_FetchFailed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	engine := newTestEngine(t, testConfig(10, 1))
	result, err := engine.Run(context.Background(), addr)
	if err != nil {
		t.Fatalf("网络失败不应返回error: %v", err)
	}

	if len(result.Visited) != 1 || len(result.Broken) != 1 {
		t.Fatalf("Visited = %v, Broken = %+v", result.Visited, result.Broken)
	}
	entry := result.Broken[0]
	if !strings.HasPrefix(entry.Cause, "NETWORK ERROR: ") {
		t.Errorf("Cause = %q, want NETWORK ERROR: 前缀", entry.Cause)
	}
	if !slices.Equal(entry.Sources, []string{models.SourceFetchFailed}) {
		t.Errorf("Sources = %v", entry.Sources)
	}
	if result.Stats.FetchFailures != 1 {
		t.Errorf("FetchFailures = %d, want 1", result.Stats.FetchFailures)
	}
}

func TestEngine_DirectVisitBroken(t *testing.T) {
	server, heads := newTestSite(t, map[string]testPage{
		"/": {status: 500, body: `<a href="/never">n</a>`},
	})
	engine := newTestEngine(t, testConfig(10, 1))

	result, err := engine.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Broken) != 1 || result.Broken[0].Cause != "500" {
		t.Fatalf("Broken = %+v", result.Broken)
	}
	if !slices.Equal(result.Broken[0].Sources, []string{models.SourceDirectVisit}) {
		t.Errorf("Sources = %v", result.Broken[0].Sources)
	}
	if heads.Load() != 0 {
		t.Error("失效页面不应被展开")
	}
}

func TestEngine_HeadNetworkError(t *testing.T) {
	server, _ := newTestSite(t, map[string]testPage{
		"/":      {body: `<a href="/reset">r</a>`},
		"/reset": {body: `ok`},
	})
	engine := newTestEngine(t, testConfig(10, 1))

	result, err := engine.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Broken) != 1 {
		t.Fatalf("Broken = %+v", result.Broken)
	}
	entry := result.Broken[0]
	if entry.Target != server.URL+"/reset" || entry.Cause != "NETWORK ERROR" {
		t.Errorf("失效条目 = %+v", entry)
	}
	if !slices.Equal(entry.Sources, []string{server.URL}) {
		t.Errorf("Sources = %v", entry.Sources)
	}
}

func TestEngine_WorkersMatchSequential(t *testing.T) {
	pages := map[string]testPage{
		"/": {body: `<a href="/1">1</a><a href="/2">2</a><a href="/3">3</a><a href="/dead1">d</a>`},
	}
	for i := 1; i <= 3; i++ {
		pages[fmt.Sprintf("/%d", i)] = testPage{body: fmt.Sprintf(
			`<a href="/%d/a">a</a><a href="/%d/b">b</a><a href="/dead%d">d</a><a href="/">h</a>`, i, i, i%2+1)}
		pages[fmt.Sprintf("/%d/a", i)] = testPage{body: `<a href="/3">3</a>`}
		pages[fmt.Sprintf("/%d/b", i)] = testPage{status: 503}
	}
	server, _ := newTestSite(t, pages)

	sequential, err := newTestEngine(t, testConfig(100, 1)).Run(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := newTestEngine(t, testConfig(100, 4)).Run(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(sequential.Visited, parallel.Visited) {
		t.Errorf("访问顺序不一致:\n%v\n%v", sequential.Visited, parallel.Visited)
	}
	if len(sequential.Broken) != len(parallel.Broken) {
		t.Fatalf("失效条目数不一致: %d vs %d", len(sequential.Broken), len(parallel.Broken))
	}
	for i := range sequential.Broken {
		s, p := sequential.Broken[i], parallel.Broken[i]
		if s.Target != p.Target || s.Cause != p.Cause || !slices.Equal(s.Sources, p.Sources) {
			t.Errorf("第%d个失效条目不一致: %+v vs %+v", i, s, p)
		}
	}
}

func TestEngine_CacheChecks(t *testing.T) {
	server, heads := newTestSite(t, map[string]testPage{
		"/":  {body: `<a href="/a">a</a><a href="/a">a</a><a href="/a/">a</a>`},
		"/a": {body: `<a href="/">h</a>`},
	})

	cfg := testConfig(10, 1)
	cfg.CacheChecks = true
	result, err := newTestEngine(t, cfg).Run(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if heads.Load() != 2 {
		t.Errorf("开启缓存后每个目标只校验一次, HEAD次数 = %d", heads.Load())
	}
	// 缓存命中也计入校验次数
	if result.Stats.LinksChecked != 4 {
		t.Errorf("LinksChecked = %d, want 4", result.Stats.LinksChecked)
	}
}

func TestEngine_Cancelled(t *testing.T) {
	server, _ := newTestSite(t, basicSite())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls []int
	engine := newTestEngine(t, testConfig(100, 1), WithProgress(func(visited int, current string) {
		calls = append(calls, visited)
		if visited == 2 {
			cancel()
		}
	}))

	result, err := engine.Run(ctx, server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Interrupted {
		t.Error("Interrupted应为true")
	}
	if len(result.Visited) != 2 {
		t.Errorf("Visited = %v, want 2 pages", result.Visited)
	}
	if !slices.Equal(calls, []int{1, 2}) {
		t.Errorf("进度回调 = %v", calls)
	}
}

func TestEngine_InvalidConfig(t *testing.T) {
	fetcher, _ := NewCollyFetcher(FetcherOptions{})
	if _, err := NewEngine(models.CrawlConfig{}, fetcher); err == nil {
		t.Error("零值配置应验证失败")
	}
	if _, err := NewEngine(models.DefaultCrawlConfig(), nil); err == nil {
		t.Error("fetcher为空应失败")
	}
}
