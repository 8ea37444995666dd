package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带端口的URL", "http://127.0.0.1:8080/", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
		{"缺少主机名", "http:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("期望 *ValidationError, 实际 %T", err)
				}
			}
		})
	}
}

func TestCrawlConfig_Validate(t *testing.T) {
	valid := DefaultCrawlConfig()

	tests := []struct {
		name    string
		mutate  func(c *CrawlConfig)
		wantErr bool
	}{
		{"默认配置", func(c *CrawlConfig) {}, false},
		{"最大页面数为1", func(c *CrawlConfig) { c.MaxPages = 1 }, false},
		{"最大页面数为0", func(c *CrawlConfig) { c.MaxPages = 0 }, true},
		{"超时为0", func(c *CrawlConfig) { c.Timeout = 0 }, true},
		{"并发数为0", func(c *CrawlConfig) { c.Workers = 0 }, true},
		{"并发数上限", func(c *CrawlConfig) { c.Workers = MaxWorkersLimit }, false},
		{"并发数过大", func(c *CrawlConfig) { c.Workers = MaxWorkersLimit + 1 }, true},
		{"负的速率", func(c *CrawlConfig) { c.RequestsPerSecond = -1 }, true},
		{"负的响应体上限", func(c *CrawlConfig) { c.MaxBodySize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultCrawlConfig(t *testing.T) {
	cfg := DefaultCrawlConfig()
	if cfg.MaxPages != 10000 {
		t.Errorf("MaxPages = %d, want 10000", cfg.MaxPages)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
}

func TestNewCrawlTask(t *testing.T) {
	task, err := NewCrawlTask("https://example.com:8443/docs", DefaultCrawlConfig())
	if err != nil {
		t.Fatalf("NewCrawlTask() error = %v", err)
	}

	if task.ID == "" {
		t.Error("任务ID不应为空")
	}
	if task.Domain != "example.com:8443" {
		t.Errorf("Domain = %v, want example.com:8443", task.Domain)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("Status = %v, want %v", task.Status, TaskStatusPending)
	}

	task.Start()
	if task.Status != TaskStatusRunning || task.StartedAt == nil {
		t.Errorf("Start() 后状态异常: %v", task.Status)
	}

	task.Finish(true)
	if task.Status != TaskStatusInterrupted || task.CompletedAt == nil {
		t.Errorf("Finish(true) 后状态 = %v, want %v", task.Status, TaskStatusInterrupted)
	}

	if _, err := NewCrawlTask("ftp://example.com", DefaultCrawlConfig()); err == nil {
		t.Error("非HTTP协议应该失败")
	}
	bad := DefaultCrawlConfig()
	bad.MaxPages = 0
	if _, err := NewCrawlTask("https://example.com", bad); err == nil {
		t.Error("无效配置应该失败")
	}
}

func TestBrokenDescriptor_Cause(t *testing.T) {
	tests := []struct {
		name string
		desc BrokenDescriptor
		want string
	}{
		{"状态码", BrokenDescriptor{Target: "http://ex.test/a", Status: 404}, "http://ex.test/a (404)"},
		{"HEAD网络错误", BrokenDescriptor{Target: "http://ex.test/b"}, "http://ex.test/b (NETWORK ERROR)"},
		{"GET网络错误", BrokenDescriptor{Target: "http://ex.test/c", Reason: "connection refused"}, "http://ex.test/c (NETWORK ERROR: connection refused)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBrokenDescriptor_Comparable(t *testing.T) {
	m := map[BrokenDescriptor]int{}
	m[BrokenDescriptor{Target: "x", Status: 404}]++
	m[BrokenDescriptor{Target: "x", Status: 404}]++
	m[BrokenDescriptor{Target: "x", Status: 500}]++

	if len(m) != 2 {
		t.Errorf("len = %d, want 2", len(m))
	}
}

func TestCliHeaders_Parse(t *testing.T) {
	h, err := CliHeaders{"X-Token: a:b:c", "Accept:  text/html ", "x-token: d"}.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := h.Get("X-Token"); got != "d" {
		t.Errorf("X-Token = %q, want d", got)
	}
	if got := h.Get("Accept"); got != "text/html" {
		t.Errorf("Accept = %q, want text/html", got)
	}

	for _, bad := range []string{"NoColon", ": value"} {
		if _, err := (CliHeaders{bad}).Parse(); err == nil {
			t.Errorf("Parse(%q) 应该失败", bad)
		}
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("yaml: line 3")
	err := &ConfigError{FilePath: "headers.yaml", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is 应该能找到底层错误")
	}
}

func TestCrawlReport_JSON(t *testing.T) {
	report := &CrawlReport{
		TaskID:    "test-123",
		StartURL:  "https://example.com",
		Domain:    "example.com",
		Status:    TaskStatusCompleted,
		StartTime: time.Now(),
		EndTime:   time.Now(),
		Stats:     TaskStats{VisitedPages: 2, BrokenTargets: 1},
		Pages: []PageRecord{
			{URL: "https://example.com", Status: 200, Title: "Home", Links: 1},
			{URL: "https://example.com/gone", Status: 404},
		},
		Broken: []BrokenEntry{
			{Target: "https://example.com/gone", Status: 404, Cause: "404", Sources: []string{"https://example.com"}},
		},
	}

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var decoded CrawlReport
	if err := decoded.FromJSON(data); err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if decoded.TaskID != report.TaskID || len(decoded.Broken) != 1 || len(decoded.Pages) != 2 {
		t.Errorf("反序列化结果不一致: %+v", decoded)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["broken"]; !ok {
		t.Error("JSON中缺少 broken 字段")
	}
}

func TestPageRecord_Broken(t *testing.T) {
	if (&PageRecord{Status: 200}).Broken() {
		t.Error("200 不应视为失效")
	}
	if !(&PageRecord{Status: 404}).Broken() {
		t.Error("404 应视为失效")
	}
	if !(&PageRecord{Error: "timeout"}).Broken() {
		t.Error("网络错误应视为失效")
	}
}
